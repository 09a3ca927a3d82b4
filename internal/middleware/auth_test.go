package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicura/medicura-api/internal/guard"
	"github.com/medicura/medicura-api/internal/model"
	"github.com/medicura/medicura-api/internal/service/role"
	"github.com/medicura/medicura-api/internal/session"
	"github.com/medicura/medicura-api/pkg/auth"
)

type stubResolver struct {
	res *role.Resolution
	err error
}

func (s *stubResolver) Resolve(context.Context, string) (*role.Resolution, error) {
	return s.res, s.err
}

type fixture struct {
	store    *session.MemoryStore
	resolver *stubResolver
	jwt      auth.JWTService
	router   *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{
		store:    session.NewMemoryStore(),
		resolver: &stubResolver{},
		jwt: auth.NewJWTService(auth.JWTConfig{
			Secret:        "test-secret",
			RefreshSecret: "test-refresh-secret",
			Expiry:        15 * time.Minute,
			RefreshExpiry: 24 * time.Hour,
		}),
	}

	evaluator := guard.NewEvaluator(f.store, f.resolver, time.Second)
	m := NewAuthMiddleware(f.jwt, evaluator)

	r := gin.New()
	for _, rl := range []model.Role{model.RolePatient, model.RoleDoctor} {
		grp := r.Group("/" + string(rl))
		grp.Use(m.Authenticate(), m.RequireRole(rl))
		grp.GET("/dashboard", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"name": c.GetString(ContextDisplayName),
			})
		})
	}
	f.router = r
	return f
}

func (f *fixture) signIn(t *testing.T, r model.Role, expiry time.Time) string {
	t.Helper()
	s := &session.Session{
		ID:         uuid.New(),
		UserID:     uuid.New(),
		Email:      "u@medicura.test",
		Name:       "Pat Smith",
		Role:       r,
		IssuedAt:   time.Now(),
		HardExpiry: expiry,
	}
	require.NoError(t, f.store.Save(context.Background(), s))

	token, err := f.jwt.GenerateAccessToken(s.UserID, s.ID, s.Email, string(r))
	require.NoError(t, err)
	return token
}

func (f *fixture) get(path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestOnboardedUserReachesOwnDashboard(t *testing.T) {
	f := newFixture(t)
	token := f.signIn(t, model.RolePatient, time.Now().Add(time.Hour))
	f.resolver.res = &role.Resolution{
		Role:        model.RolePatient,
		Profile:     &model.RoleProfile{Role: model.RolePatient, HasOnboarded: true},
		DisplayName: "Pat Smith",
	}

	w := f.get("/patient/dashboard", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Pat Smith", decodeBody(t, w)["name"])
}

func TestUnboardedUserGetsOnboardingRedirect(t *testing.T) {
	f := newFixture(t)
	token := f.signIn(t, model.RolePatient, time.Now().Add(time.Hour))
	f.resolver.res = &role.Resolution{
		Role:        model.RolePatient,
		Profile:     &model.RoleProfile{Role: model.RolePatient, HasOnboarded: false},
		DisplayName: "Pat Smith",
	}

	w := f.get("/patient/dashboard", token)
	assert.Equal(t, http.StatusConflict, w.Code)
	data := decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, "/patient/onboarding", data["redirect"])
}

func TestWrongRoleIsRedirectedHome(t *testing.T) {
	f := newFixture(t)
	token := f.signIn(t, model.RoleDoctor, time.Now().Add(time.Hour))
	f.resolver.res = &role.Resolution{
		Role:        model.RoleDoctor,
		Profile:     &model.RoleProfile{Role: model.RoleDoctor, HasOnboarded: true},
		DisplayName: "Dr. Smith",
	}

	w := f.get("/patient/dashboard", token)
	assert.Equal(t, http.StatusForbidden, w.Code)
	data := decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, "/doctor/dashboard", data["redirect"])
}

func TestExpiredSessionRejectedDespiteValidToken(t *testing.T) {
	f := newFixture(t)
	token := f.signIn(t, model.RolePatient, time.Now().Add(-time.Minute))
	f.resolver.res = &role.Resolution{
		Role:    model.RolePatient,
		Profile: &model.RoleProfile{Role: model.RolePatient, HasOnboarded: true},
	}

	w := f.get("/patient/dashboard", token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	data := decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, true, data["session_expired"])
}

func TestRevokedSessionReportsExpiryOnce(t *testing.T) {
	f := newFixture(t)
	token := f.signIn(t, model.RolePatient, time.Now().Add(time.Hour))
	claims, err := f.jwt.ValidateToken(token)
	require.NoError(t, err)

	// Simulate the watcher's sign-out: revoke and leave the one-shot marker.
	require.NoError(t, f.store.Revoke(context.Background(), claims.SessionID))
	require.NoError(t, f.store.SetExpiredMarker(context.Background(), claims.UserID))

	w := f.get("/patient/dashboard", token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	data := decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, true, data["session_expired"])

	w = f.get("/patient/dashboard", token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	data = decodeBody(t, w)["data"].(map[string]any)
	assert.Equal(t, false, data["session_expired"])
}

func TestMissingAndMalformedTokens(t *testing.T) {
	f := newFixture(t)

	w := f.get("/patient/dashboard", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.get("/patient/dashboard", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestResolutionFailureBlocksAccess(t *testing.T) {
	f := newFixture(t)
	token := f.signIn(t, model.RolePatient, time.Now().Add(time.Hour))
	f.resolver.err = role.ErrResolutionFailed

	w := f.get("/patient/dashboard", token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
