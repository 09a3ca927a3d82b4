package onboarding

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

	"github.com/medicura/medicura-api/internal/handler"
	"github.com/medicura/medicura-api/internal/middleware"
	"github.com/medicura/medicura-api/internal/model"
	"github.com/medicura/medicura-api/internal/repository/postgres"
	onboardingservice "github.com/medicura/medicura-api/internal/service/onboarding"
	"github.com/medicura/medicura-api/internal/service/role"
)

type stubUserRepo struct {
	users map[string]*model.User
}

func (r *stubUserRepo) Create(context.Context, *model.User) error { return nil }

func (r *stubUserRepo) Get(context.Context, uuid.UUID) (*model.User, error) {
	return nil, postgres.ErrNoRows
}

func (r *stubUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	u, ok := r.users[email]
	if !ok {
		return nil, postgres.ErrNoRows
	}
	return u, nil
}

func (r *stubUserRepo) Update(context.Context, *model.User) error { return nil }
func (r *stubUserRepo) Delete(context.Context, uuid.UUID) error   { return nil }
func (r *stubUserRepo) List(context.Context, *model.UserFilters) ([]*model.User, error) {
	return nil, nil
}

type stubProfileRepo struct{}

func (stubProfileRepo) Create(context.Context, *model.RoleProfile) error { return nil }

func (stubProfileRepo) GetByUserID(context.Context, uuid.UUID, model.Role) (*model.RoleProfile, error) {
	return nil, postgres.ErrNoRows
}

func (stubProfileRepo) Update(context.Context, *model.RoleProfile) error { return nil }

func (stubProfileRepo) MarkOnboarded(context.Context, uuid.UUID, model.Role) (bool, error) {
	return false, nil
}

func (stubProfileRepo) ListByRole(context.Context, model.Role) ([]*model.RoleProfile, error) {
	return nil, nil
}

func newStatusRouter(identity model.Identity, users map[string]*model.User) *gin.Engine {
	gin.SetMode(gin.TestMode)

	resolver := role.NewService(&stubUserRepo{users: users}, stubProfileRepo{}, time.Minute)
	svc := onboardingservice.NewService(stubProfileRepo{}, resolver)
	h := NewHandler(svc, resolver, nil)

	r := gin.New()
	r.GET("/onboarding/status", func(c *gin.Context) {
		c.Set(middleware.ContextIdentity, identity)
		c.Next()
	}, h.Status)
	return r
}

func TestStatusMissingAccountGetsGenericMessage(t *testing.T) {
	identity := model.Identity{UserID: uuid.New(), SessionID: uuid.New(), Email: "ghost@medicura.test"}
	r := newStatusRouter(identity, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/onboarding/status", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)

	var resp handler.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	// The response must not reveal whether the account exists.
	assert.Equal(t, "authentication required", resp.Message)
}

func TestStatusMissingProfileReportsNotOnboarded(t *testing.T) {
	identity := model.Identity{UserID: uuid.New(), SessionID: uuid.New(), Email: "new@medicura.test"}
	users := map[string]*model.User{
		"new@medicura.test": {
			Email: "new@medicura.test",
			Name:  "New Patient",
			Role:  model.RolePatient,
		},
	}
	r := newStatusRouter(identity, users)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/onboarding/status", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			HasOnboarded bool `json:"has_onboarded"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Data.HasOnboarded)
}
