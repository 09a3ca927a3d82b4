package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/medicura/medicura-api/internal/guard"
	"github.com/medicura/medicura-api/internal/handler"
	"github.com/medicura/medicura-api/internal/model"
	"github.com/medicura/medicura-api/pkg/auth"
)

// Context keys set by the auth middleware for downstream handlers.
const (
	ContextIdentity    = "identity"
	ContextRole        = "role"
	ContextProfile     = "profile"
	ContextDisplayName = "display_name"
)

type AuthMiddleware struct {
	jwtService auth.JWTService
	evaluator  *guard.Evaluator
}

func NewAuthMiddleware(jwtService auth.JWTService, evaluator *guard.Evaluator) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		evaluator:  evaluator,
	}
}

// Authenticate verifies the bearer token and stores the caller's identity in
// context. It does not touch the session store; hard expiry is enforced by
// RequireRole so a still-valid token cannot outlive its session.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("missing authorization header"))
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid authorization format"))
			c.Abort()
			return
		}

		claims, err := m.jwtService.ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid token"))
			c.Abort()
			return
		}

		c.Set(ContextIdentity, model.Identity{
			UserID:    claims.UserID,
			SessionID: claims.SessionID,
			Email:     claims.Email,
		})
		c.Next()
	}
}

// RequireRole runs the guard for a role-scoped route group. The decision
// mapping keeps a single contract across all dashboards: 401 with a
// session_expired flag, 409 with an onboarding redirect, 403 with the
// caller's own dashboard, or the handler itself.
func (m *AuthMiddleware) RequireRole(requiredRole model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, exists := c.Get(ContextIdentity)
		if !exists {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
			c.Abort()
			return
		}
		identity := v.(model.Identity)

		decision := m.evaluator.Evaluate(c.Request.Context(), identity, requiredRole)
		switch decision.Outcome {
		case guard.OutcomeAuthorized:
			c.Set(ContextIdentity, decision.Identity)
			c.Set(ContextRole, decision.Role)
			c.Set(ContextDisplayName, decision.DisplayName)
			if decision.Profile != nil {
				c.Set(ContextProfile, decision.Profile)
			}
			c.Next()

		case guard.OutcomeOnboardingRequired:
			c.JSON(http.StatusConflict, &handler.Response{
				Status:  "error",
				Message: "onboarding required",
				Data:    gin.H{"redirect": decision.Redirect},
			})
			c.Abort()

		case guard.OutcomeForbidden:
			c.JSON(http.StatusForbidden, &handler.Response{
				Status:  "error",
				Message: "access denied",
				Data:    gin.H{"redirect": decision.Redirect},
			})
			c.Abort()

		default:
			c.JSON(http.StatusUnauthorized, &handler.Response{
				Status:  "error",
				Message: "sign in required",
				Data:    gin.H{"session_expired": decision.SessionExpired},
			})
			c.Abort()
		}
	}
}

// Identity returns the authenticated identity previously set by Authenticate.
func Identity(c *gin.Context) (model.Identity, bool) {
	v, exists := c.Get(ContextIdentity)
	if !exists {
		return model.Identity{}, false
	}
	id, ok := v.(model.Identity)
	return id, ok
}
