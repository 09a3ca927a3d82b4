package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medicura/medicura-api/internal/handler"
	"github.com/medicura/medicura-api/internal/middleware"
	"github.com/medicura/medicura-api/internal/model"
	"github.com/medicura/medicura-api/internal/service/auth"
	"github.com/medicura/medicura-api/internal/service/role"
)

type Handler struct {
	svc      *auth.Service
	resolver *role.Service
	authMW   *middleware.AuthMiddleware
}

func NewHandler(svc *auth.Service, resolver *role.Service, authMW *middleware.AuthMiddleware) *Handler {
	return &Handler{svc: svc, resolver: resolver, authMW: authMW}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	grp := r.Group("/auth")
	{
		grp.POST("/register", h.Register)
		grp.POST("/login", h.Login)
		grp.POST("/refresh", h.Refresh)
		grp.POST("/logout", h.authMW.Authenticate(), h.Logout)
		grp.GET("/me", h.authMW.Authenticate(), h.Me)
	}
}

func (h *Handler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	user, err := h.svc.Register(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, auth.ErrEmailTaken) {
			c.JSON(http.StatusConflict, handler.NewErrorResponse("email already registered"))
			return
		}
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to register"))
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(user))
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	tokens, err := h.svc.Login(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrAccountLocked):
			c.JSON(http.StatusForbidden, handler.NewErrorResponse(err.Error()))
		case errors.Is(err, model.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid credentials"))
		default:
			c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to sign in"))
		}
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(tokens))
}

func (h *Handler) Refresh(c *gin.Context) {
	var req model.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	tokens, err := h.svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrSessionExpired) {
			c.JSON(http.StatusUnauthorized, &handler.Response{
				Status:  "error",
				Message: "session expired",
				Data:    gin.H{"session_expired": true},
			})
			return
		}
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("invalid refresh token"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(tokens))
}

// Me returns the signed-in account as the client sees it: role, display
// name, onboarding state and the dashboard it should land on.
func (h *Handler) Me(c *gin.Context) {
	identity, ok := middleware.Identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
		return
	}

	res, err := h.resolver.Resolve(c.Request.Context(), identity.Email)
	if err != nil {
		if errors.Is(err, role.ErrAccountNotFound) {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
			return
		}
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to load account"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"user_id":       res.UserID,
		"email":         identity.Email,
		"name":          res.DisplayName,
		"role":          res.Role,
		"has_onboarded": res.Onboarded(),
		"dashboard":     res.Role.DashboardPath(),
	}))
}

func (h *Handler) Logout(c *gin.Context) {
	identity, ok := middleware.Identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
		return
	}

	if err := h.svc.Logout(c.Request.Context(), identity); err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to sign out"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse("signed out"))
}
