package onboarding

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medicura/medicura-api/internal/handler"
	"github.com/medicura/medicura-api/internal/middleware"
	"github.com/medicura/medicura-api/internal/model"
	"github.com/medicura/medicura-api/internal/service/onboarding"
	"github.com/medicura/medicura-api/internal/service/role"
)

// Handler serves the onboarding flow. Its routes sit behind authentication
// only, not the role guard: an un-onboarded user must be able to reach them.
type Handler struct {
	svc      *onboarding.Service
	resolver *role.Service
	authMW   *middleware.AuthMiddleware
}

func NewHandler(svc *onboarding.Service, resolver *role.Service, authMW *middleware.AuthMiddleware) *Handler {
	return &Handler{svc: svc, resolver: resolver, authMW: authMW}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	grp := r.Group("/onboarding", h.authMW.Authenticate())
	{
		grp.GET("/status", h.Status)
		grp.POST("", h.Complete)
	}
}

func (h *Handler) Status(c *gin.Context) {
	identity, res, ok := h.resolve(c)
	if !ok {
		return
	}

	done, err := h.svc.Status(c.Request.Context(), identity, res.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to check onboarding status"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"role":          res.Role,
		"has_onboarded": done,
		"dashboard":     res.Role.DashboardPath(),
	}))
}

func (h *Handler) Complete(c *gin.Context) {
	identity, res, ok := h.resolve(c)
	if !ok {
		return
	}

	var req model.OnboardingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	profile, err := h.svc.Complete(c.Request.Context(), identity, res.Role, &req)
	if err != nil {
		switch {
		case errors.Is(err, onboarding.ErrAlreadyOnboarded):
			c.JSON(http.StatusConflict, &handler.Response{
				Status:  "error",
				Message: "onboarding already completed",
				Data:    gin.H{"redirect": res.Role.DashboardPath()},
			})
		case errors.Is(err, onboarding.ErrMissingFields), errors.Is(err, onboarding.ErrNoProfile):
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		default:
			c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to complete onboarding"))
		}
		return
	}

	c.JSON(http.StatusOK, &handler.Response{
		Status: "success",
		Data: gin.H{
			"profile":  profile,
			"redirect": res.Role.DashboardPath(),
		},
	})
}

// RegisterProfileRoutes mounts the post-onboarding profile surface inside a
// role group, so the role guard has already run by the time these execute.
func (h *Handler) RegisterProfileRoutes(r *gin.RouterGroup) {
	r.GET("/profile", h.Profile)
	r.PUT("/profile", h.UpdateProfile)
}

func (h *Handler) Profile(c *gin.Context) {
	identity, res, ok := h.resolve(c)
	if !ok {
		return
	}

	profile, err := h.svc.Profile(c.Request.Context(), identity, res.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to load profile"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(profile))
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	identity, res, ok := h.resolve(c)
	if !ok {
		return
	}

	var req model.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	profile, err := h.svc.UpdateProfile(c.Request.Context(), identity, res.Role, &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to update profile"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(profile))
}

func (h *Handler) resolve(c *gin.Context) (model.Identity, *role.Resolution, bool) {
	identity, ok := middleware.Identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
		return model.Identity{}, nil, false
	}

	res, err := h.resolver.Resolve(c.Request.Context(), identity.Email)
	if err != nil {
		// Same generic message for a missing account as for a missing
		// token, so account existence is never confirmed.
		if errors.Is(err, role.ErrAccountNotFound) {
			c.JSON(http.StatusUnauthorized, handler.NewErrorResponse("authentication required"))
		} else {
			c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to resolve account role"))
		}
		return model.Identity{}, nil, false
	}
	return identity, res, true
}
