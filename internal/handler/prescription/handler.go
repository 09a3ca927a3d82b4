package prescription

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medicura/medicura-api/internal/handler"
	"github.com/medicura/medicura-api/internal/middleware"
	"github.com/medicura/medicura-api/internal/model"
	"github.com/medicura/medicura-api/internal/service/prescription"
)

type Handler struct {
	svc *prescription.Service
}

func NewHandler(svc *prescription.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterDoctorRoutes(r *gin.RouterGroup) {
	r.POST("/prescriptions", h.Write)
	r.GET("/prescriptions", h.listForDoctor)
	r.DELETE("/prescriptions/:id", h.Cancel)
}

func (h *Handler) RegisterPharmacistRoutes(r *gin.RouterGroup) {
	r.GET("/prescriptions", h.listByStatus)
	r.PUT("/prescriptions/:id/fill", h.Fill)
}

func (h *Handler) RegisterPatientRoutes(r *gin.RouterGroup) {
	r.GET("/prescriptions", h.listForPatient)
}

func (h *Handler) Write(c *gin.Context) {
	identity, _ := middleware.Identity(c)

	var req model.CreatePrescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	p, err := h.svc.Write(c.Request.Context(), identity.UserID, &req)
	if err != nil {
		if errors.Is(err, prescription.ErrUnknownMedicine) {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to create prescription"))
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(p))
}

func (h *Handler) Fill(c *gin.Context) {
	identity, _ := middleware.Identity(c)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid prescription id"))
		return
	}

	p, err := h.svc.Fill(c.Request.Context(), id, identity.UserID)
	if err != nil {
		if errors.Is(err, prescription.ErrNotPending) {
			c.JSON(http.StatusConflict, handler.NewErrorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(p))
}

func (h *Handler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid prescription id"))
		return
	}

	p, err := h.svc.Cancel(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, prescription.ErrNotPending) {
			c.JSON(http.StatusConflict, handler.NewErrorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusNotFound, handler.NewErrorResponse("prescription not found"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(p))
}

func (h *Handler) listForDoctor(c *gin.Context) {
	identity, _ := middleware.Identity(c)
	h.list(c, &model.PrescriptionFilters{DoctorID: identity.UserID, Status: c.Query("status")})
}

func (h *Handler) listForPatient(c *gin.Context) {
	identity, _ := middleware.Identity(c)
	h.list(c, &model.PrescriptionFilters{PatientID: identity.UserID, Status: c.Query("status")})
}

func (h *Handler) listByStatus(c *gin.Context) {
	status := c.DefaultQuery("status", model.PrescriptionStatusPending)
	h.list(c, &model.PrescriptionFilters{Status: status})
}

func (h *Handler) list(c *gin.Context, filters *model.PrescriptionFilters) {
	prescriptions, err := h.svc.List(c.Request.Context(), filters)
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to list prescriptions"))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(prescriptions))
}
