package billing

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medicura/medicura-api/internal/handler"
	"github.com/medicura/medicura-api/internal/middleware"
	"github.com/medicura/medicura-api/internal/model"
	"github.com/medicura/medicura-api/internal/service/billing"
)

type Handler struct {
	svc *billing.Service
}

func NewHandler(svc *billing.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterReceptionistRoutes(r *gin.RouterGroup) {
	r.POST("/invoices", h.Create)
	r.GET("/invoices", h.listAll)
	r.PUT("/invoices/:id/pay", h.RecordPayment)
}

func (h *Handler) RegisterPatientRoutes(r *gin.RouterGroup) {
	r.GET("/invoices", h.listForPatient)
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	inv, err := h.svc.CreateInvoice(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(inv))
}

func (h *Handler) RecordPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid invoice id"))
		return
	}

	inv, err := h.svc.RecordPayment(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, billing.ErrNotPayable) {
			c.JSON(http.StatusConflict, handler.NewErrorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusNotFound, handler.NewErrorResponse("invoice not found"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(inv))
}

func (h *Handler) listAll(c *gin.Context) {
	h.list(c, &model.InvoiceFilters{Status: c.Query("status")})
}

func (h *Handler) listForPatient(c *gin.Context) {
	identity, _ := middleware.Identity(c)
	h.list(c, &model.InvoiceFilters{PatientID: identity.UserID, Status: c.Query("status")})
}

func (h *Handler) list(c *gin.Context, filters *model.InvoiceFilters) {
	invoices, err := h.svc.List(c.Request.Context(), filters)
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to list invoices"))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(invoices))
}
