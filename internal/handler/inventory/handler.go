package inventory

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medicura/medicura-api/internal/handler"
	"github.com/medicura/medicura-api/internal/model"
	"github.com/medicura/medicura-api/internal/service/inventory"
)

type Handler struct {
	svc *inventory.Service
}

func NewHandler(svc *inventory.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterPharmacistRoutes(r *gin.RouterGroup) {
	meds := r.Group("/medications")
	{
		meds.POST("", h.Add)
		meds.GET("", h.List)
		meds.GET("/low-stock", h.LowStock)
		meds.GET("/expiring", h.Expiring)
		meds.GET("/:id", h.Get)
		meds.PUT("/:id/restock", h.Restock)
		meds.DELETE("/:id", h.Remove)
	}
}

func (h *Handler) Add(c *gin.Context) {
	var req model.CreateMedicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	m, err := h.svc.AddMedication(c.Request.Context(), &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(m))
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid medication id"))
		return
	}

	m, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, handler.NewErrorResponse("medication not found"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(m))
}

func (h *Handler) List(c *gin.Context) {
	meds, err := h.svc.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to list medications"))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(meds))
}

func (h *Handler) LowStock(c *gin.Context) {
	meds, err := h.svc.LowStock(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to list low stock"))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(meds))
}

func (h *Handler) Expiring(c *gin.Context) {
	meds, err := h.svc.ExpiringSoon(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to list expiring medications"))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(meds))
}

func (h *Handler) Restock(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid medication id"))
		return
	}

	var req model.RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	if err := h.svc.Restock(c.Request.Context(), id, req.Quantity); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse("stock updated"))
}

func (h *Handler) Remove(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid medication id"))
		return
	}

	if err := h.svc.Remove(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to remove medication"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse("medication removed"))
}
