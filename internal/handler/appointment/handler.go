package appointment

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/medicura/medicura-api/internal/handler"
	"github.com/medicura/medicura-api/internal/middleware"
	"github.com/medicura/medicura-api/internal/model"
	"github.com/medicura/medicura-api/internal/service/appointment"
)

type Handler struct {
	svc *appointment.Service
}

func NewHandler(svc *appointment.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterPatientRoutes mounts the self-service booking surface.
func (h *Handler) RegisterPatientRoutes(r *gin.RouterGroup) {
	r.GET("/doctors/:id/slots", h.AvailableSlots)
	r.GET("/appointments", h.listForPatient)
	r.POST("/appointments", h.Book)
	r.DELETE("/appointments/:id", h.Cancel)
}

// RegisterDoctorRoutes mounts the doctor's schedule surface.
func (h *Handler) RegisterDoctorRoutes(r *gin.RouterGroup) {
	r.GET("/appointments", h.listForDoctor)
	r.PUT("/appointments/:id/complete", h.Complete)
}

// RegisterReceptionistRoutes mounts the front-desk surface: full list access
// plus booking and cancellation on behalf of patients.
func (h *Handler) RegisterReceptionistRoutes(r *gin.RouterGroup) {
	r.GET("/appointments", h.listAll)
	r.POST("/appointments", h.BookForPatient)
	r.DELETE("/appointments/:id", h.Cancel)
}

func (h *Handler) AvailableSlots(c *gin.Context) {
	doctorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid doctor id"))
		return
	}

	day := time.Now()
	if d := c.Query("date"); d != "" {
		day, err = time.Parse("2006-01-02", d)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid date, expected YYYY-MM-DD"))
			return
		}
	}

	slots := h.svc.AvailableSlots(c.Request.Context(), doctorID, day)
	c.JSON(http.StatusOK, handler.NewSuccessResponse(slots))
}

func (h *Handler) Book(c *gin.Context) {
	identity, _ := middleware.Identity(c)

	var req model.BookAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	appt, err := h.svc.Book(c.Request.Context(), identity.UserID, identity.Name, identity.Email, &req)
	if err != nil {
		if errors.Is(err, appointment.ErrSlotTaken) {
			c.JSON(http.StatusConflict, handler.NewErrorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(appt))
}

// BookForPatient books on behalf of a patient identified in the payload.
func (h *Handler) BookForPatient(c *gin.Context) {
	var req struct {
		model.BookAppointmentRequest
		PatientID    string `json:"patient_id" binding:"required,uuid"`
		PatientName  string `json:"patient_name" binding:"required"`
		PatientEmail string `json:"patient_email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid patient id"))
		return
	}

	appt, err := h.svc.Book(c.Request.Context(), patientID, req.PatientName, req.PatientEmail, &req.BookAppointmentRequest)
	if err != nil {
		if errors.Is(err, appointment.ErrSlotTaken) {
			c.JSON(http.StatusConflict, handler.NewErrorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(appt))
}

func (h *Handler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid appointment id"))
		return
	}

	appt, err := h.svc.Cancel(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, appointment.ErrNotCancelable) {
			c.JSON(http.StatusConflict, handler.NewErrorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusNotFound, handler.NewErrorResponse("appointment not found"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(appt))
}

func (h *Handler) Complete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid appointment id"))
		return
	}

	// Notes are optional; an empty or absent body is fine.
	var req model.CompleteAppointmentRequest
	_ = c.ShouldBindJSON(&req)

	appt, err := h.svc.Complete(c.Request.Context(), id, req.Notes)
	if err != nil {
		if errors.Is(err, appointment.ErrNotCompletable) {
			c.JSON(http.StatusConflict, handler.NewErrorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusNotFound, handler.NewErrorResponse("appointment not found"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(appt))
}

func (h *Handler) listForPatient(c *gin.Context) {
	identity, _ := middleware.Identity(c)
	h.list(c, &model.AppointmentFilters{PatientID: identity.UserID, Status: c.Query("status")})
}

func (h *Handler) listForDoctor(c *gin.Context) {
	identity, _ := middleware.Identity(c)
	h.list(c, &model.AppointmentFilters{DoctorID: identity.UserID, Status: c.Query("status")})
}

func (h *Handler) listAll(c *gin.Context) {
	h.list(c, &model.AppointmentFilters{Status: c.Query("status")})
}

func (h *Handler) list(c *gin.Context, filters *model.AppointmentFilters) {
	appts, err := h.svc.List(c.Request.Context(), filters)
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("failed to list appointments"))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(appts))
}
