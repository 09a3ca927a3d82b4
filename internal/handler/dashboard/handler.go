package dashboard

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/medicura/medicura-api/internal/handler"
	"github.com/medicura/medicura-api/internal/middleware"
	"github.com/medicura/medicura-api/internal/model"
	"github.com/medicura/medicura-api/internal/service/appointment"
	"github.com/medicura/medicura-api/internal/service/billing"
	"github.com/medicura/medicura-api/internal/service/inventory"
	"github.com/medicura/medicura-api/internal/service/prescription"
	"github.com/medicura/medicura-api/internal/service/user"
	"github.com/medicura/medicura-api/internal/session"
	apperrors "github.com/medicura/medicura-api/pkg/errors"
)

// Handler composes the per-role dashboard summaries. Each method assumes the
// role guard already ran, so the identity in context matches the dashboard's
// role.
type Handler struct {
	appointments  *appointment.Service
	prescriptions *prescription.Service
	medications   *inventory.Service
	invoices      *billing.Service
	users         *user.Service
	sessions      session.Store
}

func NewHandler(appointments *appointment.Service, prescriptions *prescription.Service,
	medications *inventory.Service, invoices *billing.Service, users *user.Service,
	sessions session.Store) *Handler {
	return &Handler{
		appointments:  appointments,
		prescriptions: prescriptions,
		medications:   medications,
		invoices:      invoices,
		users:         users,
		sessions:      sessions,
	}
}

func (h *Handler) Patient(c *gin.Context) {
	identity, _ := middleware.Identity(c)

	appts, err := h.appointments.List(c.Request.Context(), &model.AppointmentFilters{
		PatientID: identity.UserID,
		Status:    model.AppointmentStatusScheduled,
	})
	if err != nil {
		_ = c.Error(apperrors.Internal(err))
		return
	}

	prescriptions, err := h.prescriptions.List(c.Request.Context(), &model.PrescriptionFilters{
		PatientID: identity.UserID,
	})
	if err != nil {
		_ = c.Error(apperrors.Internal(err))
		return
	}

	invoices, err := h.invoices.List(c.Request.Context(), &model.InvoiceFilters{
		PatientID: identity.UserID,
		Status:    model.InvoiceStatusPending,
	})
	if err != nil {
		_ = c.Error(apperrors.Internal(err))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"welcome":               c.GetString(middleware.ContextDisplayName),
		"upcoming_appointments": appts,
		"prescriptions":         prescriptions,
		"unpaid_invoices":       invoices,
	}))
}

func (h *Handler) Doctor(c *gin.Context) {
	identity, _ := middleware.Identity(c)

	appts, err := h.appointments.List(c.Request.Context(), &model.AppointmentFilters{
		DoctorID: identity.UserID,
		Status:   model.AppointmentStatusScheduled,
	})
	if err != nil {
		_ = c.Error(apperrors.Internal(err))
		return
	}

	prescriptions, err := h.prescriptions.List(c.Request.Context(), &model.PrescriptionFilters{
		DoctorID: identity.UserID,
		Status:   model.PrescriptionStatusPending,
	})
	if err != nil {
		_ = c.Error(apperrors.Internal(err))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"welcome":                c.GetString(middleware.ContextDisplayName),
		"scheduled_appointments": appts,
		"pending_prescriptions":  prescriptions,
	}))
}

func (h *Handler) Pharmacist(c *gin.Context) {
	pending, err := h.prescriptions.List(c.Request.Context(), &model.PrescriptionFilters{
		Status: model.PrescriptionStatusPending,
	})
	if err != nil {
		_ = c.Error(apperrors.Internal(err))
		return
	}

	lowStock, err := h.medications.LowStock(c.Request.Context())
	if err != nil {
		_ = c.Error(apperrors.Internal(err))
		return
	}

	expiring, err := h.medications.ExpiringSoon(c.Request.Context())
	if err != nil {
		_ = c.Error(apperrors.Internal(err))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"welcome":               c.GetString(middleware.ContextDisplayName),
		"pending_prescriptions": pending,
		"low_stock":             lowStock,
		"expiring_soon":         expiring,
	}))
}

func (h *Handler) Receptionist(c *gin.Context) {
	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	appts, err := h.appointments.List(c.Request.Context(), &model.AppointmentFilters{
		From: startOfDay,
		To:   startOfDay.Add(24 * time.Hour),
	})
	if err != nil {
		_ = c.Error(apperrors.Internal(err))
		return
	}

	invoices, err := h.invoices.List(c.Request.Context(), &model.InvoiceFilters{
		Status: model.InvoiceStatusPending,
	})
	if err != nil {
		_ = c.Error(apperrors.Internal(err))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"welcome":              c.GetString(middleware.ContextDisplayName),
		"todays_appointments":  appts,
		"outstanding_invoices": invoices,
	}))
}

func (h *Handler) Admin(c *gin.Context) {
	counts := make(map[model.Role]int)
	for _, r := range []model.Role{model.RolePatient, model.RoleDoctor, model.RolePharmacist, model.RoleReceptionist} {
		users, err := h.users.List(c.Request.Context(), &model.UserFilters{Role: r})
		if err != nil {
			_ = c.Error(apperrors.Internal(err))
			return
		}
		counts[r] = len(users)
	}

	activeSessions := 0
	if sessions, err := h.sessions.List(c.Request.Context()); err != nil {
		log.Warn().Err(err).Msg("failed to count active sessions")
	} else {
		activeSessions = len(sessions)
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"welcome":         c.GetString(middleware.ContextDisplayName),
		"users_by_role":   counts,
		"active_sessions": activeSessions,
	}))
}
