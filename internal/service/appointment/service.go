package appointment

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/medicura/medicura-api/internal/email"
	"github.com/medicura/medicura-api/internal/model"
	"github.com/medicura/medicura-api/internal/repository"
)

var (
	ErrSlotTaken      = errors.New("the requested slot is no longer available")
	ErrNotCancelable  = errors.New("only scheduled appointments can be cancelled")
	ErrNotCompletable = errors.New("only scheduled appointments can be completed")
)

const (
	slotDuration      = 30 * time.Minute
	dayStartHour      = 9
	dayEndHour        = 17
	maxAdvanceBooking = 90 * 24 * time.Hour
)

type Service struct {
	repo     repository.AppointmentRepository
	emailSvc email.Service

	// rng drives the demo slot picker; seeded per process.
	rng *rand.Rand
}

func NewService(repo repository.AppointmentRepository, emailSvc email.Service) *Service {
	return &Service{
		repo:     repo,
		emailSvc: emailSvc,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// AvailableSlots returns a demo availability grid for the doctor on the given
// day: the working-hours slots with a random subset marked off as taken.
// Real calendar integration is out of scope.
func (s *Service) AvailableSlots(_ context.Context, _ uuid.UUID, day time.Time) []model.TimeSlot {
	var slots []model.TimeSlot
	start := time.Date(day.Year(), day.Month(), day.Day(), dayStartHour, 0, 0, 0, day.Location())
	end := time.Date(day.Year(), day.Month(), day.Day(), dayEndHour, 0, 0, 0, day.Location())

	for t := start; t.Before(end); t = t.Add(slotDuration) {
		if t.Before(time.Now()) {
			continue
		}
		if s.rng.Intn(3) == 0 {
			continue
		}
		slots = append(slots, model.TimeSlot{Start: t, End: t.Add(slotDuration)})
	}
	return slots
}

// Book schedules an appointment for the patient. Double booking a doctor is
// rejected via an overlap count on the scheduled window.
func (s *Service) Book(ctx context.Context, patientID uuid.UUID, patientName, patientEmail string, req *model.BookAppointmentRequest) (*model.Appointment, error) {
	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("invalid doctor id: %w", err)
	}
	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return nil, fmt.Errorf("invalid start time: %w", err)
	}
	end := start.Add(slotDuration)

	now := time.Now()
	if start.Before(now) {
		return nil, fmt.Errorf("appointment cannot be scheduled in the past")
	}
	if start.After(now.Add(maxAdvanceBooking)) {
		return nil, fmt.Errorf("appointment cannot be booked more than 90 days ahead")
	}

	overlapping, err := s.repo.CountOverlapping(ctx, doctorID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to check availability: %w", err)
	}
	if overlapping > 0 {
		return nil, ErrSlotTaken
	}

	appt := &model.Appointment{
		PatientID: patientID,
		DoctorID:  doctorID,
		StartTime: start,
		EndTime:   end,
		Reason:    req.Reason,
		Status:    model.AppointmentStatusScheduled,
	}
	appt.ID = uuid.New()
	appt.CreatedAt = now
	appt.UpdatedAt = now

	if err := s.repo.Create(ctx, appt); err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}

	if err := s.emailSvc.SendAppointmentBooked(ctx, patientEmail, patientName, appt); err != nil {
		log.Warn().Err(err).Stringer("appointment_id", appt.ID).Msg("failed to send booking confirmation")
	}

	return appt, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	return s.repo.List(ctx, filters)
}

// Cancel marks a scheduled appointment cancelled. Completed or already
// cancelled appointments stay as they are.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != model.AppointmentStatusScheduled {
		return nil, ErrNotCancelable
	}

	appt.Status = model.AppointmentStatusCancelled
	appt.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, appt); err != nil {
		return nil, fmt.Errorf("failed to cancel appointment: %w", err)
	}
	return appt, nil
}

// Complete closes out a scheduled appointment with the doctor's notes.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, notes string) (*model.Appointment, error) {
	appt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != model.AppointmentStatusScheduled {
		return nil, ErrNotCompletable
	}

	appt.Status = model.AppointmentStatusCompleted
	if notes != "" {
		appt.Notes = &notes
	}
	appt.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, appt); err != nil {
		return nil, fmt.Errorf("failed to complete appointment: %w", err)
	}
	return appt, nil
}
