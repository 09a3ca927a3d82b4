package email

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"

	"github.com/medicura/medicura-api/internal/config"
	"github.com/medicura/medicura-api/internal/model"
	"github.com/medicura/medicura-api/pkg/metrics"
)

type Service interface {
	SendWelcome(ctx context.Context, to, name string, role model.Role) error
	SendAppointmentBooked(ctx context.Context, to, patientName string, appt *model.Appointment) error
	SendLowStockAlert(ctx context.Context, to string, medications []*model.Medication) error
}

type smtpService struct {
	dialer  *gomail.Dialer
	from    string
	metrics *metrics.Metrics
}

// NewService returns the SMTP-backed sender, or a logging no-op when SMTP is
// disabled in config so local setups work without a mail server.
func NewService(cfg config.SMTPConfig, m *metrics.Metrics) Service {
	if !cfg.Enabled {
		return &noopService{}
	}
	return &smtpService{
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:    cfg.From,
		metrics: m,
	}
}

func (s *smtpService) SendWelcome(ctx context.Context, to, name string, role model.Role) error {
	body := fmt.Sprintf(`
		<h2>Welcome to MediCura, %s</h2>
		<p>Your %s account is ready. Sign in and complete your onboarding
		to reach your dashboard.</p>
	`, name, role)
	return s.send(ctx, "welcome", to, "Welcome to MediCura", body)
}

func (s *smtpService) SendAppointmentBooked(ctx context.Context, to, patientName string, appt *model.Appointment) error {
	body := fmt.Sprintf(`
		<h2>Appointment confirmed</h2>
		<p>%s, your appointment is booked for %s.</p>
		<p>Reason: %s</p>
	`, patientName, appt.StartTime.Format(time.RFC1123), appt.Reason)
	return s.send(ctx, "appointment_booked", to, "Your MediCura appointment", body)
}

func (s *smtpService) SendLowStockAlert(ctx context.Context, to string, medications []*model.Medication) error {
	body := "<h2>Low stock alert</h2><ul>"
	for _, med := range medications {
		body += fmt.Sprintf("<li>%s: %d left (reorder at %d)</li>", med.Name, med.Quantity, med.ReorderLevel)
	}
	body += "</ul>"
	return s.send(ctx, "low_stock_alert", to, "MediCura inventory: low stock", body)
}

func (s *smtpService) send(ctx context.Context, template, to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(msg); err != nil {
		if s.metrics != nil {
			s.metrics.EmailsFailed.WithLabelValues(template).Inc()
		}
		return fmt.Errorf("failed to send %s email: %w", template, err)
	}
	if s.metrics != nil {
		s.metrics.EmailsSent.WithLabelValues(template).Inc()
	}
	return nil
}

type noopService struct{}

func (noopService) SendWelcome(_ context.Context, to, _ string, _ model.Role) error {
	log.Debug().Str("to", to).Msg("smtp disabled, skipping welcome email")
	return nil
}

func (noopService) SendAppointmentBooked(_ context.Context, to, _ string, _ *model.Appointment) error {
	log.Debug().Str("to", to).Msg("smtp disabled, skipping appointment email")
	return nil
}

func (noopService) SendLowStockAlert(_ context.Context, to string, _ []*model.Medication) error {
	log.Debug().Str("to", to).Msg("smtp disabled, skipping low stock alert")
	return nil
}
