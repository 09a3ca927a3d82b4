package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/medicura/medicura-api/internal/config"
	"github.com/medicura/medicura-api/internal/email"
	"github.com/medicura/medicura-api/internal/guard"
	"github.com/medicura/medicura-api/internal/handler"
	appointmenthandler "github.com/medicura/medicura-api/internal/handler/appointment"
	authhandler "github.com/medicura/medicura-api/internal/handler/auth"
	billinghandler "github.com/medicura/medicura-api/internal/handler/billing"
	"github.com/medicura/medicura-api/internal/handler/dashboard"
	inventoryhandler "github.com/medicura/medicura-api/internal/handler/inventory"
	onboardinghandler "github.com/medicura/medicura-api/internal/handler/onboarding"
	prescriptionhandler "github.com/medicura/medicura-api/internal/handler/prescription"
	userhandler "github.com/medicura/medicura-api/internal/handler/user"
	"github.com/medicura/medicura-api/internal/middleware"
	"github.com/medicura/medicura-api/internal/model"
	"github.com/medicura/medicura-api/internal/repository/postgres"
	"github.com/medicura/medicura-api/internal/router"
	"github.com/medicura/medicura-api/internal/service/appointment"
	authservice "github.com/medicura/medicura-api/internal/service/auth"
	"github.com/medicura/medicura-api/internal/service/billing"
	"github.com/medicura/medicura-api/internal/service/inventory"
	"github.com/medicura/medicura-api/internal/service/onboarding"
	"github.com/medicura/medicura-api/internal/service/prescription"
	"github.com/medicura/medicura-api/internal/service/role"
	userservice "github.com/medicura/medicura-api/internal/service/user"
	"github.com/medicura/medicura-api/internal/session"
	"github.com/medicura/medicura-api/pkg/auth"
	"github.com/medicura/medicura-api/pkg/logger"
	"github.com/medicura/medicura-api/pkg/metrics"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(&logger.Config{
		Level:  logger.InfoLevel,
		Pretty: os.Getenv("LOG_PRETTY") == "true",
	})
	log.Logger = appLogger.ZL()

	m := metrics.NewMetrics("medicura")

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	sessionStore, err := session.NewRedisStore(cfg.Redis.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	baseRepo := postgres.NewBaseRepository(db)
	userRepo := postgres.NewUserRepository(baseRepo)
	profileRepo := postgres.NewProfileRepository(baseRepo)
	appointmentRepo := postgres.NewAppointmentRepository(baseRepo)
	prescriptionRepo := postgres.NewPrescriptionRepository(baseRepo)
	medicationRepo := postgres.NewMedicationRepository(baseRepo)
	invoiceRepo := postgres.NewInvoiceRepository(baseRepo)

	jwtSvc := auth.NewJWTService(auth.JWTConfig{
		Secret:        cfg.JWT.Secret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		Expiry:        cfg.JWT.Expiry,
		RefreshExpiry: cfg.JWT.RefreshExpiry,
	})

	// The watcher sign-out revokes the session and leaves the one-shot
	// marker picked up by the guard on the user's next request.
	supervisor := session.NewSupervisor(func(ctx context.Context, s *session.Session) error {
		if err := sessionStore.SetExpiredMarker(ctx, s.UserID); err != nil {
			return err
		}
		if err := sessionStore.Revoke(ctx, s.ID); err != nil {
			return err
		}
		m.SessionsRevoked.WithLabelValues("hard_expiry").Inc()
		m.SessionsActive.Dec()
		return nil
	}, session.WithTransitionHook(func(to session.State) {
		m.WatcherTransitions.WithLabelValues(to.String()).Inc()
	}))
	defer supervisor.Stop()

	emailSvc := email.NewService(cfg.SMTP, m)
	roleSvc := role.NewService(userRepo, profileRepo, cfg.Session.ResolverCacheTTL)
	authSvc := authservice.NewService(userRepo, profileRepo, jwtSvc, sessionStore,
		supervisor, emailSvc, m, cfg.Session.Lifetime)
	onboardingSvc := onboarding.NewService(profileRepo, roleSvc)
	appointmentSvc := appointment.NewService(appointmentRepo, emailSvc)
	prescriptionSvc := prescription.NewService(prescriptionRepo, medicationRepo)
	inventorySvc := inventory.NewService(medicationRepo)
	billingSvc := billing.NewService(invoiceRepo)
	userSvc := userservice.NewService(userRepo)

	evaluator := guard.NewEvaluator(sessionStore, roleSvc, cfg.Session.GuardTimeout,
		guard.WithDecisionHook(func(d guard.Decision, required model.Role, elapsed time.Duration) {
			m.GuardDecisions.WithLabelValues(d.Outcome.String(), string(required)).Inc()
			m.GuardLatency.Observe(elapsed.Seconds())
		}))
	authMW := middleware.NewAuthMiddleware(jwtSvc, evaluator)

	handlers := router.Handlers{
		Auth:          authhandler.NewHandler(authSvc, roleSvc, authMW),
		Onboarding:    onboardinghandler.NewHandler(onboardingSvc, roleSvc, authMW),
		Dashboard:     dashboard.NewHandler(appointmentSvc, prescriptionSvc, inventorySvc, billingSvc, userSvc, sessionStore),
		Appointments:  appointmenthandler.NewHandler(appointmentSvc),
		Prescriptions: prescriptionhandler.NewHandler(prescriptionSvc),
		Inventory:     inventoryhandler.NewHandler(inventorySvc),
		Billing:       billinghandler.NewHandler(billingSvc),
		Users:         userhandler.NewHandler(userSvc),
		Base:          handler.NewHandler(),
	}

	r := router.NewRouter(authMW, handlers, router.Config{
		RateLimitEnabled: cfg.RateLimit.Enabled,
		RateLimit:        rate.Limit(cfg.RateLimit.RPS),
		RateBurst:        cfg.RateLimit.Burst,
		CORS:             middleware.DefaultCORSConfig(),
		MetricsPrefix:    "medicura_http",
	})
	r.Setup()
	defer r.Stop()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
