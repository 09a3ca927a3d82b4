package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/medicura/medicura-api/internal/config"
	"github.com/medicura/medicura-api/internal/email"
	"github.com/medicura/medicura-api/internal/repository/postgres"
	"github.com/medicura/medicura-api/internal/service/inventory"
	"github.com/medicura/medicura-api/internal/session"
	"github.com/medicura/medicura-api/internal/worker"
	"github.com/medicura/medicura-api/pkg/logger"
	"github.com/medicura/medicura-api/pkg/metrics"
)

func setupHealthCheck() {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		if err := http.ListenAndServe(":8081", mux); err != nil {
			log.Error().Err(err).Msg("health check server failed")
			os.Exit(1)
		}
	}()
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(&logger.Config{Level: logger.InfoLevel})
	log.Logger = appLogger.ZL()

	m := metrics.NewMetrics("medicura_worker")

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
	medicationRepo := postgres.NewMedicationRepository(baseRepo)

	inventorySvc := inventory.NewService(medicationRepo)
	emailSvc := email.NewService(cfg.SMTP, m)

	sweeper := session.NewSweeper(sessionStore, cfg.Worker.SweepInterval, func(n int) {
		m.SweeperReaped.Add(float64(n))
	})
	lowStock := worker.NewLowStockWorker(inventorySvc, emailSvc, m,
		cfg.Worker.AlertRecipient, cfg.Worker.LowStockInterval)

	setupHealthCheck()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("shutting down...")
		cancel()
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		sweeper.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		lowStock.Start(ctx)
	}()
	wg.Wait()
}
