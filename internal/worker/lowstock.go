package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/medicura/medicura-api/internal/email"
	"github.com/medicura/medicura-api/internal/service/inventory"
	"github.com/medicura/medicura-api/pkg/metrics"
)

// LowStockWorker periodically mails the pharmacy alert recipient a summary
// of medications at or below their reorder level.
type LowStockWorker struct {
	inventory *inventory.Service
	emailSvc  email.Service
	metrics   *metrics.Metrics
	recipient string
	interval  time.Duration
}

func NewLowStockWorker(inv *inventory.Service, emailSvc email.Service, m *metrics.Metrics, recipient string, interval time.Duration) *LowStockWorker {
	return &LowStockWorker{
		inventory: inv,
		emailSvc:  emailSvc,
		metrics:   m,
		recipient: recipient,
		interval:  interval,
	}
}

func (w *LowStockWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	log.Info().Dur("interval", w.interval).Msg("low stock worker started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("low stock worker shutting down")
			return
		case <-ticker.C:
			if err := w.check(ctx); err != nil {
				log.Error().Err(err).Msg("low stock check failed")
			}
		}
	}
}

func (w *LowStockWorker) check(ctx context.Context) error {
	start := time.Now()
	meds, err := w.inventory.LowStock(ctx)
	if w.metrics != nil {
		w.metrics.DatabaseLatency.WithLabelValues("list_low_stock").Observe(time.Since(start).Seconds())
		if err != nil {
			w.metrics.DatabaseOperations.WithLabelValues("list_low_stock", "error").Inc()
		} else {
			w.metrics.DatabaseOperations.WithLabelValues("list_low_stock", "success").Inc()
		}
	}
	if err != nil {
		return err
	}
	if len(meds) == 0 {
		return nil
	}

	log.Info().Int("count", len(meds)).Msg("medications below reorder level")
	return w.emailSvc.SendLowStockAlert(ctx, w.recipient, meds)
}
