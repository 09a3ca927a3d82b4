package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Access guard metrics
	GuardDecisions *prometheus.CounterVec
	GuardLatency   prometheus.Histogram

	// Session lifecycle metrics
	SessionsIssued     prometheus.Counter
	SessionsRevoked    *prometheus.CounterVec
	SessionsActive     prometheus.Gauge
	WatcherTransitions *prometheus.CounterVec
	SweeperReaped      prometheus.Counter

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
	DatabaseLatency    *prometheus.HistogramVec

	// Email metrics
	EmailsSent   *prometheus.CounterVec
	EmailsFailed *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		GuardDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_decisions_total",
			Help:      "Access guard decisions by outcome and required role",
		}, []string{"outcome", "role"}),
		GuardLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "guard_evaluation_duration_seconds",
			Help:      "Time spent evaluating the access guard pipeline",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		SessionsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_issued_total",
			Help:      "Total number of sessions issued",
		}),
		SessionsRevoked: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_revoked_total",
			Help:      "Total number of sessions revoked, by reason",
		}, []string{"reason"}),
		SessionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Current number of active sessions",
		}),
		WatcherTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_watcher_transitions_total",
			Help:      "Session expiry watcher state transitions",
		}, []string{"to"}),
		SweeperReaped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_sweeper_reaped_total",
			Help:      "Sessions past hard expiry reaped by the background sweeper",
		}),
		DatabaseOperations: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
		DatabaseLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "database_operation_duration_seconds",
			Help:      "Duration of database operations",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),
		EmailsSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_sent_total",
			Help:      "Total number of emails sent",
		}, []string{"template"}),
		EmailsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_failed_total",
			Help:      "Total number of emails that failed to send",
		}, []string{"template"}),
	}
}
