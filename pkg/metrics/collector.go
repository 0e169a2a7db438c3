package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Proton-105/storefront-bot/internal/state"
)

const collectInterval = 10 * time.Second

var (
	updatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_updates_total",
			Help: "Total number of chat updates handled labeled by state and status",
		},
		[]string{"state", "status"},
	)
	updateDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "update_duration_seconds",
			Help:    "Duration of chat update handling in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"state"},
	)
	stateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "state_transitions_total",
			Help: "Total number of state transitions",
		},
		[]string{"from", "to"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by code and severity",
		},
		[]string{"code", "severity"},
	)
	commerceRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commerce_requests_total",
			Help: "Total number of commerce API requests labeled by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)
	commerceRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "commerce_request_duration_seconds",
			Help:    "Commerce API request latency distributions",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)
	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_sessions",
			Help: "Current number of stored chat sessions",
		},
	)
	sessionsByState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sessions_by_state",
			Help: "Number of chat sessions per state",
		},
		[]string{"state"},
	)
)

func init() {
	state.RegisterTransitionRecorder(RecordStateTransition)
}

// RecordUpdate increments update counters and records duration.
func RecordUpdate(st, status string, duration time.Duration) {
	if st == "" {
		st = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	updatesTotal.WithLabelValues(st, status).Inc()
	updateDurationSeconds.WithLabelValues(st).Observe(duration.Seconds())
}

// RecordStateTransition tracks FSM transitions.
func RecordStateTransition(from, to string) {
	if from == "" {
		from = "unknown"
	}
	if to == "" {
		to = "unknown"
	}

	stateTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordError increments error counters with metadata.
func RecordError(code, severity string) {
	if code == "" {
		code = "unknown"
	}
	if severity == "" {
		severity = "unknown"
	}

	errorsTotal.WithLabelValues(code, severity).Inc()
}

// RecordCommerceRequest tracks one call to the commerce API.
func RecordCommerceRequest(endpoint, status string, duration time.Duration) {
	if status == "" {
		status = "unknown"
	}

	commerceRequestsTotal.WithLabelValues(endpoint, status).Inc()
	commerceRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// SessionSource lists stored sessions.
type SessionSource interface {
	Sessions(ctx context.Context) ([]state.Session, error)
}

// StateCollector periodically gathers session state counts and emits gauge metrics.
type StateCollector struct {
	source SessionSource
	log    *slog.Logger
}

// NewStateCollector builds a metrics collector bound to the provided session source.
func NewStateCollector(source SessionSource, log *slog.Logger) *StateCollector {
	if log == nil {
		log = slog.Default()
	}

	return &StateCollector{source: source, log: log}
}

// Run polls the sessions every 10 seconds until ctx is cancelled.
func (c *StateCollector) Run(ctx context.Context) {
	if c == nil || c.source == nil {
		return
	}

	ticker := time.NewTicker(collectInterval)
	defer ticker.Stop()

	for {
		if err := c.collect(ctx); err != nil && ctx.Err() == nil {
			c.log.Warn("session metrics collection failed", slog.Any("error", err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *StateCollector) collect(ctx context.Context) error {
	sessions, err := c.source.Sessions(ctx)
	if err != nil {
		return err
	}

	activeSessions.Set(float64(len(sessions)))

	counts := make(map[state.State]int, len(state.States))
	for _, s := range sessions {
		counts[s.NextState]++
	}

	sessionsByState.Reset()
	for _, st := range state.States {
		if st == state.StateStart {
			continue
		}
		sessionsByState.WithLabelValues(string(st)).Set(float64(counts[st]))
	}

	return nil
}
