package lifecycle

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

const probeTimeout = 3 * time.Second

// HealthChecker exposes liveness and readiness probes.
type HealthChecker interface {
	Liveness(ctx context.Context) error
	Readiness(ctx context.Context) error
}

// ReadinessCheck reports whether dependencies are reachable.
type ReadinessCheck interface {
	Err(ctx context.Context) error
}

// Probes answers liveness while the process runs and readiness while dependencies are healthy.
type Probes struct {
	log      *slog.Logger
	check    ReadinessCheck
	draining atomic.Bool
}

var _ HealthChecker = (*Probes)(nil)

// NewProbes creates a new Probes instance.
func NewProbes(check ReadinessCheck, log *slog.Logger) *Probes {
	if log == nil {
		log = slog.Default()
	}
	return &Probes{log: log, check: check}
}

// Drain makes readiness fail so the instance stops receiving traffic during shutdown.
func (p *Probes) Drain() {
	p.draining.Store(true)
}

// Liveness always reports success.
func (p *Probes) Liveness(ctx context.Context) error {
	return nil
}

// Readiness runs dependency checks unless the process is draining.
func (p *Probes) Readiness(ctx context.Context) error {
	if p.draining.Load() {
		return errDraining
	}
	if p.check == nil {
		return nil
	}
	return p.check.Err(ctx)
}

// Register mounts /healthz and /readyz on mux.
func (p *Probes) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", p.handler(p.Liveness))
	mux.HandleFunc("/readyz", p.handler(p.Readiness))
}

func (p *Probes) handler(probe func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		if err := probe(ctx); err != nil {
			p.log.Warn("probe failed", slog.String("path", r.URL.Path), slog.Any("error", err))
			status = http.StatusServiceUnavailable
			body = map[string]string{"status": "unavailable", "error": err.Error()}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
