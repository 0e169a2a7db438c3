// Package lifecycle coordinates probes and the shutdown order of the process.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Shutdown runs hooks in reverse registration order, like deferred calls.
type Shutdown struct {
	mu    sync.Mutex
	hooks []Hook
	log   *slog.Logger
}

// NewShutdown constructs a new Shutdown coordinator.
func NewShutdown(log *slog.Logger) *Shutdown {
	if log == nil {
		log = slog.Default()
	}

	return &Shutdown{log: log}
}

// Register adds a named shutdown hook. Hooks registered later run earlier.
func (s *Shutdown) Register(name string, fn func(context.Context) error) {
	if fn == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.hooks = append(s.hooks, Hook{Name: name, Fn: fn})
}

// Execute runs every hook even if some fail and returns the joined failures.
// A hook still running when ctx expires is abandoned.
func (s *Shutdown) Execute(ctx context.Context) error {
	s.mu.Lock()
	hooks := append([]Hook(nil), s.hooks...)
	s.mu.Unlock()

	start := time.Now()
	s.log.Info("shutdown sequence started", slog.Int("hook_count", len(hooks)))

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := s.run(ctx, hooks[i]); err != nil {
			s.log.Error("shutdown hook failed", slog.String("hook", hooks[i].Name), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("%s: %w", hooks[i].Name, err))
		}
	}

	s.log.Info("shutdown sequence finished", slog.Duration("elapsed", time.Since(start)))
	return errors.Join(errs...)
}

func (s *Shutdown) run(ctx context.Context, h Hook) error {
	s.log.Info("running shutdown hook", slog.String("hook", h.Name))

	done := make(chan error, 1)
	go func() { done <- h.Fn(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
