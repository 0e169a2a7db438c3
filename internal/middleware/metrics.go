package middleware

import (
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/storefront-bot/internal/bot/handlers"
	"github.com/Proton-105/storefront-bot/pkg/metrics"
)

// StateKey is where the dispatcher leaves the state an update was handled in.
const StateKey = "state"

// Metrics measures execution time and status for updates, reporting them to Prometheus.
func Metrics(next handlers.Handler) handlers.Handler {
	if next == nil {
		return nil
	}

	return func(c telebot.Context) error {
		start := time.Now()
		err := next(c)

		status := "ok"
		if err != nil {
			status = "error"
		}

		metrics.RecordUpdate(stateLabel(c), status, time.Since(start))

		return err
	}
}

// stateLabel keeps label cardinality bounded: payloads such as product ids are never used.
func stateLabel(c telebot.Context) string {
	if c == nil {
		return "unknown"
	}

	if st, ok := c.Get(StateKey).(string); ok && st != "" {
		return st
	}

	return "unknown"
}
