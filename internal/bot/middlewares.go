package bot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/storefront-bot/internal/bot/handlers"
	apperrors "github.com/Proton-105/storefront-bot/internal/errors"
	"github.com/Proton-105/storefront-bot/internal/middleware"
	"github.com/Proton-105/storefront-bot/pkg/logger"
	"github.com/Proton-105/storefront-bot/pkg/metrics"
)

// ErrorReporter records failed updates.
type ErrorReporter interface {
	Report(ctx context.Context, err error, attrs ...slog.Attr)
}

// RecoveryMiddleware catches panics and reports them. The update is dropped silently.
func RecoveryMiddleware(log *slog.Logger, reporter ErrorReporter) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic recovered in handler", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))

					appErr := apperrors.NewInternalError(fmt.Errorf("panic recovered: %v", r))
					report(updateContext(c), reporter, c, appErr)
					err = nil
				}
			}()

			return next(c)
		}
	}
}

// ErrorHandlingMiddleware reports handler failures and swallows them. The chat gets no message.
func ErrorHandlingMiddleware(reporter ErrorReporter) handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			report(updateContext(c), reporter, c, err)
			return nil
		}
	}
}

func report(ctx context.Context, reporter ErrorReporter, c telebot.Context, err error) {
	metrics.RecordError(apperrors.CodeOf(err), string(apperrors.SeverityOf(err)))
	if reporter == nil {
		return
	}

	attrs := make([]slog.Attr, 0, 2)
	if c != nil {
		if chat := c.Chat(); chat != nil {
			attrs = append(attrs, slog.Int64("chat_id", chat.ID))
		}
		if st, ok := c.Get(middleware.StateKey).(string); ok {
			attrs = append(attrs, slog.String("state", st))
		}
	}
	reporter.Report(ctx, err, attrs...)
}

// LoggingMiddleware attaches a correlation id to the update and logs its outcome.
func LoggingMiddleware(log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		return func(c telebot.Context) error {
			start := time.Now()

			ctx := logger.WithCorrelationID(updateContext(c))
			setUpdateContext(c, ctx)

			attrs := []any{
				slog.String("correlation_id", logger.CorrelationIDFromContext(ctx)),
			}
			if chat := c.Chat(); chat != nil {
				attrs = append(attrs, slog.Int64("chat_id", chat.ID))
			}
			if cb := c.Callback(); cb != nil {
				attrs = append(attrs, slog.String("kind", "callback"), slog.String("data", cb.Data))
			} else {
				attrs = append(attrs, slog.String("kind", "message"))
			}

			log.Info("handling update", attrs...)
			err := next(c)

			st, _ := c.Get(middleware.StateKey).(string)
			log.Info("handled update", append(attrs,
				slog.String("state", st),
				slog.Duration("duration", time.Since(start)),
				slog.Any("error", err),
			)...)

			return err
		}
	}
}
