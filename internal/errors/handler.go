package errors

import (
	"context"
	"errors"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/Proton-105/storefront-bot/pkg/logger"
)

// Reporter logs failed updates and forwards serious ones to Sentry.
type Reporter struct {
	log           *slog.Logger
	sentryEnabled bool
}

func NewReporter(log *slog.Logger, sentryEnabled bool) *Reporter {
	return &Reporter{
		log:           log,
		sentryEnabled: sentryEnabled,
	}
}

// Report records err with its code and severity. It never produces user-facing output.
func (r *Reporter) Report(ctx context.Context, err error, attrs ...slog.Attr) {
	if err == nil {
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}

	log := r.log
	if log == nil {
		log = slog.Default()
	}

	severity := SeverityOf(err)
	all := []slog.Attr{
		slog.String("code", CodeOf(err)),
		slog.String("severity", string(severity)),
		slog.String("error", err.Error()),
	}
	if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
		all = append(all, slog.String("correlation_id", correlationID))
	}
	all = append(all, attrs...)

	var appErr *AppError
	if errors.As(err, &appErr) {
		log.LogAttrs(ctx, slog.LevelError, "application error", all...)
	} else {
		log.LogAttrs(ctx, slog.LevelError, "unknown error", all...)
	}

	if r.sentryEnabled && (severity == SeverityCritical || severity == SeverityHigh) {
		r.sendToSentry(ctx, err)
	}
}

func (r *Reporter) sendToSentry(ctx context.Context, err error) {
	sentry.WithScope(func(scope *sentry.Scope) {
		var appErr *AppError
		if errors.As(err, &appErr) && appErr != nil {
			if appErr.Code != "" {
				scope.SetTag("code", appErr.Code)
			}

			if appErr.Severity != "" {
				scope.SetTag("severity", string(appErr.Severity))
			}
		}

		if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
			scope.SetTag("correlation_id", correlationID)
		}

		sentry.CaptureException(err)
	})
}
