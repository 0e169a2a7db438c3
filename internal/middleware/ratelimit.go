package middleware

import (
	"context"
	"fmt"
	"log/slog"

	"gopkg.in/telebot.v3"

	"github.com/Proton-105/storefront-bot/internal/ratelimit"
)

const rateLimitedText = "Rate limit exceeded. Try again later."

// RateLimitMiddleware enforces per-chat rate limits for incoming Telegram updates.
type RateLimitMiddleware struct {
	limiter ratelimit.Limiter
	rules   *ratelimit.Rules
	log     *slog.Logger
}

// NewRateLimitMiddleware constructs a rate-limit middleware component.
func NewRateLimitMiddleware(limiter ratelimit.Limiter, rules *ratelimit.Rules, log *slog.Logger) *RateLimitMiddleware {
	if log == nil {
		log = slog.Default()
	}

	return &RateLimitMiddleware{
		limiter: limiter,
		rules:   rules,
		log:     log,
	}
}

// Handle returns a telebot middleware that enforces per-chat rate limits.
func (m *RateLimitMiddleware) Handle(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		if m.limiter == nil || m.rules == nil {
			return next(c)
		}

		chat := c.Chat()
		if chat == nil {
			return next(c)
		}

		chatID := chat.ID
		if m.rules.IsWhitelisted(chatID) {
			return next(c)
		}

		limit, window, err := m.rules.GetPerUserLimit()
		if err != nil {
			m.log.Error("failed to load per-chat rate limit", slog.Int64("chat_id", chatID), slog.Any("error", err))
			return next(c)
		}

		key := fmt.Sprintf("chat:%d", chatID)
		result, err := m.limiter.Check(context.Background(), key, limit, window)
		if err != nil {
			m.log.Warn("rate limiter error", slog.Int64("chat_id", chatID), slog.Any("error", err))
			return next(c)
		}

		if !result.Allowed {
			m.log.Warn("rate limit exceeded", slog.Int64("chat_id", chatID), slog.Time("reset_at", result.ResetAt))
			if c.Callback() != nil {
				return c.Respond(&telebot.CallbackResponse{Text: rateLimitedText, ShowAlert: true})
			}
			return c.Send(rateLimitedText)
		}

		return next(c)
	}
}
