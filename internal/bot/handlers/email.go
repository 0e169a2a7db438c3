package handlers

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Proton-105/storefront-bot/internal/bot/view"
	apperrors "github.com/Proton-105/storefront-bot/internal/errors"
	"github.com/Proton-105/storefront-bot/internal/state"
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

// ValidEmail reports whether s, once trimmed, is an acceptable email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(strings.TrimSpace(s))
}

// EmailHandler registers the customer once a valid email arrives.
type EmailHandler struct {
	shop *shop
}

// Handle registers the customer by email and ends the conversation.
func (h *EmailHandler) Handle(ctx context.Context, req Request, out Responder) Result {
	ev := req.Event
	if ev.Callback {
		return fail(apperrors.NewStateError(fmt.Sprintf("%s expects a text message", state.StateWaitingEmail), nil))
	}

	email := strings.TrimSpace(ev.Text)
	if !ValidEmail(email) {
		if err := out.Send(view.InvalidEmail()); err != nil {
			return fail(apperrors.NewTransportError("send message", err))
		}
		return next(state.StateWaitingEmail)
	}

	if err := h.shop.commerce.CreateCustomer(ctx, displayName(ev), email); err != nil {
		return fail(fmt.Errorf("register customer: %w", err))
	}

	if err := out.Send(view.EmailAccepted(email)); err != nil {
		return fail(apperrors.NewTransportError("send message", err))
	}

	h.shop.log.Info("new customer was created", "chat_id", ev.ChatID, "email", email)
	return next(state.StateEnd)
}

// displayName prefers the Telegram username, then the full name, then the chat id.
func displayName(ev Event) string {
	if ev.Username != "" {
		return ev.Username
	}

	if name := strings.TrimSpace(ev.FirstName + " " + ev.LastName); name != "" {
		return name
	}

	return "chat " + strconv.FormatInt(ev.ChatID, 10)
}
