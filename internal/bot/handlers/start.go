package handlers

import (
	"context"

	"github.com/Proton-105/storefront-bot/internal/state"
)

// StartHandler greets the chat with the product menu.
type StartHandler struct {
	shop *shop
}

// Handle sends the product menu and moves the chat to HANDLE_MENU.
func (h *StartHandler) Handle(ctx context.Context, req Request, out Responder) Result {
	if err := h.shop.showMenu(ctx, req.Event, out); err != nil {
		return fail(err)
	}
	return next(state.StateMenu)
}
