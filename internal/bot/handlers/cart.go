package handlers

import (
	"context"
	"fmt"

	"github.com/Proton-105/storefront-bot/internal/bot/keyboard"
	"github.com/Proton-105/storefront-bot/internal/bot/view"
	"github.com/Proton-105/storefront-bot/internal/commerce"
	"github.com/Proton-105/storefront-bot/internal/state"
)

// CartHandler checks out, goes back, or removes the pressed item.
type CartHandler struct {
	shop *shop
}

// Handle removes an item, returns to the menu, or asks for an email at checkout.
func (h *CartHandler) Handle(ctx context.Context, req Request, out Responder) Result {
	ev := req.Event
	if err := requireCallback(ev, state.StateCart); err != nil {
		return fail(err)
	}

	switch ev.Data {
	case keyboard.DataBack:
		if err := h.shop.showMenu(ctx, ev, out); err != nil {
			return fail(err)
		}
		return next(state.StateMenu)

	case keyboard.DataPay:
		if err := h.shop.send(ev, out, view.PaymentPrompt()); err != nil {
			return fail(err)
		}
		h.shop.log.Info("new order was created", "chat_id", ev.ChatID)
		return next(state.StateWaitingEmail)
	}

	itemID := ev.Data
	if err := h.shop.commerce.RemoveCartItem(ctx, commerce.CartRef(ev.ChatID), itemID); err != nil {
		return fail(fmt.Errorf("remove cart item %s: %w", itemID, err))
	}

	if err := h.shop.showCart(ctx, ev, out); err != nil {
		return fail(err)
	}
	return next(state.StateCart)
}
