package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Proton-105/storefront-bot/internal/bot/keyboard"
	"github.com/Proton-105/storefront-bot/internal/bot/view"
	"github.com/Proton-105/storefront-bot/internal/commerce"
	apperrors "github.com/Proton-105/storefront-bot/internal/errors"
	"github.com/Proton-105/storefront-bot/internal/state"
)

// DescriptionHandler adds the current product to the cart or returns to the menu.
type DescriptionHandler struct {
	shop *shop
}

// Handle adds the product to the cart in the chosen quantity or returns to the menu.
func (h *DescriptionHandler) Handle(ctx context.Context, req Request, out Responder) Result {
	ev := req.Event
	if err := requireCallback(ev, state.StateDescription); err != nil {
		return fail(err)
	}

	if ev.Data == keyboard.DataBack {
		if err := h.shop.showMenu(ctx, ev, out); err != nil {
			return fail(err)
		}
		return next(state.StateMenu)
	}

	quantity, err := strconv.Atoi(ev.Data)
	if err != nil || quantity <= 0 {
		return fail(apperrors.NewValidationError(fmt.Sprintf("invalid quantity %q", ev.Data)))
	}

	productID := req.Session.CurrentProduct
	if productID == "" {
		return fail(apperrors.NewStateError("no product selected", nil))
	}

	if err := h.shop.commerce.AddToCart(ctx, commerce.CartRef(ev.ChatID), productID, quantity); err != nil {
		return fail(fmt.Errorf("add %s to cart: %w", productID, err))
	}

	if err := out.Alert(view.AddedToCart); err != nil {
		h.shop.log.Warn("failed to confirm cart addition", slog.Int64("chat_id", ev.ChatID), slog.Any("error", err))
	}

	return next(state.StateDescription)
}
