package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Proton-105/storefront-bot/internal/bot/keyboard"
	"github.com/Proton-105/storefront-bot/internal/bot/view"
	apperrors "github.com/Proton-105/storefront-bot/internal/errors"
	"github.com/Proton-105/storefront-bot/internal/state"
)

// MenuHandler opens the cart or a product card.
type MenuHandler struct {
	shop *shop
}

// Handle opens the cart or the description of the pressed product.
func (h *MenuHandler) Handle(ctx context.Context, req Request, out Responder) Result {
	ev := req.Event
	if err := requireCallback(ev, state.StateMenu); err != nil {
		return fail(err)
	}

	if ev.Data == keyboard.DataCart {
		if err := h.shop.showCart(ctx, ev, out); err != nil {
			return fail(err)
		}
		return next(state.StateCart)
	}

	productID := ev.Data
	product, err := h.shop.commerce.Product(ctx, productID)
	if err != nil {
		return fail(fmt.Errorf("load product %s: %w", productID, err))
	}

	var imageURL string
	if product.MainImageID != "" {
		imageURL, err = h.shop.commerce.FileURL(ctx, product.MainImageID)
		if err != nil {
			return fail(fmt.Errorf("load image of product %s: %w", productID, err))
		}
	} else {
		h.shop.log.Warn("product has no main image", slog.String("product_id", productID))
	}

	v, err := view.Product(product, imageURL)
	if err != nil {
		return fail(apperrors.NewValidationError(err.Error()))
	}

	if err := h.shop.send(ev, out, v); err != nil {
		return fail(err)
	}

	return Result{Next: state.StateDescription, Product: productID}
}
