package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Proton-105/storefront-bot/internal/bot/view"
	"github.com/Proton-105/storefront-bot/internal/commerce"
	apperrors "github.com/Proton-105/storefront-bot/internal/errors"
)

// shop holds the rendering steps shared by several states.
type shop struct {
	commerce Commerce
	log      *slog.Logger
}

// showMenu sends the product list, then drops the message the button was on.
func (s *shop) showMenu(ctx context.Context, ev Event, out Responder) error {
	products, err := s.commerce.Products(ctx)
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}

	cart, err := s.commerce.Cart(ctx, commerce.CartRef(ev.ChatID))
	if err != nil {
		return fmt.Errorf("load cart: %w", err)
	}

	v, err := view.Menu(products, len(cart.Items) > 0)
	if err != nil {
		return apperrors.NewValidationError(err.Error())
	}

	return s.send(ev, out, v)
}

func (s *shop) showCart(ctx context.Context, ev Event, out Responder) error {
	cart, err := s.commerce.Cart(ctx, commerce.CartRef(ev.ChatID))
	if err != nil {
		return fmt.Errorf("load cart: %w", err)
	}

	v, err := view.Cart(cart)
	if err != nil {
		return apperrors.NewValidationError(err.Error())
	}

	return s.send(ev, out, v)
}

// send delivers v and, for button presses, removes the originating message.
func (s *shop) send(ev Event, out Responder, v view.View) error {
	if err := out.Send(v); err != nil {
		return apperrors.NewTransportError("send message", err)
	}

	if ev.Callback {
		s.dropOrigin(ev, out)
	}
	return nil
}

func (s *shop) dropOrigin(ev Event, out Responder) {
	if err := out.Delete(); err != nil {
		s.log.Warn("failed to delete message",
			slog.Int64("chat_id", ev.ChatID),
			slog.Int("message_id", ev.MessageID),
			slog.Any("error", err),
		)
	}
}

func requireCallback(ev Event, st fmt.Stringer) error {
	if !ev.Callback {
		return apperrors.NewStateError(fmt.Sprintf("%s expects a button press", st), nil)
	}
	return nil
}
