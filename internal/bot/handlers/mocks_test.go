package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"github.com/Proton-105/storefront-bot/internal/bot/view"
	"github.com/Proton-105/storefront-bot/internal/commerce"
)

var errUpstream = errors.New("upstream failure")

type mockCommerce struct {
	mock.Mock
}

func (m *mockCommerce) Products(ctx context.Context) ([]commerce.Product, error) {
	args := m.Called(ctx)
	products, _ := args.Get(0).([]commerce.Product)
	return products, args.Error(1)
}

func (m *mockCommerce) Product(ctx context.Context, id string) (commerce.Product, error) {
	args := m.Called(ctx, id)
	product, _ := args.Get(0).(commerce.Product)
	return product, args.Error(1)
}

func (m *mockCommerce) FileURL(ctx context.Context, fileID string) (string, error) {
	args := m.Called(ctx, fileID)
	return args.String(0), args.Error(1)
}

func (m *mockCommerce) Cart(ctx context.Context, ref string) (commerce.Cart, error) {
	args := m.Called(ctx, ref)
	cart, _ := args.Get(0).(commerce.Cart)
	return cart, args.Error(1)
}

func (m *mockCommerce) AddToCart(ctx context.Context, ref, productID string, quantity int) error {
	return m.Called(ctx, ref, productID, quantity).Error(0)
}

func (m *mockCommerce) RemoveCartItem(ctx context.Context, ref, itemID string) error {
	return m.Called(ctx, ref, itemID).Error(0)
}

func (m *mockCommerce) CreateCustomer(ctx context.Context, name, email string) error {
	return m.Called(ctx, name, email).Error(0)
}

// recorder is a Responder that keeps everything it was asked to do.
type recorder struct {
	sent      []view.View
	deleted   int
	alerts    []string
	sendErr   error
	deleteErr error
}

func (r *recorder) Send(v view.View) error {
	if r.sendErr != nil {
		return r.sendErr
	}
	r.sent = append(r.sent, v)
	return nil
}

func (r *recorder) Delete() error {
	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.deleted++
	return nil
}

func (r *recorder) Alert(text string) error {
	r.alerts = append(r.alerts, text)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
