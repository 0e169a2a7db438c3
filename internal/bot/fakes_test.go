package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/storefront-bot/internal/bot/view"
	"github.com/Proton-105/storefront-bot/internal/commerce"
	"github.com/Proton-105/storefront-bot/internal/state"
	appredis "github.com/Proton-105/storefront-bot/pkg/redis"
)

var errCatalogDown = errors.New("catalog unavailable")

// fakeShop is an in-memory storefront with carts keyed by reference.
type fakeShop struct {
	mu          sync.Mutex
	products    []commerce.Product
	carts       map[string][]commerce.CartItem
	customers   map[string]string
	productsErr error
}

func newFakeShop() *fakeShop {
	return &fakeShop{
		products: []commerce.Product{
			{ID: "42", Name: "Salmon", Description: "Fresh", Price: "$10.00", StockLevel: 100, MainImageID: "img-42"},
			{ID: "43", Name: "Tuna", Description: "Frozen", Price: "$8.00", StockLevel: 20},
		},
		carts:     make(map[string][]commerce.CartItem),
		customers: make(map[string]string),
	}
}

func (f *fakeShop) Products(ctx context.Context) ([]commerce.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.productsErr != nil {
		return nil, f.productsErr
	}
	return f.products, nil
}

func (f *fakeShop) Product(ctx context.Context, id string) (commerce.Product, error) {
	for _, p := range f.products {
		if p.ID == id {
			return p, nil
		}
	}
	return commerce.Product{}, fmt.Errorf("product %s not found", id)
}

func (f *fakeShop) FileURL(ctx context.Context, fileID string) (string, error) {
	return "https://files.example.com/" + fileID + ".jpg", nil
}

func (f *fakeShop) Cart(ctx context.Context, ref string) (commerce.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := append([]commerce.CartItem(nil), f.carts[ref]...)
	return commerce.Cart{Total: "$50.00", Items: items}, nil
}

func (f *fakeShop) AddToCart(ctx context.Context, ref, productID string, quantity int) error {
	product, err := f.Product(ctx, productID)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.carts[ref] = append(f.carts[ref], commerce.CartItem{
		ID:        fmt.Sprintf("item-%s-%d", productID, len(f.carts[ref])),
		ProductID: productID,
		Name:      product.Name,
		Quantity:  quantity,
		UnitPrice: product.Price,
	})
	return nil
}

func (f *fakeShop) RemoveCartItem(ctx context.Context, ref, itemID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := f.carts[ref][:0]
	for _, item := range f.carts[ref] {
		if item.ID != itemID {
			items = append(items, item)
		}
	}
	f.carts[ref] = items
	return nil
}

func (f *fakeShop) CreateCustomer(ctx context.Context, name, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.customers[email] = name
	return nil
}

// chatLog is a Responder that remembers the conversation.
type chatLog struct {
	sent    []view.View
	deleted int
	alerts  []string
}

func (l *chatLog) Send(v view.View) error {
	l.sent = append(l.sent, v)
	return nil
}

func (l *chatLog) Delete() error {
	l.deleted++
	return nil
}

func (l *chatLog) Alert(text string) error {
	l.alerts = append(l.alerts, text)
	return nil
}

func (l *chatLog) last() view.View {
	if len(l.sent) == 0 {
		return view.View{}
	}
	return l.sent[len(l.sent)-1]
}

// reporterSpy keeps reported errors.
type reporterSpy struct {
	mu   sync.Mutex
	errs []error
}

func (r *reporterSpy) Report(ctx context.Context, err error, attrs ...slog.Attr) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *reporterSpy) reported() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

func newTestMachine(t *testing.T) (*state.Machine, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := appredis.New(context.Background(), appredis.Config{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	storage := state.NewRedisStorage(client, testLogger())
	return state.NewMachine(storage, testLogger(), state.Options{}), mr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
