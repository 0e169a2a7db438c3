package commerce

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Proton-105/storefront-bot/internal/errors"
	"github.com/Proton-105/storefront-bot/pkg/config"
	appredis "github.com/Proton-105/storefront-bot/pkg/redis"
)

const tokenKey = "auth_credentials"

const productJSON = `{
	"id": "42",
	"name": "Salmon",
	"description": "Fresh",
	"meta": {
		"display_price": {"with_tax": {"formatted": "$10.00"}},
		"stock": {"level": 17}
	},
	"relationships": {"main_image": {"data": {"id": "img-1", "type": "main_image"}}}
}`

const cartJSON = `{
	"data": [{
		"id": "item-1",
		"product_id": "42",
		"name": "Salmon",
		"description": "Fresh",
		"quantity": 5,
		"meta": {"display_price": {"with_tax": {
			"unit": {"formatted": "$10.00"},
			"value": {"formatted": "$50.00"}
		}}}
	}],
	"meta": {"display_price": {"with_tax": {"formatted": "$50.00"}}}
}`

type fakeAPI struct {
	*httptest.Server
	tokenCalls atomic.Int32
	requests   chan *http.Request
	bodies     chan []byte
}

func newFakeAPI(t *testing.T, routes map[string]http.HandlerFunc) *fakeAPI {
	t.Helper()

	api := &fakeAPI{
		requests: make(chan *http.Request, 16),
		bodies:   make(chan []byte, 16),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		api.tokenCalls.Add(1)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		assert.Equal(t, "implicit", r.PostForm.Get("grant_type"))

		expires := time.Now().Add(time.Hour).Unix()
		fmt.Fprintf(w, `{"access_token":"fresh-token","expires":%d,"token_type":"Bearer"}`, expires)
	})
	for pattern, handler := range routes {
		handler := handler
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			api.requests <- r
			api.bodies <- body
			handler(w, r)
		})
	}

	api.Server = httptest.NewServer(mux)
	t.Cleanup(api.Close)
	return api
}

func newTestClient(t *testing.T, baseURL string) (*Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	store, err := appredis.New(context.Background(), appredis.Config{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := config.CommerceConfig{
		BaseURL:  baseURL,
		ClientID: "client-id",
		Timeout:  time.Second,
		TokenKey: tokenKey,
	}
	return NewClient(cfg, store, slog.New(slog.NewTextHandler(io.Discard, nil))), mr
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func TestClient_Products(t *testing.T) {
	api := newFakeAPI(t, map[string]http.HandlerFunc{
		"GET /v2/products": respond(http.StatusOK, `{"data":[`+productJSON+`]}`),
	})
	client, mr := newTestClient(t, api.URL)

	products, err := client.Products(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, Product{
		ID:          "42",
		Name:        "Salmon",
		Description: "Fresh",
		Price:       "$10.00",
		StockLevel:  17,
		MainImageID: "img-1",
	}, products[0])

	req := <-api.requests
	assert.Equal(t, "Bearer fresh-token", req.Header.Get("Authorization"))

	cached, err := mr.Get(tokenKey)
	require.NoError(t, err)
	assert.Contains(t, cached, "fresh-token")
}

func TestClient_ProductAndFile(t *testing.T) {
	api := newFakeAPI(t, map[string]http.HandlerFunc{
		"GET /v2/products/42": respond(http.StatusOK, `{"data":`+productJSON+`}`),
		"GET /v2/files/img-1": respond(http.StatusOK, `{"data":{"link":{"href":"https://cdn.example/salmon.png"}}}`),
	})
	client, _ := newTestClient(t, api.URL)
	ctx := context.Background()

	product, err := client.Product(ctx, "42")
	require.NoError(t, err)
	assert.Equal(t, "Salmon", product.Name)

	href, err := client.FileURL(ctx, product.MainImageID)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/salmon.png", href)
}

func TestClient_Cart(t *testing.T) {
	api := newFakeAPI(t, map[string]http.HandlerFunc{
		"GET /v2/carts/100/items": respond(http.StatusOK, cartJSON),
	})
	client, _ := newTestClient(t, api.URL)

	cart, err := client.Cart(context.Background(), CartRef(100))
	require.NoError(t, err)
	assert.Equal(t, "$50.00", cart.Total)
	assert.Equal(t, []CartItem{{
		ID:          "item-1",
		ProductID:   "42",
		Name:        "Salmon",
		Description: "Fresh",
		Quantity:    5,
		UnitPrice:   "$10.00",
		LinePrice:   "$50.00",
	}}, cart.Items)
}

func TestClient_Mutations(t *testing.T) {
	api := newFakeAPI(t, map[string]http.HandlerFunc{
		"POST /v2/carts/100/items":          respond(http.StatusCreated, cartJSON),
		"DELETE /v2/carts/100/items/item-1": respond(http.StatusOK, `{"data":[]}`),
		"POST /v2/customers":                respond(http.StatusCreated, `{"data":{"id":"c-1"}}`),
	})
	client, _ := newTestClient(t, api.URL)
	ctx := context.Background()

	require.NoError(t, client.AddToCart(ctx, "100", "42", 5))
	req, body := <-api.requests, <-api.bodies
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"id":"42","type":"cart_item","quantity":5}}`, string(body))

	require.NoError(t, client.RemoveCartItem(ctx, "100", "item-1"))
	req, _ = <-api.requests, <-api.bodies
	assert.Equal(t, http.MethodDelete, req.Method)

	require.NoError(t, client.CreateCustomer(ctx, "alice", "alice@example.com"))
	_, body = <-api.requests, <-api.bodies
	assert.JSONEq(t, `{"data":{"type":"customer","name":"alice","email":"alice@example.com"}}`, string(body))

	assert.EqualValues(t, 1, api.tokenCalls.Load())
}

func TestClient_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		handler http.HandlerFunc
		status  int
	}{
		{name: "not found", handler: respond(http.StatusNotFound, `{"errors":[{"title":"Not Found"}]}`), status: http.StatusNotFound},
		{name: "server error", handler: respond(http.StatusInternalServerError, `oops`), status: http.StatusInternalServerError},
		{name: "invalid json", handler: respond(http.StatusOK, `{"data":`)},
		{name: "missing required fields", handler: respond(http.StatusOK, `{"data":{"id":"42"}}`)},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			api := newFakeAPI(t, map[string]http.HandlerFunc{"GET /v2/products/42": tc.handler})
			client, _ := newTestClient(t, api.URL)

			_, err := client.Product(context.Background(), "42")
			require.Error(t, err)
			assert.Equal(t, apperrors.CodeExternalAPI, apperrors.CodeOf(err))

			var statusErr *StatusError
			if tc.status != 0 {
				require.ErrorAs(t, err, &statusErr)
				assert.Equal(t, tc.status, statusErr.StatusCode)
			} else {
				assert.NotErrorAs(t, err, &statusErr)
			}
		})
	}
}

func TestTokenSource(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	testCases := []struct {
		name        string
		cached      string
		expectFetch bool
		expectToken string
	}{
		{
			name:        "valid cached token",
			cached:      fmt.Sprintf(`{"access_token":"cached","expires":%d}`, now.Unix()+101),
			expectToken: "cached",
		},
		{
			name:        "token inside expiry guard",
			cached:      fmt.Sprintf(`{"access_token":"cached","expires":%d}`, now.Unix()+100),
			expectFetch: true,
			expectToken: "fetched",
		},
		{
			name:        "missing token",
			expectFetch: true,
			expectToken: "fetched",
		},
		{
			name:        "malformed token",
			cached:      `not json`,
			expectFetch: true,
			expectToken: "fetched",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			mr := miniredis.RunT(t)
			store, err := appredis.New(context.Background(), appredis.Config{Addr: mr.Addr()})
			require.NoError(t, err)
			t.Cleanup(func() { _ = store.Close() })

			if tc.cached != "" {
				require.NoError(t, mr.Set(tokenKey, tc.cached))
			}

			var fetches int
			fetch := func(context.Context) (Token, []byte, error) {
				fetches++
				token := Token{AccessToken: "fetched", Expires: now.Unix() + 3600}
				raw, _ := json.Marshal(token)
				return token, raw, nil
			}

			source := newTokenSource(store, tokenKey, fetch, slog.New(slog.NewTextHandler(io.Discard, nil)))
			source.now = func() time.Time { return now }

			token, err := source.Token(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tc.expectToken, token)

			if tc.expectFetch {
				assert.Equal(t, 1, fetches)
				stored, err := mr.Get(tokenKey)
				require.NoError(t, err)
				assert.Contains(t, stored, "fetched")
			} else {
				assert.Zero(t, fetches)
			}
		})
	}
}

func TestTokenSource_CancelledCallerDoesNotFailOthers(t *testing.T) {
	mr := miniredis.RunT(t)
	store, err := appredis.New(context.Background(), appredis.Config{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	started := make(chan struct{})
	release := make(chan struct{})
	var fetches atomic.Int32
	fetch := func(ctx context.Context) (Token, []byte, error) {
		fetches.Add(1)
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			return Token{}, nil, err
		}
		token := Token{AccessToken: "fetched", Expires: time.Now().Unix() + 3600}
		raw, _ := json.Marshal(token)
		return token, raw, nil
	}
	source := newTokenSource(store, tokenKey, fetch, slog.New(slog.NewTextHandler(io.Discard, nil)))

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := source.Token(firstCtx)
		firstErr <- err
	}()
	<-started

	second := make(chan string, 1)
	go func() {
		token, err := source.Token(context.Background())
		assert.NoError(t, err)
		second <- token
	}()

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	select {
	case token := <-second:
		assert.Equal(t, "fetched", token)
	case <-time.After(2 * time.Second):
		t.Fatal("second caller did not receive the refreshed token")
	}
	assert.Equal(t, int32(1), fetches.Load())
}

func TestTokenSource_FetchFailure(t *testing.T) {
	api := httptest.NewServer(respond(http.StatusUnauthorized, `{"errors":[{"title":"Unauthorized"}]}`))
	t.Cleanup(api.Close)
	client, mr := newTestClient(t, api.URL)

	err := client.Ping(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeExternalAPI, apperrors.CodeOf(err))
	assert.False(t, mr.Exists(tokenKey))
}
