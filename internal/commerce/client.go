// Package commerce is a client for the Moltin (Elastic Path) v2 commerce API.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"

	apperrors "github.com/Proton-105/storefront-bot/internal/errors"
	"github.com/Proton-105/storefront-bot/pkg/config"
	"github.com/Proton-105/storefront-bot/pkg/metrics"
)

const (
	pathAccessToken = "/oauth/access_token"
	pathProducts    = "/v2/products"
	pathFiles       = "/v2/files"
	pathCarts       = "/v2/carts"
	pathCustomers   = "/v2/customers"

	apiName         = "commerce"
	maxResponseSize = 1 << 20
	defaultTimeout  = 15 * time.Second
)

var validate = validator.New()

// Client talks to the commerce API with a cached bearer token.
type Client struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
	tokens     *TokenSource
	log        *slog.Logger
}

// NewClient creates a commerce client. store caches the token under cfg.TokenKey.
func NewClient(cfg config.CommerceConfig, store TokenStore, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		clientID:   cfg.ClientID,
		log:        log.With("component", apiName),
	}
	c.tokens = newTokenSource(store, cfg.TokenKey, c.fetchToken, c.log)

	return c
}

// CartRef returns the cart reference used for a chat.
func CartRef(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

// Ping makes sure a valid token can be obtained.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.tokens.Token(ctx)
	return err
}

// Products lists the catalog.
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	var resp productsResponse
	if err := c.call(ctx, "get_products", http.MethodGet, pathProducts, nil, &resp); err != nil {
		return nil, err
	}

	products := make([]Product, 0, len(resp.Data))
	for _, p := range resp.Data {
		products = append(products, p.toProduct())
	}
	return products, nil
}

// Product fetches one product by id.
func (c *Client) Product(ctx context.Context, id string) (Product, error) {
	var resp productResponse
	path := pathProducts + "/" + url.PathEscape(id)
	if err := c.call(ctx, "get_product", http.MethodGet, path, nil, &resp); err != nil {
		return Product{}, err
	}
	return resp.Data.toProduct(), nil
}

// FileURL resolves a file id to its public link.
func (c *Client) FileURL(ctx context.Context, fileID string) (string, error) {
	var resp fileResponse
	path := pathFiles + "/" + url.PathEscape(fileID)
	if err := c.call(ctx, "get_file", http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}
	return resp.Data.Link.Href, nil
}

// Cart returns the live contents of the cart ref.
func (c *Client) Cart(ctx context.Context, ref string) (Cart, error) {
	var resp cartResponse
	if err := c.call(ctx, "get_cart", http.MethodGet, cartItemsPath(ref), nil, &resp); err != nil {
		return Cart{}, err
	}
	return resp.toCart(), nil
}

// AddToCart puts quantity units of productID into the cart ref.
func (c *Client) AddToCart(ctx context.Context, ref, productID string, quantity int) error {
	var body cartItemRequest
	body.Data.ID = productID
	body.Data.Type = "cart_item"
	body.Data.Quantity = quantity

	return c.call(ctx, "add_to_cart", http.MethodPost, cartItemsPath(ref), body, nil)
}

// RemoveCartItem deletes one line from the cart ref.
func (c *Client) RemoveCartItem(ctx context.Context, ref, itemID string) error {
	path := cartItemsPath(ref) + "/" + url.PathEscape(itemID)
	return c.call(ctx, "remove_cart_item", http.MethodDelete, path, nil, nil)
}

// CreateCustomer registers a customer record.
func (c *Client) CreateCustomer(ctx context.Context, name, email string) error {
	var body customerRequest
	body.Data.Type = "customer"
	body.Data.Name = name
	body.Data.Email = email

	return c.call(ctx, "create_customer", http.MethodPost, pathCustomers, body, nil)
}

func cartItemsPath(ref string) string {
	return pathCarts + "/" + url.PathEscape(ref) + "/items"
}

// call performs an authenticated JSON request.
func (c *Client) call(ctx context.Context, endpoint, method, path string, body, result interface{}) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", endpoint, err)
	}

	req, err := c.newRequest(ctx, method, path, body, token)
	if err != nil {
		return fmt.Errorf("creating %s request: %w", endpoint, err)
	}

	if _, err := c.do(req, endpoint, result); err != nil {
		return fmt.Errorf("%s: %w", endpoint, err)
	}
	return nil
}

func (c *Client) fetchToken(ctx context.Context) (Token, []byte, error) {
	form := url.Values{
		"client_id":  {c.clientID},
		"grant_type": {"implicit"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+pathAccessToken, strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, nil, fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var token Token
	raw, err := c.do(req, "access_token", &token)
	if err != nil {
		return Token{}, nil, fmt.Errorf("acquiring token: %w", err)
	}
	return token, raw, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}, accessToken string) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	return req, nil
}

// do executes the request, records metrics and decodes a 2xx body into result.
func (c *Client) do(req *http.Request, endpoint string, result interface{}) ([]byte, error) {
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordCommerceRequest(endpoint, "error", time.Since(start))
		return nil, apperrors.NewExternalAPIError(apiName, err)
	}
	defer resp.Body.Close()

	metrics.RecordCommerceRequest(endpoint, strconv.Itoa(resp.StatusCode), time.Since(start))

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, apperrors.NewExternalAPIError(apiName, fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Warn("commerce request failed",
			slog.String("endpoint", endpoint),
			slog.Int("status", resp.StatusCode),
		)
		return nil, apperrors.NewExternalAPIError(apiName, &StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		})
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return nil, apperrors.NewExternalAPIError(apiName, fmt.Errorf("parsing response: %w", err))
		}
		if err := validate.Struct(result); err != nil {
			return nil, apperrors.NewExternalAPIError(apiName, fmt.Errorf("invalid response: %w", err))
		}
	}

	c.log.Debug("commerce request done",
		slog.String("endpoint", endpoint),
		slog.Duration("duration", time.Since(start)),
	)
	return body, nil
}
