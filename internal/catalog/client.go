package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/freshmart/storefront/internal/order"
)

// ErrNotFound is returned when the backend reports a missing product or order.
var ErrNotFound = errors.New("catalog: not found")

// BackendError is a non-2xx response from the backend, carrying the status
// code and the message from its {"error": ...} body when present.
type BackendError struct {
	Status  int
	Message string
}

func (e *BackendError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend: %s (status %d)", e.Message, e.Status)
	}
	return fmt.Sprintf("backend: status %d", e.Status)
}

// Client talks to the remote storefront backend. The backend is an opaque
// collaborator; this client only knows its operation surface.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend base url %q: %w", baseURL, err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: u, http: httpClient}, nil
}

// GetAllProducts fetches the full catalog, unavailable items included. This is
// the fresh-truth source for checkout reconciliation.
func (c *Client) GetAllProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	if err := c.do(ctx, http.MethodGet, "/api/products", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) GetProduct(ctx context.Context, id int64) (*Product, error) {
	var p Product
	if err := c.do(ctx, http.MethodGet, "/api/products/"+strconv.FormatInt(id, 10), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) CreateProduct(ctx context.Context, np NewProduct) (int64, error) {
	var resp struct {
		ID int64 `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/products", np, &resp); err != nil {
		return 0, err
	}
	return resp.ID, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/api/products/"+strconv.FormatInt(id, 10), nil, nil)
}

func (c *Client) ToggleAvailability(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodPost, "/api/products/"+strconv.FormatInt(id, 10)+"/toggle-availability", nil, nil)
}

func (c *Client) GetProductsForVendor(ctx context.Context, vendor string) ([]Product, error) {
	var products []Product
	if err := c.do(ctx, http.MethodGet, "/api/vendors/"+url.PathEscape(vendor)+"/products", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// Checkout submits sanitized cart lines for order placement. The call is
// atomic from this side: either a confirmation comes back or no order exists.
func (c *Client) Checkout(ctx context.Context, lines []CheckoutLine, paymentMethod string) (*order.Confirmation, error) {
	req := struct {
		Items         []CheckoutLine `json:"items"`
		PaymentMethod string         `json:"paymentMethod"`
	}{Items: lines, PaymentMethod: paymentMethod}

	var conf order.Confirmation
	if err := c.do(ctx, http.MethodPost, "/api/checkout", req, &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

func (c *Client) GetOrdersForCustomer(ctx context.Context, customer string) ([]order.Confirmation, error) {
	var orders []order.Confirmation
	path := "/api/customers/" + url.PathEscape(customer) + "/orders"
	if err := c.do(ctx, http.MethodGet, path, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	u := c.baseURL.ResolveReference(&url.URL{Path: path})

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("backend %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &BackendError{Status: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func readErrorMessage(r io.Reader) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return ""
	}
	return body.Error
}
