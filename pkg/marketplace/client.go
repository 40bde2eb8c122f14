package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/adityahutama/pasarsegar-backend/pkg/errors"
	"github.com/hashicorp/go-retryablehttp"
)

const (
	defaultTimeout              = 10 * time.Second
	defaultRetryMax             = 3
	responseBodyReadLimit int64 = 1 << 20
)

var errBaseURLRequired = errors.New("marketplace base url is required")

// Client talks to the marketplace backend order/address/balance APIs.
// Reads go through a retrying client; order placement is never auto-retried
// because the backend only guarantees at-least-once semantics per call.
type Client struct {
	baseURL    string
	apiToken   string
	readClient *http.Client
	postClient *http.Client
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the client used for non-idempotent calls.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.postClient = client
		}
	}
}

// WithReadClient overrides the client used for idempotent reads.
func WithReadClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.readClient = client
		}
	}
}

// WithAPIToken attaches a bearer token to every request.
func WithAPIToken(token string) Option {
	return func(c *Client) {
		c.apiToken = strings.TrimSpace(token)
	}
}

// NewClient builds the marketplace client for the given base URL.
func NewClient(baseURL string, timeout time.Duration, retryMax int, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
		trimmed = "https://" + trimmed
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if retryMax < 0 {
		retryMax = defaultRetryMax
	}

	retrying := retryablehttp.NewClient()
	retrying.RetryMax = retryMax
	retrying.HTTPClient.Timeout = timeout
	retrying.Logger = nil

	client := &Client{
		baseURL:    trimmed,
		readClient: retrying.StandardClient(),
		postClient: &http.Client{Timeout: timeout},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

// Address is the saved shipping address shape the backend exposes.
type Address struct {
	ID            string `json:"id"`
	Label         string `json:"label"`
	Address       string `json:"address"`
	Details       string `json:"details"`
	ContactPerson string `json:"contact_person"`
}

// CreateAddressInput carries the fields posted when saving a new address.
type CreateAddressInput struct {
	Label         string `json:"label" validate:"required"`
	Address       string `json:"address" validate:"required"`
	Details       string `json:"details"`
	ContactPerson string `json:"contact_person" validate:"required"`
}

// OrderRequest submits one cart line as a backend order.
type OrderRequest struct {
	AddressID string `json:"address_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Order is the record returned for a placed order.
type Order struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Status    string `json:"status"`
}

type addressListEnvelope struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Data    []Address `json:"data"`
}

type addressEnvelope struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Data    Address `json:"data"`
}

type orderEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    Order  `json:"data"`
}

type balanceEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		Balance int64 `json:"balance"`
	} `json:"data"`
}

// ListAddresses fetches the buyer's saved shipping addresses.
func (c *Client) ListAddresses(ctx context.Context) ([]Address, error) {
	var envelope addressListEnvelope
	if err := c.doJSON(ctx, c.readClient, http.MethodGet, "/addresses", nil, &envelope); err != nil {
		return nil, err
	}
	if !envelope.Success {
		return nil, dependencyError("list addresses", envelope.Message)
	}
	return envelope.Data, nil
}

// CreateAddress saves a new shipping address and returns the assigned record.
func (c *Client) CreateAddress(ctx context.Context, input CreateAddressInput) (*Address, error) {
	var envelope addressEnvelope
	if err := c.doJSON(ctx, c.postClient, http.MethodPost, "/addresses", input, &envelope); err != nil {
		return nil, err
	}
	if !envelope.Success {
		return nil, dependencyError("create address", envelope.Message)
	}
	if envelope.Data.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "create address: backend returned no id")
	}
	return &envelope.Data, nil
}

// PlaceOrder submits one order line. Any non-success envelope is an error.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	var envelope orderEnvelope
	if err := c.doJSON(ctx, c.postClient, http.MethodPost, "/orders", req, &envelope); err != nil {
		return nil, err
	}
	if !envelope.Success {
		return nil, dependencyError("place order", envelope.Message)
	}
	return &envelope.Data, nil
}

// GetBalance reads the buyer's current spendable balance in minor units.
func (c *Client) GetBalance(ctx context.Context) (int64, error) {
	var envelope balanceEnvelope
	if err := c.doJSON(ctx, c.readClient, http.MethodGet, "/profile/balance", nil, &envelope); err != nil {
		return 0, err
	}
	if !envelope.Success {
		return 0, dependencyError("get balance", envelope.Message)
	}
	if envelope.Data.Balance < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeDependency, "get balance: backend returned negative balance")
	}
	return envelope.Data.Balance, nil
}

func (c *Client) doJSON(ctx context.Context, httpClient *http.Client, method, path string, payload, dest any) error {
	if c == nil || c.baseURL == "" {
		return pkgerrors.New(pkgerrors.CodeDependency, "marketplace client not configured")
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode request body")
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("%s %s", method, path))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read response body")
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return pkgerrors.New(pkgerrors.CodeDependency,
			fmt.Sprintf("%s %s: unexpected status %d", method, path, resp.StatusCode)).
			WithDetails(map[string]any{"body": strings.TrimSpace(string(raw))})
	}

	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode response body")
	}
	return nil
}

func dependencyError(op, message string) error {
	if strings.TrimSpace(message) == "" {
		message = "backend rejected the request"
	}
	return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("%s: %s", op, message))
}
