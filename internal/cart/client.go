package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/rahulmehra/storefront-backend/pkg/config"
	pkgerrors "github.com/rahulmehra/storefront-backend/pkg/errors"
	"github.com/rahulmehra/storefront-backend/pkg/types"
)

// Client talks to the cart service that keeps carts across devices.
type Client struct {
	baseURL string
	http    *http.Client
}

type cartPayload struct {
	Items []types.CartItem `json:"items"`
}

// NewClient builds the cart service client.
func NewClient(cfg config.CartServiceConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("cart service base url required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid cart service base url: %w", err)
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

// Save replaces the stored cart for the session.
func (c *Client) Save(ctx context.Context, sessionID string, items []types.CartItem) error {
	body, err := json.Marshal(cartPayload{Items: items})
	if err != nil {
		return fmt.Errorf("encoding cart payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/carts/%s", c.baseURL, url.PathEscape(sessionID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building cart request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cart service unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("cart service returned %d", resp.StatusCode))
	}
	return nil
}

// Load fetches the stored cart for the session. A missing cart is not an
// error; it hydrates as empty.
func (c *Client) Load(ctx context.Context, sessionID string) ([]types.CartItem, error) {
	endpoint := fmt.Sprintf("%s/carts/%s", c.baseURL, url.PathEscape(sessionID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building cart request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cart service unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("cart service returned %d", resp.StatusCode))
	}

	var payload cartPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding cart payload: %w", err)
	}
	return payload.Items, nil
}
