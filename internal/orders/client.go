package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/rahulmehra/storefront-backend/pkg/config"
	pkgerrors "github.com/rahulmehra/storefront-backend/pkg/errors"
	"github.com/rahulmehra/storefront-backend/pkg/pagination"
	"github.com/rahulmehra/storefront-backend/pkg/types"
)

// Service talks to the order service that owns durable order records.
type Service interface {
	// Create submits a draft under the given idempotency key. Submitting the
	// same key twice returns the order created the first time.
	Create(ctx context.Context, draft types.OrderDraft, idempotencyKey string) (*types.Order, error)
	List(ctx context.Context, sessionID string, params pagination.Params) (*types.OrderList, error)
}

type client struct {
	baseURL string
	http    *http.Client
	cfg     config.OrderServiceConfig
}

// NewClient builds the order service client.
func NewClient(cfg config.OrderServiceConfig) (Service, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("order service base url required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid order service base url: %w", err)
	}
	return &client{
		baseURL: cfg.BaseURL,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		cfg: cfg,
	}, nil
}

type createResponse struct {
	Order *types.Order `json:"order"`
	Error *wireError   `json:"error"`
}

type listResponse struct {
	Orders      []types.Order `json:"orders"`
	TotalPages  int           `json:"totalPages"`
	CurrentPage int           `json:"currentPage"`
	TotalAmount json.Number   `json:"totalAmount"`
}

type wireError struct {
	Message string `json:"message"`
}

func (c *client) Create(ctx context.Context, draft types.OrderDraft, idempotencyKey string) (*types.Order, error) {
	if idempotencyKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "idempotency key required")
	}
	if len(draft.OrderItems) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order draft has no items")
	}

	body, err := json.Marshal(draft)
	if err != nil {
		return nil, fmt.Errorf("encoding order draft: %w", err)
	}

	backoff := retry.NewExponential(c.cfg.RetryBackoff)
	attempts := c.cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff = retry.WithMaxRetries(uint64(attempts-1), backoff)

	var created *types.Order
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		order, attemptErr := c.createOnce(ctx, body, idempotencyKey)
		if attemptErr != nil {
			// Only transient failures are worth another round trip. The
			// idempotency key makes the repeat safe.
			if typed := pkgerrors.As(attemptErr); typed != nil && pkgerrors.MetadataFor(typed.Code()).Retryable {
				return retry.RetryableError(attemptErr)
			}
			return attemptErr
		}
		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (c *client) createOnce(ctx context.Context, body []byte, idempotencyKey string) (*types.Order, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "order service unreachable")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("order service returned %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		var decoded createResponse
		message := fmt.Sprintf("order service rejected draft (%d)", resp.StatusCode)
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err == nil && decoded.Error != nil {
			message = decoded.Error.Message
		}
		return nil, pkgerrors.New(pkgerrors.CodeConflict, message)
	}

	var decoded createResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding order response")
	}
	if decoded.Order == nil || decoded.Order.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "order service returned no order")
	}
	return decoded.Order, nil
}

func (c *client) List(ctx context.Context, sessionID string, params pagination.Params) (*types.OrderList, error) {
	normalized := params.Normalize()

	endpoint, err := url.Parse(c.baseURL + "/orders")
	if err != nil {
		return nil, fmt.Errorf("building order list url: %w", err)
	}
	query := endpoint.Query()
	query.Set("session", sessionID)
	query.Set("page", strconv.Itoa(normalized.Page))
	query.Set("limit", strconv.Itoa(normalized.Limit))
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building order list request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "order service unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("order service returned %d", resp.StatusCode))
	}

	var decoded listResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding order list")
	}

	list := &types.OrderList{
		Items:       decoded.Orders,
		TotalPages:  decoded.TotalPages,
		CurrentPage: decoded.CurrentPage,
	}
	if list.CurrentPage == 0 {
		list.CurrentPage = normalized.Page
	}
	if decoded.TotalAmount != "" {
		amount, err := decimal.NewFromString(decoded.TotalAmount.String())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decoding order list total")
		}
		list.TotalAmount = amount
	}
	return list, nil
}
