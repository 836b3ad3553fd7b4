package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/rahulmehra/storefront-backend/pkg/config"
	"github.com/rahulmehra/storefront-backend/pkg/enums"
	pkgerrors "github.com/rahulmehra/storefront-backend/pkg/errors"
	"github.com/rahulmehra/storefront-backend/pkg/types"
)

// Service talks to the payment gateway backend. Intents are requested against
// a cart snapshot plus the shipping fee; confirmation captures the charge with
// the shopper's payment-method token.
type Service interface {
	RequestIntent(ctx context.Context, items []types.CartItem, shippingFee decimal.Decimal) (*types.PaymentIntent, error)
	ConfirmCharge(ctx context.Context, clientSecret, paymentMethod string) (*types.PaymentInfo, error)
}

type client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds the gateway client.
func NewClient(cfg config.GatewayConfig) (Service, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("gateway base url required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid gateway base url: %w", err)
	}
	return &client{
		baseURL: cfg.BaseURL,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

// intentItem is the reduced line the gateway prices from. Product details stay
// on our side.
type intentItem struct {
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

type intentRequest struct {
	Items       []intentItem    `json:"items"`
	ShippingFee decimal.Decimal `json:"shippingFee"`
}

// wireSummary is the gateway's totals shape; it names the shipping component
// "shippingFee" where the rest of the system says "shippingPrice".
type wireSummary struct {
	ItemsPrice  json.Number `json:"itemsPrice"`
	TaxPrice    json.Number `json:"taxPrice"`
	ShippingFee json.Number `json:"shippingFee"`
	TotalPrice  json.Number `json:"totalPrice"`
}

type intentResponse struct {
	ClientSecret string       `json:"client_secret"`
	OrderSummary *wireSummary `json:"orderSummary"`
	Error        *wireError   `json:"error"`
}

type confirmRequest struct {
	ClientSecret  string `json:"client_secret"`
	PaymentMethod string `json:"payment_method"`
}

type confirmResponse struct {
	PaymentIntent *types.PaymentInfo `json:"paymentIntent"`
	Error         *wireError         `json:"error"`
}

type wireError struct {
	Message string `json:"message"`
}

func (c *client) RequestIntent(ctx context.Context, items []types.CartItem, shippingFee decimal.Decimal) (*types.PaymentIntent, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot request intent for an empty cart")
	}

	payload := intentRequest{
		Items:       make([]intentItem, 0, len(items)),
		ShippingFee: shippingFee,
	}
	for _, item := range items {
		payload.Items = append(payload.Items, intentItem{
			Price:    item.Product.Price,
			Quantity: item.Quantity,
		})
	}

	var decoded intentResponse
	if err := c.post(ctx, "/payments/intent", payload, &decoded); err != nil {
		return nil, err
	}
	if decoded.Error != nil {
		return nil, pkgerrors.New(pkgerrors.CodeGatewayDeclined, decoded.Error.Message)
	}
	if decoded.ClientSecret == "" || decoded.OrderSummary == nil {
		return nil, pkgerrors.New(pkgerrors.CodeGatewayUnavailable, "gateway returned incomplete intent")
	}

	summary, err := decoded.OrderSummary.toSnapshot()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "gateway returned malformed totals")
	}
	return &types.PaymentIntent{
		ClientSecret: decoded.ClientSecret,
		OrderSummary: summary,
	}, nil
}

func (c *client) ConfirmCharge(ctx context.Context, clientSecret, paymentMethod string) (*types.PaymentInfo, error) {
	if clientSecret == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client secret required")
	}
	if paymentMethod == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method required")
	}

	var decoded confirmResponse
	if err := c.post(ctx, "/payments/confirm", confirmRequest{ClientSecret: clientSecret, PaymentMethod: paymentMethod}, &decoded); err != nil {
		return nil, err
	}
	if decoded.Error != nil {
		return nil, pkgerrors.New(pkgerrors.CodeGatewayDeclined, decoded.Error.Message)
	}
	if decoded.PaymentIntent == nil || decoded.PaymentIntent.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeGatewayUnavailable, "gateway returned no charge")
	}
	// Only a captured charge counts. Anything still in flight on the gateway
	// side must not produce an order.
	if decoded.PaymentIntent.Status != enums.PaymentStatusSucceeded {
		return nil, pkgerrors.New(pkgerrors.CodeGatewayDeclined,
			fmt.Sprintf("charge not captured (status %q)", decoded.PaymentIntent.Status))
	}
	return decoded.PaymentIntent, nil
}

func (c *client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding gateway payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "gateway unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return pkgerrors.New(pkgerrors.CodeGatewayUnavailable, fmt.Sprintf("gateway returned %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeGatewayUnavailable, err, "decoding gateway response")
	}
	return nil
}

func (w *wireSummary) toSnapshot() (types.TotalsSnapshot, error) {
	var snapshot types.TotalsSnapshot
	var err error
	if snapshot.ItemsPrice, err = parseAmount(w.ItemsPrice); err != nil {
		return snapshot, fmt.Errorf("itemsPrice: %w", err)
	}
	if snapshot.TaxPrice, err = parseAmount(w.TaxPrice); err != nil {
		return snapshot, fmt.Errorf("taxPrice: %w", err)
	}
	if snapshot.ShippingPrice, err = parseAmount(w.ShippingFee); err != nil {
		return snapshot, fmt.Errorf("shippingFee: %w", err)
	}
	if snapshot.TotalPrice, err = parseAmount(w.TotalPrice); err != nil {
		return snapshot, fmt.Errorf("totalPrice: %w", err)
	}
	return snapshot, nil
}

func parseAmount(raw json.Number) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw.String())
}
