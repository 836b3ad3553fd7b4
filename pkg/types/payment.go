package types

// PaymentIntent is a gateway-issued authorization bound to a specific cart
// snapshot. It is single-use: once the cart mutates the secret must not be
// confirmed against.
type PaymentIntent struct {
	ClientSecret string         `json:"client_secret"`
	OrderSummary TotalsSnapshot `json:"orderSummary"`
}

// PaymentInfo identifies how an order was paid: either a gateway charge id
// with the gateway's status, or a synthesized cash-on-delivery marker.
type PaymentInfo struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}
