package types

import "github.com/shopspring/decimal"

// TotalsSnapshot is the canonical order total breakdown. On the card path the
// gateway backend issues the authoritative snapshot; the local computation is
// only ever canonical for cash-on-delivery.
type TotalsSnapshot struct {
	ItemsPrice    decimal.Decimal `json:"itemsPrice"`
	ShippingPrice decimal.Decimal `json:"shippingPrice"`
	TaxPrice      decimal.Decimal `json:"taxPrice"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
}
