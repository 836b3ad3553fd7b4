package totals

import (
	"github.com/shopspring/decimal"

	"github.com/rahulmehra/storefront-backend/pkg/types"
)

var (
	// FreeShippingThreshold is the items subtotal above which shipping is free.
	FreeShippingThreshold = decimal.NewFromInt(500)
	// FlatShippingFee applies to every order at or below the threshold.
	FlatShippingFee = decimal.NewFromInt(50)
)

// ItemsPrice sums price x quantity across all cart lines.
func ItemsPrice(items []types.CartItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.LineTotal())
	}
	return sum
}

// ShippingPrice is zero once the items subtotal strictly exceeds the
// free-shipping threshold, otherwise the flat fee. An order of exactly the
// threshold still pays shipping.
func ShippingPrice(itemsPrice decimal.Decimal) decimal.Decimal {
	if itemsPrice.GreaterThan(FreeShippingThreshold) {
		return decimal.Zero
	}
	return FlatShippingFee
}

// Compute derives the full breakdown from the cart lines and an externally
// supplied tax amount.
func Compute(items []types.CartItem, taxPrice decimal.Decimal) types.TotalsSnapshot {
	itemsPrice := ItemsPrice(items)
	shippingPrice := ShippingPrice(itemsPrice)
	return types.TotalsSnapshot{
		ItemsPrice:    itemsPrice,
		ShippingPrice: shippingPrice,
		TaxPrice:      taxPrice,
		TotalPrice:    itemsPrice.Add(shippingPrice).Add(taxPrice),
	}
}

// ComputeCOD derives the breakdown for a cash-on-delivery order, which never
// carries tax.
func ComputeCOD(items []types.CartItem) types.TotalsSnapshot {
	return Compute(items, decimal.Zero)
}
