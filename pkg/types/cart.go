package types

import "github.com/shopspring/decimal"

func init() {
	// Collaborators exchange money values as bare JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// ProductImage is a single product image reference.
type ProductImage struct {
	URL string `json:"url"`
}

// Product is the catalog view a cart line refers to.
type Product struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	Images []ProductImage  `json:"images"`
}

// FeaturedImage returns the first image URL, or empty when none exist.
func (p Product) FeaturedImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].URL
}

// CartItem is one line of the session cart. Quantity is always >= 1; a
// non-positive quantity removes the line instead of being persisted.
type CartItem struct {
	ID       string  `json:"id"`
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// LineTotal returns price x quantity for the line.
func (c CartItem) LineTotal() decimal.Decimal {
	return c.Product.Price.Mul(decimal.NewFromInt(int64(c.Quantity)))
}
