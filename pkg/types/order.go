package types

import "github.com/shopspring/decimal"

// OrderItem is one line of the order draft submitted to the order service.
type OrderItem struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Image    string          `json:"image"`
	Price    decimal.Decimal `json:"price"`
	Product  string          `json:"product"`
}

// OrderDraft is the payload submitted to the order service. It exists only
// until the order service accepts or rejects it.
type OrderDraft struct {
	ShippingInfo  ShippingInfo    `json:"shippingInfo"`
	OrderItems    []OrderItem     `json:"orderItems"`
	PaymentInfo   PaymentInfo     `json:"paymentInfo"`
	ItemsPrice    decimal.Decimal `json:"itemsPrice"`
	TaxPrice      decimal.Decimal `json:"taxPrice"`
	ShippingPrice decimal.Decimal `json:"shippingPrice"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
}

// Order is the durable record the order service returns after accepting a
// draft.
type Order struct {
	ID            string          `json:"_id"`
	ShippingInfo  ShippingInfo    `json:"shippingInfo"`
	OrderItems    []OrderItem     `json:"orderItems"`
	PaymentInfo   PaymentInfo     `json:"paymentInfo"`
	ItemsPrice    decimal.Decimal `json:"itemsPrice"`
	TaxPrice      decimal.Decimal `json:"taxPrice"`
	ShippingPrice decimal.Decimal `json:"shippingPrice"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	Status        string          `json:"orderStatus,omitempty"`
}

// OrderList is a page of orders as served by the order service.
type OrderList struct {
	Items       []Order         `json:"items"`
	TotalPages  int             `json:"totalPages"`
	CurrentPage int             `json:"currentPage"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
}
