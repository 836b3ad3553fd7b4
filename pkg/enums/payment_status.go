package enums

// Payment statuses carried on PaymentInfo. The gateway reports "succeeded"
// for a captured charge; cash-on-delivery orders carry the fixed marker the
// order service recognizes.
const (
	PaymentStatusSucceeded      = "succeeded"
	PaymentStatusCashOnDelivery = "Cash on Delivery"
)
