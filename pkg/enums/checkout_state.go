package enums

import "fmt"

// CheckoutState tracks where a checkout attempt sits in its lifecycle.
type CheckoutState string

const (
	CheckoutStateIdle                CheckoutState = "idle"
	CheckoutStateIntentRequested     CheckoutState = "intent_requested"
	CheckoutStateIntentReady         CheckoutState = "intent_ready"
	CheckoutStateConfirming          CheckoutState = "confirming"
	CheckoutStatePaymentSucceeded    CheckoutState = "payment_succeeded"
	CheckoutStatePaymentFailed       CheckoutState = "payment_failed"
	CheckoutStateOrderCreated        CheckoutState = "order_created"
	CheckoutStateOrderCreationFailed CheckoutState = "order_creation_failed"
)

var validCheckoutStates = []CheckoutState{
	CheckoutStateIdle,
	CheckoutStateIntentRequested,
	CheckoutStateIntentReady,
	CheckoutStateConfirming,
	CheckoutStatePaymentSucceeded,
	CheckoutStatePaymentFailed,
	CheckoutStateOrderCreated,
	CheckoutStateOrderCreationFailed,
}

// String implements fmt.Stringer.
func (s CheckoutState) String() string {
	return string(s)
}

// IsValid reports whether the value is a known CheckoutState.
func (s CheckoutState) IsValid() bool {
	for _, candidate := range validCheckoutStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the attempt can make no further transitions
// other than an explicit reset or an order-creation retry.
func (s CheckoutState) IsTerminal() bool {
	switch s {
	case CheckoutStateOrderCreated, CheckoutStateOrderCreationFailed:
		return true
	default:
		return false
	}
}

// ParseCheckoutState converts raw input into a CheckoutState.
func ParseCheckoutState(value string) (CheckoutState, error) {
	for _, candidate := range validCheckoutStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout state %q", value)
}
