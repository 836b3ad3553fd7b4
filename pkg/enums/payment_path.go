package enums

import "fmt"

// PaymentPath selects which settlement flow an attempt follows.
type PaymentPath string

const (
	PaymentPathCOD  PaymentPath = "cod"
	PaymentPathCard PaymentPath = "card"
)

var validPaymentPaths = []PaymentPath{
	PaymentPathCOD,
	PaymentPathCard,
}

// String implements fmt.Stringer.
func (p PaymentPath) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentPath.
func (p PaymentPath) IsValid() bool {
	for _, candidate := range validPaymentPaths {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentPath converts raw input into a PaymentPath.
func ParsePaymentPath(value string) (PaymentPath, error) {
	for _, candidate := range validPaymentPaths {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment path %q", value)
}
