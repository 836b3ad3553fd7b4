package types

// ShippingInfo captures the delivery address collected before checkout.
// All fields are required; PhoneNo must be exactly 10 digits.
type ShippingInfo struct {
	Address string `json:"address" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	Country string `json:"country" validate:"required"`
	PinCode string `json:"pinCode" validate:"required"`
	PhoneNo string `json:"phoneNo" validate:"required,tendigits"`
}
