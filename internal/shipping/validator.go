package shipping

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"

	pkgerrors "github.com/rahulmehra/storefront-backend/pkg/errors"
	"github.com/rahulmehra/storefront-backend/pkg/types"
)

var phonePattern = regexp.MustCompile(`^[0-9]{10}$`)

// Validator checks shipping profiles before they gate checkout.
type Validator struct {
	validate *validator.Validate
}

// NewValidator builds the profile validator.
func NewValidator() (*Validator, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("tendigits", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	}); err != nil {
		return nil, fmt.Errorf("registering tendigits rule: %w", err)
	}
	return &Validator{validate: v}, nil
}

// Normalize trims surrounding whitespace from every field.
func Normalize(info types.ShippingInfo) types.ShippingInfo {
	info.Address = strings.TrimSpace(info.Address)
	info.City = strings.TrimSpace(info.City)
	info.State = strings.TrimSpace(info.State)
	info.Country = strings.TrimSpace(info.Country)
	info.PinCode = strings.TrimSpace(info.PinCode)
	info.PhoneNo = strings.TrimSpace(info.PhoneNo)
	return info
}

// Validate normalizes the profile and reports every failing field at once, so
// a caller can surface the full list of problems instead of the first one.
func (v *Validator) Validate(info types.ShippingInfo) (types.ShippingInfo, error) {
	normalized := Normalize(info)

	err := v.validate.Struct(normalized)
	if err == nil {
		return normalized, nil
	}

	invalid, ok := err.(validator.ValidationErrors)
	if !ok {
		return normalized, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "validating shipping profile")
	}

	var combined error
	reasons := make([]string, 0, len(invalid))
	for _, fieldErr := range invalid {
		reason := reasonFor(fieldErr)
		reasons = append(reasons, reason)
		combined = multierr.Append(combined, fmt.Errorf("%s", reason))
	}

	return normalized, pkgerrors.Wrap(pkgerrors.CodeValidation, combined, "invalid shipping profile").
		WithDetails(map[string]any{"reasons": reasons})
}

func reasonFor(fieldErr validator.FieldError) string {
	field := jsonFieldName(fieldErr.StructField())
	switch fieldErr.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "tendigits":
		return fmt.Sprintf("%s must be exactly 10 digits", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func jsonFieldName(structField string) string {
	switch structField {
	case "Address":
		return "address"
	case "City":
		return "city"
	case "State":
		return "state"
	case "Country":
		return "country"
	case "PinCode":
		return "pinCode"
	case "PhoneNo":
		return "phoneNo"
	default:
		return structField
	}
}
