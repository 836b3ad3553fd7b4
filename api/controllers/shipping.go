package controllers

import (
	"net/http"

	"github.com/rahulmehra/storefront-backend/api/responses"
	"github.com/rahulmehra/storefront-backend/api/validators"
	"github.com/rahulmehra/storefront-backend/internal/session"
	"github.com/rahulmehra/storefront-backend/internal/shipping"
	pkgerrors "github.com/rahulmehra/storefront-backend/pkg/errors"
	"github.com/rahulmehra/storefront-backend/pkg/logger"
	"github.com/rahulmehra/storefront-backend/pkg/types"
)

// ShippingGet returns the session's shipping profile.
func ShippingGet(mgr *session.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(mgr, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, ok := sess.ShippingProfile()
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "no shipping profile set"))
			return
		}
		responses.WriteSuccess(w, profile)
	}
}

// ShippingPut validates and stores the session's shipping profile. All
// failing fields are reported together.
func ShippingPut(mgr *session.Manager, v *shipping.Validator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(mgr, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// Decoded without tag validation so the profile validator can trim
		// whitespace before judging the fields.
		var payload shippingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		normalized, err := v.Validate(payload.toInfo())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sess.SetShippingProfile(normalized)
		responses.WriteSuccess(w, normalized)
	}
}

type shippingRequest struct {
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
	PinCode string `json:"pinCode"`
	PhoneNo string `json:"phoneNo"`
}

func (s shippingRequest) toInfo() types.ShippingInfo {
	return types.ShippingInfo{
		Address: s.Address,
		City:    s.City,
		State:   s.State,
		Country: s.Country,
		PinCode: s.PinCode,
		PhoneNo: s.PhoneNo,
	}
}
