package controllers

import (
	"net/http"

	"github.com/rahulmehra/storefront-backend/api/responses"
	"github.com/rahulmehra/storefront-backend/api/validators"
	"github.com/rahulmehra/storefront-backend/internal/session"
	"github.com/rahulmehra/storefront-backend/pkg/logger"
)

// CheckoutState exposes the session's checkout machine.
func CheckoutState(mgr *session.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(mgr, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sess.Checkout.Snapshot())
	}
}

// CheckoutCOD places a cash-on-delivery order.
func CheckoutCOD(mgr *session.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(mgr, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := sess.Checkout.PlaceCashOrder(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"order": order})
	}
}

// CheckoutCardIntent requests a payment intent for the current cart.
func CheckoutCardIntent(mgr *session.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(mgr, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		intent, err := sess.Checkout.RequestIntent(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, intent)
	}
}

type confirmCardRequest struct {
	PaymentMethod string `json:"paymentMethod" validate:"required"`
}

// CheckoutCardConfirm captures the charge with the shopper's payment-method
// token and submits the order.
func CheckoutCardConfirm(mgr *session.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(mgr, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload confirmCardRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := sess.Checkout.ConfirmCard(r.Context(), payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"order": order})
	}
}

// CheckoutRetryOrder resubmits the order draft after a partial failure. The
// charge is never re-captured.
func CheckoutRetryOrder(mgr *session.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(mgr, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := sess.Checkout.RetryOrderCreation(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"order": order})
	}
}

// CheckoutAbandon resets the machine to idle when no money is at stake.
func CheckoutAbandon(mgr *session.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(mgr, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := sess.Checkout.Abandon(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sess.Checkout.Snapshot())
	}
}
