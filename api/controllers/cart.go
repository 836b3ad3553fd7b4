package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/rahulmehra/storefront-backend/api/responses"
	"github.com/rahulmehra/storefront-backend/api/validators"
	"github.com/rahulmehra/storefront-backend/internal/session"
	"github.com/rahulmehra/storefront-backend/internal/totals"
	pkgerrors "github.com/rahulmehra/storefront-backend/pkg/errors"
	"github.com/rahulmehra/storefront-backend/pkg/logger"
	"github.com/rahulmehra/storefront-backend/pkg/types"
)

type cartResponse struct {
	Items         []types.CartItem `json:"items"`
	ItemsPrice    decimal.Decimal  `json:"itemsPrice"`
	ShippingPrice decimal.Decimal  `json:"shippingPrice"`
	TotalPrice    decimal.Decimal  `json:"totalPrice"`
}

func newCartResponse(items []types.CartItem) cartResponse {
	// Preview totals only. Card orders get their authoritative breakdown
	// from the gateway at intent time.
	summary := totals.ComputeCOD(items)
	return cartResponse{
		Items:         items,
		ItemsPrice:    summary.ItemsPrice,
		ShippingPrice: summary.ShippingPrice,
		TotalPrice:    summary.TotalPrice,
	}
}

// CartGet returns the session cart with preview totals.
func CartGet(mgr *session.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(mgr, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(sess.Cart.Items()))
	}
}

type addItemRequest struct {
	Product  types.Product `json:"product" validate:"required"`
	Quantity int           `json:"quantity"`
}

// CartAddItem inserts or replaces a cart line.
func CartAddItem(mgr *session.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(mgr, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.Product.ID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "product.id is required"))
			return
		}

		if err := sess.Cart.AddItem(r.Context(), payload.Product, payload.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(sess.Cart.Items()))
	}
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// CartUpdateItem changes a line's quantity. Rapid updates coalesce into a
// single write to the cart service.
func CartUpdateItem(mgr *session.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(mgr, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID := chi.URLParam(r, "itemID")
		var payload updateQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := sess.Cart.SetQuantity(r.Context(), itemID, payload.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "updating cart line"))
			return
		}
		responses.WriteSuccess(w, newCartResponse(sess.Cart.Items()))
	}
}

// CartRemoveItem deletes a line.
func CartRemoveItem(mgr *session.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(mgr, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := sess.Cart.RemoveItem(r.Context(), chi.URLParam(r, "itemID")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(sess.Cart.Items()))
	}
}

// CartClear empties the session cart.
func CartClear(mgr *session.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := sessionFromRequest(mgr, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := sess.Cart.Clear(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(nil))
	}
}
