package controllers

import (
	"net/http"
	"strconv"

	"github.com/rahulmehra/storefront-backend/api/middleware"
	"github.com/rahulmehra/storefront-backend/api/responses"
	ordersvc "github.com/rahulmehra/storefront-backend/internal/orders"
	pkgerrors "github.com/rahulmehra/storefront-backend/pkg/errors"
	"github.com/rahulmehra/storefront-backend/pkg/logger"
	"github.com/rahulmehra/storefront-backend/pkg/pagination"
)

// OrdersList proxies the session's order history from the order service.
func OrdersList(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := middleware.SessionIDFromContext(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "X-Session-Id header required"))
			return
		}

		params := pagination.Params{
			Page:  queryInt(r, "page"),
			Limit: queryInt(r, "limit"),
		}
		list, err := svc.List(r.Context(), sessionID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func queryInt(r *http.Request, name string) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return value
}
