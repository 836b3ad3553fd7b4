package controllers

import (
	"net/http"

	"github.com/rahulmehra/storefront-backend/api/middleware"
	"github.com/rahulmehra/storefront-backend/api/responses"
	"github.com/rahulmehra/storefront-backend/internal/session"
	pkgerrors "github.com/rahulmehra/storefront-backend/pkg/errors"
	"github.com/rahulmehra/storefront-backend/pkg/logger"
)

// SessionReset drops the session so the next request starts fresh. Refused
// while a captured charge is still waiting for its order.
func SessionReset(mgr *session.Manager, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := middleware.SessionIDFromContext(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "X-Session-Id header required"))
			return
		}

		if err := mgr.Reset(r.Context(), sessionID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "reset"})
	}
}
