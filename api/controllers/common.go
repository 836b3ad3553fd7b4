package controllers

import (
	"net/http"

	"github.com/rahulmehra/storefront-backend/api/middleware"
	"github.com/rahulmehra/storefront-backend/internal/session"
	pkgerrors "github.com/rahulmehra/storefront-backend/pkg/errors"
)

func sessionFromRequest(mgr *session.Manager, r *http.Request) (*session.Session, error) {
	sessionID := middleware.SessionIDFromContext(r.Context())
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "X-Session-Id header required")
	}
	return mgr.Get(r.Context(), sessionID)
}
