package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rahulmehra/storefront-backend/pkg/logger"
)

const sessionIDHeader = "X-Session-Id"

type sessionIDKey struct{}

// SessionID pulls the caller's session id off the request and attaches it to
// the context. Routes that need a session check for it themselves; browsing
// endpoints work without one.
func SessionID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := strings.TrimSpace(r.Header.Get(sessionIDHeader))
			ctx := r.Context()
			if sessionID != "" {
				ctx = context.WithValue(ctx, sessionIDKey{}, sessionID)
				if logg != nil {
					ctx = logg.WithSessionID(ctx, sessionID)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionIDFromContext returns the session id attached by SessionID, or "".
func SessionIDFromContext(ctx context.Context) string {
	if value, ok := ctx.Value(sessionIDKey{}).(string); ok {
		return value
	}
	return ""
}
