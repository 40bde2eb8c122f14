package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/adityahutama/pasarsegar-backend/internal/cart"
	"github.com/adityahutama/pasarsegar-backend/pkg/logger"
)

const identityHeader = "X-Identity-Key"

type contextKey string

const ctxIdentityKey contextKey = "identity_key"

// Identity resolves the shopper identity from the request header. Requests
// without a header shop as the shared guest identity.
func Identity(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(identityHeader))
			if key == "" {
				key = cart.GuestIdentityKey
			}

			ctx := context.WithValue(r.Context(), ctxIdentityKey, key)
			if logg != nil {
				ctx = logg.WithIdentity(ctx, key)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext returns the shopper identity set by Identity. It falls
// back to the guest identity when the middleware did not run.
func IdentityFromContext(ctx context.Context) string {
	if ctx == nil {
		return cart.GuestIdentityKey
	}
	if v, ok := ctx.Value(ctxIdentityKey).(string); ok && v != "" {
		return v
	}
	return cart.GuestIdentityKey
}
