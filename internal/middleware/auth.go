// Package middleware carries the access gate: it turns an optional
// bearer token into an identity in the request context and leaves the
// authorization decision to the consuming operation.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/feedpost/backend/internal/auth"
)

type contextKey int

const identityKey contextKey = 0

// Identity is the result of decoding the Authorization header. A
// missing or invalid token yields IsAuth=false, never an error.
type Identity struct {
	IsAuth bool
	UserID string
}

// Decode attaches the caller's identity to the request context. Every
// decode failure (no header, malformed header, bad signature, expired
// token, missing userId claim) marks the request anonymous and lets it
// through.
func Decode(tokens *auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident := Identity{}

			header := r.Header.Get("Authorization")
			parts := strings.Split(header, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				if userID, err := tokens.Verify(parts[1]); err == nil {
					ident = Identity{IsAuth: true, UserID: userID}
				}
			}

			ctx := context.WithValue(r.Context(), identityKey, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext returns the identity attached by Decode, or an
// anonymous identity when the middleware did not run.
func IdentityFromContext(ctx context.Context) Identity {
	if ident, ok := ctx.Value(identityKey).(Identity); ok {
		return ident
	}
	return Identity{}
}

// WithIdentity injects an identity directly; used by tests and by the
// GraphQL binding to thread identity into resolver contexts.
func WithIdentity(ctx context.Context, ident Identity) context.Context {
	return context.WithValue(ctx, identityKey, ident)
}
