package jwt

import (
	"context"
	"net/http"
	"strings"

	"github.com/rktkdduq01/study-app-sub002/internal/pkg/logx"
)

// contextKey is a private type for context keys, preventing collisions with
// other packages.
type contextKey string

// ContextAuthPayloadKey is the key under which the parsed Payload (user
// identity) is stored in the request Context.
const ContextAuthPayloadKey contextKey = "auth_payload"

// IdentityExtractorMiddleware attempts to extract and validate a JWT from the
// Authorization header. It injects the Payload into the Context upon success.
// It does NOT interrupt the request on failure or missing token; the user is
// treated as anonymous and individual handlers decide whether that matters.
func IdentityExtractorMiddleware(secretKey string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			// Expected format: "Bearer <token>"
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				next.ServeHTTP(w, r)
				return
			}

			payload, err := ParseToken(parts[1], secretKey)
			if err != nil {
				logx.Warn("Invalid or expired JWT provided, treating as anonymous", "error", err)
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ContextAuthPayloadKey, payload)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPayloadFromContext safely extracts the authenticated Payload from the
// request Context. A nil return means the caller is anonymous.
func GetPayloadFromContext(r *http.Request) *Payload {
	payload, ok := r.Context().Value(ContextAuthPayloadKey).(*Payload)
	if !ok {
		return nil
	}

	return payload
}
