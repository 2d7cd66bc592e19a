package middleware

import (
	"context"
	"net/http"
	"strings"

	"campusforum/internal/session"
)

type contextKey string

const identityKey contextKey = "identity"

// SessionCookieName is the cookie carrying the session token. A
// Bearer token in the Authorization header is accepted as well.
const SessionCookieName = "forum_session"

// AuthContext resolves the caller's session token (cookie or bearer
// header) into an Identity and attaches it to the request context.
// Requests without a valid session pass through unauthenticated;
// handlers that require auth use GetIdentity.
func AuthContext(provider *session.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token != "" {
				if ident, err := provider.Verify(r.Context(), token); err == nil {
					ctx := context.WithValue(r.Context(), identityKey, ident)
					r = r.WithContext(ctx)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil && c.Value != "" {
		return c.Value
	}
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// GetIdentity returns the verified identity attached to the context,
// or nil for unauthenticated requests.
func GetIdentity(ctx context.Context) *session.Identity {
	ident, ok := ctx.Value(identityKey).(*session.Identity)
	if !ok {
		return nil
	}
	return ident
}
