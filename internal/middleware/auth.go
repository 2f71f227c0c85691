package middleware

import (
	"net/http"

	"github.com/Nagulan13/oboma/internal/auth"
)

// TokenParser validates a bearer token.
type TokenParser interface {
	Parse(token string) (auth.Identity, error)
}

// Authenticate attaches the caller identity when a valid bearer token is
// present. Requests without a token continue anonymously; handlers decide
// whether an identity is required.
func Authenticate(parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				// Browsers cannot set headers on WebSocket upgrades.
				if tok := r.URL.Query().Get("access_token"); tok != "" {
					header = "Bearer " + tok
				}
			}
			if header == "" {
				next.ServeHTTP(w, r)
				return
			}

			tok, err := auth.BearerToken(header)
			if err != nil {
				writeError(w, http.StatusUnauthorized, err.Error(), GetCorrelationID(r.Context()))
				return
			}
			id, err := parser.Parse(tok)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token", GetCorrelationID(r.Context()))
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// RequireRole rejects callers without an identity (401) or without the role (403).
func RequireRole(role auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := auth.FromContext(r.Context())
			if err != nil {
				writeError(w, http.StatusUnauthorized, "sign in required", GetCorrelationID(r.Context()))
				return
			}
			if !id.Allows(role) {
				writeError(w, http.StatusForbidden, "forbidden", GetCorrelationID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects anonymous callers with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := auth.FromContext(r.Context()); err != nil {
			writeError(w, http.StatusUnauthorized, "sign in required", GetCorrelationID(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}
