// Package middleware holds gorilla/mux-compatible HTTP middleware for the
// analyze API: bearer-token auth, grounded on
// cmd/server/main.go's middleware chain.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ridopark/jonbu-patterns/internal/auth"
)

type contextKey string

const subjectContextKey contextKey = "auth_subject"

// Auth rejects requests without a valid bearer token signed by issuer.
func Auth(issuer *auth.Issuer, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(header, prefix) {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			claims, err := issuer.Verify(strings.TrimPrefix(header, prefix))
			if err != nil {
				logger.Warn().Err(err).Str("path", r.URL.Path).Msg("rejected request: invalid token")
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), subjectContextKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Subject returns the authenticated subject from a request context set by
// Auth, if any.
func Subject(ctx context.Context) (string, bool) {
	subject, ok := ctx.Value(subjectContextKey).(string)
	return subject, ok
}
