package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"market-chat/auth"
)

type contextKey string

const userIDKey contextKey = "userID"

// Authenticate validates the bearer token issued by the account service.
// When no validator is configured (no shared secret), requests pass
// through untouched: issuance and enforcement then live upstream.
func Authenticate(tokens *auth.TokenValidator) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokens == nil {
				next.ServeHTTP(w, r)
				return
			}
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			claims, err := tokens.Validate(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the authenticated user id, or "" when auth is
// disabled.
func UserFromContext(r *http.Request) string {
	userID, _ := r.Context().Value(userIDKey).(string)
	return userID
}
