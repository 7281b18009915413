// Package middleware holds the HTTP middleware for the API surface.
package middleware

import (
	"context"
	"net/http"

	"github.com/pysugar/digital-twin/internal/auth/session"
)

type contextKey string

const userIDKey contextKey = "userID"

// RequireSession rejects requests without a valid session cookie and stashes
// the user ID in the request context for downstream handlers.
func RequireSession(sessions *session.Manager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := sessions.UserID(r)
			if userID == "" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error": "Not authenticated"}`))
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
		})
	}
}

// UserID returns the authenticated user ID stored by RequireSession, or ""
// outside of it.
func UserID(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}
