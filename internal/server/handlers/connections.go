package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pysugar/digital-twin/internal/auth/session"
	"github.com/pysugar/digital-twin/internal/server/middleware"
	"github.com/pysugar/digital-twin/internal/vault"
)

// DisconnectHandler removes one provider connection. Dropping the last
// connection deletes the orphaned account and ends the session, since an
// account without connections cannot do anything.
func DisconnectHandler(tokenVault *vault.Vault, sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r.Context())
		provider := chi.URLParam(r, "provider")

		remaining, err := tokenVault.Disconnect(userID, provider)
		if errors.Is(err, vault.ErrNotConnected) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("No %s connection found", provider))
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to disconnect: %v", err))
			return
		}

		if remaining == 0 {
			if err := tokenVault.DeleteUser(userID); err != nil {
				log.Printf("⚠️ Failed to delete orphaned user %s: %v", userID, err)
			}
			sessions.ClearCookie(w)
		}

		log.Printf("🔌 User %s disconnected from %s (%d connections left)", userID, provider, remaining)
		writeJSON(w, http.StatusOK, map[string]string{"message": fmt.Sprintf("Disconnected from %s", provider)})
	}
}
