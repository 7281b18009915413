package handlers

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/pysugar/digital-twin/internal/auth/session"
	"github.com/pysugar/digital-twin/internal/db/models"
	"github.com/pysugar/digital-twin/internal/server/middleware"
	"github.com/pysugar/digital-twin/internal/vault"
)

// MeHandler returns the signed-in user's profile and which providers they
// have connected.
func MeHandler(database *gorm.DB, tokenVault *vault.Vault) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r.Context())

		var user models.User
		if err := database.Where("id = ?", userID).First(&user).Error; err != nil {
			writeError(w, http.StatusUnauthorized, "User not found")
			return
		}

		providers := tokenVault.Providers(userID)
		if providers == nil {
			providers = []string{}
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"id":                 user.ID,
			"name":               user.Name,
			"email":              user.Email,
			"picture":            user.Picture,
			"connected_services": providers,
		})
	}
}

// LogoutHandler clears the session cookie.
func LogoutHandler(sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions.ClearCookie(w)
		writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
	}
}
