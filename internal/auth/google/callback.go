package google

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pysugar/digital-twin/internal/auth/session"
	"github.com/pysugar/digital-twin/internal/auth/state"
	"github.com/pysugar/digital-twin/internal/config"
	"github.com/pysugar/digital-twin/internal/db/models"
	"github.com/pysugar/digital-twin/internal/vault"
)

// HandleCallback finishes the consent flow: it validates the state token,
// exchanges the code, stores the sealed tokens, and signs the user in.
func HandleCallback(cfg *config.Config, database *gorm.DB, tokenVault *vault.Vault, states *state.Store, sessions *session.Manager) http.HandlerFunc {
	oauthConfig := OAuthConfig(cfg)
	return func(w http.ResponseWriter, r *http.Request) {
		if oauthErr := r.URL.Query().Get("error"); oauthErr != "" {
			log.Printf("⚠️ Google consent denied: %s", oauthErr)
			http.Redirect(w, r, cfg.FrontendURL+"?error="+url.QueryEscape(oauthErr), http.StatusTemporaryRedirect)
			return
		}

		code := r.URL.Query().Get("code")
		stateToken := r.URL.Query().Get("state")
		if code == "" || stateToken == "" {
			http.Error(w, "Missing code or state", http.StatusBadRequest)
			return
		}
		linkedUserID, ok := states.Redeem(stateToken)
		if !ok {
			http.Error(w, "Invalid state", http.StatusBadRequest)
			return
		}

		token, err := oauthConfig.Exchange(r.Context(), code)
		if err != nil {
			log.Printf("❌ Google token exchange failed: %v", err)
			http.Error(w, fmt.Sprintf("Token exchange failed: %v", err), http.StatusBadRequest)
			return
		}

		client := oauthConfig.Client(r.Context(), token)
		resp, err := client.Get(userinfoURL)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to get user info: %v", err), http.StatusBadRequest)
			return
		}
		defer resp.Body.Close()

		var userinfo struct {
			ID      string `json:"id"`
			Email   string `json:"email"`
			Name    string `json:"name"`
			Picture string `json:"picture"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&userinfo); err != nil {
			http.Error(w, fmt.Sprintf("Failed to decode user info: %v", err), http.StatusBadRequest)
			return
		}
		log.Printf("🔑 Google user authenticated: %s", userinfo.Email)

		user, err := findOrCreateUser(database, linkedUserID, userinfo.Name, userinfo.Email, userinfo.Picture)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to save user: %v", err), http.StatusInternalServerError)
			return
		}

		scopes, _ := json.Marshal(Scopes)
		expiry := token.Expiry
		err = tokenVault.Upsert(user.ID, models.ProviderGoogle, userinfo.ID, token.AccessToken, token.RefreshToken, &expiry, string(scopes))
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to save connection: %v", err), http.StatusInternalServerError)
			return
		}

		sessionToken, err := sessions.Token(user.ID)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to create session: %v", err), http.StatusInternalServerError)
			return
		}
		sessions.SetCookie(w, sessionToken)
		http.Redirect(w, r, cfg.FrontendURL, http.StatusTemporaryRedirect)
	}
}

// findOrCreateUser links the connection to the signed-in user when there is
// one; a fresh login always gets a fresh account. Accounts are never matched
// by email.
func findOrCreateUser(database *gorm.DB, linkedUserID, name, email, picture string) (*models.User, error) {
	if linkedUserID != "" {
		var user models.User
		if err := database.Where("id = ?", linkedUserID).First(&user).Error; err == nil {
			log.Printf("🔗 Linking connection to existing user %s", user.ID)
			return &user, nil
		}
	}

	user := models.User{
		ID:      uuid.New().String(),
		Email:   email,
		Name:    name,
		Picture: picture,
	}
	if err := database.Create(&user).Error; err != nil {
		return nil, err
	}
	log.Printf("✅ Created new user: %s", user.ID)
	return &user, nil
}
