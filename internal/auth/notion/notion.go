// Package notion implements the Notion OAuth login flow. Unlike Google,
// Notion uses Basic auth on the token exchange, issues tokens that never
// expire, and returns workspace metadata alongside the token.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pysugar/digital-twin/internal/auth/session"
	"github.com/pysugar/digital-twin/internal/auth/state"
	"github.com/pysugar/digital-twin/internal/config"
	"github.com/pysugar/digital-twin/internal/db/models"
	"github.com/pysugar/digital-twin/internal/util"
	"github.com/pysugar/digital-twin/internal/vault"
)

const (
	authorizeURL = "https://api.notion.com/v1/oauth/authorize"
	tokenURL     = "https://api.notion.com/v1/oauth/token"
)

// HandleLogin starts the Notion consent flow. 500 when Notion credentials
// are not configured, since the integration is optional.
func HandleLogin(cfg *config.Config, states *state.Store, sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.Notion.ClientID == "" {
			http.Error(w, "Notion not configured. Set NOTION_CLIENT_ID and NOTION_CLIENT_SECRET.", http.StatusInternalServerError)
			return
		}

		stateToken := states.Issue(sessions.UserID(r))

		params := url.Values{}
		params.Set("client_id", cfg.Notion.ClientID)
		params.Set("redirect_uri", cfg.BackendURL+"/auth/notion/callback")
		params.Set("response_type", "code")
		params.Set("owner", "user")
		params.Set("state", stateToken)

		http.Redirect(w, r, authorizeURL+"?"+params.Encode(), http.StatusTemporaryRedirect)
	}
}

// tokenResponse is Notion's token grant payload, which bundles workspace and
// owner identity with the token itself.
type tokenResponse struct {
	AccessToken   string `json:"access_token"`
	BotID         string `json:"bot_id"`
	WorkspaceID   string `json:"workspace_id"`
	WorkspaceName string `json:"workspace_name"`
	Owner         struct {
		Type string `json:"type"`
		User struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"user"`
	} `json:"owner"`
}

// HandleCallback finishes the consent flow and stores the workspace token.
// The stored connection has no refresh token and no expiry.
func HandleCallback(cfg *config.Config, database *gorm.DB, tokenVault *vault.Vault, states *state.Store, sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if oauthErr := r.URL.Query().Get("error"); oauthErr != "" {
			log.Printf("⚠️ Notion consent denied: %s", oauthErr)
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

		tokens, err := exchangeCode(r.Context(), cfg, code)
		if err != nil {
			log.Printf("❌ Notion token exchange failed: %v", err)
			http.Error(w, fmt.Sprintf("Failed to get tokens: %v", err), http.StatusBadRequest)
			return
		}

		notionUserID := tokens.Owner.User.ID
		if notionUserID == "" {
			notionUserID = tokens.BotID
		}
		log.Printf("🔑 Notion user authenticated: %s (workspace %q)", tokens.Owner.User.Name, tokens.WorkspaceName)

		user, err := findOrCreateUser(database, linkedUserID, tokens.Owner.User.Name)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to save user: %v", err), http.StatusInternalServerError)
			return
		}

		workspace, _ := json.Marshal(map[string]string{
			"workspace_id":   tokens.WorkspaceID,
			"workspace_name": tokens.WorkspaceName,
		})
		err = tokenVault.Upsert(user.ID, models.ProviderNotion, notionUserID, tokens.AccessToken, "", nil, string(workspace))
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

func findOrCreateUser(database *gorm.DB, linkedUserID, name string) (*models.User, error) {
	if linkedUserID != "" {
		var user models.User
		if err := database.Where("id = ?", linkedUserID).First(&user).Error; err == nil {
			log.Printf("🔗 Linking connection to existing user %s", user.ID)
			return &user, nil
		}
	}

	user := models.User{ID: uuid.New().String(), Name: name}
	if err := database.Create(&user).Error; err != nil {
		return nil, err
	}
	log.Printf("✅ Created new user: %s", user.ID)
	return &user, nil
}

func exchangeCode(ctx context.Context, cfg *config.Config, code string) (*tokenResponse, error) {
	payload, _ := json.Marshal(map[string]string{
		"grant_type":   "authorization_code",
		"code":         code,
		"redirect_uri": cfg.BackendURL + "/auth/notion/callback",
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(cfg.Notion.ClientID, cfg.Notion.ClientSecret)
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, util.TruncateBytes(body))
	}

	var tokens tokenResponse
	if err := json.Unmarshal(body, &tokens); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if tokens.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access_token")
	}
	return &tokens, nil
}
