// Package google implements the Google OAuth login flow: consent redirect,
// callback exchange, user creation, and token storage.
package google

import (
	"golang.org/x/oauth2"
	googleOAuth "golang.org/x/oauth2/google"

	"github.com/pysugar/digital-twin/internal/config"
)

// Scopes cover identity plus the calendar and mail access the tools need.
var Scopes = []string{
	"openid",
	"email",
	"profile",
	"https://www.googleapis.com/auth/calendar.readonly",
	"https://www.googleapis.com/auth/calendar.events",
	"https://www.googleapis.com/auth/gmail.readonly",
}

const userinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// OAuthConfig builds the oauth2 config for the login flow. The callback URL
// is anchored on the configured backend URL so it matches what is registered
// with Google.
func OAuthConfig(cfg *config.Config) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.BackendURL + "/auth/google/callback",
		Scopes:       Scopes,
		Endpoint:     googleOAuth.Endpoint,
	}
}
