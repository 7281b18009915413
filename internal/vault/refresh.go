package vault

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	googleOAuth "golang.org/x/oauth2/google"
)

// GoogleRefreshClient renews Google access tokens through the standard OAuth2
// token endpoint.
type GoogleRefreshClient struct {
	conf *oauth2.Config
}

// NewGoogleRefreshClient builds a refresh client from app credentials.
func NewGoogleRefreshClient(clientID, clientSecret string) *GoogleRefreshClient {
	return &GoogleRefreshClient{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     googleOAuth.Endpoint,
		},
	}
}

// Refresh exchanges a refresh token for a new access token. Google only
// returns a new refresh token when the grant is re-issued, so RefreshToken is
// usually empty.
func (g *GoogleRefreshClient) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	ts := g.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	tok, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("google token refresh: %w", err)
	}

	result := &RefreshResult{
		AccessToken: tok.AccessToken,
		ExpiresAt:   tok.Expiry,
	}
	if tok.RefreshToken != "" && tok.RefreshToken != refreshToken {
		result.RefreshToken = tok.RefreshToken
	}
	return result, nil
}
