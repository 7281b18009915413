package google

import (
	"net/http"

	"golang.org/x/oauth2"

	"github.com/pysugar/digital-twin/internal/auth/session"
	"github.com/pysugar/digital-twin/internal/auth/state"
	"github.com/pysugar/digital-twin/internal/config"
)

// HandleLogin starts the consent flow. When the request already carries a
// valid session, the state token remembers the user so the callback links the
// new connection instead of creating a second account.
func HandleLogin(cfg *config.Config, states *state.Store, sessions *session.Manager) http.HandlerFunc {
	oauthConfig := OAuthConfig(cfg)
	return func(w http.ResponseWriter, r *http.Request) {
		stateToken := states.Issue(sessions.UserID(r))

		url := oauthConfig.AuthCodeURL(stateToken,
			oauth2.AccessTypeOffline,
			oauth2.ApprovalForce,
		)
		http.Redirect(w, r, url, http.StatusTemporaryRedirect)
	}
}
