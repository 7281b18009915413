// Package session issues and verifies signed session cookies.
package session

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MaxAge is how long a session stays valid (7 days).
const MaxAge = 7 * 24 * time.Hour

// CookieName is the session cookie key.
const CookieName = "session"

// Manager signs and verifies session tokens with an HS256 key.
type Manager struct {
	key []byte
}

// NewManager builds a session manager from the configured secret key.
func NewManager(secretKey string) *Manager {
	return &Manager{key: []byte(secretKey)}
}

type claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Token creates a signed session token carrying the user ID.
func (m *Manager) Token(userID string) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(MaxAge)),
		},
	})
	return tok.SignedString(m.key)
}

// Verify parses a session token and returns the user ID, or an error for
// expired, malformed, or foreign-key tokens.
func (m *Manager) Verify(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.key, nil
	})
	if err != nil {
		return "", fmt.Errorf("parse session token: %w", err)
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || c.UserID == "" {
		return "", fmt.Errorf("session token missing user id")
	}
	return c.UserID, nil
}

// SetCookie attaches a session cookie to the response.
func (m *Manager) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(MaxAge.Seconds()),
	})
}

// ClearCookie expires the session cookie.
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// UserID extracts the authenticated user from a request's session cookie.
// Returns empty string for anonymous requests.
func (m *Manager) UserID(r *http.Request) string {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}
	userID, err := m.Verify(cookie.Value)
	if err != nil {
		return ""
	}
	return userID
}
