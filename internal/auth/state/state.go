// Package state issues and validates short-lived OAuth CSRF state tokens.
package state

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"
)

// TTL is how long an issued state stays redeemable.
const TTL = 10 * time.Minute

type entry struct {
	issuedAt time.Time
	userID   string
}

// Store holds pending OAuth states in memory. All access goes through the
// mutex; expired entries are swept on every Issue.
type Store struct {
	mu      sync.Mutex
	pending map[string]entry
	now     func() time.Time
}

// NewStore creates an empty state store.
func NewStore() *Store {
	return &Store{
		pending: make(map[string]entry),
		now:     time.Now,
	}
}

// Issue mints a new random state token. userID may be empty; when set, the
// callback can link the authorized provider to that already-logged-in user.
func (s *Store) Issue(userID string) string {
	b := make([]byte, 32)
	rand.Read(b)
	token := base64.RawURLEncoding.EncodeToString(b)

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-TTL)
	for tok, e := range s.pending {
		if e.issuedAt.Before(cutoff) {
			delete(s.pending, tok)
		}
	}

	s.pending[token] = entry{issuedAt: s.now(), userID: userID}
	return token
}

// Redeem consumes a state token. Returns the user ID bound at issue time and
// whether the token was valid; a token redeems at most once.
func (s *Store) Redeem(token string) (userID string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.pending[token]
	if !ok {
		return "", false
	}
	delete(s.pending, token)
	if e.issuedAt.Before(s.now().Add(-TTL)) {
		return "", false
	}
	return e.userID, true
}
