package state

import (
	"testing"
	"time"
)

func TestIssueRedeem(t *testing.T) {
	s := NewStore()

	token := s.Issue("user-1")
	if token == "" {
		t.Fatal("empty state token")
	}

	userID, ok := s.Redeem(token)
	if !ok {
		t.Fatal("expected valid redemption")
	}
	if userID != "user-1" {
		t.Errorf("userID = %q, want %q", userID, "user-1")
	}

	// Single use.
	if _, ok := s.Redeem(token); ok {
		t.Error("state token redeemed twice")
	}
}

func TestRedeem_UnknownToken(t *testing.T) {
	s := NewStore()
	if _, ok := s.Redeem("never-issued"); ok {
		t.Error("unknown token redeemed")
	}
}

func TestRedeem_Expired(t *testing.T) {
	s := NewStore()
	current := time.Now()
	s.now = func() time.Time { return current }

	token := s.Issue("")
	current = current.Add(TTL + time.Minute)

	if _, ok := s.Redeem(token); ok {
		t.Error("expired token redeemed")
	}
}

func TestIssue_SweepsExpired(t *testing.T) {
	s := NewStore()
	current := time.Now()
	s.now = func() time.Time { return current }

	for i := 0; i < 5; i++ {
		s.Issue("")
	}
	current = current.Add(TTL + time.Minute)
	s.Issue("")

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) != 1 {
		t.Errorf("pending = %d, want 1 after sweep", len(s.pending))
	}
}

func TestIssue_UniqueTokens(t *testing.T) {
	s := NewStore()
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok := s.Issue("")
		if seen[tok] {
			t.Fatal("duplicate state token")
		}
		seen[tok] = true
	}
}
