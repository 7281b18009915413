package session

import (
	"net/http/httptest"
	"testing"
)

func TestTokenVerify_Roundtrip(t *testing.T) {
	m := NewManager("test-secret")

	token, err := m.Token("user-42")
	if err != nil {
		t.Fatalf("Token: %v", err)
	}

	userID, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if userID != "user-42" {
		t.Errorf("userID = %q, want %q", userID, "user-42")
	}
}

func TestVerify_WrongKey(t *testing.T) {
	m1 := NewManager("key-one")
	m2 := NewManager("key-two")

	token, err := m1.Token("user-1")
	if err != nil {
		t.Fatalf("Token: %v", err)
	}

	if _, err := m2.Verify(token); err == nil {
		t.Fatal("expected verification failure for foreign key")
	}
}

func TestVerify_Garbage(t *testing.T) {
	m := NewManager("key")
	for _, input := range []string{"", "not.a.jwt", "a.b.c"} {
		if _, err := m.Verify(input); err == nil {
			t.Errorf("Verify(%q) succeeded, want error", input)
		}
	}
}

func TestUserID_FromRequest(t *testing.T) {
	m := NewManager("key")
	token, err := m.Token("user-7")
	if err != nil {
		t.Fatalf("Token: %v", err)
	}

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Cookie", CookieName+"="+token)
	if got := m.UserID(r); got != "user-7" {
		t.Errorf("UserID = %q, want %q", got, "user-7")
	}

	anon := httptest.NewRequest("GET", "/", nil)
	if got := m.UserID(anon); got != "" {
		t.Errorf("UserID for anonymous request = %q, want empty", got)
	}
}

func TestSetClearCookie(t *testing.T) {
	m := NewManager("key")
	w := httptest.NewRecorder()
	m.SetCookie(w, "tok")

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != CookieName || cookies[0].Value != "tok" {
		t.Fatalf("unexpected cookies: %v", cookies)
	}
	if !cookies[0].HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}

	w = httptest.NewRecorder()
	m.ClearCookie(w)
	cookies = w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected expired cookie, got %v", cookies)
	}
}
