package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pysugar/digital-twin/internal/auth/session"
	"github.com/pysugar/digital-twin/internal/logging"
)

func TestRequireSession(t *testing.T) {
	sessions := session.NewManager("middleware-test-key")

	var seenUserID string
	handler := RequireSession(sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUserID = UserID(r.Context())
	}))

	// Valid cookie passes through with the user ID in context
	token, err := sessions.Token("user-42")
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	r := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	r.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if seenUserID != "user-42" {
		t.Errorf("UserID() = %q, want user-42", seenUserID)
	}

	// Missing cookie is rejected
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", w.Code)
	}

	// Garbage cookie is rejected
	r = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	r.AddCookie(&http.Cookie{Name: session.CookieName, Value: "not-a-token"})
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("garbage cookie status = %d, want 401", w.Code)
	}
}

func TestUserID_OutsideMiddleware(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := UserID(r.Context()); got != "" {
		t.Errorf("UserID() = %q, want empty", got)
	}
}

func TestRequestID(t *testing.T) {
	var ctxID string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = logging.GetRequestID(r.Context())
	}))

	// Generated when absent
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if ctxID == "" {
		t.Error("request ID should be generated")
	}
	if got := w.Header().Get("X-Request-ID"); got != ctxID {
		t.Errorf("response header = %q, context = %q", got, ctxID)
	}

	// Inbound header is honored
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Request-ID", "upstream-id")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if ctxID != "upstream-id" {
		t.Errorf("request ID = %q, want upstream-id", ctxID)
	}
}

func TestCORS(t *testing.T) {
	handler := CORS("http://localhost:5173")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Allowed origin gets the headers
	r := httptest.NewRequest(http.MethodGet, "/chat", nil)
	r.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Errorf("Allow-Origin = %q", w.Header().Get("Access-Control-Allow-Origin"))
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("credentials must be allowed for cookie auth")
	}

	// Foreign origin gets nothing
	r = httptest.NewRequest(http.MethodGet, "/chat", nil)
	r.Header.Set("Origin", "http://evil.example.com")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("foreign origin must not be allowed")
	}

	// Preflight short-circuits
	r = httptest.NewRequest(http.MethodOptions, "/chat", nil)
	r.Header.Set("Origin", "http://localhost:5173")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", w.Code)
	}
}
