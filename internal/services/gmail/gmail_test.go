package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pysugar/digital-twin/internal/crypto"
	"github.com/pysugar/digital-twin/internal/db"
	"github.com/pysugar/digital-twin/internal/db/models"
	"github.com/pysugar/digital-twin/internal/vault"
)

func newConnectedClient(t *testing.T, apiURL string) *Client {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	database, err := db.InitDB(dsn)
	if err != nil {
		t.Fatalf("InitDB() error = %v", err)
	}
	cipher, err := crypto.NewCipher(crypto.DeriveKey("gmail-test-key"))
	if err != nil {
		t.Fatalf("NewCipher() error = %v", err)
	}
	v := vault.New(database, cipher, nil)
	if err := v.Upsert("user-1", models.ProviderGoogle, "g-1", "test-access-token", "", nil, "[]"); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	c := NewClient(v)
	c.baseURL = apiURL
	return c
}

func encodeBody(text string) string {
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString([]byte(text))
}

func metadataMessage(id, from, subject string) map[string]any {
	return map[string]any{
		"id":       id,
		"threadId": "thread-" + id,
		"snippet":  "preview of " + id,
		"payload": map[string]any{
			"headers": []map[string]string{
				{"name": "From", "value": from},
				{"name": "Subject", "value": subject},
				{"name": "Date", "value": "Fri, 14 Mar 2025 09:00:00 +0000"},
			},
		},
	}
}

func TestListMessages(t *testing.T) {
	var searchQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/users/me/messages":
			searchQuery = r.URL.Query().Get("q")
			json.NewEncoder(w).Encode(map[string]any{
				"messages": []map[string]string{{"id": "m1"}, {"id": "m2"}},
			})
		case strings.HasPrefix(r.URL.Path, "/users/me/messages/"):
			id := strings.TrimPrefix(r.URL.Path, "/users/me/messages/")
			json.NewEncoder(w).Encode(metadataMessage(id, "alice@example.com", "Hello "+id))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	c := newConnectedClient(t, server.URL)
	messages, err := c.ListMessages(context.Background(), "user-1", "from:alice", "2025-03-01", "2025-03-14", 0)
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("got %d messages", len(messages))
	}
	if messages[0].From != "alice@example.com" || messages[0].Subject != "Hello m1" {
		t.Errorf("messages[0] = %+v", messages[0])
	}
	if messages[0].ThreadID != "thread-m1" {
		t.Errorf("ThreadID = %s", messages[0].ThreadID)
	}
	// before: is exclusive, so the end date is bumped by a day
	if searchQuery != "from:alice after:2025/03/01 before:2025/03/15" {
		t.Errorf("query = %q", searchQuery)
	}
}

func TestGetMessage_DecodesNestedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id":       "m1",
			"threadId": "thread-m1",
			"snippet":  "preview",
			"payload": map[string]any{
				"mimeType": "multipart/alternative",
				"headers": []map[string]string{
					{"name": "From", "value": "bob@example.com"},
					{"name": "Subject", "value": "Plans"},
				},
				"parts": []map[string]any{
					{
						"mimeType": "text/html",
						"body":     map[string]string{"data": encodeBody("<p>ignored</p>")},
					},
					{
						"mimeType": "text/plain",
						"body":     map[string]string{"data": encodeBody("plain text body")},
					},
				},
			},
		})
	}))
	defer server.Close()

	c := newConnectedClient(t, server.URL)
	msg, err := c.GetMessage(context.Background(), "user-1", "m1")
	if err != nil {
		t.Fatalf("GetMessage() error = %v", err)
	}
	if msg.Body != "plain text body" {
		t.Errorf("Body = %q, want the text/plain part", msg.Body)
	}
	if msg.Subject != "Plans" {
		t.Errorf("Subject = %q", msg.Subject)
	}
}

func TestGetMessage_FallsBackToPayloadBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id":       "m2",
			"threadId": "thread-m2",
			"snippet":  "preview",
			"payload": map[string]any{
				"mimeType": "text/html",
				"headers":  []map[string]string{},
				"body":     map[string]string{"data": encodeBody("<p>only body</p>")},
			},
		})
	}))
	defer server.Close()

	c := newConnectedClient(t, server.URL)
	msg, err := c.GetMessage(context.Background(), "user-1", "m2")
	if err != nil {
		t.Fatalf("GetMessage() error = %v", err)
	}
	if msg.Body != "<p>only body</p>" {
		t.Errorf("Body = %q, want the flat payload body", msg.Body)
	}
}

func TestGetThread(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/me/threads/thread-1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"messages": []map[string]any{
				{
					"id": "m1", "threadId": "thread-1",
					"payload": map[string]any{
						"mimeType": "text/plain",
						"headers":  []map[string]string{{"name": "From", "value": "a@example.com"}},
						"body":     map[string]string{"data": encodeBody("first")},
					},
				},
				{
					"id": "m2", "threadId": "thread-1",
					"payload": map[string]any{
						"mimeType": "text/plain",
						"headers":  []map[string]string{{"name": "From", "value": "b@example.com"}},
						"body":     map[string]string{"data": encodeBody("second")},
					},
				},
			},
		})
	}))
	defer server.Close()

	c := newConnectedClient(t, server.URL)
	thread, err := c.GetThread(context.Background(), "user-1", "thread-1")
	if err != nil {
		t.Fatalf("GetThread() error = %v", err)
	}
	if len(thread) != 2 || thread[0].Body != "first" || thread[1].Body != "second" {
		t.Errorf("thread = %+v", thread)
	}
}

func TestDateFilter_Defaults(t *testing.T) {
	filter := dateFilter("", "")
	if !strings.HasPrefix(filter, "after:") || !strings.Contains(filter, " before:") {
		t.Errorf("dateFilter() = %q", filter)
	}
	// Malformed dates fall back rather than failing the search
	fallback := dateFilter("bogus", "also-bogus")
	if !strings.HasPrefix(fallback, "after:") {
		t.Errorf("dateFilter(bogus) = %q", fallback)
	}
}
