// Package gmail wraps the Gmail API for the tool layer.
package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pysugar/digital-twin/internal/db/models"
	"github.com/pysugar/digital-twin/internal/util"
	"github.com/pysugar/digital-twin/internal/vault"
)

const (
	defaultBaseURL = "https://gmail.googleapis.com/gmail/v1"
	requestTimeout = 15 * time.Second
)

// Summary is the header-level view of one message.
type Summary struct {
	ID       string `json:"id"`
	ThreadID string `json:"thread_id"`
	From     string `json:"from"`
	To       string `json:"to,omitempty"`
	Subject  string `json:"subject"`
	Date     string `json:"date"`
	Snippet  string `json:"snippet"`
}

// Content is a full message including its decoded plain-text body.
type Content struct {
	Summary
	Body string `json:"body"`
}

// Client reads the user's Gmail mailbox. Tokens are resolved through the
// vault on every call.
type Client struct {
	vault      *vault.Vault
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a gmail client backed by the vault.
func NewClient(v *vault.Vault) *Client {
	return &Client{
		vault:      v,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// ListMessages searches the mailbox and returns header summaries. Dates
// (YYYY-MM-DD, both optional) become after:/before: filters; the default
// lookback is 30 days since mail often predates the current week. The search
// endpoint only returns IDs, so each match costs one extra metadata fetch.
func (c *Client) ListMessages(ctx context.Context, userID, query, startDate, endDate string, maxResults int) ([]Summary, error) {
	token, err := c.vault.AccessToken(ctx, userID, models.ProviderGoogle)
	if err != nil {
		return nil, err
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	fullQuery := dateFilter(startDate, endDate)
	if query != "" {
		fullQuery = query + " " + fullQuery
	}

	params := url.Values{}
	params.Set("maxResults", strconv.Itoa(maxResults))
	params.Set("q", fullQuery)

	log.Printf("📧 Searching messages (query=%q, max=%d)", fullQuery, maxResults)

	var list struct {
		Messages []struct {
			ID string `json:"id"`
		} `json:"messages"`
	}
	if err := c.doJSON(ctx, token, "/users/me/messages?"+params.Encode(), &list); err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(list.Messages))
	for _, m := range list.Messages {
		var msg message
		if err := c.doJSON(ctx, token, "/users/me/messages/"+m.ID+"?format=metadata", &msg); err != nil {
			log.Printf("⚠️ Skipping message %s: %v", m.ID, err)
			continue
		}
		summaries = append(summaries, msg.summary())
	}
	return summaries, nil
}

// GetMessage fetches one message in full, decoding its plain-text body.
func (c *Client) GetMessage(ctx context.Context, userID, messageID string) (*Content, error) {
	token, err := c.vault.AccessToken(ctx, userID, models.ProviderGoogle)
	if err != nil {
		return nil, err
	}

	var msg message
	if err := c.doJSON(ctx, token, "/users/me/messages/"+url.PathEscape(messageID)+"?format=full", &msg); err != nil {
		return nil, err
	}
	content := &Content{Summary: msg.summary(), Body: msg.body()}
	return content, nil
}

// GetThread fetches every message in a conversation thread, in order.
func (c *Client) GetThread(ctx context.Context, userID, threadID string) ([]Content, error) {
	token, err := c.vault.AccessToken(ctx, userID, models.ProviderGoogle)
	if err != nil {
		return nil, err
	}

	var thread struct {
		Messages []message `json:"messages"`
	}
	if err := c.doJSON(ctx, token, "/users/me/threads/"+url.PathEscape(threadID)+"?format=full", &thread); err != nil {
		return nil, err
	}

	contents := make([]Content, 0, len(thread.Messages))
	for _, msg := range thread.Messages {
		contents = append(contents, Content{Summary: msg.summary(), Body: msg.body()})
	}
	return contents, nil
}

// dateFilter builds the after:/before: clause. Gmail's before: is exclusive,
// so the end date gets one extra day to keep the range inclusive.
func dateFilter(startDate, endDate string) string {
	now := time.Now().UTC().Truncate(24 * time.Hour)

	start := now.AddDate(0, 0, -30)
	if startDate != "" {
		if parsed, err := time.Parse("2006-01-02", startDate); err == nil {
			start = parsed
		} else {
			log.Printf("⚠️ Invalid start_date %q, using 30 days ago", startDate)
		}
	}
	end := now
	if endDate != "" {
		if parsed, err := time.Parse("2006-01-02", endDate); err == nil {
			end = parsed
		} else {
			log.Printf("⚠️ Invalid end_date %q, using today", endDate)
		}
	}

	return "after:" + start.Format("2006/01/02") + " before:" + end.AddDate(0, 0, 1).Format("2006/01/02")
}

// message mirrors the Gmail API wire shape, as much of it as we read.
type message struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
	Snippet  string `json:"snippet"`
	Payload  part   `json:"payload"`
}

type part struct {
	MimeType string `json:"mimeType"`
	Headers  []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"headers"`
	Body struct {
		Data string `json:"data"`
	} `json:"body"`
	Parts []part `json:"parts"`
}

func (m *message) header(name string) string {
	for _, h := range m.Payload.Headers {
		if h.Name == name {
			return h.Value
		}
	}
	return ""
}

func (m *message) summary() Summary {
	return Summary{
		ID:       m.ID,
		ThreadID: m.ThreadID,
		From:     m.header("From"),
		To:       m.header("To"),
		Subject:  m.header("Subject"),
		Date:     m.header("Date"),
		Snippet:  m.Snippet,
	}
}

// body prefers the first text/plain part anywhere in the MIME tree. Only
// when no text/plain part exists does it fall back to whatever data the
// payload itself carries, then the snippet.
func (m *message) body() string {
	if text := findPlainText(&m.Payload); text != "" {
		return text
	}
	if m.Payload.Body.Data != "" {
		if decoded, err := decodeBody(m.Payload.Body.Data); err == nil {
			return decoded
		}
	}
	return m.Snippet
}

// findPlainText walks the MIME tree for the first text/plain part and
// nothing else; siblings like text/html are skipped.
func findPlainText(p *part) string {
	if p.MimeType == "text/plain" && p.Body.Data != "" {
		decoded, err := decodeBody(p.Body.Data)
		if err != nil {
			log.Printf("⚠️ Failed to decode message body: %v", err)
			return ""
		}
		return decoded
	}
	for i := range p.Parts {
		if text := findPlainText(&p.Parts[i]); text != "" {
			return text
		}
	}
	return ""
}

func decodeBody(data string) (string, error) {
	decoded, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(data)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

func (c *Client) doJSON(ctx context.Context, token, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gmail api: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		log.Printf("⚠️ Gmail API error %d: %s", resp.StatusCode, util.TruncateBytes(body))
		return fmt.Errorf("gmail api status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
