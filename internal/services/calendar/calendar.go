// Package calendar wraps the Google Calendar API for the tool layer.
package calendar

import (
	"bytes"
	"context"
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
	defaultBaseURL = "https://www.googleapis.com/calendar/v3"
	requestTimeout = 15 * time.Second

	// defaultTimeZone is applied to created/updated event times.
	// TODO: detect the user's timezone from their calendar settings.
	defaultTimeZone = "America/Los_Angeles"
)

// Event is the trimmed event shape returned to the model.
type Event struct {
	ID          string   `json:"id"`
	Summary     string   `json:"summary"`
	Description string   `json:"description,omitempty"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	Location    string   `json:"location,omitempty"`
	Attendees   []string `json:"attendees,omitempty"`
	HTMLLink    string   `json:"html_link,omitempty"`
}

// Client fetches and mutates the user's primary Google calendar. Tokens are
// resolved through the vault on every call.
type Client struct {
	vault      *vault.Vault
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a calendar client backed by the vault.
func NewClient(v *vault.Vault) *Client {
	return &Client{
		vault:      v,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// ListEvents returns events between start and end dates (YYYY-MM-DD, both
// optional), filtered by query when non-empty. The range runs from midnight
// of the start date to 23:59:59 of the end date.
func (c *Client) ListEvents(ctx context.Context, userID, query, startDate, endDate string, maxResults int) ([]Event, error) {
	token, err := c.vault.AccessToken(ctx, userID, models.ProviderGoogle)
	if err != nil {
		return nil, err
	}
	if maxResults <= 0 {
		maxResults = 25
	}

	startDay, endDay := resolveDateRange(startDate, endDate)
	timeMin := startDay.Format("2006-01-02T15:04:05") + "Z"
	timeMax := endDay.Add(24*time.Hour - time.Second).Format("2006-01-02T15:04:05") + "Z"

	params := url.Values{}
	params.Set("maxResults", strconv.Itoa(maxResults))
	params.Set("singleEvents", "true")
	params.Set("orderBy", "startTime")
	params.Set("timeMin", timeMin)
	params.Set("timeMax", timeMax)
	if query != "" {
		params.Set("q", query)
	}

	log.Printf("📅 Listing events (query=%q, range %s..%s)", query, timeMin, timeMax)

	var data struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := c.doJSON(ctx, token, http.MethodGet, "/calendars/primary/events?"+params.Encode(), nil, &data); err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(data.Items))
	for _, raw := range data.Items {
		events = append(events, parseEvent(raw))
	}
	return events, nil
}

// CreateInput holds the fields for a new event.
type CreateInput struct {
	Summary     string
	StartTime   string // ISO 8601
	EndTime     string // ISO 8601
	Description string
	Location    string
	Attendees   []string
}

// CreateEvent creates an event on the primary calendar. Attendees, when
// present, receive invitation emails.
func (c *Client) CreateEvent(ctx context.Context, userID string, input CreateInput) (*Event, error) {
	token, err := c.vault.AccessToken(ctx, userID, models.ProviderGoogle)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"summary": input.Summary,
		"start":   map[string]string{"dateTime": input.StartTime, "timeZone": defaultTimeZone},
		"end":     map[string]string{"dateTime": input.EndTime, "timeZone": defaultTimeZone},
	}
	if input.Description != "" {
		body["description"] = input.Description
	}
	if input.Location != "" {
		body["location"] = input.Location
	}
	path := "/calendars/primary/events"
	if len(input.Attendees) > 0 {
		attendees := make([]map[string]string, 0, len(input.Attendees))
		for _, email := range input.Attendees {
			attendees = append(attendees, map[string]string{"email": email})
		}
		body["attendees"] = attendees
		path += "?sendUpdates=all"
	}

	log.Printf("📅 Creating event %q", input.Summary)

	var raw json.RawMessage
	if err := c.doJSON(ctx, token, http.MethodPost, path, body, &raw); err != nil {
		return nil, err
	}
	ev := parseEvent(raw)
	return &ev, nil
}

// UpdateInput holds optional replacement fields; empty strings leave the
// existing value untouched.
type UpdateInput struct {
	Summary     string
	StartTime   string
	EndTime     string
	Description string
	Location    string
}

// UpdateEvent patches an existing event by fetching it first and replacing
// only the provided fields.
func (c *Client) UpdateEvent(ctx context.Context, userID, eventID string, input UpdateInput) (*Event, error) {
	token, err := c.vault.AccessToken(ctx, userID, models.ProviderGoogle)
	if err != nil {
		return nil, err
	}

	var existing map[string]any
	if err := c.doJSON(ctx, token, http.MethodGet, "/calendars/primary/events/"+url.PathEscape(eventID), nil, &existing); err != nil {
		return nil, err
	}

	if input.Summary != "" {
		existing["summary"] = input.Summary
	}
	if input.StartTime != "" {
		existing["start"] = map[string]string{"dateTime": input.StartTime, "timeZone": defaultTimeZone}
	}
	if input.EndTime != "" {
		existing["end"] = map[string]string{"dateTime": input.EndTime, "timeZone": defaultTimeZone}
	}
	if input.Description != "" {
		existing["description"] = input.Description
	}
	if input.Location != "" {
		existing["location"] = input.Location
	}

	var raw json.RawMessage
	if err := c.doJSON(ctx, token, http.MethodPut, "/calendars/primary/events/"+url.PathEscape(eventID), existing, &raw); err != nil {
		return nil, err
	}
	ev := parseEvent(raw)
	return &ev, nil
}

// AddAttendees shares an event by inviting more attendees; existing ones are
// preserved and duplicates skipped.
func (c *Client) AddAttendees(ctx context.Context, userID, eventID string, emails []string) (*Event, error) {
	token, err := c.vault.AccessToken(ctx, userID, models.ProviderGoogle)
	if err != nil {
		return nil, err
	}

	var existing map[string]any
	if err := c.doJSON(ctx, token, http.MethodGet, "/calendars/primary/events/"+url.PathEscape(eventID), nil, &existing); err != nil {
		return nil, err
	}

	attendees, _ := existing["attendees"].([]any)
	present := make(map[string]bool, len(attendees))
	for _, a := range attendees {
		if m, ok := a.(map[string]any); ok {
			if email, ok := m["email"].(string); ok {
				present[email] = true
			}
		}
	}
	for _, email := range emails {
		if !present[email] {
			attendees = append(attendees, map[string]any{"email": email})
		}
	}
	existing["attendees"] = attendees

	var raw json.RawMessage
	if err := c.doJSON(ctx, token, http.MethodPut, "/calendars/primary/events/"+url.PathEscape(eventID)+"?sendUpdates=all", existing, &raw); err != nil {
		return nil, err
	}
	ev := parseEvent(raw)
	return &ev, nil
}

// DeleteEvent removes an event from the primary calendar.
func (c *Client) DeleteEvent(ctx context.Context, userID, eventID string) error {
	token, err := c.vault.AccessToken(ctx, userID, models.ProviderGoogle)
	if err != nil {
		return err
	}
	return c.doJSON(ctx, token, http.MethodDelete, "/calendars/primary/events/"+url.PathEscape(eventID), nil, nil)
}

// resolveDateRange applies the defaults: start today, end seven days later.
// Malformed dates fall back to the defaults instead of failing the call.
func resolveDateRange(startDate, endDate string) (time.Time, time.Time) {
	now := time.Now().UTC()
	start := now.Truncate(24 * time.Hour)
	if startDate != "" {
		if parsed, err := time.Parse("2006-01-02", startDate); err == nil {
			start = parsed
		} else {
			log.Printf("⚠️ Invalid start_date %q, using today", startDate)
		}
	}
	end := start.Add(7 * 24 * time.Hour)
	if endDate != "" {
		if parsed, err := time.Parse("2006-01-02", endDate); err == nil {
			end = parsed
		} else {
			log.Printf("⚠️ Invalid end_date %q, using 7 days from start", endDate)
		}
	}
	return start, end
}

func parseEvent(raw json.RawMessage) Event {
	var item struct {
		ID          string `json:"id"`
		Summary     string `json:"summary"`
		Description string `json:"description"`
		Location    string `json:"location"`
		HTMLLink    string `json:"htmlLink"`
		Start       struct {
			DateTime string `json:"dateTime"`
			Date     string `json:"date"`
		} `json:"start"`
		End struct {
			DateTime string `json:"dateTime"`
			Date     string `json:"date"`
		} `json:"end"`
		Attendees []struct {
			Email string `json:"email"`
		} `json:"attendees"`
	}
	json.Unmarshal(raw, &item)

	ev := Event{
		ID:          item.ID,
		Summary:     item.Summary,
		Description: item.Description,
		Location:    item.Location,
		HTMLLink:    item.HTMLLink,
		Start:       item.Start.DateTime,
		End:         item.End.DateTime,
	}
	if ev.Summary == "" {
		ev.Summary = "No title"
	}
	if ev.Start == "" {
		ev.Start = item.Start.Date
	}
	if ev.End == "" {
		ev.End = item.End.Date
	}
	for _, a := range item.Attendees {
		ev.Attendees = append(ev.Attendees, a.Email)
	}
	return ev
}

// doJSON performs one authorized API call, decoding the response into out
// when out is non-nil.
func (c *Client) doJSON(ctx context.Context, token, method, path string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calendar api: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("⚠️ Calendar API error %d: %s", resp.StatusCode, util.TruncateBytes(respBody))
		return fmt.Errorf("calendar api status %d", resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
