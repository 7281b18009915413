package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pysugar/digital-twin/internal/services/calendar"
	"github.com/pysugar/digital-twin/internal/services/gmail"
	"github.com/pysugar/digital-twin/internal/services/notion"
	"github.com/pysugar/digital-twin/internal/vault"
)

// DefaultRegistry builds the full tool catalog over the connected service
// clients. Any schema error surfaces here, at startup.
func DefaultRegistry(cal *calendar.Client, mail *gmail.Client, notes *notion.Client) (*Registry, error) {
	r := NewRegistry()

	type entry struct {
		def     Definition
		handler Handler
	}
	catalog := []entry{
		{
			def: Definition{
				Name:        "get_calendar_events",
				Description: "Get calendar events. Can list all events or search for specific ones. Time range is from 12:00 AM of start_date to 11:59 PM of end_date.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"query": {"type": "string", "description": "Optional search term to filter events by name (leave empty to get all events)"},
						"start_date": {"type": "string", "description": "Start date in YYYY-MM-DD format (defaults to today)"},
						"end_date": {"type": "string", "description": "End date in YYYY-MM-DD format (defaults to 7 days from start_date)"},
						"max_results": {"type": "integer", "description": "Maximum number of events to return (default 25)"}
					}
				}`),
			},
			handler: func(ctx context.Context, userID string, args map[string]any) (string, error) {
				query := stringArg(args, "query")
				events, err := cal.ListEvents(ctx, userID, query, stringArg(args, "start_date"), stringArg(args, "end_date"), intArg(args, "max_results", 25))
				if err != nil {
					return "", err
				}
				if len(events) == 0 {
					if query != "" {
						return fmt.Sprintf("No events found matching '%s'. TRY AGAIN with a different query (shorter keyword or empty query to list all events).", query), nil
					}
					return "No events found for this time period. TRY AGAIN with a wider date range or empty query.", nil
				}
				return marshalResult(events)
			},
		},
		{
			def: Definition{
				Name:        "get_emails",
				Description: "Get emails from the user's inbox. Can list recent emails or search for specific ones using Gmail query syntax. Time range is from start_date to end_date.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"query": {"type": "string", "description": "Optional search query (e.g., 'from:someone@example.com', 'subject:meeting', 'is:unread'). Leave empty to get recent inbox emails."},
						"start_date": {"type": "string", "description": "Start date in YYYY-MM-DD format (defaults to today)"},
						"end_date": {"type": "string", "description": "End date in YYYY-MM-DD format (defaults to 7 days from start_date)"},
						"max_results": {"type": "integer", "description": "Maximum number of emails to return (default 25)"}
					}
				}`),
			},
			handler: func(ctx context.Context, userID string, args map[string]any) (string, error) {
				query := stringArg(args, "query")
				emails, err := mail.ListMessages(ctx, userID, query, stringArg(args, "start_date"), stringArg(args, "end_date"), intArg(args, "max_results", 25))
				if errors.Is(err, vault.ErrNotConnected) {
					return "No recent emails found, or Gmail is not connected.", nil
				}
				if err != nil {
					return "", err
				}
				if len(emails) == 0 {
					if query != "" {
						return fmt.Sprintf("No emails found matching '%s'. TRY AGAIN with a different query (simpler keywords, different phrasing, or empty query to list recent emails).", query), nil
					}
					return "No recent emails found, or Gmail is not connected.", nil
				}
				return marshalResult(emails)
			},
		},
		{
			def: Definition{
				Name:        "get_email_content",
				Description: "Get the full content of a specific email by its ID. Use get_emails first to find email IDs.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"message_id": {"type": "string", "description": "The ID of the email to retrieve"}
					},
					"required": ["message_id"]
				}`),
			},
			handler: func(ctx context.Context, userID string, args map[string]any) (string, error) {
				email, err := mail.GetMessage(ctx, userID, stringArg(args, "message_id"))
				if err != nil {
					return "Failed to get email. Check the message ID or ensure Gmail is connected.", nil
				}
				return marshalResult(email)
			},
		},
		{
			def: Definition{
				Name:        "get_email_thread",
				Description: "Get an entire email thread/conversation (all back-and-forth messages). Use get_emails first to find the thread_id.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"thread_id": {"type": "string", "description": "The thread ID of the email conversation"}
					},
					"required": ["thread_id"]
				}`),
			},
			handler: func(ctx context.Context, userID string, args map[string]any) (string, error) {
				thread, err := mail.GetThread(ctx, userID, stringArg(args, "thread_id"))
				if err != nil || len(thread) == 0 {
					return "Failed to get email thread. Check the thread ID or ensure Gmail is connected.", nil
				}
				return marshalResult(thread)
			},
		},
		{
			def: Definition{
				Name:        "create_calendar_event",
				Description: "Create a new calendar event. Times should be in ISO 8601 format (e.g., '2024-01-15T14:00:00Z')",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"summary": {"type": "string", "description": "Title of the event"},
						"start_time": {"type": "string", "description": "Start time in ISO 8601 format (e.g., '2024-01-15T14:00:00Z')"},
						"end_time": {"type": "string", "description": "End time in ISO 8601 format (e.g., '2024-01-15T15:00:00Z')"},
						"description": {"type": "string", "description": "Description of the event (optional)"},
						"location": {"type": "string", "description": "Location of the event (optional)"},
						"attendees": {"type": "array", "items": {"type": "string"}, "description": "List of attendee email addresses to invite (optional)"}
					},
					"required": ["summary", "start_time", "end_time"]
				}`),
			},
			handler: func(ctx context.Context, userID string, args map[string]any) (string, error) {
				event, err := cal.CreateEvent(ctx, userID, calendar.CreateInput{
					Summary:     stringArg(args, "summary"),
					StartTime:   stringArg(args, "start_time"),
					EndTime:     stringArg(args, "end_time"),
					Description: stringArg(args, "description"),
					Location:    stringArg(args, "location"),
					Attendees:   stringSliceArg(args, "attendees"),
				})
				if err != nil {
					return "Failed to create event. Please check the details and try again.", nil
				}
				return prefixedResult("Event created successfully!", event)
			},
		},
		{
			def: Definition{
				Name:        "update_calendar_event",
				Description: "Update an existing calendar event. First search for the event to get its ID.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"event_id": {"type": "string", "description": "The ID of the event to update"},
						"summary": {"type": "string", "description": "New title of the event (optional)"},
						"start_time": {"type": "string", "description": "New start time in ISO 8601 format (optional)"},
						"end_time": {"type": "string", "description": "New end time in ISO 8601 format (optional)"},
						"description": {"type": "string", "description": "New description (optional)"},
						"location": {"type": "string", "description": "New location (optional)"}
					},
					"required": ["event_id"]
				}`),
			},
			handler: func(ctx context.Context, userID string, args map[string]any) (string, error) {
				event, err := cal.UpdateEvent(ctx, userID, stringArg(args, "event_id"), calendar.UpdateInput{
					Summary:     stringArg(args, "summary"),
					StartTime:   stringArg(args, "start_time"),
					EndTime:     stringArg(args, "end_time"),
					Description: stringArg(args, "description"),
					Location:    stringArg(args, "location"),
				})
				if err != nil {
					return "Failed to update event. Please check the event ID and try again.", nil
				}
				return prefixedResult("Event updated successfully!", event)
			},
		},
		{
			def: Definition{
				Name:        "share_calendar_event",
				Description: "Share a calendar event by adding attendees. They will receive email invitations.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"event_id": {"type": "string", "description": "The ID of the event to share"},
						"attendee_emails": {"type": "array", "items": {"type": "string"}, "description": "List of email addresses to invite"}
					},
					"required": ["event_id", "attendee_emails"]
				}`),
			},
			handler: func(ctx context.Context, userID string, args map[string]any) (string, error) {
				event, err := cal.AddAttendees(ctx, userID, stringArg(args, "event_id"), stringSliceArg(args, "attendee_emails"))
				if err != nil {
					return "Failed to share event. Please check the event ID and try again.", nil
				}
				return prefixedResult("Event shared successfully! Invitations sent.", event)
			},
		},
		{
			def: Definition{
				Name:        "delete_calendar_event",
				Description: "Delete a calendar event. First search for the event to get its ID.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"event_id": {"type": "string", "description": "The ID of the event to delete"}
					},
					"required": ["event_id"]
				}`),
			},
			handler: func(ctx context.Context, userID string, args map[string]any) (string, error) {
				if err := cal.DeleteEvent(ctx, userID, stringArg(args, "event_id")); err != nil {
					return "Failed to delete event. Please check the event ID and try again.", nil
				}
				return "Event deleted successfully!", nil
			},
		},
		{
			def: Definition{
				Name:        "search_notion",
				Description: "Search for pages in the user's Notion workspace. Returns titles, URLs, and metadata.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"query": {"type": "string", "description": "Search query (leave empty to get recent pages)"},
						"max_results": {"type": "integer", "description": "Maximum number of results (default 25)"}
					}
				}`),
			},
			handler: func(ctx context.Context, userID string, args map[string]any) (string, error) {
				query := stringArg(args, "query")
				pages, err := notes.Search(ctx, userID, query, intArg(args, "max_results", 25))
				if errors.Is(err, vault.ErrNotConnected) {
					return "No Notion pages found, or Notion is not connected.", nil
				}
				if err != nil {
					return "", err
				}
				if len(pages) == 0 {
					if query != "" {
						return fmt.Sprintf("No Notion pages found matching '%s'. TRY AGAIN with different keywords or an empty query to list recent pages.", query), nil
					}
					return "No Notion pages found, or Notion is not connected.", nil
				}
				return marshalResult(pages)
			},
		},
		{
			def: Definition{
				Name:        "get_notion_page",
				Description: "Get the content of a specific Notion page by its ID. Use search_notion first to find the page ID.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"page_id": {"type": "string", "description": "The ID of the Notion page to retrieve"}
					},
					"required": ["page_id"]
				}`),
			},
			handler: func(ctx context.Context, userID string, args map[string]any) (string, error) {
				page, err := notes.GetPage(ctx, userID, stringArg(args, "page_id"))
				if err != nil {
					return "Failed to get page. Check the page ID or ensure the page is shared with the integration.", nil
				}
				return marshalResult(page)
			},
		},
		{
			def: Definition{
				Name:        "create_notion_page",
				Description: "Create a new Notion page as a child of another page. Use search_notion first to find a parent page ID. Use PLAIN TEXT only for content (no markdown).",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"title": {"type": "string", "description": "The title of the new page"},
						"parent_page_id": {"type": "string", "description": "The ID of the parent page where the new page will be created"},
						"content": {"type": "string", "description": "Optional PLAIN TEXT content (no markdown). Use newlines for paragraphs."}
					},
					"required": ["title", "parent_page_id"]
				}`),
			},
			handler: func(ctx context.Context, userID string, args map[string]any) (string, error) {
				page, err := notes.CreatePage(ctx, userID, stringArg(args, "parent_page_id"), stringArg(args, "title"), stringArg(args, "content"))
				if err != nil {
					return "Failed to create page. Check the parent page ID and ensure it's shared with the integration.", nil
				}
				return prefixedResult("Page created successfully!", page)
			},
		},
		{
			def: Definition{
				Name:        "update_notion_page",
				Description: "Update a Notion page - change title and/or append new content. Use PLAIN TEXT only (no markdown). For modifying or deleting specific blocks, use update_notion_block or delete_notion_block.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"page_id": {"type": "string", "description": "The ID of the page to update"},
						"new_title": {"type": "string", "description": "New title for the page (optional)"},
						"append_content": {"type": "string", "description": "PLAIN TEXT to append (no markdown). Use newlines for paragraphs."}
					},
					"required": ["page_id"]
				}`),
			},
			handler: func(ctx context.Context, userID string, args map[string]any) (string, error) {
				pageID := stringArg(args, "page_id")
				newTitle := stringArg(args, "new_title")
				appendContent := stringArg(args, "append_content")
				if newTitle != "" {
					if err := notes.UpdatePageTitle(ctx, userID, pageID, newTitle); err != nil {
						return "Failed to update page. Check the page ID and ensure it's shared with the integration.", nil
					}
				}
				if appendContent != "" {
					if err := notes.AppendParagraphs(ctx, userID, pageID, appendContent); err != nil {
						return "Failed to update page. Check the page ID and ensure it's shared with the integration.", nil
					}
				}
				page, err := notes.GetPage(ctx, userID, pageID)
				if err != nil {
					return "Failed to update page. Check the page ID and ensure it's shared with the integration.", nil
				}
				return prefixedResult("Page updated successfully!", page)
			},
		},
		{
			def: Definition{
				Name:        "update_notion_block",
				Description: "Update the text content of a specific block. Use get_notion_page first to see all blocks and their IDs. Use PLAIN TEXT only (no markdown).",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"block_id": {"type": "string", "description": "The ID of the block to update"},
						"new_text": {"type": "string", "description": "The new PLAIN TEXT content for the block (no markdown)"}
					},
					"required": ["block_id", "new_text"]
				}`),
			},
			handler: func(ctx context.Context, userID string, args map[string]any) (string, error) {
				blockID := stringArg(args, "block_id")
				if err := notes.UpdateBlock(ctx, userID, blockID, stringArg(args, "new_text")); err != nil {
					return "Failed to update block. Check the block ID and ensure the page is shared with the integration.", nil
				}
				return prefixedResult("Block updated successfully!", map[string]string{"block_id": blockID})
			},
		},
		{
			def: Definition{
				Name:        "delete_notion_block",
				Description: "Delete a specific block from a Notion page. Use get_notion_page first to see all blocks and their IDs.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"block_id": {"type": "string", "description": "The ID of the block to delete"}
					},
					"required": ["block_id"]
				}`),
			},
			handler: func(ctx context.Context, userID string, args map[string]any) (string, error) {
				if err := notes.DeleteBlock(ctx, userID, stringArg(args, "block_id")); err != nil {
					return "Failed to delete block. Check the block ID and ensure the page is shared with the integration.", nil
				}
				return "Block deleted successfully!", nil
			},
		},
		{
			def: Definition{
				Name:        "delete_notion_page",
				Description: "Delete (archive) a Notion page. This action archives the page - it can be restored from Notion's trash. Use search_notion first to find the page ID.",
				Parameters: json.RawMessage(`{
					"type": "object",
					"properties": {
						"page_id": {"type": "string", "description": "The ID of the page to delete"}
					},
					"required": ["page_id"]
				}`),
			},
			handler: func(ctx context.Context, userID string, args map[string]any) (string, error) {
				if err := notes.ArchivePage(ctx, userID, stringArg(args, "page_id")); err != nil {
					return "Failed to delete page. Check the page ID and ensure it's shared with the integration.", nil
				}
				return "Page archived successfully! (It can be restored from Notion's trash)", nil
			},
		},
	}

	for _, e := range catalog {
		if err := r.Register(e.def, e.handler); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func marshalResult(v any) (string, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return string(out), nil
}

func prefixedResult(prefix string, v any) (string, error) {
	out, err := marshalResult(v)
	if err != nil {
		return "", err
	}
	return prefix + "\n" + out, nil
}
