// Package notion wraps the Notion API for the tool layer.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pysugar/digital-twin/internal/db/models"
	"github.com/pysugar/digital-twin/internal/util"
	"github.com/pysugar/digital-twin/internal/vault"
)

const (
	defaultBaseURL = "https://api.notion.com/v1"
	apiVersion     = "2022-06-28"
	requestTimeout = 15 * time.Second
)

// SearchResult is one page or database hit from a workspace search.
type SearchResult struct {
	ID             string `json:"id"`
	Object         string `json:"object"`
	Title          string `json:"title"`
	URL            string `json:"url"`
	LastEditedTime string `json:"last_edited_time"`
}

// Block is one content block with its plain-text rendering.
type Block struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Text    string `json:"text"`
	HasKids bool   `json:"has_children,omitempty"`
}

// Page is a page with its title and top-level content blocks.
type Page struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	URL    string  `json:"url"`
	Blocks []Block `json:"blocks"`
}

// Client reads and writes the user's Notion workspace. Tokens are resolved
// through the vault on every call; Notion tokens never expire and are never
// refreshed.
type Client struct {
	vault      *vault.Vault
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a notion client backed by the vault.
func NewClient(v *vault.Vault) *Client {
	return &Client{
		vault:      v,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// Search queries the workspace for pages and databases matching the query.
func (c *Client) Search(ctx context.Context, userID, query string, maxResults int) ([]SearchResult, error) {
	token, err := c.vault.AccessToken(ctx, userID, models.ProviderNotion)
	if err != nil {
		return nil, err
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	log.Printf("📝 Searching Notion (query=%q)", query)

	body := map[string]any{
		"query":     query,
		"page_size": maxResults,
		"sort":      map[string]string{"direction": "descending", "timestamp": "last_edited_time"},
	}
	var data struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := c.doJSON(ctx, token, http.MethodPost, "/search", body, &data); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(data.Results))
	for _, raw := range data.Results {
		results = append(results, parseSearchResult(raw))
	}
	return results, nil
}

// GetPage fetches a page and its top-level blocks.
func (c *Client) GetPage(ctx context.Context, userID, pageID string) (*Page, error) {
	token, err := c.vault.AccessToken(ctx, userID, models.ProviderNotion)
	if err != nil {
		return nil, err
	}

	var rawPage json.RawMessage
	if err := c.doJSON(ctx, token, http.MethodGet, "/pages/"+url.PathEscape(pageID), nil, &rawPage); err != nil {
		return nil, err
	}
	result := parseSearchResult(rawPage)

	var children struct {
		Results []json.RawMessage `json:"results"`
	}
	if err := c.doJSON(ctx, token, http.MethodGet, "/blocks/"+url.PathEscape(pageID)+"/children?page_size=100", nil, &children); err != nil {
		return nil, err
	}

	page := &Page{ID: result.ID, Title: result.Title, URL: result.URL}
	for _, raw := range children.Results {
		page.Blocks = append(page.Blocks, parseBlock(raw))
	}
	return page, nil
}

// CreatePage creates a page under the given parent with a title and optional
// paragraph content, one block per line.
func (c *Client) CreatePage(ctx context.Context, userID, parentID, title, content string) (*Page, error) {
	token, err := c.vault.AccessToken(ctx, userID, models.ProviderNotion)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"parent": map[string]string{"page_id": parentID},
		"properties": map[string]any{
			"title": map[string]any{
				"title": []map[string]any{richText(title)},
			},
		},
	}
	if content != "" {
		var blocks []map[string]any
		for _, line := range strings.Split(content, "\n") {
			blocks = append(blocks, paragraphBlock(line))
		}
		body["children"] = blocks
	}

	log.Printf("📝 Creating page %q under %s", title, parentID)

	var raw json.RawMessage
	if err := c.doJSON(ctx, token, http.MethodPost, "/pages", body, &raw); err != nil {
		return nil, err
	}
	result := parseSearchResult(raw)
	return &Page{ID: result.ID, Title: result.Title, URL: result.URL}, nil
}

// UpdatePageTitle renames a page.
func (c *Client) UpdatePageTitle(ctx context.Context, userID, pageID, title string) error {
	token, err := c.vault.AccessToken(ctx, userID, models.ProviderNotion)
	if err != nil {
		return err
	}
	body := map[string]any{
		"properties": map[string]any{
			"title": map[string]any{
				"title": []map[string]any{richText(title)},
			},
		},
	}
	return c.doJSON(ctx, token, http.MethodPatch, "/pages/"+url.PathEscape(pageID), body, nil)
}

// AppendParagraphs appends plain paragraphs to a page, one block per line.
func (c *Client) AppendParagraphs(ctx context.Context, userID, pageID, content string) error {
	token, err := c.vault.AccessToken(ctx, userID, models.ProviderNotion)
	if err != nil {
		return err
	}
	var blocks []map[string]any
	for _, line := range strings.Split(content, "\n") {
		blocks = append(blocks, paragraphBlock(line))
	}
	body := map[string]any{"children": blocks}
	return c.doJSON(ctx, token, http.MethodPatch, "/blocks/"+url.PathEscape(pageID)+"/children", body, nil)
}

// UpdateBlock replaces the text of a block, keeping its type. The block must
// carry a rich_text payload; images and other media cannot be edited this way.
func (c *Client) UpdateBlock(ctx context.Context, userID, blockID, text string) error {
	token, err := c.vault.AccessToken(ctx, userID, models.ProviderNotion)
	if err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := c.doJSON(ctx, token, http.MethodGet, "/blocks/"+url.PathEscape(blockID), nil, &raw); err != nil {
		return err
	}
	var blockType string
	if err := json.Unmarshal(raw["type"], &blockType); err != nil {
		return fmt.Errorf("decode block type: %w", err)
	}

	body := map[string]any{
		blockType: map[string]any{
			"rich_text": []map[string]any{richText(text)},
		},
	}
	return c.doJSON(ctx, token, http.MethodPatch, "/blocks/"+url.PathEscape(blockID), body, nil)
}

// DeleteBlock removes a single block.
func (c *Client) DeleteBlock(ctx context.Context, userID, blockID string) error {
	token, err := c.vault.AccessToken(ctx, userID, models.ProviderNotion)
	if err != nil {
		return err
	}
	return c.doJSON(ctx, token, http.MethodDelete, "/blocks/"+url.PathEscape(blockID), nil, nil)
}

// ArchivePage moves a page to trash. Notion has no hard delete.
func (c *Client) ArchivePage(ctx context.Context, userID, pageID string) error {
	token, err := c.vault.AccessToken(ctx, userID, models.ProviderNotion)
	if err != nil {
		return err
	}
	body := map[string]any{"archived": true}
	return c.doJSON(ctx, token, http.MethodPatch, "/pages/"+url.PathEscape(pageID), body, nil)
}

func richText(text string) map[string]any {
	return map[string]any{"text": map[string]string{"content": text}}
}

func paragraphBlock(text string) map[string]any {
	return map[string]any{
		"object": "block",
		"type":   "paragraph",
		"paragraph": map[string]any{
			"rich_text": []map[string]any{richText(text)},
		},
	}
}

// parseSearchResult extracts the title from either a page's properties or a
// database's title array.
func parseSearchResult(raw json.RawMessage) SearchResult {
	var item struct {
		ID             string `json:"id"`
		Object         string `json:"object"`
		URL            string `json:"url"`
		LastEditedTime string `json:"last_edited_time"`
		Title          []struct {
			PlainText string `json:"plain_text"`
		} `json:"title"`
		Properties map[string]struct {
			Type  string `json:"type"`
			Title []struct {
				PlainText string `json:"plain_text"`
			} `json:"title"`
		} `json:"properties"`
	}
	json.Unmarshal(raw, &item)

	result := SearchResult{
		ID:             item.ID,
		Object:         item.Object,
		URL:            item.URL,
		LastEditedTime: item.LastEditedTime,
	}
	for _, t := range item.Title {
		result.Title += t.PlainText
	}
	if result.Title == "" {
		for _, prop := range item.Properties {
			if prop.Type == "title" {
				for _, t := range prop.Title {
					result.Title += t.PlainText
				}
				break
			}
		}
	}
	if result.Title == "" {
		result.Title = "Untitled"
	}
	return result
}

func parseBlock(raw json.RawMessage) Block {
	var envelope struct {
		ID          string `json:"id"`
		Type        string `json:"type"`
		HasChildren bool   `json:"has_children"`
	}
	json.Unmarshal(raw, &envelope)

	block := Block{ID: envelope.ID, Type: envelope.Type, HasKids: envelope.HasChildren}

	// The text lives under a key named after the block type.
	var byType map[string]json.RawMessage
	json.Unmarshal(raw, &byType)
	if payload, ok := byType[envelope.Type]; ok {
		var content struct {
			RichText []struct {
				PlainText string `json:"plain_text"`
			} `json:"rich_text"`
		}
		json.Unmarshal(payload, &content)
		for _, t := range content.RichText {
			block.Text += t.PlainText
		}
	}
	return block
}

func (c *Client) doJSON(ctx context.Context, token, method, path string, body, out any) error {
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
	req.Header.Set("Notion-Version", apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notion api: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Printf("⚠️ Notion API error %d: %s", resp.StatusCode, util.TruncateBytes(respBody))
		return fmt.Errorf("notion api status %d", resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
