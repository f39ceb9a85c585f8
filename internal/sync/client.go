package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	apiBaseURL = "https://api.notion.com/v1"
	apiVersion = "2022-06-28"
	pageSize   = 100
)

// Client talks to a Notion-like remote database over HTTP, matching the
// teacher's pensive.Bridge shape: a bare *http.Client plus a base URL and
// credential, with every call taking a context.
type Client struct {
	httpClient *http.Client
	apiKey     string

	// BaseURL defaults to apiBaseURL; tests override it to point at an
	// httptest.Server.
	BaseURL string
}

// NewClient builds a Client with a bounded per-call timeout, matching
// pensive.Bridge's NewBridge default client construction.
func NewClient(apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 50 * time.Second},
		apiKey:     apiKey,
		BaseURL:    apiBaseURL,
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	full := c.BaseURL + path
	if len(query) > 0 {
		full += "?" + query.Encode()
	}

	var respBody []byte
	err := withRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, method, full, reader)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Notion-Version", apiVersion)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return backoff.Permanent(err)
		}

		if resp.StatusCode >= 400 {
			se := &statusError{Code: resp.StatusCode, Body: string(data)}
			if !isRetryableStatus(resp.StatusCode) {
				return backoff.Permanent(se)
			}
			return se
		}
		respBody = data
		return nil
	})
	return respBody, err
}

// FetchDatabase returns the target database's schema, used to discover
// property names/types before building a page payload.
func (c *Client) FetchDatabase(ctx context.Context, databaseID string) (map[string]any, error) {
	data, err := c.do(ctx, http.MethodGet, "/databases/"+databaseID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch database: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode database: %w", err)
	}
	return out, nil
}

// QueryDatabasePages lists every page in a database, following the
// has_more/next_cursor pagination protocol at page_size=100.
func (c *Client) QueryDatabasePages(ctx context.Context, databaseID string) ([]map[string]any, error) {
	var pages []map[string]any
	var cursor string

	for {
		payload := map[string]any{"page_size": pageSize}
		if cursor != "" {
			payload["start_cursor"] = cursor
		}
		data, err := c.do(ctx, http.MethodPost, "/databases/"+databaseID+"/query", nil, payload)
		if err != nil {
			return nil, fmt.Errorf("query database: %w", err)
		}
		var page struct {
			Results    []map[string]any `json:"results"`
			HasMore    bool             `json:"has_more"`
			NextCursor string           `json:"next_cursor"`
		}
		if err := json.Unmarshal(data, &page); err != nil {
			return nil, fmt.Errorf("decode query page: %w", err)
		}
		pages = append(pages, page.Results...)
		if !page.HasMore || page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	return pages, nil
}

// FetchPage returns one page's raw JSON object.
func (c *Client) FetchPage(ctx context.Context, pageID string) (map[string]any, error) {
	data, err := c.do(ctx, http.MethodGet, "/pages/"+pageID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	return out, nil
}

// FetchBlockChildren lists every child block of a page, paginated the same
// way as QueryDatabasePages.
func (c *Client) FetchBlockChildren(ctx context.Context, pageID string) ([]map[string]any, error) {
	var blocks []map[string]any
	var cursor string

	for {
		q := url.Values{"page_size": {"100"}}
		if cursor != "" {
			q.Set("start_cursor", cursor)
		}
		data, err := c.do(ctx, http.MethodGet, "/blocks/"+pageID+"/children", q, nil)
		if err != nil {
			return nil, fmt.Errorf("fetch block children: %w", err)
		}
		var page struct {
			Results    []map[string]any `json:"results"`
			HasMore    bool             `json:"has_more"`
			NextCursor string           `json:"next_cursor"`
		}
		if err := json.Unmarshal(data, &page); err != nil {
			return nil, fmt.Errorf("decode block children: %w", err)
		}
		blocks = append(blocks, page.Results...)
		if !page.HasMore || page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	return blocks, nil
}

// notFoundOrObjectNotFound reports whether err is a 404 or a Notion
// "object_not_found" error body, the signal to fall through from a PATCH
// attempt to creating a new page.
func notFoundOrObjectNotFound(err error) bool {
	var se *statusError
	if !asStatusError(err, &se) {
		return false
	}
	if se.Code == http.StatusNotFound {
		return true
	}
	var decoded struct {
		Code string `json:"code"`
	}
	_ = json.Unmarshal([]byte(se.Body), &decoded)
	return decoded.Code == "object_not_found"
}

// UpdatePageProperties PATCHes an existing page's properties. Returns
// (nil, nil) when the page no longer exists so the caller can fall through
// to creating a fresh one.
func (c *Client) UpdatePageProperties(ctx context.Context, pageID string, properties map[string]any) (map[string]any, error) {
	data, err := c.do(ctx, http.MethodPatch, "/pages/"+pageID, nil, map[string]any{"properties": properties})
	if err != nil {
		if notFoundOrObjectNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("update page: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode updated page: %w", err)
	}
	return out, nil
}

// CreatePage POSTs a new page under databaseID with the given properties
// and content blocks.
func (c *Client) CreatePage(ctx context.Context, databaseID string, properties map[string]any, children []map[string]any) (map[string]any, error) {
	payload := map[string]any{
		"parent":     map[string]any{"database_id": databaseID},
		"properties": properties,
		"children":   children,
	}
	data, err := c.do(ctx, http.MethodPost, "/pages", nil, payload)
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode created page: %w", err)
	}
	return out, nil
}
