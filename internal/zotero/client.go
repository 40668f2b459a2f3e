// Package zotero is a rate-limited client for the Zotero Web API v3,
// covering the item listing, item creation, and collection listing calls the
// export pipeline needs.
package zotero

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	// BaseURL is the Zotero Web API base URL.
	BaseURL = "https://api.zotero.org"

	// APIVersion is the Zotero Web API version requested on every call.
	APIVersion = "3"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 60 * time.Second

	// RateLimit keeps request volume inside Zotero's politeness guidance.
	RateLimit = 5.0
)

// Client is a rate-limited HTTP client for one Zotero library.
type Client struct {
	httpClient  *http.Client
	limiter     *rate.Limiter
	apiKey      string
	baseURL     string
	libraryID   string
	libraryType string // "user" or "group"
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the API key for authenticated requests.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		c.baseURL = url
	}
}

// WithGroupLibrary addresses a group library instead of a user library.
func WithGroupLibrary() ClientOption {
	return func(c *Client) {
		c.libraryType = "group"
	}
}

// NewClient creates a client for the given library ID.
func NewClient(libraryID string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		limiter:     rate.NewLimiter(rate.Limit(RateLimit), 1),
		baseURL:     BaseURL,
		libraryID:   libraryID,
		libraryType: "user",
	}

	// Check for API key in environment
	if key := os.Getenv("ZOTERO_API_KEY"); key != "" {
		c.apiKey = key
	}

	// Apply options
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// libraryPath returns the API path prefix for the configured library.
func (c *Client) libraryPath() string {
	if c.libraryType == "group" {
		return "/groups/" + c.libraryID
	}
	return "/users/" + c.libraryID
}

// checkHTTPErrors returns an error if the HTTP response indicates a problem.
func checkHTTPErrors(resp *http.Response) error {
	if resp.StatusCode == 401 || resp.StatusCode == 403 {
		return fmt.Errorf("%w: status %d", ErrAuthError, resp.StatusCode)
	}
	if resp.StatusCode == 429 {
		return fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	}
	if resp.StatusCode == 404 {
		return fmt.Errorf("%w: status %d", ErrNotFound, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	}
	return nil
}

// do performs one API call and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	u := c.baseURL + c.libraryPath() + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Zotero-API-Version", APIVersion)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Zotero-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if err := checkHTTPErrors(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// ListItems returns one page of top-level library items starting at the
// given position. The result is the raw decoded JSON array.
func (c *Client) ListItems(ctx context.Context, limit, start int) (any, error) {
	query := url.Values{}
	query.Set("format", "json")
	query.Set("limit", strconv.Itoa(limit))
	query.Set("start", strconv.Itoa(start))

	var items []any
	if err := c.do(ctx, http.MethodGet, "/items/top", query, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetCollections returns all collections in the library.
func (c *Client) GetCollections(ctx context.Context) (any, error) {
	query := url.Values{}
	query.Set("format", "json")

	var collections []any
	if err := c.do(ctx, http.MethodGet, "/collections", query, nil, &collections); err != nil {
		return nil, err
	}
	return collections, nil
}

// CreateItem writes a single item into the library. The Zotero write API
// takes a batch; the decoded batch response reports per-index outcomes under
// "successful", "unchanged", and "failed".
func (c *Client) CreateItem(ctx context.Context, item map[string]any) (any, error) {
	var result map[string]any
	if err := c.do(ctx, http.MethodPost, "/items", nil, []map[string]any{item}, &result); err != nil {
		return nil, err
	}
	return result, nil
}
