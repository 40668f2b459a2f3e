// Package enrich fills gaps in collected paper metadata from bibliographic
// registries. Feed entries often arrive with only a title and link; the
// enrichers look the work up by DOI, or by title with a similarity check,
// and merge in the missing fields.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// Common errors returned by the enrichment clients.
var (
	// ErrNotFound indicates no matching work was found.
	ErrNotFound = errors.New("work not found")

	// ErrRateLimited indicates the rate limit has been exceeded.
	ErrRateLimited = errors.New("registry rate limit exceeded")

	// ErrInvalidResponse indicates an unexpected registry response.
	ErrInvalidResponse = errors.New("invalid registry response")
)

const (
	// CrossRefBaseURL is the CrossRef REST API base URL.
	CrossRefBaseURL = "https://api.crossref.org"

	// crossRefRateLimit stays inside CrossRef's polite-pool guidance.
	crossRefRateLimit = 10.0

	// searchRows is how many candidates a bibliographic search requests.
	searchRows = 5
)

// CrossRefClient is a rate-limited client for the CrossRef REST API.
type CrossRefClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	mailto     string
}

// CrossRefOption configures a CrossRefClient.
type CrossRefOption func(*CrossRefClient)

// WithCrossRefBaseURL sets a custom base URL (for testing).
func WithCrossRefBaseURL(url string) CrossRefOption {
	return func(c *CrossRefClient) {
		c.baseURL = url
	}
}

// WithCrossRefHTTPClient sets a custom HTTP client.
func WithCrossRefHTTPClient(hc *http.Client) CrossRefOption {
	return func(c *CrossRefClient) {
		c.httpClient = hc
	}
}

// WithMailto identifies the caller to CrossRef, which routes identified
// traffic to the polite pool.
func WithMailto(mailto string) CrossRefOption {
	return func(c *CrossRefClient) {
		c.mailto = mailto
	}
}

// NewCrossRef creates a CrossRef client.
func NewCrossRef(opts ...CrossRefOption) *CrossRefClient {
	c := &CrossRefClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(crossRefRateLimit), 1),
		baseURL:    CrossRefBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Work is the subset of a CrossRef work record the pipeline uses.
type Work struct {
	DOI            string     `json:"DOI"`
	Type           string     `json:"type"`
	Title          []string   `json:"title"`
	ContainerTitle []string   `json:"container-title"`
	ShortContainer []string   `json:"short-container-title"`
	Publisher      string     `json:"publisher"`
	Volume         string     `json:"volume"`
	Issue          string     `json:"issue"`
	Page           string     `json:"page"`
	ISSN           []string   `json:"ISSN"`
	URL            string     `json:"URL"`
	Author         []crAuthor `json:"author"`
	Issued         crDate     `json:"issued"`
}

type crAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
	Name   string `json:"name"`
}

type crDate struct {
	DateParts [][]int `json:"date-parts"`
}

// FullName renders the author for display.
func (a crAuthor) FullName() string {
	if a.Family != "" {
		if a.Given != "" {
			return a.Given + " " + a.Family
		}
		return a.Family
	}
	return a.Name
}

// GetWork fetches a work by DOI.
func (c *CrossRefClient) GetWork(ctx context.Context, doi string) (*Work, error) {
	var response struct {
		Message Work `json:"message"`
	}
	path := "/works/" + url.PathEscape(doi)
	if err := c.get(ctx, path, nil, &response); err != nil {
		return nil, err
	}
	if response.Message.DOI == "" {
		return nil, ErrNotFound
	}
	return &response.Message, nil
}

// SearchWorks queries the bibliographic search with a title and returns the
// top candidates by relevance.
func (c *CrossRefClient) SearchWorks(ctx context.Context, title string) ([]Work, error) {
	query := url.Values{}
	query.Set("query.bibliographic", title)
	query.Set("rows", strconv.Itoa(searchRows))

	var response struct {
		Message struct {
			Items []Work `json:"items"`
		} `json:"message"`
	}
	if err := c.get(ctx, "/works", query, &response); err != nil {
		return nil, err
	}
	return response.Message.Items, nil
}

func (c *CrossRefClient) get(ctx context.Context, path string, query url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	if query == nil {
		query = url.Values{}
	}
	if c.mailto != "" {
		query.Set("mailto", c.mailto)
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("querying CrossRef: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == 404:
		return ErrNotFound
	case resp.StatusCode == 429:
		return fmt.Errorf("%w: status 429", ErrRateLimited)
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: status %d", ErrInvalidResponse, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}
