package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	// OpenAlexBaseURL is the OpenAlex API base URL.
	OpenAlexBaseURL = "https://api.openalex.org"

	// openAlexRateLimit stays inside OpenAlex's documented 10 req/s cap.
	openAlexRateLimit = 10.0
)

// OpenAlexClient is a rate-limited client for the OpenAlex works API.
type OpenAlexClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	mailto     string
}

// OpenAlexOption configures an OpenAlexClient.
type OpenAlexOption func(*OpenAlexClient)

// WithOpenAlexBaseURL sets a custom base URL (for testing).
func WithOpenAlexBaseURL(url string) OpenAlexOption {
	return func(c *OpenAlexClient) {
		c.baseURL = url
	}
}

// WithOpenAlexHTTPClient sets a custom HTTP client.
func WithOpenAlexHTTPClient(hc *http.Client) OpenAlexOption {
	return func(c *OpenAlexClient) {
		c.httpClient = hc
	}
}

// WithOpenAlexMailto identifies the caller for the OpenAlex polite pool.
func WithOpenAlexMailto(mailto string) OpenAlexOption {
	return func(c *OpenAlexClient) {
		c.mailto = mailto
	}
}

// NewOpenAlex creates an OpenAlex client.
func NewOpenAlex(opts ...OpenAlexOption) *OpenAlexClient {
	c := &OpenAlexClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(openAlexRateLimit), 1),
		baseURL:    OpenAlexBaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AlexWork is the subset of an OpenAlex work record the pipeline uses.
type AlexWork struct {
	DOI             string `json:"doi"` // full https://doi.org/... form
	DisplayName     string `json:"display_name"`
	PublicationDate string `json:"publication_date"`
	PrimaryLocation struct {
		PDFURL string `json:"pdf_url"`
		Source struct {
			DisplayName string `json:"display_name"`
		} `json:"source"`
	} `json:"primary_location"`
	OpenAccess struct {
		OAURL string `json:"oa_url"`
	} `json:"open_access"`
	Biblio struct {
		Volume    string `json:"volume"`
		Issue     string `json:"issue"`
		FirstPage string `json:"first_page"`
		LastPage  string `json:"last_page"`
	} `json:"biblio"`
	Authorships []struct {
		Author struct {
			DisplayName string `json:"display_name"`
		} `json:"author"`
	} `json:"authorships"`
}

// Pages renders the biblio page range.
func (w AlexWork) Pages() string {
	if w.Biblio.FirstPage == "" {
		return ""
	}
	if w.Biblio.LastPage == "" || w.Biblio.LastPage == w.Biblio.FirstPage {
		return w.Biblio.FirstPage
	}
	return w.Biblio.FirstPage + "-" + w.Biblio.LastPage
}

// GetWorkByDOI fetches a work by DOI.
func (c *OpenAlexClient) GetWorkByDOI(ctx context.Context, doi string) (*AlexWork, error) {
	var work AlexWork
	path := "/works/https://doi.org/" + url.PathEscape(doi)
	if err := c.get(ctx, path, nil, &work); err != nil {
		return nil, err
	}
	return &work, nil
}

// SearchWorks searches works by title and returns the top candidates.
func (c *OpenAlexClient) SearchWorks(ctx context.Context, title string) ([]AlexWork, error) {
	query := url.Values{}
	query.Set("filter", "title.search:"+title)
	query.Set("per-page", strconv.Itoa(searchRows))

	var response struct {
		Results []AlexWork `json:"results"`
	}
	if err := c.get(ctx, "/works", query, &response); err != nil {
		return nil, err
	}
	return response.Results, nil
}

func (c *OpenAlexClient) get(ctx context.Context, path string, query url.Values, out any) error {
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
		return fmt.Errorf("querying OpenAlex: %w", err)
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
