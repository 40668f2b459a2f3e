// Package rss collects papers from journal and preprint-server RSS/Atom
// feeds.
package rss

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/paperfeed/paperfeed/internal/paper"
	"github.com/paperfeed/paperfeed/internal/textutil"
)

// Feed is one subscribed feed.
type Feed struct {
	Name string `yaml:"name" json:"name"`
	URL  string `yaml:"url" json:"url"`
}

// Fetcher parses subscribed feeds into papers.
type Fetcher struct {
	parser *gofeed.Parser
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient sets a custom HTTP client for feed requests.
func WithHTTPClient(hc *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.parser.Client = hc
	}
}

// WithUserAgent sets the User-Agent sent to feed servers.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		f.parser.UserAgent = ua
	}
}

// NewFetcher creates a feed fetcher.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{parser: gofeed.NewParser()}
	f.parser.Client = &http.Client{Timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads and parses one feed, returning its entries as papers in
// feed order.
func (f *Fetcher) Fetch(ctx context.Context, feed Feed) ([]paper.Paper, error) {
	parsed, err := f.parser.ParseURLWithContext(feed.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching feed %s: %w", feed.Name, err)
	}

	source := feed.Name
	if source == "" {
		source = parsed.Title
	}

	papers := make([]paper.Paper, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil || strings.TrimSpace(item.Title) == "" {
			continue
		}
		papers = append(papers, itemToPaper(source, item))
	}
	return papers, nil
}

// itemToPaper maps one feed entry to the paper model. Feed metadata is
// messy: titles and abstracts carry markup, DOIs hide in GUIDs and links,
// and dates may be missing entirely.
func itemToPaper(source string, item *gofeed.Item) paper.Paper {
	p := paper.Paper{
		Title:      textutil.StripHTML(item.Title),
		Source:     source,
		SourceType: "rss",
		URL:        item.Link,
		SourceID:   item.GUID,
	}
	if p.SourceID == "" {
		p.SourceID = item.Link
	}

	abstract := item.Description
	if abstract == "" {
		abstract = item.Content
	}
	p.Abstract = textutil.StripHTML(abstract)

	for _, author := range item.Authors {
		if author == nil || author.Name == "" {
			continue
		}
		p.Authors = append(p.Authors, author.Name)
	}

	if item.PublishedParsed != nil {
		p.Published = paper.DateOf(item.PublishedParsed.UTC())
	} else if item.UpdatedParsed != nil {
		p.Published = paper.DateOf(item.UpdatedParsed.UTC())
	}

	// DOIs show up in the GUID, the link, or the entry text, depending on
	// the publisher.
	for _, candidate := range []string{item.GUID, item.Link, item.Description} {
		if doi := textutil.FindDOI(candidate); doi != "" {
			p.DOI = doi
			break
		}
	}

	if isPreprintSource(source, item.Link) {
		p.ItemType = "preprint"
		p.PublicationTitle = source
	}

	return p
}

// isPreprintSource recognizes the common preprint servers by name or host.
func isPreprintSource(source, link string) bool {
	s := strings.ToLower(source + " " + link)
	for _, marker := range []string{"arxiv", "biorxiv", "medrxiv", "ssrn", "preprint"} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}
