package rss

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/paperfeed/paperfeed/internal/paper"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>bioRxiv Evolutionary Biology</title>
    <item>
      <title>Deep &lt;i&gt;learning&lt;/i&gt; for phylogenetics</title>
      <link>https://www.biorxiv.org/content/10.1101/2025.06.01.100001v1</link>
      <guid>https://doi.org/10.1101/2025.06.01.100001</guid>
      <description>&lt;p&gt;We present a method.&lt;/p&gt;</description>
      <pubDate>Sun, 15 Jun 2025 00:00:00 GMT</pubDate>
    </item>
    <item>
      <title></title>
      <link>https://example.org/empty</link>
    </item>
  </channel>
</rss>`

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleRSS))
	}))
	defer server.Close()

	fetcher := NewFetcher()
	papers, err := fetcher.Fetch(context.Background(), Feed{Name: "bioRxiv", URL: server.URL})
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if len(papers) != 1 {
		t.Fatalf("Fetch() returned %d papers, want 1 (titleless entry dropped)", len(papers))
	}

	p := papers[0]
	if p.Title != "Deep learning for phylogenetics" {
		t.Errorf("Title = %q, want markup stripped", p.Title)
	}
	if p.Source != "bioRxiv" || p.SourceType != "rss" {
		t.Errorf("Source = %q/%q", p.Source, p.SourceType)
	}
	if p.DOI != "10.1101/2025.06.01.100001" {
		t.Errorf("DOI = %q, want DOI extracted from GUID", p.DOI)
	}
	if p.Published != (paper.PubDate{Year: 2025, Month: 6, Day: 15}) {
		t.Errorf("Published = %+v", p.Published)
	}
	if p.ItemType != "preprint" {
		t.Errorf("ItemType = %q, want preprint for bioRxiv", p.ItemType)
	}
	if p.Abstract != "We present a method." {
		t.Errorf("Abstract = %q", p.Abstract)
	}
}

func TestFetch_BadFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewFetcher()
	if _, err := fetcher.Fetch(context.Background(), Feed{Name: "broken", URL: server.URL}); err == nil {
		t.Error("Fetch() should fail on an unavailable feed")
	}
}

func TestItemToPaper_Fallbacks(t *testing.T) {
	published := time.Date(2025, 3, 8, 10, 0, 0, 0, time.UTC)
	item := &gofeed.Item{
		Title:         "A Journal Article",
		Link:          "https://journals.example.org/article/42",
		Content:       "<div>Full abstract text</div>",
		Authors:       []*gofeed.Person{{Name: "Jane Doe"}, nil, {Name: ""}},
		UpdatedParsed: &published,
	}

	p := itemToPaper("Nature", item)

	if p.SourceID != item.Link {
		t.Errorf("SourceID = %q, want link fallback when GUID missing", p.SourceID)
	}
	if p.Abstract != "Full abstract text" {
		t.Errorf("Abstract = %q, want content fallback", p.Abstract)
	}
	if len(p.Authors) != 1 || p.Authors[0] != "Jane Doe" {
		t.Errorf("Authors = %v, want empty entries dropped", p.Authors)
	}
	if p.Published != (paper.PubDate{Year: 2025, Month: 3, Day: 8}) {
		t.Errorf("Published = %+v, want updated date fallback", p.Published)
	}
	if p.DOI != "" {
		t.Errorf("DOI = %q, want empty when nothing carries one", p.DOI)
	}
	if p.ItemType != "" {
		t.Errorf("ItemType = %q, want default for a journal feed", p.ItemType)
	}
}

func TestParseOPML(t *testing.T) {
	doc := `<?xml version="1.0"?>
<opml version="2.0">
  <body>
    <outline text="Journals">
      <outline text="Nature" title="Nature" type="rss" xmlUrl="https://www.nature.com/nature.rss"/>
      <outline text="Science" type="rss" xmlUrl="https://www.science.org/rss/current.xml"/>
    </outline>
    <outline text="arXiv q-bio" type="rss" xmlUrl="https://rss.arxiv.org/rss/q-bio.PE"/>
    <outline text="Not a feed"/>
  </body>
</opml>`

	feeds, err := ParseOPML(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ParseOPML() error: %v", err)
	}
	if len(feeds) != 3 {
		t.Fatalf("ParseOPML() returned %d feeds, want 3", len(feeds))
	}
	if feeds[0].Name != "Nature" || feeds[0].URL != "https://www.nature.com/nature.rss" {
		t.Errorf("first feed = %+v", feeds[0])
	}
	if feeds[1].Name != "Science" {
		t.Errorf("feed name should fall back to text attr, got %q", feeds[1].Name)
	}
}

func TestParseOPML_Invalid(t *testing.T) {
	if _, err := ParseOPML(strings.NewReader("not xml at all <")); err == nil {
		t.Error("ParseOPML() should reject malformed XML")
	}
}
