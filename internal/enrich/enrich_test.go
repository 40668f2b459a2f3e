package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/paperfeed/paperfeed/internal/paper"
)

const crossrefWork = `{
	"message": {
		"DOI": "10.1038/s41586-025-01234-5",
		"type": "journal-article",
		"title": ["Deep learning for phylogenetics"],
		"container-title": ["Nature"],
		"short-container-title": ["Nature"],
		"publisher": "Springer Nature",
		"volume": "640",
		"issue": "7",
		"page": "100-110",
		"ISSN": ["0028-0836"],
		"URL": "https://doi.org/10.1038/s41586-025-01234-5",
		"author": [
			{"given": "Jane", "family": "Doe"},
			{"name": "The Consortium"}
		],
		"issued": {"date-parts": [[2025, 6, 15]]}
	}
}`

func newCrossRef(t *testing.T, handler http.HandlerFunc) *CrossRefClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewCrossRef(WithCrossRefBaseURL(server.URL))
}

func newOpenAlex(t *testing.T, handler http.HandlerFunc) *OpenAlexClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewOpenAlex(WithOpenAlexBaseURL(server.URL))
}

func TestCrossRefGetWork(t *testing.T) {
	client := newCrossRef(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/works/") {
			t.Errorf("path = %q, want /works/...", r.URL.Path)
		}
		w.Write([]byte(crossrefWork))
	})

	work, err := client.GetWork(context.Background(), "10.1038/s41586-025-01234-5")
	if err != nil {
		t.Fatalf("GetWork() error: %v", err)
	}
	if work.Title[0] != "Deep learning for phylogenetics" {
		t.Errorf("Title = %v", work.Title)
	}
	if work.Author[0].FullName() != "Jane Doe" || work.Author[1].FullName() != "The Consortium" {
		t.Errorf("authors = %v", work.Author)
	}
}

func TestCrossRefGetWork_NotFound(t *testing.T) {
	client := newCrossRef(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	if _, err := client.GetWork(context.Background(), "10.1/missing"); err != ErrNotFound {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestEnrich_ByDOI(t *testing.T) {
	crossref := newCrossRef(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(crossrefWork))
	})
	service := NewService(crossref, nil)

	p, err := service.Enrich(context.Background(), paper.Paper{
		Title: "Deep learning for phylogenetics",
		DOI:   "10.1038/s41586-025-01234-5",
	})
	if err != nil {
		t.Fatalf("Enrich() error: %v", err)
	}

	if p.PublicationTitle != "Nature" {
		t.Errorf("PublicationTitle = %q", p.PublicationTitle)
	}
	if p.Volume != "640" || p.Issue != "7" || p.Pages != "100-110" {
		t.Errorf("biblio = %q/%q/%q", p.Volume, p.Issue, p.Pages)
	}
	if p.Published != (paper.PubDate{Year: 2025, Month: 6, Day: 15}) {
		t.Errorf("Published = %+v", p.Published)
	}
	if len(p.Authors) != 2 || p.Authors[0] != "Jane Doe" {
		t.Errorf("Authors = %v", p.Authors)
	}
	if p.ISSN != "0028-0836" {
		t.Errorf("ISSN = %q", p.ISSN)
	}
}

func TestEnrich_NeverOverwrites(t *testing.T) {
	crossref := newCrossRef(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(crossrefWork))
	})
	service := NewService(crossref, nil)

	p, err := service.Enrich(context.Background(), paper.Paper{
		Title:            "Deep learning for phylogenetics",
		DOI:              "10.1038/s41586-025-01234-5",
		PublicationTitle: "Already Set",
		Authors:          []string{"Existing Author"},
		Published:        paper.PubDate{Year: 2024},
	})
	if err != nil {
		t.Fatal(err)
	}

	if p.PublicationTitle != "Already Set" {
		t.Errorf("PublicationTitle overwritten: %q", p.PublicationTitle)
	}
	if len(p.Authors) != 1 || p.Authors[0] != "Existing Author" {
		t.Errorf("Authors overwritten: %v", p.Authors)
	}
	if p.Published.Year != 2024 {
		t.Errorf("Published overwritten: %+v", p.Published)
	}
}

func TestEnrich_TitleSearchThreshold(t *testing.T) {
	search := `{
		"message": {
			"items": [{
				"DOI": "10.9999/unrelated",
				"title": ["A completely different subject entirely"],
				"container-title": ["Elsewhere"]
			}]
		}
	}`
	crossref := newCrossRef(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query.bibliographic") == "" {
			t.Error("expected a bibliographic query")
		}
		w.Write([]byte(search))
	})
	service := NewService(crossref, nil)

	p, err := service.Enrich(context.Background(), paper.Paper{
		Title: "Deep learning for phylogenetics",
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.DOI != "" {
		t.Errorf("DOI = %q, want dissimilar candidate rejected", p.DOI)
	}
}

func TestEnrich_TitleSearchAccepted(t *testing.T) {
	search := `{
		"message": {
			"items": [{
				"DOI": "10.1038/s41586-025-01234-5",
				"title": ["Deep learning for phylogenetics"],
				"container-title": ["Nature"]
			}]
		}
	}`
	crossref := newCrossRef(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(search))
	})
	service := NewService(crossref, nil)

	p, err := service.Enrich(context.Background(), paper.Paper{
		Title: "Deep Learning for Phylogenetics",
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.DOI != "10.1038/s41586-025-01234-5" {
		t.Errorf("DOI = %q, want matching candidate merged", p.DOI)
	}
	if p.PublicationTitle != "Nature" {
		t.Errorf("PublicationTitle = %q", p.PublicationTitle)
	}
}

func TestEnrich_OpenAlexFillsPDF(t *testing.T) {
	alexWork := `{
		"doi": "https://doi.org/10.1038/s41586-025-01234-5",
		"display_name": "Deep learning for phylogenetics",
		"publication_date": "2025-06-15",
		"primary_location": {
			"pdf_url": "https://example.org/paper.pdf",
			"source": {"display_name": "Nature"}
		},
		"open_access": {"oa_url": "https://example.org/oa.pdf"},
		"biblio": {"volume": "640", "first_page": "100", "last_page": "110"}
	}`
	openalex := newOpenAlex(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(alexWork))
	})
	service := NewService(nil, openalex)

	p, err := service.Enrich(context.Background(), paper.Paper{
		Title: "Deep learning for phylogenetics",
		DOI:   "10.1038/s41586-025-01234-5",
	})
	if err != nil {
		t.Fatal(err)
	}
	if p.PDFURL != "https://example.org/paper.pdf" {
		t.Errorf("PDFURL = %q", p.PDFURL)
	}
	if p.Pages != "100-110" {
		t.Errorf("Pages = %q", p.Pages)
	}
	if p.Published != (paper.PubDate{Year: 2025, Month: 6, Day: 15}) {
		t.Errorf("Published = %+v", p.Published)
	}
}

func TestEnrich_TransportErrorStillReturnsPaper(t *testing.T) {
	crossref := newCrossRef(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	service := NewService(crossref, nil)

	original := paper.Paper{Title: "Untouched", DOI: "10.1/x"}
	p, err := service.Enrich(context.Background(), original)
	if err == nil {
		t.Error("Enrich() should surface the transport error")
	}
	if p.Title != "Untouched" || p.DOI != "10.1/x" {
		t.Errorf("paper = %+v, want returned unchanged", p)
	}
}

func TestAlexWorkPages(t *testing.T) {
	tests := []struct {
		name  string
		first string
		last  string
		want  string
	}{
		{"range", "100", "110", "100-110"},
		{"single page", "100", "100", "100"},
		{"no last", "100", "", "100"},
		{"none", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var w AlexWork
			w.Biblio.FirstPage = tt.first
			w.Biblio.LastPage = tt.last
			if got := w.Pages(); got != tt.want {
				t.Errorf("Pages() = %q, want %q", got, tt.want)
			}
		})
	}
}
