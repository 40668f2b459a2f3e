package filter

import (
	"testing"

	"github.com/paperfeed/paperfeed/internal/paper"
)

func TestFilter_IncludeExclude(t *testing.T) {
	f, err := New(Rules{
		Include: []string{`phylogen`, `B[- ]cell`},
		Exclude: []string{`retract`},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	tests := []struct {
		name string
		p    paper.Paper
		want bool
	}{
		{
			name: "include hit in title",
			p:    paper.Paper{Title: "Deep Phylogenetics"},
			want: true,
		},
		{
			name: "include hit in abstract",
			p:    paper.Paper{Title: "Immune repertoires", Abstract: "We study B-cell lineages."},
			want: true,
		},
		{
			name: "case-insensitive",
			p:    paper.Paper{Title: "PHYLOGENOMICS of birds"},
			want: true,
		},
		{
			name: "no include hit",
			p:    paper.Paper{Title: "Galaxy formation"},
			want: false,
		},
		{
			name: "exclude vetoes include",
			p:    paper.Paper{Title: "Retraction: B-cell study"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, got := f.Match(tt.p); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.p.Title, got, tt.want)
			}
		})
	}
}

func TestFilter_DropReasons(t *testing.T) {
	f, err := New(Rules{
		Include:    []string{`phylogen`},
		Exclude:    []string{`retract`},
		Authors:    []string{"Smith"},
		MinDate:    "2024-01-01",
		RequirePDF: true,
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	keeper := paper.Paper{
		Title:     "Phylogenetics of finches",
		Authors:   []string{"Ann Smith", "Bo Chen"},
		PDFURL:    "https://example.org/p.pdf",
		Published: paper.PubDate{Year: 2024, Month: 6},
	}

	tests := []struct {
		name   string
		mutate func(p *paper.Paper)
		reason string
	}{
		{
			name:   "passes all criteria",
			mutate: func(p *paper.Paper) {},
			reason: "",
		},
		{
			name:   "exclude checked first",
			mutate: func(p *paper.Paper) { p.Title = "Retraction: phylogenetics of finches" },
			reason: DropExcluded,
		},
		{
			name:   "no keyword",
			mutate: func(p *paper.Paper) { p.Title, p.Abstract = "Galaxy formation", "" },
			reason: DropNoKeyword,
		},
		{
			name:   "no author",
			mutate: func(p *paper.Paper) { p.Authors = []string{"Carol Jones"} },
			reason: DropNoAuthor,
		},
		{
			name:   "author matches by substring",
			mutate: func(p *paper.Paper) { p.Authors = []string{"J. SMITHSON"} },
			reason: "",
		},
		{
			name:   "no pdf",
			mutate: func(p *paper.Paper) { p.PDFURL = "" },
			reason: DropNoPDF,
		},
		{
			name:   "published before min date",
			mutate: func(p *paper.Paper) { p.Published = paper.PubDate{Year: 2023, Month: 12, Day: 31} },
			reason: DropTooOld,
		},
		{
			name:   "published on min date",
			mutate: func(p *paper.Paper) { p.Published = paper.PubDate{Year: 2024, Month: 1, Day: 1} },
			reason: "",
		},
		{
			name:   "missing date passes the date check",
			mutate: func(p *paper.Paper) { p.Published = paper.PubDate{} },
			reason: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := keeper
			tt.mutate(&p)
			reason, ok := f.Match(p)
			if ok != (tt.reason == "") || reason != tt.reason {
				t.Errorf("Match() = (%q, %v), want reason %q", reason, ok, tt.reason)
			}
		})
	}
}

func TestFilter_NoIncludesKeepsAll(t *testing.T) {
	f, err := New(Rules{Exclude: []string{`spam`}})
	if err != nil {
		t.Fatal(err)
	}

	kept := f.Apply([]paper.Paper{
		{Title: "Anything goes"},
		{Title: "Pure spam content"},
	})
	if len(kept) != 1 || kept[0].Title != "Anything goes" {
		t.Errorf("Apply() = %v, want only the non-excluded paper", kept)
	}
}

func TestFilter_InvalidPattern(t *testing.T) {
	if _, err := New(Rules{Include: []string{`([`}}); err == nil {
		t.Error("New() should reject an invalid pattern")
	}
}

func TestFilter_InvalidMinDate(t *testing.T) {
	if _, err := New(Rules{MinDate: "yesterday"}); err == nil {
		t.Error("New() should reject an unparseable min_date")
	}
}

func TestFilter_ApplyStats(t *testing.T) {
	f, err := New(Rules{
		Include: []string{`keep`},
		Exclude: []string{`spam`},
		MinDate: "2024",
	})
	if err != nil {
		t.Fatal(err)
	}

	kept, stats := f.ApplyStats([]paper.Paper{
		{Title: "keep one"},
		{Title: "spam to keep"},
		{Title: "drop"},
		{Title: "keep but old", Published: paper.PubDate{Year: 2020}},
		{Title: "keep two"},
	})

	if len(kept) != 2 || kept[0].Title != "keep one" || kept[1].Title != "keep two" {
		t.Errorf("kept = %v, want order preserved", kept)
	}
	want := Stats{Input: 5, Kept: 2, Excluded: 1, NoKeyword: 1, TooOld: 1}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
}

func TestFilter_ApplyPreservesOrder(t *testing.T) {
	f, err := New(Rules{Include: []string{`keep`}})
	if err != nil {
		t.Fatal(err)
	}

	kept := f.Apply([]paper.Paper{
		{Title: "keep one"},
		{Title: "drop"},
		{Title: "keep two"},
	})
	if len(kept) != 2 || kept[0].Title != "keep one" || kept[1].Title != "keep two" {
		t.Errorf("Apply() = %v, want order preserved", kept)
	}
}
