// Package filter selects papers matching configured criteria.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/paperfeed/paperfeed/internal/paper"
)

// Rules describes which papers to keep. Exclude keywords veto first; then a
// paper must match any include keyword (OR), any author (OR), carry a PDF
// link when required, and be published on or after the minimum date. Empty
// criteria are inactive: with no include keywords every paper passes the
// keyword check, and papers without dates pass the date check.
type Rules struct {
	Include    []string `yaml:"include,omitempty" json:"include,omitempty"`
	Exclude    []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`
	Authors    []string `yaml:"authors,omitempty" json:"authors,omitempty"`
	MinDate    string   `yaml:"min_date,omitempty" json:"min_date,omitempty"`
	RequirePDF bool     `yaml:"require_pdf,omitempty" json:"require_pdf,omitempty"`
}

// Drop reasons reported by Match and tallied in Stats.
const (
	DropExcluded  = "excluded"
	DropNoKeyword = "no_keyword"
	DropNoAuthor  = "no_author"
	DropNoPDF     = "no_pdf"
	DropTooOld    = "too_old"
)

// Filter is a compiled set of rules.
type Filter struct {
	include    []*regexp.Regexp
	exclude    []*regexp.Regexp
	authors    []string
	minDate    paper.PubDate
	requirePDF bool
}

// Stats counts one filtering pass, with a drop tally per criterion.
type Stats struct {
	Input     int `json:"input"`
	Kept      int `json:"kept"`
	Excluded  int `json:"excluded"`
	NoKeyword int `json:"no_keyword"`
	NoAuthor  int `json:"no_author"`
	NoPDF     int `json:"no_pdf"`
	TooOld    int `json:"too_old"`
}

// New compiles the rules. Keyword patterns are case-insensitive regular
// expressions matched against the title and abstract; author names match by
// case-insensitive substring.
func New(rules Rules) (*Filter, error) {
	f := &Filter{requirePDF: rules.RequirePDF}

	for _, pattern := range rules.Include {
		re, err := compilePattern(pattern)
		if err != nil {
			return nil, fmt.Errorf("include pattern %q: %w", pattern, err)
		}
		f.include = append(f.include, re)
	}
	for _, pattern := range rules.Exclude {
		re, err := compilePattern(pattern)
		if err != nil {
			return nil, fmt.Errorf("exclude pattern %q: %w", pattern, err)
		}
		f.exclude = append(f.exclude, re)
	}
	for _, name := range rules.Authors {
		if name = strings.TrimSpace(name); name != "" {
			f.authors = append(f.authors, strings.ToLower(name))
		}
	}
	if rules.MinDate != "" {
		f.minDate = paper.ParseDate(rules.MinDate)
		if f.minDate.IsZero() {
			return nil, fmt.Errorf("invalid min_date %q", rules.MinDate)
		}
	}

	return f, nil
}

func compilePattern(pattern string) (*regexp.Regexp, error) {
	return regexp.Compile("(?i)" + pattern)
}

// Match reports whether the paper passes the rules. When it does not, the
// returned string names the first criterion that dropped it.
func (f *Filter) Match(p paper.Paper) (string, bool) {
	text := p.Title + "\n" + p.Abstract

	for _, re := range f.exclude {
		if re.MatchString(text) {
			return DropExcluded, false
		}
	}

	if len(f.include) > 0 && !matchesAny(f.include, text) {
		return DropNoKeyword, false
	}

	if len(f.authors) > 0 && !f.matchesAuthor(p.Authors) {
		return DropNoAuthor, false
	}

	if f.requirePDF && p.PDFURL == "" {
		return DropNoPDF, false
	}

	if !f.minDate.IsZero() && !p.Published.IsZero() && p.Published.Before(f.minDate) {
		return DropTooOld, false
	}

	return "", true
}

func matchesAny(patterns []*regexp.Regexp, text string) bool {
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func (f *Filter) matchesAuthor(authors []string) bool {
	for _, paperAuthor := range authors {
		lowered := strings.ToLower(paperAuthor)
		for _, want := range f.authors {
			if strings.Contains(lowered, want) {
				return true
			}
		}
	}
	return false
}

// ApplyStats returns the papers that pass the rules, preserving order, with
// a per-criterion drop tally.
func (f *Filter) ApplyStats(papers []paper.Paper) ([]paper.Paper, Stats) {
	stats := Stats{Input: len(papers)}
	var kept []paper.Paper
	for _, p := range papers {
		reason, ok := f.Match(p)
		if ok {
			kept = append(kept, p)
			stats.Kept++
			continue
		}
		switch reason {
		case DropExcluded:
			stats.Excluded++
		case DropNoKeyword:
			stats.NoKeyword++
		case DropNoAuthor:
			stats.NoAuthor++
		case DropNoPDF:
			stats.NoPDF++
		case DropTooOld:
			stats.TooOld++
		}
	}
	return kept, stats
}

// Apply returns the papers that pass the rules, preserving order.
func (f *Filter) Apply(papers []paper.Paper) []paper.Paper {
	kept, _ := f.ApplyStats(papers)
	return kept
}
