// Package importer parses reference-manager export files into papers.
package importer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/paperfeed/paperfeed/internal/paper"
)

// FlexibleString can unmarshal from either string or number JSON values.
// Paperpile exports are inconsistent about year/month/day types.
type FlexibleString string

func (f *FlexibleString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexibleString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexibleString(n.String())
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into FlexibleString", string(data))
}

func (f FlexibleString) String() string {
	return string(f)
}

func (f FlexibleString) Int() int {
	n, _ := strconv.Atoi(string(f))
	return n
}

// PaperpileEntry represents a single entry from a Paperpile JSON export.
type PaperpileEntry struct {
	ID        string   `json:"_id"`
	Citekey   string   `json:"citekey"`
	DOI       string   `json:"doi"`
	Title     string   `json:"title"`
	Abstract  string   `json:"abstract"`
	Journal   string   `json:"journal"`
	URL       []string `json:"url"`
	Published struct {
		Year  FlexibleString `json:"year"`
		Month FlexibleString `json:"month"`
		Day   FlexibleString `json:"day"`
	} `json:"published"`
	Author []struct {
		First string `json:"first"`
		Last  string `json:"last"`
	} `json:"author"`
}

// ParsePaperpile parses a Paperpile JSON export. Entries that cannot be
// converted are reported as errors without aborting the rest of the file.
func ParsePaperpile(data []byte) ([]paper.Paper, []error) {
	var entries []PaperpileEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, []error{fmt.Errorf("parsing Paperpile JSON: %w", err)}
	}

	var papers []paper.Paper
	var errs []error

	for i, entry := range entries {
		p, err := paperpileEntryToPaper(entry)
		if err != nil {
			errs = append(errs, fmt.Errorf("entry %d (%s): %w", i+1, entry.Citekey, err))
			continue
		}
		papers = append(papers, p)
	}

	return papers, errs
}

func paperpileEntryToPaper(entry PaperpileEntry) (paper.Paper, error) {
	if entry.Title == "" {
		return paper.Paper{}, fmt.Errorf("missing required field 'title'")
	}

	var authors []string
	for _, a := range entry.Author {
		name := strings.TrimSpace(strings.TrimSpace(a.First) + " " + strings.TrimSpace(a.Last))
		if name != "" {
			authors = append(authors, name)
		}
	}

	published := paper.PubDate{Year: entry.Published.Year.Int()}
	if m := entry.Published.Month.Int(); m >= 1 && m <= 12 {
		published.Month = m
	}
	if d := entry.Published.Day.Int(); published.Month != 0 && d >= 1 && d <= 31 {
		published.Day = d
	}

	var url string
	if len(entry.URL) > 0 {
		url = entry.URL[0]
	}

	p := paper.Paper{
		Title:            entry.Title,
		Source:           "paperpile",
		SourceType:       "import",
		SourceID:         entry.ID,
		CitationKey:      entry.Citekey,
		DOI:              entry.DOI,
		URL:              url,
		Authors:          authors,
		Abstract:         entry.Abstract,
		PublicationTitle: entry.Journal,
		Published:        published,
	}

	return p, nil
}
