// Package paper defines the core domain types for collected paper metadata.
package paper

// Paper represents a single academic paper collected from a feed or alert,
// aligned with the reference-manager journalArticle schema.
type Paper struct {
	// Core
	Title      string `json:"title"`
	Source     string `json:"source"`      // e.g. "arXiv", "Nature"
	SourceType string `json:"source_type"` // "rss" or "email"

	// Bibliographic
	Authors          []string `json:"authors,omitempty"`
	Abstract         string   `json:"abstract,omitempty"`
	Published        PubDate  `json:"published,omitempty"`
	DOI              string   `json:"doi,omitempty"`
	URL              string   `json:"url,omitempty"`
	PDFURL           string   `json:"pdf_url,omitempty"`
	PublicationTitle string   `json:"publication_title,omitempty"`
	JournalAbbrev    string   `json:"journal_abbreviation,omitempty"`
	Publisher        string   `json:"publisher,omitempty"`
	Place            string   `json:"place,omitempty"`
	Volume           string   `json:"volume,omitempty"`
	Issue            string   `json:"issue,omitempty"`
	Pages            string   `json:"pages,omitempty"`
	Series           string   `json:"series,omitempty"`
	SeriesTitle      string   `json:"series_title,omitempty"`
	CitationKey      string   `json:"citation_key,omitempty"`
	AccessDate       PubDate  `json:"access_date,omitempty"`
	PMID             string   `json:"pmid,omitempty"`
	PMCID            string   `json:"pmcid,omitempty"`
	ISSN             string   `json:"issn,omitempty"`
	ShortTitle       string   `json:"short_title,omitempty"`
	Language         string   `json:"language,omitempty"`
	Rights           string   `json:"rights,omitempty"`
	ItemType         string   `json:"item_type,omitempty"` // journalArticle, preprint, ...

	// Internal
	SourceID string         `json:"source_id,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
}

// Type returns the item type, defaulting to journalArticle.
func (p Paper) Type() string {
	if p.ItemType == "" {
		return "journalArticle"
	}
	return p.ItemType
}
