package dedup

import "github.com/paperfeed/paperfeed/internal/paper"

// Kind identifies one of the tiered identity strategies.
type Kind string

// Identity tiers, in priority order.
const (
	KindDOI       Kind = "doi"
	KindTitleDate Kind = "title_date"
	KindURL       Kind = "url"
)

// Key is a (kind, normalized value) pair used to test equality between a
// local paper and a remote library entry. Equality is structural.
type Key struct {
	Kind  Kind
	Value string
}

// Fields is the uniform accessor the key deriver reads. Both local papers
// and coerced remote items are reduced to this shape before derivation.
type Fields struct {
	Title string
	DOI   string
	Date  string
	URL   string
}

// PaperFields extracts identity-relevant fields from a local paper.
func PaperFields(p paper.Paper) Fields {
	return Fields{
		Title: p.Title,
		DOI:   p.DOI,
		Date:  p.Published.String(),
		URL:   p.URL,
	}
}

// DeriveKeys produces the identity keys for a record, in tier order.
// All derivable kinds are returned, at most one per kind. A record with no
// DOI, no title+date, and no URL yields nil and can never be matched.
func DeriveKeys(f Fields) []Key {
	var keys []Key

	if doi := NormalizeDOI(f.DOI); doi != "" {
		keys = append(keys, Key{Kind: KindDOI, Value: doi})
	}

	title := NormalizeTitle(f.Title)
	date := NormalizeDate(f.Date)
	if title != "" && date != "" {
		keys = append(keys, Key{Kind: KindTitleDate, Value: title + "|" + date})
	}

	if u := NormalizeURL(f.URL); u != "" {
		keys = append(keys, Key{Kind: KindURL, Value: u})
	}

	return keys
}
