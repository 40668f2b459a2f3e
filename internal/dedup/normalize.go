// Package dedup implements identity-key derivation and matching used to
// deduplicate papers against a reference-manager library. Records on both
// sides carry unreliable, partially-populated metadata, so comparison only
// ever happens between normalized identity keys.
package dedup

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/paperfeed/paperfeed/internal/paper"
)

var whitespacePattern = regexp.MustCompile(`\s+`)

// doiPrefixes are stripped before DOI comparison. Scheme matching is
// case-insensitive; the DOI body is lowercased afterwards anyway.
var doiPrefixes = []string{
	"https://doi.org/",
	"http://doi.org/",
	"doi.org/",
	"doi:",
}

// NormalizeDOI strips URL and "doi:" prefixes, trims whitespace, and
// lowercases the result for comparison.
func NormalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	for _, prefix := range doiPrefixes {
		if len(doi) >= len(prefix) && strings.EqualFold(doi[:len(prefix)], prefix) {
			doi = doi[len(prefix):]
			break
		}
	}
	return strings.ToLower(strings.TrimSpace(doi))
}

// NormalizeTitle lowercases, collapses internal whitespace, and trims.
// Titles are matched exactly post-normalization, not fuzzily.
func NormalizeTitle(title string) string {
	title = strings.ToLower(strings.TrimSpace(title))
	return whitespacePattern.ReplaceAllString(title, " ")
}

// NormalizeDate canonicalizes a date string at its given precision:
// "2025-3-8" becomes "2025-03-08", a bare year stays a bare year. Month and
// day are never invented, so a bare year never equals a full date. Strings
// without a leading year pass through trimmed.
func NormalizeDate(date string) string {
	date = strings.TrimSpace(date)
	if date == "" {
		return ""
	}
	if d := paper.ParseDate(date); !d.IsZero() {
		return d.String()
	}
	return date
}

// NormalizeURL strips the query string and fragment, lowercases scheme and
// host, and removes a trailing slash, so tracking-parameter-decorated URLs
// compare equal to their canonical form.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return strings.TrimSuffix(raw, "/")
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.RawQuery = ""
	u.Fragment = ""
	u.RawFragment = ""
	return strings.TrimSuffix(u.String(), "/")
}
