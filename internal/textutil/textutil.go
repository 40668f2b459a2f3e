// Package textutil provides text tokenization and similarity helpers used
// for matching loosely-formatted titles across metadata sources.
package textutil

import (
	"regexp"
	"strings"
)

var (
	// DOI pattern: 10.XXXX/... where XXXX is 4+ digits
	doiPattern    = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)
	tagPattern    = regexp.MustCompile(`<[^>]+>`)
	tokenPattern  = regexp.MustCompile(`[a-z0-9]+`)
	spacePattern  = regexp.MustCompile(`\s+`)
	entityReplace = strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&nbsp;", " ",
	)
)

// FindDOI finds the first plausible DOI in free text.
func FindDOI(text string) string {
	matches := doiPattern.FindAllString(text, -1)
	for _, match := range matches {
		// Remove trailing punctuation
		match = strings.TrimRight(match, ".,;:)")
		if isValidDOI(match) {
			return match
		}
	}
	return ""
}

// isValidDOI performs basic validation on a DOI.
func isValidDOI(doi string) bool {
	if len(doi) < 10 {
		return false
	}
	// Must start with 10. and have something after the /
	if !strings.HasPrefix(doi, "10.") {
		return false
	}
	slashIdx := strings.Index(doi, "/")
	if slashIdx == -1 || slashIdx >= len(doi)-1 {
		return false
	}
	return true
}

// StripHTML removes markup tags and common entities from feed-sourced text.
func StripHTML(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = entityReplace.Replace(s)
	return CollapseSpace(s)
}

// CollapseSpace collapses runs of whitespace to single spaces and trims.
func CollapseSpace(s string) string {
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}

// Tokens lowercases s and splits it into alphanumeric tokens.
func Tokens(s string) []string {
	return tokenPattern.FindAllString(strings.ToLower(s), -1)
}

// TokenSet returns the set of tokens in s.
func TokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range Tokens(s) {
		set[tok] = struct{}{}
	}
	return set
}

// Jaccard computes the Jaccard similarity of the token sets of a and b.
// Two empty strings are identical (1); one empty string matches nothing (0).
func Jaccard(a, b string) float64 {
	setA := TokenSet(a)
	setB := TokenSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 1
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}
