// Package pdf extracts identifying metadata from PDF files so downloaded
// papers can be matched and enriched.
package pdf

import (
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/paperfeed/paperfeed/internal/textutil"
)

// doiSearchPages is how many leading pages are scanned for a DOI. Journals
// put the DOI on the first page; a small margin covers cover sheets.
const doiSearchPages = 3

// ExtractDOI extracts a DOI from a PDF file, scanning the leading pages.
// An unreadable page or a PDF without a DOI is not an error; the result is
// simply empty.
func ExtractDOI(filePath string) (string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	return doiFromReader(r), nil
}

// ExtractDOIReader extracts a DOI from an in-memory PDF.
func ExtractDOIReader(r io.ReaderAt, size int64) (string, error) {
	pdfReader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", err
	}
	return doiFromReader(pdfReader), nil
}

func doiFromReader(r *pdf.Reader) string {
	maxPages := doiSearchPages
	if r.NumPage() < maxPages {
		maxPages = r.NumPage()
	}

	for i := 1; i <= maxPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		if doi := textutil.FindDOI(text); doi != "" {
			return doi
		}
	}

	return ""
}

// ExtractText extracts all text from the first N pages of a PDF.
func ExtractText(filePath string, maxPages int) (string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if maxPages <= 0 || maxPages > r.NumPage() {
		maxPages = r.NumPage()
	}

	var builder strings.Builder
	for i := 1; i <= maxPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}

	return builder.String(), nil
}
