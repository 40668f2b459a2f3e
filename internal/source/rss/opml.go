package rss

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
)

// OPML subscription lists are the interchange format feed readers export.
// Outlines nest arbitrarily; only outlines carrying an xmlUrl are feeds.

type opmlDoc struct {
	Body opmlBody `xml:"body"`
}

type opmlBody struct {
	Outlines []opmlOutline `xml:"outline"`
}

type opmlOutline struct {
	Text     string        `xml:"text,attr"`
	Title    string        `xml:"title,attr"`
	XMLURL   string        `xml:"xmlUrl,attr"`
	Outlines []opmlOutline `xml:"outline"`
}

// ParseOPML reads feeds from an OPML document.
func ParseOPML(r io.Reader) ([]Feed, error) {
	var doc opmlDoc
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing OPML: %w", err)
	}

	var feeds []Feed
	collectOutlines(doc.Body.Outlines, &feeds)
	return feeds, nil
}

// LoadOPML reads feeds from an OPML file.
func LoadOPML(path string) ([]Feed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening OPML file: %w", err)
	}
	defer f.Close()
	return ParseOPML(f)
}

func collectOutlines(outlines []opmlOutline, feeds *[]Feed) {
	for _, o := range outlines {
		if o.XMLURL != "" {
			name := o.Title
			if name == "" {
				name = o.Text
			}
			*feeds = append(*feeds, Feed{Name: name, URL: o.XMLURL})
		}
		collectOutlines(o.Outlines, feeds)
	}
}
