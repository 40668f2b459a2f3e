package enrich

import (
	"context"
	"errors"

	"github.com/paperfeed/paperfeed/internal/dedup"
	"github.com/paperfeed/paperfeed/internal/paper"
	"github.com/paperfeed/paperfeed/internal/textutil"
)

// TitleMatchThreshold is the minimum Jaccard similarity between the paper's
// title and a search candidate's title for the candidate to be accepted.
// Title search is fuzzy; below this the candidate is likely a different work
// and merging it would corrupt the record.
const TitleMatchThreshold = 0.8

// Service enriches papers from the configured registries. Either client may
// be nil; enrichment uses whatever is available.
type Service struct {
	crossref *CrossRefClient
	openalex *OpenAlexClient
}

// NewService creates an enrichment service.
func NewService(crossref *CrossRefClient, openalex *OpenAlexClient) *Service {
	return &Service{crossref: crossref, openalex: openalex}
}

// Enrich fills the paper's missing fields from the registries. Existing
// fields are never overwritten. A paper that matches nothing comes back
// unchanged with a nil error; the error reports transport problems, and the
// returned paper is still usable alongside it.
func (s *Service) Enrich(ctx context.Context, p paper.Paper) (paper.Paper, error) {
	var errs []error

	if s.crossref != nil {
		if p.DOI != "" {
			work, err := s.crossref.GetWork(ctx, p.DOI)
			switch {
			case err == nil:
				p = mergeCrossRef(p, *work)
			case !errors.Is(err, ErrNotFound):
				errs = append(errs, err)
			}
		} else if p.Title != "" {
			works, err := s.crossref.SearchWorks(ctx, p.Title)
			if err != nil && !errors.Is(err, ErrNotFound) {
				errs = append(errs, err)
			}
			if work, ok := bestCrossRefMatch(p.Title, works); ok {
				p = mergeCrossRef(p, work)
			}
		}
	}

	if s.openalex != nil {
		var work *AlexWork
		if p.DOI != "" {
			w, err := s.openalex.GetWorkByDOI(ctx, p.DOI)
			switch {
			case err == nil:
				work = w
			case !errors.Is(err, ErrNotFound):
				errs = append(errs, err)
			}
		} else if p.Title != "" {
			works, err := s.openalex.SearchWorks(ctx, p.Title)
			if err != nil && !errors.Is(err, ErrNotFound) {
				errs = append(errs, err)
			}
			if w, ok := bestOpenAlexMatch(p.Title, works); ok {
				work = &w
			}
		}
		if work != nil {
			p = mergeOpenAlex(p, *work)
		}
	}

	return p, errors.Join(errs...)
}

func bestCrossRefMatch(title string, works []Work) (Work, bool) {
	best := -1
	bestScore := 0.0
	for i, w := range works {
		if len(w.Title) == 0 {
			continue
		}
		if score := textutil.Jaccard(title, w.Title[0]); score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 || bestScore < TitleMatchThreshold {
		return Work{}, false
	}
	return works[best], true
}

func bestOpenAlexMatch(title string, works []AlexWork) (AlexWork, bool) {
	best := -1
	bestScore := 0.0
	for i, w := range works {
		if w.DisplayName == "" {
			continue
		}
		if score := textutil.Jaccard(title, w.DisplayName); score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 || bestScore < TitleMatchThreshold {
		return AlexWork{}, false
	}
	return works[best], true
}

// mergeCrossRef fills the paper's empty fields from a CrossRef work.
func mergeCrossRef(p paper.Paper, w Work) paper.Paper {
	if p.DOI == "" {
		p.DOI = w.DOI
	}
	if p.PublicationTitle == "" && len(w.ContainerTitle) > 0 {
		p.PublicationTitle = w.ContainerTitle[0]
	}
	if p.JournalAbbrev == "" && len(w.ShortContainer) > 0 {
		p.JournalAbbrev = w.ShortContainer[0]
	}
	if p.Publisher == "" {
		p.Publisher = w.Publisher
	}
	if p.Volume == "" {
		p.Volume = w.Volume
	}
	if p.Issue == "" {
		p.Issue = w.Issue
	}
	if p.Pages == "" {
		p.Pages = w.Page
	}
	if p.ISSN == "" && len(w.ISSN) > 0 {
		p.ISSN = w.ISSN[0]
	}
	if p.URL == "" {
		p.URL = w.URL
	}
	if len(p.Authors) == 0 {
		for _, a := range w.Author {
			if name := a.FullName(); name != "" {
				p.Authors = append(p.Authors, name)
			}
		}
	}
	if p.Published.IsZero() && len(w.Issued.DateParts) > 0 {
		parts := w.Issued.DateParts[0]
		var d paper.PubDate
		if len(parts) > 0 {
			d.Year = parts[0]
		}
		if len(parts) > 1 {
			d.Month = parts[1]
		}
		if len(parts) > 2 {
			d.Day = parts[2]
		}
		p.Published = d
	}
	if p.ItemType == "" && w.Type == "posted-content" {
		p.ItemType = "preprint"
	}
	return p
}

// mergeOpenAlex fills the paper's empty fields from an OpenAlex work.
func mergeOpenAlex(p paper.Paper, w AlexWork) paper.Paper {
	if p.DOI == "" && w.DOI != "" {
		p.DOI = dedup.NormalizeDOI(w.DOI)
	}
	if p.PDFURL == "" {
		p.PDFURL = w.PrimaryLocation.PDFURL
		if p.PDFURL == "" {
			p.PDFURL = w.OpenAccess.OAURL
		}
	}
	if p.PublicationTitle == "" {
		p.PublicationTitle = w.PrimaryLocation.Source.DisplayName
	}
	if p.Volume == "" {
		p.Volume = w.Biblio.Volume
	}
	if p.Issue == "" {
		p.Issue = w.Biblio.Issue
	}
	if p.Pages == "" {
		p.Pages = w.Pages()
	}
	if p.Published.IsZero() {
		p.Published = paper.ParseDate(w.PublicationDate)
	}
	if len(p.Authors) == 0 {
		for _, a := range w.Authorships {
			if a.Author.DisplayName != "" {
				p.Authors = append(p.Authors, a.Author.DisplayName)
			}
		}
	}
	return p
}
