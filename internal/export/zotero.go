// Package export writes collected papers into external stores, with
// duplicate detection against what the store already holds.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/paperfeed/paperfeed/internal/dedup"
	"github.com/paperfeed/paperfeed/internal/paper"
)

// ErrNoCreateCapability indicates that neither probe target can create items,
// so an exporter cannot be constructed.
var ErrNoCreateCapability = errors.New("remote client exposes no item create capability")

// ErrNoCollectionCapability indicates that collection name resolution cannot
// possibly succeed because no target exposes collection listing.
var ErrNoCollectionCapability = errors.New("remote client exposes no collection listing capability")

// collectionKeyPattern matches a library collection key: exactly eight
// alphanumeric characters.
var collectionKeyPattern = regexp.MustCompile(`^[A-Za-z0-9]{8}$`)

// ZoteroExporter pushes papers into a Zotero-compatible library, skipping
// papers the library already holds. Capabilities are discovered at runtime
// from two probe targets: a higher-level item service, consulted first, and
// the raw API client.
type ZoteroExporter struct {
	service any
	client  any
	creator ItemCreator
	now     func() time.Time
}

// ZoteroOption configures a ZoteroExporter.
type ZoteroOption func(*ZoteroExporter)

// WithClock overrides the time source used for access dates.
func WithClock(now func() time.Time) ZoteroOption {
	return func(e *ZoteroExporter) {
		e.now = now
	}
}

// NewZoteroExporter builds an exporter over the given probe targets. Either
// target may be nil, but at least one must expose item creation; a missing
// create capability is a construction-time failure, unlike the soft listing
// and collection-resolution failures that only degrade an export run.
func NewZoteroExporter(service, client any, opts ...ZoteroOption) (*ZoteroExporter, error) {
	e := &ZoteroExporter{
		service: service,
		client:  client,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, target := range []any{service, client} {
		if creator, ok := target.(ItemCreator); ok && creator != nil {
			e.creator = creator
			break
		}
	}
	if e.creator == nil {
		return nil, ErrNoCreateCapability
	}
	return e, nil
}

// Export pushes the given papers into the library, one at a time, in order.
// Papers whose identity keys match an existing library entry are skipped;
// each successful create immediately extends the in-run index so later
// duplicates within the same batch are caught too. Remote-side and per-paper
// failures are captured in the result, never raised: the run always
// completes and always returns counts for every input paper.
//
// The loop is deliberately sequential. Creates must land in the index before
// the next paper is checked, so concurrent creates would reintroduce the
// duplicates this exporter exists to prevent.
func (e *ZoteroExporter) Export(ctx context.Context, papers []paper.Paper, collection string) *Result {
	result := &Result{
		Total: len(papers),
		SkippedByKey: map[string]int{
			string(dedup.KindDOI):       0,
			string(dedup.KindTitleDate): 0,
			string(dedup.KindURL):       0,
		},
		Failures: []Failure{},
	}

	collectionKey := e.resolveCollectionLenient(ctx, collection)

	index, err := e.loadExistingKeys(ctx)
	if err != nil {
		// A library that cannot be listed is treated as empty: the
		// export proceeds and duplicate detection degrades to
		// in-run-only.
		fmt.Fprintf(os.Stderr, "Warning: could not load existing library items, duplicate detection limited to this run: %v\n", err)
		index = dedup.NewIndex()
	}

	for _, p := range papers {
		keys := dedup.DeriveKeys(dedup.PaperFields(p))
		if matched, ok := index.Match(keys); ok {
			result.SkippedCount++
			result.SkippedByKey[string(matched.Kind)]++
			continue
		}

		item := e.paperToItem(p, collectionKey)
		createResult, err := e.creator.CreateItem(ctx, item)
		if err != nil {
			result.Failures = append(result.Failures, Failure{Title: p.Title, Error: err.Error()})
			continue
		}

		created, skipped, failed := interpretCreateResult(createResult)
		result.SuccessCount += created
		if skipped > 0 {
			result.SkippedCount += skipped
			reason := "unknown"
			if len(keys) > 0 {
				reason = string(keys[0].Kind)
			}
			result.SkippedByKey[reason] += skipped
		}
		if failed > 0 {
			result.Failures = append(result.Failures, Failure{
				Title: p.Title,
				Error: summarizeCreateFailures(createResult, failed),
			})
		}

		if created > 0 {
			index.AddAll(keys)
		}
	}

	return result
}

// ResolveCollection maps a collection name or key to the collection key.
// A value already shaped like a key passes through untouched. Resolution
// prefers an exact name match, then a case-insensitive one. It returns
// ErrNoCollectionCapability when no target can list collections, and passes
// an unmatched name through unchanged so server-side validation produces the
// definitive error.
func (e *ZoteroExporter) ResolveCollection(ctx context.Context, nameOrKey string) (string, error) {
	if nameOrKey == "" || collectionKeyPattern.MatchString(nameOrKey) {
		return nameOrKey, nil
	}

	var lister CollectionLister
	for _, target := range []any{e.client, e.service} {
		if l, ok := target.(CollectionLister); ok && l != nil {
			lister = l
			break
		}
	}
	if lister == nil {
		return nameOrKey, ErrNoCollectionCapability
	}

	raw, err := lister.GetCollections(ctx)
	if err != nil {
		return nameOrKey, fmt.Errorf("listing collections: %w", err)
	}

	collections := normalizeListResult(raw)
	var ciMatch string
	for _, entry := range collections {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		data := m
		if nested, ok := m["data"].(map[string]any); ok {
			data = nested
		}
		name, _ := data["name"].(string)
		key, _ := m["key"].(string)
		if key == "" {
			key, _ = data["key"].(string)
		}
		if name == "" || key == "" {
			continue
		}
		if name == nameOrKey {
			return key, nil
		}
		if ciMatch == "" && strings.EqualFold(name, nameOrKey) {
			ciMatch = key
		}
	}
	if ciMatch != "" {
		return ciMatch, nil
	}
	return nameOrKey, nil
}

// resolveCollectionLenient is the export-path variant of ResolveCollection:
// every resolution failure degrades to passing the identifier through.
func (e *ZoteroExporter) resolveCollectionLenient(ctx context.Context, nameOrKey string) string {
	key, err := e.ResolveCollection(ctx, nameOrKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not resolve collection %q, using it as-is: %v\n", nameOrKey, err)
	}
	return key
}

// paperToItem builds the create payload for one paper in the remote item
// schema, dropping empty fields and restricting preprints to the fields that
// item type accepts.
func (e *ZoteroExporter) paperToItem(p paper.Paper, collectionKey string) map[string]any {
	item := map[string]any{
		"itemType": p.Type(),
		"title":    p.Title,
	}

	if len(p.Authors) > 0 {
		creators := make([]map[string]any, 0, len(p.Authors))
		for _, name := range p.Authors {
			creators = append(creators, map[string]any{
				"creatorType": "author",
				"name":        name,
			})
		}
		item["creators"] = creators
	}

	setNonEmpty(item, "abstractNote", p.Abstract)
	setNonEmpty(item, "publicationTitle", p.PublicationTitle)
	setNonEmpty(item, "journalAbbreviation", p.JournalAbbrev)
	setNonEmpty(item, "publisher", p.Publisher)
	setNonEmpty(item, "place", p.Place)
	setNonEmpty(item, "volume", p.Volume)
	setNonEmpty(item, "issue", p.Issue)
	setNonEmpty(item, "pages", p.Pages)
	setNonEmpty(item, "series", p.Series)
	setNonEmpty(item, "seriesTitle", p.SeriesTitle)
	setNonEmpty(item, "DOI", p.DOI)
	setNonEmpty(item, "url", p.URL)
	setNonEmpty(item, "ISSN", p.ISSN)
	setNonEmpty(item, "shortTitle", p.ShortTitle)
	setNonEmpty(item, "language", p.Language)
	setNonEmpty(item, "rights", p.Rights)
	setNonEmpty(item, "citationKey", p.CitationKey)
	setNonEmpty(item, "date", p.Published.String())

	accessDate := p.AccessDate
	if accessDate.IsZero() {
		accessDate = paper.DateOf(e.now())
	}
	item["accessDate"] = accessDate.String()

	var extra []string
	if p.PMID != "" {
		extra = append(extra, "PMID: "+p.PMID)
	}
	if p.PMCID != "" {
		extra = append(extra, "PMCID: "+p.PMCID)
	}
	if len(extra) > 0 {
		item["extra"] = strings.Join(extra, "\n")
	}

	if collectionKey != "" {
		item["collections"] = []string{collectionKey}
	}

	normalizeItemForType(item)
	return item
}

// preprintDrop lists journal-only fields the preprint item type rejects.
var preprintDrop = []string{
	"publicationTitle", "journalAbbreviation", "volume", "issue",
	"pages", "ISSN", "series", "seriesTitle", "publisher", "place",
}

// normalizeItemForType reshapes the payload for item types whose schema
// diverges from journalArticle. Preprints carry the venue in "repository"
// and reject journal-specific fields.
func normalizeItemForType(item map[string]any) {
	if item["itemType"] != "preprint" {
		return
	}
	if venue, ok := item["publicationTitle"].(string); ok && venue != "" {
		item["repository"] = venue
	}
	for _, field := range preprintDrop {
		delete(item, field)
	}
}

func setNonEmpty(item map[string]any, key, value string) {
	if value != "" {
		item[key] = value
	}
}
