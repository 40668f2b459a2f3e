package export

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/paperfeed/paperfeed/internal/dedup"
)

// ErrNoListCapability indicates that neither probe target exposes any
// recognized listing method, so existing items cannot be enumerated.
var ErrNoListCapability = errors.New("remote client exposes no item listing capability")

// Listing capabilities, probed in order against the item-service target and
// then the raw API-client target. The first capability that yields a
// recognizable batch is used exclusively for the whole run.
type (
	// CursorLister pages through items with a start cursor.
	CursorLister interface {
		ListItems(ctx context.Context, limit, start int) (any, error)
	}

	// OffsetLister pages through items with an offset cursor.
	OffsetLister interface {
		GetItems(ctx context.Context, limit, offset int) (any, error)
	}

	// BulkLister returns up to limit items in a single call.
	BulkLister interface {
		GetAllItems(ctx context.Context, limit int) (any, error)
	}

	// Lister returns all items in a single call.
	Lister interface {
		List(ctx context.Context) (any, error)
	}
)

// CollectionLister enumerates the collections of the remote library, used to
// resolve a collection name to its key.
type CollectionLister interface {
	GetCollections(ctx context.Context) (any, error)
}

// ItemCreator writes one item into the remote library.
type ItemCreator interface {
	CreateItem(ctx context.Context, item map[string]any) (any, error)
}

const (
	// listPageSize is the batch size for paged listing.
	listPageSize = 1000
	// listMaxPages bounds a paged listing run.
	listMaxPages = 200
	// listBulkLimit is the limit hint passed to single-call listers.
	listBulkLimit = 100000
)

// loadExistingKeys enumerates the remote library and builds the identity-key
// index. Items that cannot be coerced to a recognizable shape are skipped.
func (e *ZoteroExporter) loadExistingKeys(ctx context.Context) (*dedup.Index, error) {
	items, err := e.listExistingItems(ctx)
	if err != nil {
		return nil, err
	}

	index := dedup.NewIndex()
	for _, raw := range items {
		item, ok := dedup.CoerceItem(raw)
		if !ok {
			continue
		}
		index.AddAll(dedup.DeriveKeys(item.Fields()))
	}
	return index, nil
}

// listExistingItems discovers a usable listing capability at runtime and
// drains it. A candidate that errors or returns an unrecognizable shape is
// skipped in favor of the next one.
func (e *ZoteroExporter) listExistingItems(ctx context.Context) ([]any, error) {
	for _, target := range []any{e.service, e.client} {
		if target == nil {
			continue
		}

		if l, ok := target.(CursorLister); ok {
			items, err := e.collectPaged(ctx, "ListItems", func(ctx context.Context, limit, cursor int) (any, error) {
				return l.ListItems(ctx, limit, cursor)
			})
			if err == nil && items != nil {
				return items, nil
			}
			warnListFailure("ListItems", err)
		}

		if l, ok := target.(OffsetLister); ok {
			items, err := e.collectPaged(ctx, "GetItems", func(ctx context.Context, limit, cursor int) (any, error) {
				return l.GetItems(ctx, limit, cursor)
			})
			if err == nil && items != nil {
				return items, nil
			}
			warnListFailure("GetItems", err)
		}

		if l, ok := target.(BulkLister); ok {
			result, err := l.GetAllItems(ctx, listBulkLimit)
			if err == nil {
				if items := normalizeListResult(result); items != nil {
					return items, nil
				}
			}
			warnListFailure("GetAllItems", err)
		}

		if l, ok := target.(Lister); ok {
			result, err := l.List(ctx)
			if err == nil {
				if items := normalizeListResult(result); items != nil {
					return items, nil
				}
			}
			warnListFailure("List", err)
		}
	}
	return nil, ErrNoListCapability
}

// collectPaged drains a paged listing method. A batch shorter than the page
// size ends pagination; an unrecognizable batch shape aborts this candidate.
func (e *ZoteroExporter) collectPaged(ctx context.Context, method string, page func(ctx context.Context, limit, cursor int) (any, error)) ([]any, error) {
	all := []any{}
	cursor := 0
	for pageN := 0; pageN < listMaxPages; pageN++ {
		result, err := page(ctx, listPageSize, cursor)
		if err != nil {
			return nil, err
		}
		batch := normalizeListResult(result)
		if batch == nil {
			return nil, nil
		}
		all = append(all, batch...)
		if len(batch) < listPageSize {
			return all, nil
		}
		cursor += len(batch)
	}
	fmt.Fprintf(os.Stderr, "Warning: %s pagination stopped after %d pages; item listing may be incomplete\n", method, listMaxPages)
	return all, nil
}

// normalizeListResult turns a listing result into a slice of raw items. It
// accepts a bare sequence, a map wrapping one under items/results/data, or a
// single coercible item. Nil means the shape was not recognized.
func normalizeListResult(result any) []any {
	switch v := result.(type) {
	case nil:
		return nil
	case []any:
		if v == nil {
			return []any{}
		}
		return v
	case []map[string]any:
		items := make([]any, len(v))
		for i, m := range v {
			items[i] = m
		}
		return items
	case map[string]any:
		for _, key := range []string{"items", "results", "data"} {
			switch wrapped := v[key].(type) {
			case []any:
				return wrapped
			case map[string]any:
				if nested, ok := wrapped["items"].([]any); ok {
					return nested
				}
			}
		}
		// A bare map with no recognized wrapper may itself be one item.
		if _, ok := dedup.CoerceItem(v); ok {
			return []any{v}
		}
		return nil
	}
	return nil
}

func warnListFailure(method string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: listing items via %s failed: %v\n", method, err)
	}
}
