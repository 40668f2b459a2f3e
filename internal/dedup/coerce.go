package dedup

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ItemData is the single normalized shape remote library items are coerced
// into before key derivation. Remote stores return items in several shapes
// (flat maps, wrapped maps, model-like values); the coercer flattens all of
// them to this.
type ItemData struct {
	Title    string
	DOI      string
	Date     string
	URL      string
	Creators []Creator
}

// Creator is a single author/creator entry on a remote item.
type Creator struct {
	CreatorType string `json:"creatorType,omitempty"`
	Name        string `json:"name,omitempty"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
}

// Fields returns the identity-relevant view of the item.
func (d ItemData) Fields() Fields {
	return Fields{Title: d.Title, DOI: d.DOI, Date: d.Date, URL: d.URL}
}

// FieldDumper is implemented by model-like values that can dump themselves
// to a flat field map. It is the strongly-typed analog of the duck-typed
// conversion methods some client libraries expose on their result models.
type FieldDumper interface {
	DumpFields() map[string]any
}

// CoerceItem normalizes an arbitrarily-shaped remote item into ItemData.
// It reports false when the value is not coercible; a non-coercible item is
// skipped, not an error.
func CoerceItem(raw any) (ItemData, bool) {
	switch v := raw.(type) {
	case nil:
		return ItemData{}, false
	case map[string]any:
		return coerceMap(v), true
	case json.RawMessage:
		return coerceJSON(v)
	case []byte:
		return coerceJSON(v)
	case FieldDumper:
		if m := v.DumpFields(); m != nil {
			return coerceMap(m), true
		}
		return ItemData{}, false
	}

	// Arbitrary struct values are read through a JSON round-trip, the
	// closest Go equivalent of probing a fixed attribute allowlist.
	data, err := json.Marshal(raw)
	if err != nil {
		return ItemData{}, false
	}
	return coerceJSON(data)
}

func coerceJSON(data []byte) (ItemData, bool) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil || len(m) == 0 {
		return ItemData{}, false
	}
	item := coerceMap(m)
	if item.Title == "" && item.DOI == "" && item.Date == "" && item.URL == "" && item.Creators == nil {
		return ItemData{}, false
	}
	return item, true
}

// coerceMap applies the shape rules in priority order: nested "data" map,
// "raw_data" wrapping a "data" map, flat "raw_data" merged field-by-field
// (first write wins, raw_data before the outer item), then flat top-level
// fields.
func coerceMap(m map[string]any) ItemData {
	if data, ok := m["data"].(map[string]any); ok {
		return extractFields(data, nil)
	}

	if rawData, ok := m["raw_data"].(map[string]any); ok {
		if nested, ok := rawData["data"].(map[string]any); ok {
			return extractFields(nested, nil)
		}
		return extractFields(rawData, m)
	}

	return extractFields(m, nil)
}

// extractFields reads recognized fields from primary, filling any still-empty
// field from fallback. Within one map, "DOI" wins over "doi" and "date" over
// "year".
func extractFields(primary, fallback map[string]any) ItemData {
	var item ItemData
	for _, m := range []map[string]any{primary, fallback} {
		if m == nil {
			continue
		}
		if item.Title == "" {
			item.Title = stringField(m, "title")
		}
		if item.DOI == "" {
			item.DOI = stringField(m, "DOI", "doi")
		}
		if item.Date == "" {
			item.Date = stringField(m, "date")
			if item.Date == "" {
				item.Date = stringField(m, "year")
			}
		}
		if item.URL == "" {
			item.URL = stringField(m, "url")
		}
		if item.Creators == nil {
			v, ok := m["creators"]
			if !ok || isEmptyValue(v) {
				v = m["authors"]
			}
			item.Creators = CoerceCreators(v)
		}
	}
	return item
}

// CoerceCreators normalizes an author/creator value: a list of maps with
// name or lastName/firstName, a list of plain strings, or a single string
// split on ";" and " and ". Unrecognized shapes yield nil, never an error.
func CoerceCreators(value any) []Creator {
	switch v := value.(type) {
	case []any:
		var creators []Creator
		for _, entry := range v {
			switch e := entry.(type) {
			case map[string]any:
				c := Creator{
					CreatorType: stringField(e, "creatorType"),
					Name:        stringField(e, "name"),
					FirstName:   stringField(e, "firstName"),
					LastName:    stringField(e, "lastName"),
				}
				if c.Name != "" || c.LastName != "" || c.FirstName != "" {
					creators = append(creators, c)
				}
			case string:
				if name := strings.TrimSpace(e); name != "" {
					creators = append(creators, Creator{CreatorType: "author", Name: name})
				}
			}
		}
		return creators
	case string:
		var creators []Creator
		normalized := strings.ReplaceAll(v, " and ", ";")
		for _, chunk := range strings.Split(normalized, ";") {
			if name := strings.TrimSpace(chunk); name != "" {
				creators = append(creators, Creator{CreatorType: "author", Name: name})
			}
		}
		return creators
	}
	return nil
}

// stringField returns the first non-empty string rendering of the named
// keys in m.
func stringField(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s := anyToString(m[key]); s != "" {
			return s
		}
	}
	return ""
}

func anyToString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case json.Number:
		return s.String()
	case float64:
		if s == float64(int64(s)) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	}
	return ""
}

func isEmptyValue(v any) bool {
	switch e := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(e) == ""
	case []any:
		return len(e) == 0
	}
	return false
}
