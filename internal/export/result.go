package export

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Result is the outcome of one export run.
type Result struct {
	SuccessCount int            `json:"success_count"`
	Total        int            `json:"total"`
	SkippedCount int            `json:"skipped_count"`
	SkippedByKey map[string]int `json:"skipped_by_key"`
	Failures     []Failure      `json:"failures"`
}

// Failure records one paper that could not be exported.
type Failure struct {
	Title string `json:"title"`
	Error string `json:"error"`
}

// interpretCreateResult parses an item-create result into (created, skipped,
// failed) counts. The result shape is not fixed across client versions:
// counts may appear as integers, sequences, or maps, under primary or
// alternate field names. A non-mapping result contributes zero to all three
// counts; it is never inferred as success.
func interpretCreateResult(result any) (created, skipped, failed int) {
	m, ok := resultMap(result)
	if !ok {
		return 0, 0, 0
	}

	created = countValue(m["created"])
	if created == 0 {
		// A "successful" map keyed by item index is an alternate
		// encoding of created.
		created = countValue(m["successful"])
	}
	skipped = countValue(m["skipped_duplicates"])
	if skipped == 0 {
		skipped = countValue(m["skipped"])
	}
	failed = countValue(m["failed"])
	if failed == 0 {
		failed = countValue(m["failures"])
	}

	// Named count alternates are consulted only when every primary field
	// is absent or zero, so counts are never doubled.
	if created == 0 && skipped == 0 && failed == 0 {
		created = firstPositiveInt(m, "created_count", "success_count", "inserted_count")
		skipped = firstPositiveInt(m, "skipped_count", "duplicate_count")
		failed = firstPositiveInt(m, "failed_count", "error_count")
	}

	return created, skipped, failed
}

// summarizeCreateFailures extracts a human-readable failure message from a
// create result. It prefers per-entry message/error details from a "failed"
// map, then a "failures" sequence, deduplicating repeated messages while
// preserving order. When no detail is extractable it falls back to a count.
func summarizeCreateFailures(result any, failedN int) string {
	if m, ok := resultMap(result); ok {
		if failedMap, ok := m["failed"].(map[string]any); ok && len(failedMap) > 0 {
			keys := make([]string, 0, len(failedMap))
			for k := range failedMap {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			var messages []string
			for _, k := range keys {
				switch detail := failedMap[k].(type) {
				case map[string]any:
					if msg := detailMessage(detail); msg != "" {
						messages = append(messages, msg)
					} else {
						messages = append(messages, fmt.Sprintf("%v", detail))
					}
				default:
					messages = append(messages, fmt.Sprintf("%v", detail))
				}
			}
			if joined := joinDeduped(messages); joined != "" {
				return joined
			}
		}

		if failures, ok := m["failures"].([]any); ok && len(failures) > 0 {
			var messages []string
			for _, entry := range failures {
				switch detail := entry.(type) {
				case map[string]any:
					if msg := detailMessage(detail); msg != "" {
						messages = append(messages, msg)
					}
				case nil:
				default:
					messages = append(messages, fmt.Sprintf("%v", detail))
				}
			}
			if joined := joinDeduped(messages); joined != "" {
				return joined
			}
		}
	}

	return fmt.Sprintf("create reported %d failed item(s)", failedN)
}

func detailMessage(detail map[string]any) string {
	if msg, ok := detail["message"].(string); ok && msg != "" {
		return msg
	}
	if msg, ok := detail["error"].(string); ok && msg != "" {
		return msg
	}
	return ""
}

func joinDeduped(messages []string) string {
	seen := make(map[string]bool, len(messages))
	var deduped []string
	for _, msg := range messages {
		if !seen[msg] {
			seen[msg] = true
			deduped = append(deduped, msg)
		}
	}
	return strings.Join(deduped, "; ")
}

// resultMap coerces a create result into a map when possible.
func resultMap(result any) (map[string]any, bool) {
	switch v := result.(type) {
	case map[string]any:
		return v, true
	case json.RawMessage:
		var m map[string]any
		if err := json.Unmarshal(v, &m); err == nil {
			return m, true
		}
	}
	return nil, false
}

// countValue interprets a count field: an integer, a sequence (count is its
// length), or a map (count is its number of entries).
func countValue(v any) int {
	switch c := v.(type) {
	case int:
		if c > 0 {
			return c
		}
	case int64:
		if c > 0 {
			return int(c)
		}
	case float64:
		if c > 0 {
			return int(c)
		}
	case json.Number:
		if n, err := c.Int64(); err == nil && n > 0 {
			return int(n)
		}
	case []any:
		return len(c)
	case map[string]any:
		return len(c)
	}
	return 0
}

func firstPositiveInt(m map[string]any, keys ...string) int {
	for _, key := range keys {
		switch v := m[key].(type) {
		case int:
			if v > 0 {
				return v
			}
		case int64:
			if v > 0 {
				return int(v)
			}
		case float64:
			if v > 0 {
				return int(v)
			}
		case json.Number:
			if n, err := v.Int64(); err == nil && n > 0 {
				return int(n)
			}
		}
	}
	return 0
}
