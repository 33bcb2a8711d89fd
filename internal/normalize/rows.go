package normalize

import (
	"encoding/json"
	"strconv"
)

// idKey keeps the JSON type of an id so 7 and "7" stay distinct, matching
// how the vendor returns them.
type idKey struct {
	numeric bool
	value   string
}

func rowID(row Row) (idKey, bool) {
	switch id := row["id"].(type) {
	case json.Number:
		return idKey{numeric: true, value: id.String()}, true
	case float64:
		return idKey{numeric: true, value: strconv.FormatFloat(id, 'f', -1, 64)}, true
	case int:
		return idKey{numeric: true, value: strconv.Itoa(id)}, true
	case int64:
		return idKey{numeric: true, value: strconv.FormatInt(id, 10)}, true
	case string:
		return idKey{value: id}, true
	default:
		return idKey{}, false
	}
}

// DedupeByID keeps the first row seen for each id. Rows without a scalar id
// are dropped.
func DedupeByID(rows []Row) []Row {
	seen := make(map[idKey]struct{}, len(rows))
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		key, ok := rowID(row)
		if !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, row)
	}
	return out
}

var counterFields = []string{"total", "total_records", "count"}

// MergeRows puts rows into a copy of payload's object envelope, rewriting
// any numeric counters to len(rows). A non-object payload yields the rows.
func MergeRows(payload any, rows []Row) any {
	obj, ok := payload.(map[string]any)
	if !ok {
		return rows
	}
	merged := make(map[string]any, len(obj)+1)
	for k, v := range obj {
		merged[k] = v
	}
	merged["rows"] = rows
	for _, field := range counterFields {
		if isNumber(obj[field]) {
			merged[field] = len(rows)
		}
	}
	return merged
}

// LocationName reads a display name from either a location object or a
// {"rows": [...]} list, taking the first row with a string name.
func LocationName(payload any) (string, bool) {
	obj, ok := payload.(map[string]any)
	if !ok {
		return "", false
	}
	if name, ok := obj["name"].(string); ok && name != "" {
		return name, true
	}
	if rows, ok := obj["rows"].([]any); ok {
		for _, item := range rows {
			row, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if name, ok := row["name"].(string); ok && name != "" {
				return name, true
			}
		}
	}
	return "", false
}

func isNumber(v any) bool {
	switch v.(type) {
	case json.Number, float64, int, int64:
		return true
	default:
		return false
	}
}
