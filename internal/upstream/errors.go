package upstream

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Error is a failed upstream call. Message is always populated with the
// best human-readable reason available; Details holds the decoded response
// body for server-side logging only.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	Details    any
	Err        error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transport reports whether the call failed before any HTTP response arrived.
func (e *Error) Transport() bool {
	return e.StatusCode == 0
}

// AsError unwraps err to an upstream failure, if it is one.
func AsError(err error) (*Error, bool) {
	var ue *Error
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}

// ExtractMessage builds the operator-facing failure reason from a decoded
// upstream body. Priority: a bare string body; then the message and error
// fields; then the field-level messages/errors containers flattened as
// "field: detail" joined by " | ". Parts are joined by " - ". When nothing
// upstream-shaped is present the fallback is returned.
func ExtractMessage(body any, fallback string) string {
	switch v := body.(type) {
	case nil:
		return fallback
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
		return fallback
	case map[string]any:
		var parts []string
		if s, ok := v["message"].(string); ok && s != "" {
			parts = append(parts, s)
		}
		if s, ok := v["error"].(string); ok && s != "" {
			parts = append(parts, s)
		}
		for _, key := range []string{"messages", "errors"} {
			if detail := fieldDetails(v[key]); detail != "" {
				parts = append(parts, detail)
			}
		}
		if len(parts) == 0 {
			return fallback
		}
		return strings.Join(parts, " - ")
	default:
		return fallback
	}
}

// fieldDetails flattens a {"field": ["a", "b"]} container. The vendor also
// sends a plain string under "messages" for whole-request failures.
func fieldDetails(container any) string {
	switch c := container.(type) {
	case string:
		return strings.TrimSpace(c)
	case map[string]any:
		fields := make([]string, 0, len(c))
		for field := range c {
			fields = append(fields, field)
		}
		sort.Strings(fields)

		var details []string
		for _, field := range fields {
			if items, ok := c[field].([]any); ok {
				for _, item := range items {
					details = append(details, fmt.Sprintf("%s: %s", field, stringify(item)))
				}
				continue
			}
			details = append(details, fmt.Sprintf("%s: %s", field, stringify(c[field])))
		}
		return strings.Join(details, " | ")
	default:
		return ""
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
