// Package normalize turns the vendor's loosely shaped list payloads into row
// slices and flat, export-ready records.
package normalize

import (
	"errors"
	"fmt"
	"sort"
)

// Row is one decoded upstream record.
type Row = map[string]any

type EnvelopeKind int

const (
	KindUnknown EnvelopeKind = iota
	// KindArray is a bare JSON array of records.
	KindArray
	// KindRows is {"total": n, "rows": [...]}, the vendor's list shape.
	KindRows
	// KindDataRows is {"data": {"rows": [...]}}, a relay result re-wrapped.
	KindDataRows
	// KindDataArray is {"data": [...]}, optionally with "success": true.
	KindDataArray
)

func (k EnvelopeKind) String() string {
	switch k {
	case KindArray:
		return "array"
	case KindRows:
		return "rows"
	case KindDataRows:
		return "data.rows"
	case KindDataArray:
		return "data"
	default:
		return "unknown"
	}
}

var ErrUnrecognizedEnvelope = errors.New("unrecognized list envelope")

// Envelope is a list payload decoded into one of the known shapes.
type Envelope struct {
	Kind EnvelopeKind
	Rows []Row
	// Skipped counts array elements that were not JSON objects.
	Skipped int
}

// DecodeEnvelope classifies payload. Anything outside the known shapes is
// reported as ErrUnrecognizedEnvelope instead of being read as empty.
func DecodeEnvelope(payload any) (Envelope, error) {
	switch p := payload.(type) {
	case []any:
		return newEnvelope(KindArray, p), nil
	case []Row:
		return Envelope{Kind: KindArray, Rows: p}, nil
	case map[string]any:
		if rows, ok := p["rows"].([]any); ok {
			return newEnvelope(KindRows, rows), nil
		}
		switch data := p["data"].(type) {
		case map[string]any:
			if rows, ok := data["rows"].([]any); ok {
				return newEnvelope(KindDataRows, rows), nil
			}
		case []any:
			return newEnvelope(KindDataArray, data), nil
		}
		return Envelope{}, fmt.Errorf("%w: object with keys %v", ErrUnrecognizedEnvelope, keys(p))
	case nil:
		return Envelope{}, fmt.Errorf("%w: empty payload", ErrUnrecognizedEnvelope)
	default:
		return Envelope{}, fmt.Errorf("%w: %T", ErrUnrecognizedEnvelope, payload)
	}
}

// ExtractRows returns the records of a known envelope, or nil when the
// payload has none of the known shapes.
func ExtractRows(payload any) []Row {
	env, err := DecodeEnvelope(payload)
	if err != nil {
		return nil
	}
	return env.Rows
}

func newEnvelope(kind EnvelopeKind, items []any) Envelope {
	env := Envelope{Kind: kind, Rows: make([]Row, 0, len(items))}
	for _, item := range items {
		row, ok := item.(map[string]any)
		if !ok {
			env.Skipped++
			continue
		}
		env.Rows = append(env.Rows, row)
	}
	return env
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
