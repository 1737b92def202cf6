package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// marshalJSONColumn converts a payload or metadata map to JSON TEXT for
// storage. A nil map stores as "{}" so the column never holds NULL.
// HTML escaping is disabled so stored text matches what callers wrote.
func marshalJSONColumn(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return "", fmt.Errorf("marshal json column: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalJSONColumn parses JSON TEXT from a payload or metadata column.
// Empty and "{}" both decode to an empty non-nil map so callers can index
// the result without a nil check.
func unmarshalJSONColumn(data string) (map[string]any, error) {
	if data == "" || data == "{}" {
		return map[string]any{}, nil
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, fmt.Errorf("unmarshal json column: %w", err)
	}
	return m, nil
}

// emptyIfNil normalizes a nil map to an empty one so freshly written events
// compare equal to their stored form.
func emptyIfNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
