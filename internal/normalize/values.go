package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Short string arrays are rendered one item per line instead of as JSON.
const (
	shortArrayMaxItems = 10
	shortArrayMaxChars = 200
)

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asSlice(v any) ([]any, bool) {
	s, ok := v.([]any)
	return s, ok
}

// isBlank reports whether v carries no usable value.
func isBlank(v any) bool {
	switch typed := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(typed) == ""
	}
	return false
}

// coerceFloat converts a loosely-typed value to float64, handling every
// numeric kind plus json.Number and numeric strings.
func coerceFloat(v any) (float64, bool) {
	var f float64
	switch typed := v.(type) {
	case float64:
		f = typed
	case float32:
		f = float64(typed)
	case int:
		f = float64(typed)
	case int64:
		f = float64(typed)
	case int32:
		f = float64(typed)
	case uint:
		f = float64(typed)
	case uint64:
		f = float64(typed)
	case json.Number:
		parsed, err := typed.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func coerceInt(v any) (int, bool) {
	f, ok := coerceFloat(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// coerceBool handles native bools and "true"/"false" strings.
func coerceBool(v any) (bool, bool) {
	switch typed := v.(type) {
	case bool:
		return typed, true
	case string:
		switch strings.ToLower(strings.TrimSpace(typed)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

// scalarString returns the string form of a scalar; objects and arrays
// are rejected.
func scalarString(v any) (string, bool) {
	switch typed := v.(type) {
	case string:
		s := strings.TrimSpace(typed)
		return s, s != ""
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32), true
	case int, int64, int32, uint, uint64:
		return fmt.Sprintf("%d", typed), true
	case json.Number:
		return typed.String(), true
	case bool:
		return strconv.FormatBool(typed), true
	}
	return "", false
}

// stringify renders any JSON value as display text.
func stringify(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	case []any:
		if lines, ok := shortStringArray(typed); ok {
			return strings.Join(lines, "\n")
		}
		return prettyJSON(typed)
	case map[string]any:
		return prettyJSON(typed)
	}
	if s, ok := scalarString(v); ok {
		return s
	}
	return prettyJSON(v)
}

func shortStringArray(items []any) ([]string, bool) {
	if len(items) == 0 || len(items) > shortArrayMaxItems {
		return nil, false
	}
	lines := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok || len(s) > shortArrayMaxChars {
			return nil, false
		}
		lines = append(lines, s)
	}
	return lines, true
}

func prettyJSON(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimRight(buf.String(), "\n")
}

// cloneValue deep-copies maps and slices of a decoded JSON value.
func cloneValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, item := range typed {
			out[k] = cloneValue(item)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = cloneValue(item)
		}
		return out
	}
	return v
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// firstField returns the first candidate key holding a non-blank value.
func firstField(rec map[string]any, keys ...string) (string, any, bool) {
	for _, key := range keys {
		if v, ok := rec[key]; ok && !isBlank(v) {
			return key, v, true
		}
	}
	return "", nil, false
}

// firstString returns the first candidate key holding a scalar.
func firstString(rec map[string]any, keys ...string) (string, bool) {
	for _, key := range keys {
		if s, ok := scalarString(rec[key]); ok {
			return s, true
		}
	}
	return "", false
}

// hasAny reports whether rec contains at least one of keys, blank or not.
func hasAny(rec map[string]any, keys ...string) bool {
	for _, key := range keys {
		if _, ok := rec[key]; ok {
			return true
		}
	}
	return false
}
