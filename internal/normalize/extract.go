package normalize

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/agenticgokit/agtrace/internal/trace"
)

const emptyStep = "[Empty step]"

// Extractors are total: a missing or malformed value yields ok=false,
// never a panic.

// resolveField applies a custom dot-path to the step record, then to the
// record it was split from.
func resolveField(s *step, path string) (any, bool) {
	if v, ok := ResolvePath(s.record, path); ok && v != nil {
		return v, true
	}
	if s.origin != nil {
		if v, ok := ResolvePath(s.origin, path); ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// rawID is the record's own identifier, before any suffix.
func rawID(s *step, mapping *trace.FieldMapping) (string, bool) {
	if mapping != nil && mapping.IDField != "" {
		if v, ok := resolveField(s, mapping.IDField); ok {
			if id, ok := scalarString(v); ok {
				return id, true
			}
		}
	}
	return firstString(s.hints(), idFields...)
}

// extractID returns the node id before uniqueness is enforced.
func extractID(s *step, mapping *trace.FieldMapping) string {
	if id, ok := rawID(s, mapping); ok {
		return id + s.idSuffix
	}
	return fmt.Sprintf("step-%d%s", s.group, s.idSuffix)
}

// extractContent returns display text and whether anything real was found.
func extractContent(s *step, mapping *trace.FieldMapping) (string, bool) {
	if mapping != nil && mapping.ContentField != "" {
		if v, ok := resolveField(s, mapping.ContentField); ok && !isBlank(v) {
			return stringify(v), true
		}
	}
	if s.hasContent && s.content != "" {
		return s.content, true
	}

	rec := s.record
	tool := toolName(rec)
	for _, field := range contentFields {
		v, ok := rec[field]
		if !ok || isBlank(v) {
			continue
		}
		if m, ok := asMap(v); ok && !isBlank(m["content"]) {
			v = m["content"]
		}
		text := stringify(v)
		if tool != "" && inputFields[field] {
			return tool + ": " + text, true
		}
		return text, true
	}

	if call, ok := firstFunctionCall(rec); ok {
		return call, true
	}
	if tool != "" {
		return tool, true
	}

	leftover := make(map[string]any)
	for key, v := range rec {
		if metaOnlyFields[key] || isBlank(v) {
			continue
		}
		leftover[key] = v
	}
	if len(leftover) > 0 {
		return prettyJSON(leftover), true
	}
	return emptyStep, false
}

// toolName returns the tool a record names, if any.
func toolName(rec map[string]any) string {
	if name, ok := firstString(rec, toolNameFields...); ok {
		return name
	}
	if name, ok := rec["action"].(string); ok {
		return strings.TrimSpace(name)
	}
	return ""
}

// firstFunctionCall renders the first OpenAI-style tool call as
// "name: arguments".
func firstFunctionCall(rec map[string]any) (string, bool) {
	var fn map[string]any
	if calls, ok := asSlice(rec["tool_calls"]); ok && len(calls) > 0 {
		if call, ok := asMap(calls[0]); ok {
			fn, _ = asMap(call["function"])
		}
	}
	if fn == nil {
		fn, _ = asMap(rec["function_call"])
	}
	if fn == nil {
		return "", false
	}
	name, _ := firstString(fn, "name")
	args, hasArgs := fn["arguments"]
	switch {
	case name != "" && hasArgs && !isBlank(args):
		return name + ": " + stringify(args), true
	case name != "":
		return name, true
	}
	return "", false
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02",
}

// parseTimestamp normalizes numbers and date strings to epoch millis.
// Values above 1e12 are millis, above 1e9 seconds; smaller numbers are
// taken as millis.
func parseTimestamp(v any) (int64, bool) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return parseTimestamp(f)
		}
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UnixMilli(), true
			}
		}
		return 0, false
	}

	f, ok := coerceFloat(v)
	if !ok {
		return 0, false
	}
	switch {
	case f > 1e12:
		return int64(f), true
	case f > 1e9:
		return int64(f * 1000), true
	}
	return int64(f), true
}

func extractTimestamp(s *step, mapping *trace.FieldMapping) (int64, bool) {
	if mapping != nil && mapping.TimestampField != "" {
		if v, ok := resolveField(s, mapping.TimestampField); ok {
			if ts, ok := parseTimestamp(v); ok {
				return ts, true
			}
		}
	}
	for _, rec := range []map[string]any{s.record, s.origin} {
		if rec == nil {
			continue
		}
		for _, field := range timestampFields {
			if v, ok := rec[field]; ok && !isBlank(v) {
				if ts, ok := parseTimestamp(v); ok {
					return ts, true
				}
			}
		}
	}
	return 0, false
}

// extractConfidence rescales percentages to [0,1].
func extractConfidence(rec map[string]any) (float64, bool) {
	for _, field := range confidenceField {
		f, ok := coerceFloat(rec[field])
		if !ok {
			continue
		}
		if f < 0 {
			return 0, false
		}
		if f > 1 {
			f /= 100
		}
		if f > 1 {
			f = 1
		}
		return f, true
	}
	return 0, false
}
