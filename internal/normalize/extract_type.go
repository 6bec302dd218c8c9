package normalize

import (
	"regexp"
	"strings"

	"github.com/agenticgokit/agtrace/internal/trace"
)

// typeSynonyms maps free-form type labels onto canonical node types.
var typeSynonyms = map[string]trace.NodeType{
	"thought":         trace.NodeThought,
	"thinking":        trace.NodeThought,
	"think":           trace.NodeThought,
	"reasoning":       trace.NodeThought,
	"reason":          trace.NodeThought,
	"plan":            trace.NodeThought,
	"planning":        trace.NodeThought,
	"reflection":      trace.NodeThought,
	"llm":             trace.NodeThought,
	"chat_model":      trace.NodeThought,
	"on_llm_start":    trace.NodeThought,
	"on_llm_end":      trace.NodeThought,
	"assistant":       trace.NodeThought,
	"action":          trace.NodeAction,
	"act":             trace.NodeAction,
	"tool":            trace.NodeAction,
	"tool_call":       trace.NodeAction,
	"tool_use":        trace.NodeAction,
	"function_call":   trace.NodeAction,
	"call":            trace.NodeAction,
	"invoke":          trace.NodeAction,
	"agent_action":    trace.NodeAction,
	"tool_start":      trace.NodeAction,
	"on_tool_start":   trace.NodeAction,
	"observation":     trace.NodeObservation,
	"tool_result":     trace.NodeObservation,
	"tool_output":     trace.NodeObservation,
	"tool_response":   trace.NodeObservation,
	"function_result": trace.NodeObservation,
	"result":          trace.NodeObservation,
	"tool_end":        trace.NodeObservation,
	"on_tool_end":     trace.NodeObservation,
	"retriever":       trace.NodeObservation,
	"retrieval":       trace.NodeObservation,
	"output":          trace.NodeOutput,
	"final":           trace.NodeOutput,
	"final_answer":    trace.NodeOutput,
	"answer":          trace.NodeOutput,
	"response":        trace.NodeOutput,
	"finish":          trace.NodeOutput,
	"agent_finish":    trace.NodeOutput,
	"on_agent_finish": trace.NodeOutput,
	"completion":      trace.NodeOutput,
	"end":             trace.NodeOutput,
	"system":          trace.NodeSystem,
	"error":           trace.NodeSystem,
	"exception":       trace.NodeSystem,
	"log":             trace.NodeSystem,
	"debug":           trace.NodeSystem,
	"warning":         trace.NodeSystem,
	"info":            trace.NodeSystem,
	"status":          trace.NodeSystem,
	"setup":           trace.NodeSystem,
	"init":            trace.NodeSystem,
	"start":           trace.NodeSystem,
	"other":           trace.NodeOther,
}

// contentTypeRules is the last-resort classification by content.
var contentTypeRules = []struct {
	pattern *regexp.Regexp
	typ     trace.NodeType
}{
	{regexp.MustCompile(`(?i)\b(error|exception|traceback|fatal)\b`), trace.NodeSystem},
	{regexp.MustCompile(`(?i)\b(calling|executing|invoking|searching|running)\s+\S+`), trace.NodeAction},
	{regexp.MustCompile(`(?i)\b(returned|found)\b|\bresults?:`), trace.NodeObservation},
	{regexp.MustCompile(`(?i)final answer|\btherefore\b|the answer is`), trace.NodeOutput},
	{regexp.MustCompile(`(?i)\bi need to\b|\blet me\b|\bthinking\b|\bi should\b|\bi will\b`), trace.NodeThought},
}

// lookupTypeLabel maps a raw label onto a node type through the synonym
// table. Case, dashes and spaces are ignored.
func lookupTypeLabel(label string) (trace.NodeType, bool) {
	key := strings.ToLower(strings.TrimSpace(label))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	if key == "" {
		return "", false
	}
	t, ok := typeSynonyms[key]
	return t, ok
}

// extractType runs the type fallback chain; content is the already
// extracted node content used by the final regex cascade.
func extractType(s *step, mapping *trace.FieldMapping, content string) trace.NodeType {
	rec := s.record
	chain := []func() (trace.NodeType, bool){
		func() (trace.NodeType, bool) { return customType(s, mapping) },
		func() (trace.NodeType, bool) {
			raw, _ := rec["type"].(string)
			t := trace.NodeType(raw)
			return t, t.Valid()
		},
		func() (trace.NodeType, bool) { return s.forcedType, s.forcedType != "" },
		func() (trace.NodeType, bool) {
			t, ok := compositeKeyTypes[s.subKey]
			return t, ok
		},
		func() (trace.NodeType, bool) { return roleType(rec) },
		func() (trace.NodeType, bool) {
			for _, field := range typeLikeFields {
				if label, ok := rec[field].(string); ok {
					if t, ok := lookupTypeLabel(label); ok {
						return t, true
					}
				}
			}
			return "", false
		},
		func() (trace.NodeType, bool) { return structuralType(rec) },
		func() (trace.NodeType, bool) {
			if role, _ := rec["role"].(string); strings.EqualFold(role, "assistant") {
				if hasToolCalls(rec) {
					return trace.NodeAction, true
				}
				return trace.NodeThought, true
			}
			return "", false
		},
		func() (trace.NodeType, bool) {
			for _, rule := range contentTypeRules {
				if rule.pattern.MatchString(content) {
					return rule.typ, true
				}
			}
			return "", false
		},
	}
	for _, try := range chain {
		if t, ok := try(); ok {
			return t
		}
	}
	return trace.NodeOther
}

func customType(s *step, mapping *trace.FieldMapping) (trace.NodeType, bool) {
	if mapping == nil || mapping.TypeField == "" {
		return "", false
	}
	v, ok := resolveField(s, mapping.TypeField)
	if !ok {
		return "", false
	}
	label, ok := scalarString(v)
	if !ok {
		return "", false
	}
	if t := trace.NodeType(strings.ToLower(label)); t.Valid() {
		return t, true
	}
	return lookupTypeLabel(label)
}

func roleType(rec map[string]any) (trace.NodeType, bool) {
	role, _ := rec["role"].(string)
	switch strings.ToLower(role) {
	case "tool", "function":
		return trace.NodeObservation, true
	case "system":
		return trace.NodeSystem, true
	}
	if hasAny(rec, "tool_call_id") && !isBlank(rec["content"]) {
		return trace.NodeObservation, true
	}
	return "", false
}

func structuralType(rec map[string]any) (trace.NodeType, bool) {
	if hasAny(rec, "action") && hasAny(rec, "tool_input", "action_input") {
		return trace.NodeAction, true
	}
	if hasAny(rec, "observation") {
		return trace.NodeObservation, true
	}
	if hasAny(rec, "final_answer", "answer") {
		return trace.NodeOutput, true
	}
	if final, ok := coerceBool(rec["is_final"]); ok && final {
		return trace.NodeOutput, true
	}
	return "", false
}

func hasToolCalls(rec map[string]any) bool {
	if calls, ok := asSlice(rec["tool_calls"]); ok && len(calls) > 0 {
		return true
	}
	_, ok := asMap(rec["function_call"])
	return ok
}
