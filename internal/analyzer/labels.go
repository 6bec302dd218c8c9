package analyzer

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/agenticgokit/agtrace/internal/trace"
)

// labels are the position-independent classifications of one node.
type labels struct {
	errorObservation bool
	emptyResult      bool
	commitAction     bool
	speculative      bool
	successOutput    bool
	errorIndicator   bool
	tool             string
	input            string
}

func labelNode(n *trace.TraceNode) labels {
	l := labels{
		errorIndicator:   hasErrorIndicators(n),
		errorObservation: n.Metrics != nil && n.Metrics.IsError,
	}
	if n.Type == trace.NodeAction || n.Type == trace.NodeObservation {
		l.tool = toolName(n)
	}
	if n.Type == trace.NodeAction {
		l.input = toolInput(n, l.tool)
	}

	switch n.Type {
	case trace.NodeObservation:
		l.errorObservation = l.errorObservation || ErrorPatterns.Match(n.Content)
		l.emptyResult = !l.errorObservation && isEmptyResult(n)
	case trace.NodeAction:
		l.commitAction = CommitPatterns.Match(splitIdentifier(l.tool)) || CommitPatterns.Match(splitIdentifier(n.Content))
	case trace.NodeThought:
		l.speculative = SpeculativePatterns.Match(n.Content)
	case trace.NodeOutput:
		l.speculative = SpeculativePatterns.Match(n.Content)
		l.successOutput = SuccessPatterns.Match(n.Content)
	}
	return l
}

// resultFields may hold the raw tool output in node metadata.
var resultFields = []string{"observation", "result", "output", "tool_output", "data", "results", "content"}

func isEmptyResult(n *trace.TraceNode) bool {
	content := strings.TrimSpace(n.Content)
	if content == "" || EmptyPatterns.Match(content) {
		return true
	}
	if (strings.HasPrefix(content, "{") || strings.HasPrefix(content, "[")) && len(content) < 4096 {
		var v any
		if json.Unmarshal([]byte(content), &v) == nil && structurallyEmpty(v) {
			return true
		}
	}
	for _, field := range resultFields {
		v, ok := n.Metadata[field]
		if !ok {
			continue
		}
		switch typed := v.(type) {
		case nil:
			return true
		case []any:
			return len(typed) == 0
		case map[string]any:
			return structurallyEmpty(typed)
		}
		return false
	}
	return false
}

// structurallyEmpty is true for empty arrays and objects, and for objects
// whose every value is empty.
func structurallyEmpty(v any) bool {
	switch typed := v.(type) {
	case nil:
		return true
	case []any:
		return len(typed) == 0
	case map[string]any:
		for _, item := range typed {
			switch inner := item.(type) {
			case nil:
			case []any:
				if len(inner) > 0 {
					return false
				}
			case map[string]any:
				if len(inner) > 0 {
					return false
				}
			default:
				return false
			}
		}
		return true
	}
	return false
}

var errorStatuses = map[string]bool{"error": true, "failed": true, "failure": true}

// hasErrorIndicators checks the node's raw metadata and metrics for an
// explicit error, independent of the content patterns.
func hasErrorIndicators(n *trace.TraceNode) bool {
	if n.Metrics != nil && n.Metrics.IsError {
		return true
	}
	meta := n.Metadata
	if meta == nil {
		return false
	}
	for _, key := range []string{"error", "exception", "failure", "error_message", "errorMessage"} {
		switch v := meta[key].(type) {
		case nil:
		case bool:
			if v {
				return true
			}
		case string:
			if strings.TrimSpace(v) != "" {
				return true
			}
		default:
			return true
		}
	}
	for _, key := range []string{"status", "level", "severity"} {
		if s, ok := meta[key].(string); ok && errorStatuses[strings.ToLower(strings.TrimSpace(s))] {
			return true
		}
	}
	if b, ok := meta["success"].(bool); ok && !b {
		return true
	}
	if b, ok := meta["is_error"].(bool); ok && b {
		return true
	}
	return false
}

var contentToolPrefix = regexp.MustCompile(`^\s*([A-Za-z_][\w.\-]{0,63})\s*[:(]`)

// toolName returns the tool a node invokes or reports on.
func toolName(n *trace.TraceNode) string {
	meta := n.Metadata
	for _, key := range []string{"tool", "tool_name", "toolName", "name"} {
		if s, ok := meta[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	switch action := meta["action"].(type) {
	case string:
		if strings.TrimSpace(action) != "" {
			return strings.TrimSpace(action)
		}
	case map[string]any:
		for _, key := range []string{"tool", "tool_name", "name"} {
			if s, ok := action[key].(string); ok && s != "" {
				return s
			}
		}
	}
	if fn := functionCall(meta); fn != nil {
		if s, ok := fn["name"].(string); ok && s != "" {
			return s
		}
	}
	if n.Type == trace.NodeAction {
		if m := contentToolPrefix.FindStringSubmatch(n.Content); m != nil {
			return m[1]
		}
	}
	return ""
}

// toolInput returns the arguments an action passes to its tool.
func toolInput(n *trace.TraceNode, tool string) string {
	meta := n.Metadata
	for _, key := range []string{"tool_input", "action_input", "input", "args", "arguments", "parameters"} {
		if v, ok := meta[key]; ok {
			return render(v)
		}
	}
	if action, ok := meta["action"].(map[string]any); ok {
		for _, key := range []string{"tool_input", "input", "args"} {
			if v, ok := action[key]; ok {
				return render(v)
			}
		}
	}
	if fn := functionCall(meta); fn != nil {
		return render(fn["arguments"])
	}
	if tool != "" {
		content := strings.TrimSpace(n.Content)
		if rest, ok := strings.CutPrefix(content, tool); ok {
			return strings.TrimSpace(strings.TrimLeft(rest, ":( "))
		}
	}
	return ""
}

func functionCall(meta map[string]any) map[string]any {
	if calls, ok := meta["tool_calls"].([]any); ok && len(calls) > 0 {
		if call, ok := calls[0].(map[string]any); ok {
			if fn, ok := call["function"].(map[string]any); ok {
				return fn
			}
		}
	}
	if fn, ok := meta["function_call"].(map[string]any); ok {
		return fn
	}
	return nil
}

// render turns an argument value into comparable text; empty containers
// render as "".
func render(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		s := strings.TrimSpace(typed)
		if s == "{}" || s == "[]" || s == "null" {
			return ""
		}
		return s
	case []any:
		if len(typed) == 0 {
			return ""
		}
	case map[string]any:
		if len(typed) == 0 {
			return ""
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
