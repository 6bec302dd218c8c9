package normalize

import "strings"

// Format is the detected dialect of an input document
type Format string

const (
	FormatLangGraph Format = "langgraph"
	FormatLangChain Format = "langchain"
	FormatOpenAI    Format = "openai"
	FormatArray     Format = "array"
	FormatGeneric   Format = "generic"
)

// sampleSize bounds how many array elements the shape heuristics inspect.
const sampleSize = 20

// DetectFormat decides which dialect the document most likely follows.
// Checks run in strict priority order and the first match wins: explicit
// markers first, then schema shape.
func DetectFormat(root any) Format {
	if arr, ok := asSlice(root); ok {
		return detectArrayFormat(arr)
	}

	obj, ok := asMap(root)
	if !ok {
		return FormatGeneric
	}

	switch {
	case isLangGraphObject(obj):
		return FormatLangGraph
	case isLangChainObject(obj):
		return FormatLangChain
	case isOpenAIObject(obj):
		return FormatOpenAI
	}
	return FormatGeneric
}

func isLangGraphObject(obj map[string]any) bool {
	if hasAny(obj, "langgraph_version", "graph_id") {
		return true
	}
	if hasAny(obj, "thread_id") && hasAny(obj, "checkpoint") {
		return true
	}
	for _, key := range []string{"events", "messages", "runs"} {
		if arr, ok := asSlice(obj[key]); ok && anyElement(arr, hasLangGraphMarker) {
			return true
		}
	}
	return false
}

func isLangChainObject(obj map[string]any) bool {
	if hasAny(obj, "langchain_version", "lc_id") {
		return true
	}
	if arr, ok := asSlice(obj["intermediate_steps"]); ok && len(arr) > 0 {
		return true
	}
	if arr, ok := asSlice(obj["steps"]); ok && anyElement(arr, isLangChainStep) {
		return true
	}
	return false
}

func isOpenAIObject(obj map[string]any) bool {
	if hasAny(obj, "choices") {
		return true
	}
	if model, ok := obj["model"].(string); ok && strings.HasPrefix(strings.ToLower(model), "gpt") {
		return true
	}
	if arr, ok := asSlice(obj["tool_calls"]); ok {
		return anyElement(arr, func(v any) bool {
			call, ok := asMap(v)
			return ok && hasAny(call, "id") && hasAny(call, "function")
		})
	}
	return false
}

// detectArrayFormat classifies a root-level array by element schema.
func detectArrayFormat(arr []any) Format {
	if anyElement(arr, isActionTuple) || anyElement(arr, isLangChainStep) {
		return FormatLangChain
	}
	if anyElement(arr, hasLangGraphMarker) {
		return FormatLangGraph
	}
	return FormatArray
}

func hasLangGraphMarker(v any) bool {
	obj, ok := asMap(v)
	if !ok {
		return false
	}
	return hasAny(obj, "node", "langgraph_node", "graph_id", "checkpoint")
}

// isLangChainStep matches the action/tool_input or observation record shape.
func isLangChainStep(v any) bool {
	obj, ok := asMap(v)
	if !ok {
		return false
	}
	if hasAny(obj, "action") && hasAny(obj, "tool_input", "action_input") {
		return true
	}
	return hasAny(obj, "observation")
}

// isActionTuple matches the [action, observation] pair LangChain emits
// for intermediate_steps.
func isActionTuple(v any) bool {
	pair, ok := asSlice(v)
	if !ok || len(pair) != 2 {
		return false
	}
	action, ok := asMap(pair[0])
	if !ok {
		return false
	}
	return hasAny(action, "tool", "tool_input", "log")
}

func anyElement(arr []any, match func(any) bool) bool {
	for i, v := range arr {
		if i >= sampleSize {
			break
		}
		if match(v) {
			return true
		}
	}
	return false
}
