package normalize

import (
	"fmt"
	"strings"
)

// dialectStepKeys are tried before the generic candidates.
var dialectStepKeys = map[Format][]string{
	FormatLangChain: {"intermediate_steps", "steps"},
	FormatLangGraph: {"events", "messages", "runs"},
	FormatOpenAI:    {"tool_calls", "messages"},
}

// LocateError explains why no step array was found.
type LocateError struct {
	SearchedKeys  []string
	AvailableKeys []string
	CustomPath    string
	Empty         bool
	EmptyPath     string
}

func (e *LocateError) Error() string {
	if e.Empty {
		return fmt.Sprintf("Found a steps array at %q but it is empty. Nothing to visualize.", e.EmptyPath)
	}

	var b strings.Builder
	b.WriteString("Could not find an array of steps in this JSON.")
	if e.CustomPath != "" {
		fmt.Fprintf(&b, " The custom steps path %q did not resolve to an array.", e.CustomPath)
	}
	fmt.Fprintf(&b, " Searched keys: %s.", strings.Join(e.SearchedKeys, ", "))
	if len(e.AvailableKeys) > 0 {
		fmt.Fprintf(&b, " Available top-level keys: %s.", strings.Join(e.AvailableKeys, ", "))
	} else {
		b.WriteString(" The document has no top-level keys.")
	}
	b.WriteString(" Use Custom Mapping to point stepsPath at the array that holds your steps.")
	return b.String()
}

// Located is the step array and the path it was found at.
type Located struct {
	Steps []any
	Path  string
}

// LocateSteps finds the array of step-like records in the document. A
// custom path wins when it resolves to an array; otherwise the root array,
// dialect keys, generic keys, key-name substrings, one level of nesting and
// finally the longest array of objects up to depth 3 are tried in order.
func LocateSteps(root any, format Format, customPath string) (*Located, error) {
	searched := make([]string, 0, len(genericStepKeys)+4)
	seen := make(map[string]bool)
	note := func(key string) {
		if !seen[key] {
			seen[key] = true
			searched = append(searched, key)
		}
	}

	if customPath != "" {
		note(customPath)
		if v, ok := ResolvePath(root, customPath); ok {
			if arr, ok := asSlice(v); ok {
				return located(arr, customPath)
			}
		}
	}

	if arr, ok := asSlice(root); ok {
		return located(arr, "$")
	}

	obj, ok := asMap(root)
	if !ok {
		return nil, &LocateError{SearchedKeys: []string{"(root is not an object or array)"}, CustomPath: customPath}
	}

	for _, key := range dialectStepKeys[format] {
		note(key)
		if arr, ok := nonEmptyArray(obj[key]); ok {
			return located(arr, key)
		}
	}

	for _, key := range genericStepKeys {
		note(key)
		if arr, ok := nonEmptyArray(obj[key]); ok {
			return located(arr, key)
		}
	}

	keys := sortedKeys(obj)
	for _, key := range keys {
		lower := strings.ToLower(key)
		for _, sub := range stepKeySubstrings {
			if strings.Contains(lower, sub) {
				if arr, ok := nonEmptyArray(obj[key]); ok {
					return located(arr, key)
				}
			}
		}
	}
	for _, sub := range stepKeySubstrings {
		note("*" + sub + "*")
	}

	for _, key := range keys {
		nested, ok := asMap(obj[key])
		if !ok {
			continue
		}
		for _, candidate := range genericStepKeys {
			if arr, ok := nonEmptyArray(nested[candidate]); ok {
				return located(arr, key+"."+candidate)
			}
		}
	}
	note("<nested>.<candidate>")

	var best []any
	var bestPath string
	collectArrays(obj, "", 1, func(path string, arr []any) {
		if len(arr) == 0 || len(arr) <= len(best) {
			return
		}
		if _, ok := asMap(arr[0]); !ok {
			return
		}
		best, bestPath = arr, path
	})
	if best != nil {
		return located(best, bestPath)
	}

	for _, key := range []string{"steps", "events", "messages"} {
		if arr, ok := asSlice(obj[key]); ok && len(arr) == 0 {
			return nil, &LocateError{Empty: true, EmptyPath: key}
		}
	}

	return nil, &LocateError{SearchedKeys: searched, AvailableKeys: keys, CustomPath: customPath}
}

func located(arr []any, path string) (*Located, error) {
	if len(arr) == 0 {
		return nil, &LocateError{Empty: true, EmptyPath: path}
	}
	return &Located{Steps: arr, Path: path}, nil
}

func nonEmptyArray(v any) ([]any, bool) {
	arr, ok := asSlice(v)
	return arr, ok && len(arr) > 0
}

// collectArrays visits every array reachable through objects up to
// nestedSearchDepth levels, in sorted key order.
func collectArrays(obj map[string]any, prefix string, depth int, visit func(string, []any)) {
	if depth > nestedSearchDepth {
		return
	}
	for _, key := range sortedKeys(obj) {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		switch typed := obj[key].(type) {
		case []any:
			visit(path, typed)
		case map[string]any:
			collectArrays(typed, path, depth+1, visit)
		}
	}
}
