package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, doc string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(doc), &v))
	return v
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want Format
	}{
		{"langgraph version", `{"langgraph_version":"0.2","steps":[]}`, FormatLangGraph},
		{"graph id beats langchain", `{"graph_id":"g","intermediate_steps":[[{"tool":"a"},"b"]]}`, FormatLangGraph},
		{"thread and checkpoint", `{"thread_id":"t","checkpoint":{}}`, FormatLangGraph},
		{"thread alone is not enough", `{"thread_id":"t"}`, FormatGeneric},
		{"events with node markers", `{"events":[{"node":"agent"}]}`, FormatLangGraph},
		{"langchain version", `{"langchain_version":"0.1"}`, FormatLangChain},
		{"intermediate steps", `{"intermediate_steps":[1]}`, FormatLangChain},
		{"empty intermediate steps", `{"intermediate_steps":[]}`, FormatGeneric},
		{"steps with observation", `{"steps":[{"observation":"x"}]}`, FormatLangChain},
		{"openai choices", `{"choices":[]}`, FormatOpenAI},
		{"openai model", `{"model":"GPT-4o-mini"}`, FormatOpenAI},
		{"openai tool calls", `{"tool_calls":[{"id":"c","function":{}}]}`, FormatOpenAI},
		{"array of tuples", `[[{"tool":"a","tool_input":"b"},"c"]]`, FormatLangChain},
		{"array of langchain steps", `[{"action":"a","tool_input":"b"}]`, FormatLangChain},
		{"array with graph markers", `[{"langgraph_node":"agent"}]`, FormatLangGraph},
		{"plain array", `[{"content":"a"}]`, FormatArray},
		{"plain object", `{"steps":[{"content":"a"}]}`, FormatGeneric},
		{"scalar", `"hello"`, FormatGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFormat(decode(t, tt.doc)))
		})
	}
}

func TestLocateSteps(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		format   Format
		custom   string
		wantPath string
		wantLen  int
	}{
		{"root array", `[{"a":1},{"a":2}]`, FormatArray, "", "$", 2},
		{"custom path", `{"x":{"y":[{"a":1}]},"steps":[{"a":1},{"a":2}]}`, FormatGeneric, "x.y", "x.y", 1},
		{"custom path miss falls through", `{"steps":[{"a":1}]}`, FormatGeneric, "nope", "steps", 1},
		{"dialect order", `{"steps":[1],"intermediate_steps":[1,2]}`, FormatLangChain, "", "intermediate_steps", 2},
		{"generic key", `{"history":[{"a":1}]}`, FormatGeneric, "", "history", 1},
		{"empty generic key skipped", `{"steps":[],"logs":[{"a":1}]}`, FormatGeneric, "", "logs", 1},
		{"substring key", `{"agent_steps_v2":[{"a":1}]}`, FormatGeneric, "", "agent_steps_v2", 1},
		{"one level nesting", `{"result":{"nodes":[{"a":1}]}}`, FormatGeneric, "", "result.nodes", 1},
		{"longest nested array", `{"a":{"b":{"short":[{"x":1}],"long":[{"x":1},{"x":2}]}}}`, FormatGeneric, "", "a.b.long", 2},
		{"indexed custom path", `{"runs":[{"events":[{"a":1},{"a":2},{"a":3}]}]}`, FormatGeneric, "runs[0].events", "runs[0].events", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := LocateSteps(decode(t, tt.doc), tt.format, tt.custom)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, loc.Path)
			assert.Len(t, loc.Steps, tt.wantLen)
		})
	}
}

func TestLocateSteps_DepthLimit(t *testing.T) {
	_, err := LocateSteps(decode(t, `{"a":{"b":{"c":{"d":[{"x":1}]}}}}`), FormatGeneric, "")
	var locErr *LocateError
	require.ErrorAs(t, err, &locErr)
	assert.Equal(t, []string{"a"}, locErr.AvailableKeys)
	assert.Contains(t, locErr.SearchedKeys, "steps")
}

func TestResolvePath(t *testing.T) {
	root := decode(t, `{"a":{"b":[{"c":"found"},[10,20]]}}`)

	tests := []struct {
		path   string
		want   any
		wantOK bool
	}{
		{"a.b[0].c", "found", true},
		{"a.b[1][1]", float64(20), true},
		{"a.b[5]", nil, false},
		{"a.x", nil, false},
		{"a.b.c", nil, false},
		{"", nil, false},
		{"a.b[x]", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := ResolvePath(root, tt.path)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		want   int64
		wantOK bool
	}{
		{"millis", float64(1700000000123), 1700000000123, true},
		{"seconds", float64(1700000000), 1700000000000, true},
		{"fractional seconds", 1700000000.5, 1700000000500, true},
		{"numeric string", "1700000000", 1700000000000, true},
		{"rfc3339", "2023-11-14T22:13:20Z", 1700000000000, true},
		{"offset", "2023-11-14T23:13:20+01:00", 1700000000000, true},
		{"space separated", "2023-11-14 22:13:20", 1700000000000, true},
		{"date only", "2023-11-14", 1699920000000, true},
		{"garbage", "yesterday", 0, false},
		{"bool", true, 0, false},
		{"object", map[string]any{}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseTimestamp(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
