package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenticgokit/agtrace/internal/analyzer"
	"github.com/agenticgokit/agtrace/internal/normalize"
)

const bookingTrace = `{
  "intermediate_steps": [
    [{"tool": "search_flights", "tool_input": "NYC", "log": "search_flights: NYC"}, "[]"],
    [{"tool": "book_flight", "tool_input": "FL-1", "log": "book_flight: FL-1"}, "Booking confirmed | ref 42"]
  ],
  "output": "Your flight is booked!"
}`

func analyzedReport(t *testing.T, doc string) *Report {
	t.Helper()
	res := normalize.New().ParseBytes([]byte(doc))
	if !res.Success {
		return New("trace.json", res, nil)
	}
	return New("trace.json", res, analyzer.Analyze(res.Trace))
}

func TestGenerateFormats(t *testing.T) {
	rep := analyzedReport(t, bookingTrace)
	require.True(t, rep.Success)

	tests := []struct {
		format string
		want   []string
	}{
		{"console", []string{"TRACE ANALYSIS: trace.json", "HIGH", "commit_after_empty", "Nodes:"}},
		{"markdown", []string{"# Trace Analysis: trace.json", "**HIGH**", "## Issues", "`commit_after_empty`", "## Steps", `ref 42`, `\|`}},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, NewReporter(tt.format).Generate(rep, &buf))
			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestGenerateJSON(t *testing.T) {
	rep := analyzedReport(t, bookingTrace)

	var buf bytes.Buffer
	require.NoError(t, NewReporter("json").Generate(rep, &buf))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, true, decoded["success"])
	run, ok := decoded["trace"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "high", run["riskLevel"])
}

func TestGenerateFailedParse(t *testing.T) {
	rep := analyzedReport(t, `{"unrelated_key": 1}`)
	require.False(t, rep.Success)

	for _, format := range []string{"console", "markdown"} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, NewReporter(format).Generate(rep, &buf))
			assert.Contains(t, buf.String(), "Custom Mapping")
		})
	}
}

func TestGenerateUnsupportedFormat(t *testing.T) {
	err := NewReporter("pdf").Generate(&Report{}, &bytes.Buffer{})
	assert.EqualError(t, err, "unsupported format: pdf")
}

func TestIssuesBySeverity(t *testing.T) {
	rep := analyzedReport(t, bookingTrace)
	errs, warns := rep.IssuesBySeverity()
	assert.NotEmpty(t, errs)
	for _, issue := range errs {
		assert.Equal(t, "error", string(issue.Severity))
	}
	for _, issue := range warns {
		assert.Equal(t, "warning", string(issue.Severity))
	}
}
