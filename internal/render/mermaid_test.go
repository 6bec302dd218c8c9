package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agenticgokit/agtrace/internal/trace"
)

func ptr(s string) *string { return &s }

func sampleRun() *trace.TraceRun {
	return &trace.TraceRun{
		ID: "run-1",
		Nodes: []*trace.TraceNode{
			{ID: "a", Type: trace.NodeThought, Content: "I should search for flights", Issues: []*trace.TraceIssue{}},
			{ID: "b", Type: trace.NodeAction, Content: `search_flights: {"to": "NYC"}`, ParentID: ptr("a"), Issues: []*trace.TraceIssue{}},
			{ID: "c", Type: trace.NodeObservation, Content: "[]", ParentID: ptr("b"),
				Issues: []*trace.TraceIssue{{Type: trace.IssueCommitAfterEmpty, Severity: trace.SeverityError}}},
			{ID: "d", Type: trace.NodeOutput, Content: "Booked!", ParentID: ptr("missing"), Issues: []*trace.TraceIssue{}},
		},
	}
}

func TestMermaid(t *testing.T) {
	out := Mermaid(sampleRun(), MermaidOptions{})

	for _, want := range []string{"thought: I should search for flights", "action: search_flights", "observation: ()", "output: Booked!", "1 issue"} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, `"NYC"`, "quotes must not leak into labels")
	assert.Equal(t, 2, strings.Count(out, "-->"), "dangling parent renders as a root")
	assert.Contains(t, out, errorStroke)
}

func TestMermaidFence(t *testing.T) {
	out := Mermaid(sampleRun(), MermaidOptions{Fence: true})
	assert.Contains(t, out, "```mermaid")
}

func TestMermaidNilRun(t *testing.T) {
	assert.NotPanics(t, func() {
		Mermaid(nil, MermaidOptions{})
	})
}

func TestNodeLabelTruncates(t *testing.T) {
	n := &trace.TraceNode{ID: "x", Type: trace.NodeThought, Content: strings.Repeat("word ", 40)}
	label := nodeLabel(n)
	assert.True(t, strings.HasSuffix(label, "..."))
	assert.LessOrEqual(t, len([]rune(label)), maxLabelChars+len("💭 thought: "))
}

func TestWorstSeverity(t *testing.T) {
	assert.Equal(t, trace.Severity(""), worstSeverity(nil))
	assert.Equal(t, trace.SeverityWarning, worstSeverity([]*trace.TraceIssue{{Severity: trace.SeverityWarning}}))
	assert.Equal(t, trace.SeverityError, worstSeverity([]*trace.TraceIssue{
		{Severity: trace.SeverityWarning}, {Severity: trace.SeverityError},
	}))
}
