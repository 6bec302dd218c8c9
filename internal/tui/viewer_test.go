package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenticgokit/agtrace/internal/trace"
)

func ptr(s string) *string { return &s }

func sampleRun() *trace.TraceRun {
	return &trace.TraceRun{
		ID:        "run-1",
		Source:    "langchain",
		RiskLevel: trace.RiskHigh,
		Stats:     &trace.Stats{TotalNodes: 4, TotalActions: 1},
		Nodes: []*trace.TraceNode{
			{ID: "a", Type: trace.NodeThought, Content: "find flights", Order: 0},
			{ID: "b", Type: trace.NodeAction, Content: "search_flights(NYC)", Order: 1, ParentID: ptr("a")},
			{ID: "c", Type: trace.NodeObservation, Content: "[]", Order: 2, ParentID: ptr("b"),
				Issues: []*trace.TraceIssue{{Type: trace.IssueEmptyResult, Severity: trace.SeverityWarning, Title: "Empty result"}}},
			{ID: "d", Type: trace.NodeOutput, Content: "Booked!", Order: 3, ParentID: ptr("missing")},
		},
	}
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestBuildNodeTree(t *testing.T) {
	roots := BuildNodeTree(sampleRun())
	require.Len(t, roots, 2)
	assert.Equal(t, "a", roots[0].Node.ID)
	assert.Equal(t, "d", roots[1].Node.ID, "dangling parent becomes a root")

	require.Len(t, roots[0].Children, 1)
	b := roots[0].Children[0]
	assert.Equal(t, 1, b.Depth)
	require.Len(t, b.Children, 1)
	assert.Equal(t, 2, b.Children[0].Depth)
	assert.Same(t, b, b.Children[0].Parent)
}

func TestBuildNodeTreeBreaksCycles(t *testing.T) {
	run := &trace.TraceRun{Nodes: []*trace.TraceNode{
		{ID: "x", Order: 0, ParentID: ptr("z")},
		{ID: "y", Order: 1, ParentID: ptr("x")},
		{ID: "z", Order: 2, ParentID: ptr("y")},
		{ID: "self", Order: 3, ParentID: ptr("self")},
	}}
	roots := BuildNodeTree(run)

	assert.Len(t, FlattenAll(roots), 4, "every node is reachable exactly once")
	var ids []string
	for _, r := range roots {
		ids = append(ids, r.Node.ID)
	}
	assert.Contains(t, ids, "self")
}

func TestBuildNodeTreeNil(t *testing.T) {
	assert.Nil(t, BuildNodeTree(nil))
}

func TestFlattenTreeRespectsExpanded(t *testing.T) {
	roots := BuildNodeTree(sampleRun())
	assert.Len(t, FlattenTree(roots), 4)

	roots[0].ToggleExpanded()
	visible := FlattenTree(roots)
	require.Len(t, visible, 2)
	assert.Equal(t, "d", visible[1].Node.ID)
	assert.Len(t, FlattenAll(roots), 4)
}

func TestLabel(t *testing.T) {
	tn := &TreeNode{Node: &trace.TraceNode{Type: trace.NodeAction, Content: "call   the\n api with a long argument"}}
	label := tn.Label(12)
	assert.True(t, strings.HasPrefix(label, "🔧 action: "))
	assert.True(t, strings.HasSuffix(label, "..."))
	assert.NotContains(t, label, "\n")
}

func TestJumpToNextIssue(t *testing.T) {
	m := NewTraceViewer(sampleRun())
	require.Equal(t, "a", m.Selected().ID)

	updated, _ := m.Update(key("e"))
	m = updated.(Model)
	assert.Equal(t, "c", m.Selected().ID)

	// wraps around to the only issue node
	updated, _ = m.Update(key("e"))
	m = updated.(Model)
	assert.Equal(t, "c", m.Selected().ID)
}

func TestJumpToIssueExpandsAncestors(t *testing.T) {
	m := NewTraceViewer(sampleRun())
	m.roots[0].Expanded = false
	m.visibleNodes = FlattenTree(m.roots)

	updated, _ := m.Update(key("e"))
	m = updated.(Model)
	assert.Equal(t, "c", m.Selected().ID)
	assert.True(t, m.roots[0].Expanded)
}

func TestSearch(t *testing.T) {
	m := NewTraceViewer(sampleRun())

	var model tea.Model = m
	for _, msg := range []tea.Msg{key("/"), key("book"), tea.KeyMsg{Type: tea.KeyEnter}} {
		model, _ = model.Update(msg)
	}
	m = model.(Model)

	assert.False(t, m.searchMode)
	require.Len(t, m.searchMatches, 1)
	assert.Equal(t, "d", m.Selected().ID)
}

func TestNavigationAndFold(t *testing.T) {
	m := NewTraceViewer(sampleRun())

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = updated.(Model)
	assert.Equal(t, "b", m.Selected().ID)

	updated, _ = m.Update(key("h"))
	m = updated.(Model)
	assert.Len(t, m.visibleNodes, 3, "collapsing b hides c")

	updated, _ = m.Update(key("h"))
	m = updated.(Model)
	assert.Equal(t, "a", m.Selected().ID, "h on a collapsed node moves to its parent")
}

func TestDetailViewTabs(t *testing.T) {
	m := NewTraceViewer(sampleRun())

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	assert.Equal(t, DetailView, m.viewMode)

	updated, _ = m.Update(key("3"))
	m = updated.(Model)
	assert.Equal(t, TabIssues, m.selectedTab)

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(Model)
	assert.Equal(t, TreeView, m.viewMode)
}

func TestView(t *testing.T) {
	m := NewTraceViewer(sampleRun())
	assert.Equal(t, "Loading...", m.View())

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = updated.(Model)
	out := m.View()
	assert.Contains(t, out, "run-1")
	assert.Contains(t, out, "HIGH")
	assert.Contains(t, out, "find flights")
}

func TestRenderTabs(t *testing.T) {
	d := int64(1200)
	node := &trace.TraceNode{
		ID:       "n1",
		Type:     trace.NodeAction,
		Content:  "pay(42)",
		Metadata: map[string]any{"tool": "pay", "args": map[string]any{"amount": 42}},
		Metrics:  &trace.Metrics{DurationMs: &d, IsSlow: true},
	}

	assert.Contains(t, renderOverview(node), "n1")
	assert.Contains(t, renderMetrics(node), "1200ms")
	assert.Contains(t, renderMetrics(node), "slow")
	assert.Contains(t, renderMetadata(node.Metadata), "amount")
	assert.Contains(t, renderIssues(node), "No issues")
	assert.Contains(t, renderMetrics(&trace.TraceNode{}), "No metrics")
}
