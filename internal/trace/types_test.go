package trace

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRiskLevelRank(t *testing.T) {
	tests := []struct {
		level RiskLevel
		want  int
	}{
		{RiskLow, 1},
		{RiskMedium, 2},
		{RiskHigh, 3},
		{RiskLevel("extreme"), 0},
		{RiskLevel(""), 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			if got := tt.level.Rank(); got != tt.want {
				t.Errorf("Rank() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestIssueTypeValid(t *testing.T) {
	assert.Len(t, IssueTypes, 9)
	for _, it := range IssueTypes {
		assert.True(t, it.Valid(), it)
	}
	assert.False(t, IssueType("hallucination").Valid())
}

func TestNodeParentSerializesNull(t *testing.T) {
	node := &TraceNode{ID: "a", Type: NodeThought, Content: "x"}
	data, err := json.Marshal(node)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"parentId":null`)
	assert.Equal(t, "", node.Parent())
}

func TestCloneDropsAnnotations(t *testing.T) {
	parent := "a"
	run := &TraceRun{
		ID: "run",
		Nodes: []*TraceNode{
			{ID: "a", Type: NodeAction, Issues: []*TraceIssue{{ID: "i"}}},
			{ID: "b", Type: NodeOutput, ParentID: &parent, RiskLevel: RiskHigh},
		},
		RiskLevel: RiskHigh,
	}

	c := run.Clone()
	require.Len(t, c.Nodes, 2)
	assert.Empty(t, c.Nodes[0].Issues)
	assert.Equal(t, RiskLevel(""), c.Nodes[1].RiskLevel)
	assert.Equal(t, "a", c.Nodes[1].Parent())
	assert.False(t, c.Analyzed())
	// original untouched
	assert.Len(t, run.Nodes[0].Issues, 1)
}

func TestFieldMappingIsZero(t *testing.T) {
	var m *FieldMapping
	assert.True(t, m.IsZero())
	assert.True(t, (&FieldMapping{}).IsZero())
	assert.False(t, (&FieldMapping{ContentField: "body"}).IsZero())
}
