package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agenticgokit/agtrace/internal/trace"
)

// TreeNode is a trace node placed in the parent/child hierarchy
type TreeNode struct {
	Node     *trace.TraceNode
	Children []*TreeNode
	Depth    int
	Expanded bool
	Parent   *TreeNode
}

// BuildNodeTree arranges run nodes under their parents. Nodes without a
// parent, with a dangling parent id, or caught in a parent cycle become
// roots. Siblings keep trace order.
func BuildNodeTree(run *trace.TraceRun) []*TreeNode {
	if run == nil {
		return nil
	}

	nodes := make([]*TreeNode, len(run.Nodes))
	byID := make(map[string]*TreeNode, len(run.Nodes))
	for i, n := range run.Nodes {
		nodes[i] = &TreeNode{Node: n, Expanded: true}
		if _, dup := byID[n.ID]; !dup {
			byID[n.ID] = nodes[i]
		}
	}

	var roots []*TreeNode
	for _, tn := range nodes {
		parent, ok := byID[tn.Node.Parent()]
		if !ok || parent == tn || createsCycle(tn, parent) {
			roots = append(roots, tn)
			continue
		}
		tn.Parent = parent
		parent.Children = append(parent.Children, tn)
	}

	sortByOrder(roots)
	for _, root := range roots {
		setDepths(root, 0)
	}
	return roots
}

// createsCycle reports whether attaching child under parent would loop.
func createsCycle(child, parent *TreeNode) bool {
	for p := parent; p != nil; p = p.Parent {
		if p == child {
			return true
		}
	}
	return false
}

func setDepths(node *TreeNode, depth int) {
	node.Depth = depth
	sortByOrder(node.Children)
	for _, child := range node.Children {
		setDepths(child, depth+1)
	}
}

func sortByOrder(nodes []*TreeNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Node.Order < nodes[j].Node.Order
	})
}

// FlattenTree returns a flat list of visible nodes for display
func FlattenTree(roots []*TreeNode) []*TreeNode {
	var result []*TreeNode
	for _, root := range roots {
		flattenNode(root, &result)
	}
	return result
}

func flattenNode(node *TreeNode, result *[]*TreeNode) {
	*result = append(*result, node)
	if node.Expanded {
		for _, child := range node.Children {
			flattenNode(child, result)
		}
	}
}

// HasChildren returns true if the node has children
func (n *TreeNode) HasChildren() bool {
	return len(n.Children) > 0
}

// ToggleExpanded toggles the expanded state
func (n *TreeNode) ToggleExpanded() {
	n.Expanded = !n.Expanded
}

// HasIssues reports whether the analyzer attached issues to the node.
func (n *TreeNode) HasIssues() bool {
	return len(n.Node.Issues) > 0
}

// DurationMs returns the node's duration or 0.
func (n *TreeNode) DurationMs() int64 {
	if m := n.Node.Metrics; m != nil && m.DurationMs != nil {
		return *m.DurationMs
	}
	return 0
}

var typeIcons = map[trace.NodeType]string{
	trace.NodeThought:     "💭",
	trace.NodeAction:      "🔧",
	trace.NodeObservation: "👁",
	trace.NodeOutput:      "✅",
	trace.NodeSystem:      "⚙",
}

// Label returns a one-line display name for the node.
func (n *TreeNode) Label(maxLen int) string {
	icon, ok := typeIcons[n.Node.Type]
	if !ok {
		icon = "○"
	}
	content := strings.Join(strings.Fields(n.Node.Content), " ")
	if r := []rune(content); maxLen > 3 && len(r) > maxLen {
		content = string(r[:maxLen-3]) + "..."
	}
	return fmt.Sprintf("%s %s: %s", icon, n.Node.Type, content)
}

// matches reports whether the node's id, type, content or metadata
// contains the lowercased query.
func (n *TreeNode) matches(query string) bool {
	if strings.Contains(strings.ToLower(n.Node.ID), query) ||
		strings.Contains(string(n.Node.Type), query) ||
		strings.Contains(strings.ToLower(n.Node.Content), query) {
		return true
	}
	for k, v := range n.Node.Metadata {
		if strings.Contains(strings.ToLower(k), query) {
			return true
		}
		if strings.Contains(strings.ToLower(fmt.Sprintf("%v", v)), query) {
			return true
		}
	}
	for _, issue := range n.Node.Issues {
		if strings.Contains(string(issue.Type), query) {
			return true
		}
	}
	return false
}
