// Package render exports analyzed runs as diagrams.
package render

import (
	"fmt"
	"strings"

	"github.com/TyphonHill/go-mermaid/diagrams/flowchart"

	"github.com/agenticgokit/agtrace/internal/trace"
)

// maxLabelChars bounds the content excerpt shown in a node.
const maxLabelChars = 60

// MermaidOptions controls the flowchart output.
type MermaidOptions struct {
	// Fence wraps the diagram in a ```mermaid markdown block.
	Fence bool
}

// Mermaid renders a run as a top-down flowchart: one node per trace node,
// shaped and colored by type, linked parent to child. Nodes implicated in
// issues get a red (error) or amber (warning) border.
func Mermaid(run *trace.TraceRun, opts MermaidOptions) string {
	diagram := flowchart.NewFlowchart()
	if opts.Fence {
		diagram.EnableMarkdownFence()
	}
	diagram.SetDirection(flowchart.FlowchartDirectionTopDown)
	diagram.Config.SetHtmlLabels(true)

	if run == nil {
		return diagram.String()
	}

	nodes := make(map[string]*flowchart.Node, len(run.Nodes))
	for _, n := range run.Nodes {
		node := diagram.AddNode(nodeLabel(n))
		applyShape(node, n.Type)
		if style := nodeStyle(n); style != nil {
			node.SetStyle(style)
		}
		if _, dup := nodes[n.ID]; !dup {
			nodes[n.ID] = node
		}
	}

	linked := make(map[[2]string]bool)
	for _, n := range run.Nodes {
		parent := n.Parent()
		if parent == "" || parent == n.ID {
			continue
		}
		from, ok := nodes[parent]
		if !ok {
			// Dangling parents render as roots.
			continue
		}
		key := [2]string{parent, n.ID}
		if linked[key] {
			continue
		}
		linked[key] = true
		diagram.AddLink(from, nodes[n.ID])
	}

	return diagram.String()
}

var labelReplacer = strings.NewReplacer(
	"\r", " ", "\n", " ", "\t", " ",
	`"`, "'", "`", "'",
	"[", "(", "]", ")", "{", "(", "}", ")",
	"<", "‹", ">", "›", "|", "/", "#", "",
)

// nodeLabel builds "<icon> type: excerpt" with duration and issue count
// on extra lines.
func nodeLabel(n *trace.TraceNode) string {
	text := strings.Join(strings.Fields(labelReplacer.Replace(n.Content)), " ")
	if len([]rune(text)) > maxLabelChars {
		text = string([]rune(text)[:maxLabelChars-3]) + "..."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %s", typeIcon(n.Type), n.Type, text)
	if n.Metrics != nil && n.Metrics.DurationMs != nil && *n.Metrics.DurationMs > 0 {
		fmt.Fprintf(&b, "<br/>%dms", *n.Metrics.DurationMs)
	}
	if c := len(n.Issues); c > 0 {
		if c == 1 {
			fmt.Fprintf(&b, "<br/>⚠ 1 issue")
		} else {
			fmt.Fprintf(&b, "<br/>⚠ %d issues", c)
		}
	}
	return b.String()
}

func typeIcon(t trace.NodeType) string {
	switch t {
	case trace.NodeThought:
		return "💭"
	case trace.NodeAction:
		return "🔧"
	case trace.NodeObservation:
		return "👁"
	case trace.NodeOutput:
		return "✅"
	case trace.NodeSystem:
		return "⚙"
	default:
		return "○"
	}
}

func applyShape(node *flowchart.Node, t trace.NodeType) {
	switch t {
	case trace.NodeThought:
		node.SetShape(flowchart.NodeShapeTerminal)
	case trace.NodeAction:
		node.SetShape(flowchart.NodeShapeSubprocess)
	case trace.NodeObservation:
		node.SetShape(flowchart.NodeShapeInputOutput)
	case trace.NodeOutput:
		node.SetShape(flowchart.NodeShapeDecision)
	case trace.NodeSystem:
		node.SetShape(flowchart.NodeShapePrepare)
	default:
		node.SetShape(flowchart.NodeShapeProcess)
	}
}

var typeColors = map[trace.NodeType][2]string{
	trace.NodeThought:     {"#e1f5fe", "#01579b"},
	trace.NodeAction:      {"#e8f5e9", "#1b5e20"},
	trace.NodeObservation: {"#fff3e0", "#e65100"},
	trace.NodeOutput:      {"#f3e5f5", "#4a148c"},
	trace.NodeSystem:      {"#eceff1", "#37474f"},
}

const (
	errorStroke   = "#d32f2f"
	warningStroke = "#f9a825"
)

func nodeStyle(n *trace.TraceNode) *flowchart.NodeStyle {
	colors, known := typeColors[n.Type]
	severity := worstSeverity(n.Issues)
	if !known && severity == "" {
		return nil
	}

	style := flowchart.NewNodeStyle()
	style.StrokeWidth = 1
	if known {
		style.Fill = colors[0]
		style.Stroke = colors[1]
	}
	switch severity {
	case trace.SeverityError:
		style.Stroke = errorStroke
		style.StrokeWidth = 3
	case trace.SeverityWarning:
		style.Stroke = warningStroke
		style.StrokeWidth = 2
	}
	return style
}

func worstSeverity(issues []*trace.TraceIssue) trace.Severity {
	var worst trace.Severity
	for _, issue := range issues {
		if issue.Severity == trace.SeverityError {
			return trace.SeverityError
		}
		worst = trace.SeverityWarning
	}
	return worst
}
