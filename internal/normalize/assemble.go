package normalize

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/agenticgokit/agtrace/internal/trace"
)

var (
	sourceFields = []string{"framework", "source", "agent_framework", "library"}
	runIDFields  = []string{"id", "run_id", "trace_id", "thread_id"}
)

// runNamespace seeds deterministic run ids for documents without one.
var runNamespace = uuid.MustParse("6f1c1a52-4f0e-4d55-9a43-5b0d6f3b9e21")

// assemble builds the canonical run from the expanded steps. It returns the
// run and the per-step warnings.
func (n *Normalizer) assemble(root any, format Format, steps []*step) (*trace.TraceRun, []string) {
	var warnings []string

	ids := make([]string, len(steps))
	seen := make(map[string]bool, len(steps))
	for i, s := range steps {
		id := extractID(s, n.mapping)
		for seen[id] {
			id = fmt.Sprintf("%s-%d", id, i)
		}
		seen[id] = true
		ids[i] = id
	}

	parents := buildParentIndex(steps, ids, n.mapping)

	nodes := make([]*trace.TraceNode, 0, len(steps))
	for i, s := range steps {
		content, found := extractContent(s, n.mapping)
		if !found {
			warnings = append(warnings, fmt.Sprintf("Step %d: No content could be extracted", i+1))
		}

		node := &trace.TraceNode{
			ID:       ids[i],
			Type:     extractType(s, n.mapping, content),
			Content:  content,
			ParentID: parents.parentOf(i, s, n.mapping),
			Order:    i,
			Metadata: metadataCopy(s.record),
			Issues:   []*trace.TraceIssue{},
		}
		if ts, ok := extractTimestamp(s, n.mapping); ok {
			node.Timestamp = &ts
		}
		if attrs := s.attributes(); attrs != nil {
			if c, ok := extractConfidence(attrs); ok {
				node.Confidence = &c
			}
			node.Metrics = extractMetrics(attrs, n.thresholds)
			node.LangGraph = extractLangGraph(attrs)
		}
		nodes = append(nodes, node)
	}

	run := &trace.TraceRun{
		ID:     runID(root),
		Source: detectSource(root, format),
		Nodes:  nodes,
	}
	return run, warnings
}

func metadataCopy(rec map[string]any) map[string]any {
	out, _ := cloneValue(rec).(map[string]any)
	return out
}

// detectSource prefers an explicit framework label on the document.
func detectSource(root any, format Format) string {
	if obj, ok := asMap(root); ok {
		for _, field := range sourceFields {
			if s, ok := obj[field].(string); ok && !isBlank(s) {
				return s
			}
		}
	}
	return string(format)
}

// runID uses the document's own id when it has one, else a name-based
// UUID of the document so re-parsing yields the same id.
func runID(root any) string {
	if obj, ok := asMap(root); ok {
		if id, ok := firstString(obj, runIDFields...); ok {
			return id
		}
	}
	data, err := json.Marshal(root)
	if err != nil {
		return uuid.NewString()
	}
	return uuid.NewSHA1(runNamespace, data).String()
}

// failedRun is the single system node returned when nothing could be
// normalized.
func failedRun(message string, warnings []string) *trace.TraceRun {
	meta := map[string]any{"error": message}
	if len(warnings) > 0 {
		items := make([]any, len(warnings))
		for i, w := range warnings {
			items[i] = w
		}
		meta["warnings"] = items
	}
	return &trace.TraceRun{
		ID:     "error",
		Source: "error",
		Nodes: []*trace.TraceNode{{
			ID:       "error",
			Type:     trace.NodeSystem,
			Content:  message,
			Order:    0,
			Metadata: meta,
			Issues:   []*trace.TraceIssue{},
		}},
	}
}
