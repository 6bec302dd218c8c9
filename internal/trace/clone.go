package trace

// Clone returns a copy of the node without analyzer annotations.
// Metadata, metrics and LangGraph details are shared; they are read-only
// once the normalizer has produced the node.
func (n *TraceNode) Clone() *TraceNode {
	c := *n
	c.Issues = []*TraceIssue{}
	c.RiskLevel = ""
	return &c
}

// Clone returns a copy of the run with cloned nodes and no analysis results.
func (r *TraceRun) Clone() *TraceRun {
	c := &TraceRun{
		ID:     r.ID,
		Source: r.Source,
		Nodes:  make([]*TraceNode, len(r.Nodes)),
	}
	for i, n := range r.Nodes {
		c.Nodes[i] = n.Clone()
	}
	return c
}
