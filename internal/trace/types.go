// Package trace defines the canonical, framework-independent trace model
// produced by the normalizer and annotated by the analyzer.
package trace

// NodeType categorizes the semantic role of one execution step
type NodeType string

const (
	// NodeThought represents internal reasoning
	NodeThought NodeType = "thought"
	// NodeAction represents a tool invocation
	NodeAction NodeType = "action"
	// NodeObservation represents a tool output/result
	NodeObservation NodeType = "observation"
	// NodeOutput represents a final answer
	NodeOutput NodeType = "output"
	// NodeSystem represents system messages, errors and diagnostics
	NodeSystem NodeType = "system"
	// NodeOther is anything that could not be classified
	NodeOther NodeType = "other"
)

// NodeTypes lists every canonical node type in display order.
var NodeTypes = []NodeType{NodeThought, NodeAction, NodeObservation, NodeOutput, NodeSystem, NodeOther}

// Valid reports whether t is one of the canonical node types.
func (t NodeType) Valid() bool {
	switch t {
	case NodeThought, NodeAction, NodeObservation, NodeOutput, NodeSystem, NodeOther:
		return true
	}
	return false
}

// Metrics holds execution metrics extracted from a raw step
type Metrics struct {
	StartTime        *int64 `json:"startTime,omitempty"`
	EndTime          *int64 `json:"endTime,omitempty"`
	DurationMs       *int64 `json:"durationMs,omitempty"`
	PromptTokens     *int   `json:"promptTokens,omitempty"`
	CompletionTokens *int   `json:"completionTokens,omitempty"`
	TotalTokens      *int   `json:"totalTokens,omitempty"`
	Model            string `json:"model,omitempty"`
	IsError          bool   `json:"isError,omitempty"`
	ErrorMessage     string `json:"errorMessage,omitempty"`
	IsSlow           bool   `json:"isSlow,omitempty"`
	IsTokenHeavy     bool   `json:"isTokenHeavy,omitempty"`
}

// LangGraphDetails carries graph-specific fields of a LangGraph step
type LangGraphDetails struct {
	NodeName    string   `json:"nodeName,omitempty"`
	StateBefore any      `json:"stateBefore,omitempty"`
	StateAfter  any      `json:"stateAfter,omitempty"`
	Config      any      `json:"config,omitempty"`
	RunID       string   `json:"runId,omitempty"`
	ThreadID    string   `json:"threadId,omitempty"`
	Checkpoint  any      `json:"checkpoint,omitempty"`
	Edges       []string `json:"edges,omitempty"`
}

// Empty reports whether no LangGraph field was populated.
func (d *LangGraphDetails) Empty() bool {
	return d == nil || (d.NodeName == "" && d.StateBefore == nil && d.StateAfter == nil &&
		d.Config == nil && d.RunID == "" && d.ThreadID == "" && d.Checkpoint == nil && len(d.Edges) == 0)
}

// TraceNode is the canonical unit of a trace
type TraceNode struct {
	ID         string            `json:"id"`
	Type       NodeType          `json:"type"`
	Content    string            `json:"content"`
	Timestamp  *int64            `json:"timestamp,omitempty"`  // epoch milliseconds
	Confidence *float64          `json:"confidence,omitempty"` // 0..1
	ParentID   *string           `json:"parentId"`             // nil for roots
	Order      int               `json:"order"`
	Metadata   map[string]any    `json:"metadata,omitempty"` // copy of the raw record
	Metrics    *Metrics          `json:"metrics,omitempty"`
	LangGraph  *LangGraphDetails `json:"langGraphDetails,omitempty"`
	Issues     []*TraceIssue     `json:"issues"`
	RiskLevel  RiskLevel         `json:"riskLevel,omitempty"` // output nodes only
}

// Parent returns the parent id or "" for roots.
func (n *TraceNode) Parent() string {
	if n.ParentID == nil {
		return ""
	}
	return *n.ParentID
}

// Stats are aggregate counts computed by the analyzer
type Stats struct {
	TotalNodes   int `json:"totalNodes"`
	TotalActions int `json:"totalActions"`
	TotalErrors  int `json:"totalErrors"`
}

// TraceRun is the complete canonical trace
type TraceRun struct {
	ID              string            `json:"id"`
	Source          string            `json:"source,omitempty"`
	Nodes           []*TraceNode      `json:"nodes"`
	Issues          []*TraceIssue     `json:"issues,omitempty"`
	RiskLevel       RiskLevel         `json:"riskLevel,omitempty"`
	RiskExplanation string            `json:"riskExplanation,omitempty"`
	IssueSummary    map[IssueType]int `json:"issueSummary,omitempty"`
	Stats           *Stats            `json:"stats,omitempty"`
}

// Node returns the node with the given id, or nil.
func (r *TraceRun) Node(id string) *TraceNode {
	for _, n := range r.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}

// Analyzed reports whether the analyzer has annotated the run.
func (r *TraceRun) Analyzed() bool {
	return r.RiskLevel != ""
}

// FieldMapping is a user-supplied override of field locations. Every
// populated path takes priority over the heuristics for that field.
// Paths are dot-separated and may contain key[index] segments.
type FieldMapping struct {
	StepsPath      string `json:"stepsPath,omitempty" yaml:"stepsPath,omitempty" mapstructure:"steps_path"`
	IDField        string `json:"idField,omitempty" yaml:"idField,omitempty" mapstructure:"id_field"`
	ParentIDField  string `json:"parentIdField,omitempty" yaml:"parentIdField,omitempty" mapstructure:"parent_id_field"`
	TypeField      string `json:"typeField,omitempty" yaml:"typeField,omitempty" mapstructure:"type_field"`
	ContentField   string `json:"contentField,omitempty" yaml:"contentField,omitempty" mapstructure:"content_field"`
	TimestampField string `json:"timestampField,omitempty" yaml:"timestampField,omitempty" mapstructure:"timestamp_field"`
}

// IsZero reports whether no field of the mapping is populated.
func (m *FieldMapping) IsZero() bool {
	return m == nil || *m == FieldMapping{}
}
