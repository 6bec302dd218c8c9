package normalize

import (
	"strings"

	"github.com/agenticgokit/agtrace/internal/trace"
)

// Thresholds drive the derived metric flags.
type Thresholds struct {
	SlowMs     int64 `mapstructure:"slow_threshold_ms" toml:"slow_threshold_ms"`
	TokenHeavy int   `mapstructure:"token_heavy_threshold" toml:"token_heavy_threshold"`
}

// DefaultThresholds flags steps slower than 3s or heavier than 2000 tokens.
func DefaultThresholds() Thresholds {
	return Thresholds{SlowMs: 3000, TokenHeavy: 2000}
}

// usageContainers may hold a usage object one level down.
var usageContainers = []string{"llm_output", "response_metadata", "metadata"}

var errorStatuses = map[string]bool{"error": true, "failed": true, "failure": true}

func extractMetrics(rec map[string]any, th Thresholds) *trace.Metrics {
	if rec == nil {
		return nil
	}
	m := &trace.Metrics{}
	set := false

	if _, v, ok := firstField(rec, startTimeFields...); ok {
		if ts, ok := parseTimestamp(v); ok {
			m.StartTime = &ts
			set = true
		}
	}
	if _, v, ok := firstField(rec, endTimeFields...); ok {
		if ts, ok := parseTimestamp(v); ok {
			m.EndTime = &ts
			set = true
		}
	}
	if _, v, ok := firstField(rec, durationFields...); ok {
		if f, ok := coerceFloat(v); ok && f >= 0 {
			d := int64(f)
			m.DurationMs = &d
			set = true
		}
	}
	if m.DurationMs == nil && m.StartTime != nil && m.EndTime != nil && *m.EndTime >= *m.StartTime {
		d := *m.EndTime - *m.StartTime
		m.DurationMs = &d
	}

	if usage := findUsage(rec); usage != nil {
		set = applyUsage(m, usage) || set
	}
	if m.PromptTokens == nil && m.CompletionTokens == nil && m.TotalTokens == nil {
		set = applyUsage(m, rec) || set
	}
	if m.TotalTokens == nil && (m.PromptTokens != nil || m.CompletionTokens != nil) {
		total := 0
		if m.PromptTokens != nil {
			total += *m.PromptTokens
		}
		if m.CompletionTokens != nil {
			total += *m.CompletionTokens
		}
		m.TotalTokens = &total
	}

	if model, ok := firstString(rec, modelFields...); ok {
		m.Model = model
		set = true
	}

	if isErr, msg := extractError(rec); isErr {
		m.IsError = true
		m.ErrorMessage = msg
		set = true
	}

	if m.DurationMs != nil && *m.DurationMs > th.SlowMs {
		m.IsSlow = true
	}
	if m.TotalTokens != nil && *m.TotalTokens > th.TokenHeavy {
		m.IsTokenHeavy = true
	}

	if !set {
		return nil
	}
	return m
}

func findUsage(rec map[string]any) map[string]any {
	for _, field := range usageFields {
		if usage, ok := asMap(rec[field]); ok {
			return usage
		}
	}
	for _, container := range usageContainers {
		inner, ok := asMap(rec[container])
		if !ok {
			continue
		}
		for _, field := range usageFields {
			if usage, ok := asMap(inner[field]); ok {
				return usage
			}
		}
	}
	return nil
}

func applyUsage(m *trace.Metrics, src map[string]any) bool {
	set := false
	pick := func(keys []string) *int {
		_, v, ok := firstField(src, keys...)
		if !ok {
			return nil
		}
		n, ok := coerceInt(v)
		if !ok || n < 0 {
			return nil
		}
		set = true
		return &n
	}
	if n := pick(promptTokens); n != nil {
		m.PromptTokens = n
	}
	if n := pick(completionToks); n != nil {
		m.CompletionTokens = n
	}
	if n := pick(totalTokens); n != nil {
		m.TotalTokens = n
	}
	return set
}

// extractError reads explicit error fields, error statuses and
// success=false.
func extractError(rec map[string]any) (bool, string) {
	for _, field := range errorFields {
		v, ok := rec[field]
		if !ok || isBlank(v) {
			continue
		}
		if b, ok := v.(bool); ok {
			if b {
				return true, ""
			}
			continue
		}
		if m, ok := asMap(v); ok {
			if msg, ok := firstString(m, "message", "msg", "detail", "error"); ok {
				return true, msg
			}
		}
		return true, stringify(v)
	}
	if status, ok := rec["status"].(string); ok && errorStatuses[strings.ToLower(strings.TrimSpace(status))] {
		return true, ""
	}
	if success, ok := coerceBool(rec["success"]); ok && !success {
		return true, ""
	}
	return false, ""
}

// LangGraph field candidates.
var (
	lgNodeFields       = []string{"langgraph_node", "node", "node_name", "nodeName"}
	lgStateBeforeField = []string{"state_before", "stateBefore", "input_state", "before"}
	lgStateAfterField  = []string{"state_after", "stateAfter", "output_state", "after", "values"}
	lgConfigFields     = []string{"config", "configurable"}
	lgRunIDFields      = []string{"run_id", "runId"}
	lgThreadIDFields   = []string{"thread_id", "threadId"}
	lgCheckpointFields = []string{"checkpoint", "checkpoint_id", "checkpoint_ns"}
	lgStrongFields     = []string{
		"langgraph_node", "node", "langgraph_step", "graph_id", "checkpoint", "checkpoint_id",
		"checkpoint_ns", "thread_id", "state_before", "state_after",
	}
)

// extractLangGraph returns nil unless the record carries LangGraph fields.
func extractLangGraph(rec map[string]any) *trace.LangGraphDetails {
	if rec == nil {
		return nil
	}
	sources := []map[string]any{rec}
	if meta, ok := asMap(rec["metadata"]); ok {
		sources = append(sources, meta)
	}

	strong := false
	for _, src := range sources {
		if hasAny(src, lgStrongFields...) {
			strong = true
		}
	}
	if !strong {
		return nil
	}

	d := &trace.LangGraphDetails{}
	for _, src := range sources {
		if d.NodeName == "" {
			d.NodeName, _ = firstString(src, lgNodeFields...)
		}
		if d.StateBefore == nil {
			_, d.StateBefore, _ = firstField(src, lgStateBeforeField...)
		}
		if d.StateAfter == nil {
			_, d.StateAfter, _ = firstField(src, lgStateAfterField...)
		}
		if d.Config == nil {
			_, d.Config, _ = firstField(src, lgConfigFields...)
		}
		if d.RunID == "" {
			d.RunID, _ = firstString(src, lgRunIDFields...)
		}
		if d.ThreadID == "" {
			d.ThreadID, _ = firstString(src, lgThreadIDFields...)
		}
		if d.ThreadID == "" {
			if cfg, ok := asMap(src["config"]); ok {
				if inner, ok := asMap(cfg["configurable"]); ok {
					d.ThreadID, _ = firstString(inner, lgThreadIDFields...)
				}
			}
		}
		if d.Checkpoint == nil {
			_, d.Checkpoint, _ = firstField(src, lgCheckpointFields...)
		}
	}
	d.StateBefore = cloneValue(d.StateBefore)
	d.StateAfter = cloneValue(d.StateAfter)
	d.Config = cloneValue(d.Config)
	d.Checkpoint = cloneValue(d.Checkpoint)
	d.Edges = outgoingEdges(rec)

	if d.Empty() {
		return nil
	}
	return d
}

// outgoingEdges lists edge targets named by the record itself.
func outgoingEdges(rec map[string]any) []string {
	var out []string
	for _, key := range []string{"edges", "next"} {
		items, ok := asSlice(rec[key])
		if !ok {
			if s, ok := scalarString(rec[key]); ok && key == "next" {
				out = append(out, s)
			}
			continue
		}
		for _, item := range items {
			if target, ok := edgeTarget(item); ok {
				out = append(out, target)
			}
		}
	}
	return out
}

func edgeTarget(item any) (string, bool) {
	if s, ok := scalarString(item); ok {
		return s, true
	}
	if m, ok := asMap(item); ok {
		return firstString(m, "to", "target")
	}
	if pair, ok := asSlice(item); ok && len(pair) == 2 {
		return scalarString(pair[1])
	}
	return "", false
}
