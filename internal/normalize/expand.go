package normalize

import (
	"github.com/agenticgokit/agtrace/internal/trace"
)

const noResult = "[No result]"

// step is one record of the expanded list together with the linkage the
// expander learned about it. The linkage lives here, never in the record.
type step struct {
	record map[string]any

	// origin is the raw record a composite step was split from; id,
	// timestamp and parent hints are read from it.
	origin map[string]any

	group    int // index of the raw record in the step array
	first    bool
	last     bool
	idSuffix string

	forcedType trace.NodeType
	subKey     string

	content    string
	hasContent bool

	// linkedAction is the index of the action step this step reports on,
	// or -1.
	linkedAction int
	// linkedObservation is the reverse link, or -1.
	linkedObservation int
}

// hints returns the record carrying id, timestamp and parent hints.
func (s *step) hints() map[string]any {
	if s.origin != nil {
		return s.origin
	}
	return s.record
}

// attributes returns the record whose metrics and confidence belong to
// this step. A composite record's attributes go to its last sub-step only.
func (s *step) attributes() map[string]any {
	if s.subKey == "" {
		return s.record
	}
	if s.last {
		return s.origin
	}
	return nil
}

// expandSteps turns the raw step array into one step per semantic node,
// preserving document order.
func expandSteps(raw []any) []*step {
	separate := hasSeparateLangChainRecords(raw)

	steps := make([]*step, 0, len(raw))
	for i, item := range raw {
		switch {
		case isActionTuple(item):
			pair, _ := asSlice(item)
			steps = appendTuple(steps, i, pair)

		default:
			rec, ok := asMap(item)
			if !ok {
				steps = append(steps, single(i, map[string]any{"value": cloneValue(item)}))
				continue
			}
			if keys := presentCompositeKeys(rec); len(keys) >= 2 {
				steps = appendComposite(steps, i, rec, keys)
				continue
			}
			if separate {
				steps = appendSeparate(steps, i, rec)
				continue
			}
			steps = append(steps, single(i, rec))
		}
	}
	return steps
}

func single(group int, rec map[string]any) *step {
	return &step{
		record:            rec,
		group:             group,
		first:             true,
		last:              true,
		linkedAction:      -1,
		linkedObservation: -1,
	}
}

// appendTuple splits a LangChain [action, observation] pair into two linked
// steps.
func appendTuple(steps []*step, group int, pair []any) []*step {
	actionRec, _ := asMap(pair[0])
	tool, _ := firstString(actionRec, toolNameFields...)

	action := single(group, actionRec)
	action.last = false
	action.idSuffix = "-action"
	action.forcedType = trace.NodeAction
	action.content, action.hasContent = actionContent(actionRec)

	obsRec := map[string]any{"observation": cloneValue(pair[1])}
	if tool != "" {
		obsRec["tool"] = tool
	}
	observation := single(group, obsRec)
	observation.origin = actionRec
	observation.first = false
	observation.idSuffix = "-observation"
	observation.forcedType = trace.NodeObservation
	observation.content, observation.hasContent = observationContent(pair[1]), true

	actionIdx := len(steps)
	action.linkedObservation = actionIdx + 1
	observation.linkedAction = actionIdx
	return append(steps, action, observation)
}

// appendComposite splits a record holding several step keys into one step
// per key, in compositeKeys order.
func appendComposite(steps []*step, group int, rec map[string]any, keys []string) []*step {
	actionIdx := -1
	for n, key := range keys {
		value := rec[key]
		sub := map[string]any{key: cloneValue(value)}

		s := single(group, sub)
		s.origin = rec
		s.first = n == 0
		s.last = n == len(keys)-1
		s.idSuffix = "-" + key
		s.subKey = key
		s.forcedType = compositeKeyTypes[key]

		switch s.forcedType {
		case trace.NodeAction:
			for _, field := range append([]string{"tool", "tool_name"}, toolArgFields...) {
				if v, ok := rec[field]; ok {
					sub[field] = cloneValue(v)
				}
			}
			s.content, s.hasContent = compositeActionContent(value, sub)
			actionIdx = len(steps)
		case trace.NodeObservation:
			s.content, s.hasContent = observationContent(value), true
			if actionIdx >= 0 {
				s.linkedAction = actionIdx
				steps[actionIdx].linkedObservation = len(steps)
			}
		default:
			if !isBlank(value) {
				s.content, s.hasContent = stringify(value), true
			}
		}
		steps = append(steps, s)
	}
	return steps
}

// appendSeparate types a record of the separate-object LangChain form and
// links an observation to the action directly before it.
func appendSeparate(steps []*step, group int, rec map[string]any) []*step {
	s := single(group, rec)
	switch {
	case isSeparateAction(rec):
		s.forcedType = trace.NodeAction
		s.content, s.hasContent = actionContent(rec)
	case hasAny(rec, "observation"):
		s.forcedType = trace.NodeObservation
		s.content, s.hasContent = observationContent(rec["observation"]), true
		if prev := len(steps) - 1; prev >= 0 && steps[prev].forcedType == trace.NodeAction && steps[prev].linkedObservation < 0 {
			s.linkedAction = prev
			steps[prev].linkedObservation = len(steps)
		}
	case hasAny(rec, "final_answer", "output", "return_values"):
		s.forcedType = trace.NodeOutput
	}
	return append(steps, s)
}

// hasSeparateLangChainRecords reports whether the array mixes action
// records and observation records.
func hasSeparateLangChainRecords(raw []any) bool {
	var actions, observations bool
	for _, item := range raw {
		rec, ok := asMap(item)
		if !ok {
			continue
		}
		if isSeparateAction(rec) {
			actions = true
		} else if hasAny(rec, "observation") {
			observations = true
		}
		if actions && observations {
			return true
		}
	}
	return false
}

func isSeparateAction(rec map[string]any) bool {
	return hasAny(rec, "action", "tool") && hasAny(rec, "tool_input", "action_input")
}

func presentCompositeKeys(rec map[string]any) []string {
	var keys []string
	for _, key := range compositeKeys {
		if v, ok := rec[key]; ok && v != nil {
			keys = append(keys, key)
		}
	}
	return keys
}

// actionContent prefers the agent's log line, then "tool: input".
func actionContent(rec map[string]any) (string, bool) {
	if log, ok := rec["log"].(string); ok && !isBlank(log) {
		return log, true
	}
	tool, _ := firstString(rec, toolNameFields...)
	if tool == "" {
		tool, _ = rec["action"].(string)
	}
	_, input, hasInput := firstField(rec, toolArgFields...)
	switch {
	case tool != "" && hasInput:
		return tool + ": " + stringify(input), true
	case tool != "":
		return tool, true
	case hasInput:
		return stringify(input), true
	}
	return "", false
}

func compositeActionContent(value any, sub map[string]any) (string, bool) {
	switch typed := value.(type) {
	case map[string]any:
		if content, ok := actionContent(typed); ok {
			return content, true
		}
		return stringify(typed), true
	case string:
		if _, input, ok := firstField(sub, toolArgFields...); ok && !isBlank(typed) {
			return typed + ": " + stringify(input), true
		}
	}
	if isBlank(value) {
		return "", false
	}
	return stringify(value), true
}

func observationContent(v any) string {
	if isBlank(v) {
		return noResult
	}
	return stringify(v)
}
