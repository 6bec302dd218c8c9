package analyzer

import (
	"fmt"
	"strings"

	"github.com/agenticgokit/agtrace/internal/trace"
)

// pass is the shared read-only state every detector scans.
type pass struct {
	nodes  []*trace.TraceNode
	labels []labels
	th     Thresholds

	// commitAfterEmpty records empty-result nodes already reported by the
	// commit_after_empty detector.
	commitAfterEmpty map[int]bool
}

type detector struct {
	issueType trace.IssueType
	run       func(p *pass) []*trace.TraceIssue
}

// detectors run in this order; empty_result depends on commit_after_empty.
var detectors = []detector{
	{trace.IssueGuessingAfterError, detectGuessingAfterError},
	{trace.IssueCommitAfterEmpty, detectCommitAfterEmpty},
	{trace.IssueUnhandledError, detectUnhandledError},
	{trace.IssueMissingObservation, detectMissingObservation},
	{trace.IssueErrorIgnored, detectErrorIgnored},
	{trace.IssueLoop, detectLoop},
	{trace.IssueEmptyResult, detectEmptyResult},
	{trace.IssueSuspiciousTransition, detectSuspiciousTransition},
	{trace.IssueContradictionCandidate, detectContradictions},
}

func (p *pass) ids(indexes ...int) []string {
	out := make([]string, 0, len(indexes))
	seen := make(map[string]bool, len(indexes))
	for _, i := range indexes {
		if i < 0 || i >= len(p.nodes) {
			continue
		}
		id := p.nodes[i].ID
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func newIssue(t trace.IssueType, sev trace.Severity, nodeIDs []string, title, description, suggestion string) *trace.TraceIssue {
	return &trace.TraceIssue{
		Type:        t,
		Severity:    sev,
		NodeIDs:     nodeIDs,
		Title:       title,
		Description: description,
		Suggestion:  suggestion,
	}
}

func excerpt(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func detectGuessingAfterError(p *pass) []*trace.TraceIssue {
	var issues []*trace.TraceIssue
	for i, l := range p.labels {
		if !l.errorObservation {
			continue
		}
		for j := i + 1; j <= i+p.th.SpeculationWindow && j < len(p.nodes); j++ {
			if !p.labels[j].speculative {
				continue
			}
			issues = append(issues, newIssue(trace.IssueGuessingAfterError, trace.SeverityError, p.ids(i, j),
				"Agent guessed after a tool error",
				fmt.Sprintf("Step %q reported an error (%q) and step %q answered with speculative language instead of recovering.",
					p.nodes[i].ID, excerpt(p.nodes[i].Content, 80), p.nodes[j].ID),
				"Retry the failed tool, try an alternative source, or tell the user the data is unavailable instead of guessing."))
			break
		}
	}
	return issues
}

func detectCommitAfterEmpty(p *pass) []*trace.TraceIssue {
	var issues []*trace.TraceIssue
	for i, l := range p.labels {
		if !l.emptyResult {
			continue
		}
		consequences := []int{i}
		for j := i + 1; j < len(p.nodes); j++ {
			if p.labels[j].commitAction || p.labels[j].successOutput {
				consequences = append(consequences, j)
			}
		}
		if len(consequences) == 1 {
			continue
		}
		p.commitAfterEmpty[i] = true
		issues = append(issues, newIssue(trace.IssueCommitAfterEmpty, trace.SeverityError, p.ids(consequences...),
			"Committed after an empty result",
			fmt.Sprintf("Step %q returned no data, yet %d later step(s) performed a state-changing action or reported success.",
				p.nodes[i].ID, len(consequences)-1),
			"Check tool results before committing. When a lookup returns nothing, stop and ask the user or search again rather than proceeding."))
	}
	return issues
}

func detectUnhandledError(p *pass) []*trace.TraceIssue {
	start := len(p.nodes) - p.th.TrailingOutputWindow
	if start < 0 {
		start = 0
	}
	out := -1
	for i := len(p.nodes) - 1; i >= start; i-- {
		if p.nodes[i].Type == trace.NodeOutput {
			out = i
			break
		}
	}
	if out < 0 {
		return nil
	}
	final := p.nodes[out]
	if AcknowledgementPatterns.Match(final.Content) || p.labels[out].speculative {
		return nil
	}

	var issues []*trace.TraceIssue
	for i, l := range p.labels {
		if !l.errorObservation || i == out {
			continue
		}
		issues = append(issues, newIssue(trace.IssueUnhandledError, trace.SeverityWarning, p.ids(i, out),
			"Error not reflected in final answer",
			fmt.Sprintf("Step %q reported an error, but the final answer %q reads as a confident success without mentioning it.",
				p.nodes[i].ID, excerpt(final.Content, 80)),
			"Surface tool failures in the final answer or recover from them before responding."))
	}
	return issues
}

func detectMissingObservation(p *pass) []*trace.TraceIssue {
	var issues []*trace.TraceIssue
	for i, n := range p.nodes {
		if n.Type != trace.NodeAction {
			continue
		}
		if i+1 < len(p.nodes) {
			next := p.nodes[i+1].Type
			if next == trace.NodeObservation || next == trace.NodeOutput {
				continue
			}
		}
		desc := fmt.Sprintf("Action %q is the last step; its result was never recorded.", n.ID)
		if i+1 < len(p.nodes) {
			desc = fmt.Sprintf("Action %q is followed by a %s step instead of its result.", n.ID, p.nodes[i+1].Type)
		}
		issues = append(issues, newIssue(trace.IssueMissingObservation, trace.SeverityWarning, p.ids(i),
			"Action without observation", desc,
			"Make sure every tool call's result is logged before the agent moves on."))
	}
	return issues
}

func detectErrorIgnored(p *pass) []*trace.TraceIssue {
	var issues []*trace.TraceIssue
	for i, l := range p.labels {
		if !l.errorObservation || i+1 >= len(p.nodes) || p.nodes[i+1].Type != trace.NodeAction {
			continue
		}
		failed := l.tool
		if failed == "" {
			for k := i - 1; k >= 0; k-- {
				if p.nodes[k].Type == trace.NodeAction {
					failed = p.labels[k].tool
					break
				}
			}
		}
		next := p.labels[i+1].tool
		if failed != "" && strings.EqualFold(failed, next) {
			continue
		}
		issues = append(issues, newIssue(trace.IssueErrorIgnored, trace.SeverityWarning, p.ids(i, i+1),
			"Error ignored",
			fmt.Sprintf("Step %q reported an error and the agent moved straight on to %s without addressing it.",
				p.nodes[i].ID, describeTool(next)),
			"Handle the error explicitly: retry, fall back, or report it before calling other tools."))
	}
	return issues
}

func describeTool(tool string) string {
	if tool == "" {
		return "another action"
	}
	return fmt.Sprintf("tool %q", tool)
}

func detectLoop(p *pass) []*trace.TraceIssue {
	var issues []*trace.TraceIssue
	var run []int
	tool := ""

	flush := func() {
		if tool != "" && len(run) >= p.th.LoopMinRepeats {
			sev := trace.SeverityWarning
			if len(run) >= p.th.LoopErrorRepeats {
				sev = trace.SeverityError
			}
			issues = append(issues, newIssue(trace.IssueLoop, sev, p.ids(run...),
				"Repeated tool calls",
				fmt.Sprintf("Tool %q was called %d times in a row.", tool, len(run)),
				"Check whether the agent is stuck. Add a retry limit or change strategy after repeated identical calls."))
		}
		run = nil
	}

	for i, n := range p.nodes {
		if n.Type != trace.NodeAction {
			continue
		}
		name := strings.ToLower(p.labels[i].tool)
		if name != tool {
			flush()
			tool = name
		}
		run = append(run, i)
	}
	flush()
	return issues
}

func detectEmptyResult(p *pass) []*trace.TraceIssue {
	var issues []*trace.TraceIssue
	for i, l := range p.labels {
		if !l.emptyResult || p.commitAfterEmpty[i] || i+1 >= len(p.nodes) {
			continue
		}
		next := p.nodes[i+1].Type
		if next != trace.NodeAction && next != trace.NodeThought {
			continue
		}
		issues = append(issues, newIssue(trace.IssueEmptyResult, trace.SeverityWarning, p.ids(i, i+1),
			"Empty result",
			fmt.Sprintf("Step %q returned no data and the agent continued with a %s step.", p.nodes[i].ID, next),
			"Verify the agent notices empty results and adjusts its query or tells the user."))
	}
	return issues
}

func detectSuspiciousTransition(p *pass) []*trace.TraceIssue {
	var issues []*trace.TraceIssue
	for i, n := range p.nodes {
		if n.Type != trace.NodeAction {
			continue
		}
		l := p.labels[i]

		if i+1 < len(p.nodes) && p.nodes[i+1].Type == trace.NodeOutput && l.tool != "" && l.input != "" {
			issues = append(issues, newIssue(trace.IssueSuspiciousTransition, trace.SeverityWarning, p.ids(i, i+1),
				"Output without tool result",
				fmt.Sprintf("Action %q called %q and the agent answered in %q before any result was observed.", n.ID, l.tool, p.nodes[i+1].ID),
				"Make sure the agent waits for the tool result and that it is logged."))
		}

		if l.input == "" && needsArguments(l.tool, p.th.ArgumentToolHints) {
			issues = append(issues, newIssue(trace.IssueSuspiciousTransition, trace.SeverityWarning, p.ids(i),
				"Tool called without arguments",
				fmt.Sprintf("Action %q called %q, which normally takes arguments, with none.", n.ID, l.tool),
				"Check that the agent passes the query or parameters the tool expects."))
		}

		if i+1 < len(p.nodes) && p.nodes[i+1].Type == trace.NodeObservation && !p.labels[i+1].errorObservation {
			a, o := len(n.Content), len(p.nodes[i+1].Content)
			if (a < p.th.ShortContentChars && o > p.th.LongContentChars) || (o < p.th.ShortContentChars && a > p.th.LongContentChars) {
				issues = append(issues, newIssue(trace.IssueSuspiciousTransition, trace.SeverityWarning, p.ids(i, i+1),
					"Input and result size mismatch",
					fmt.Sprintf("Action %q (%d chars) and its result %q (%d chars) differ wildly in size.", n.ID, a, p.nodes[i+1].ID, o),
					"Check whether the tool received the intended input and whether its output was truncated or flooded."))
			}
		}
	}
	return issues
}

func needsArguments(tool string, hints []string) bool {
	if tool == "" {
		return false
	}
	lower := strings.ToLower(tool)
	for _, hint := range hints {
		if hint != "" && strings.Contains(lower, strings.ToLower(hint)) {
			return true
		}
	}
	return false
}

func detectContradictions(p *pass) []*trace.TraceIssue {
	var candidates []int
	for i, n := range p.nodes {
		if n.Type == trace.NodeObservation || n.Type == trace.NodeOutput {
			candidates = append(candidates, i)
		}
	}

	var issues []*trace.TraceIssue
	reported := make(map[[2]int]bool)
	negOnly := make([]bool, len(candidates))
	nextAff := make([]int, len(candidates))
	for _, pair := range contradictionPairs {
		affOnly := make([]bool, len(candidates))
		for k, i := range candidates {
			neg, aff := pair.classify(p.nodes[i].Content)
			negOnly[k] = neg && !aff
			affOnly[k] = aff && !neg
		}
		next := -1
		for k := len(candidates) - 1; k >= 0; k-- {
			nextAff[k] = next
			if affOnly[k] {
				next = k
			}
		}

		for k, i := range candidates {
			if !negOnly[k] || nextAff[k] < 0 {
				continue
			}
			j := candidates[nextAff[k]]
			key := [2]int{i, j}
			if reported[key] {
				continue
			}
			reported[key] = true
			issues = append(issues, newIssue(trace.IssueContradictionCandidate, trace.SeverityWarning, p.ids(i, j),
				"Possible contradiction",
				fmt.Sprintf("Step %q says %q but later step %q says %q.",
					p.nodes[i].ID, excerpt(p.nodes[i].Content, 60), p.nodes[j].ID, excerpt(p.nodes[j].Content, 60)),
				"Check which statement is true and whether the agent reconciled them."))
		}
	}
	return issues
}
