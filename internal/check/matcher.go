package check

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/agenticgokit/agtrace/internal/trace"
)

// evaluate compares an analyzed run with the expectation and returns one
// message per unmet condition.
func evaluate(run *trace.TraceRun, exp Expectation) []string {
	var failures []string

	if exp.Risk != "" && run.RiskLevel != exp.Risk {
		failures = append(failures, fmt.Sprintf("expected risk %s, got %s", exp.Risk, run.RiskLevel))
	}

	present := issueTypes(run)
	var missing, unexpected []string
	for _, t := range exp.Issues {
		if !slices.Contains(present, t) {
			missing = append(missing, string(t))
		}
	}
	for _, t := range exp.Absent {
		if slices.Contains(present, t) {
			unexpected = append(unexpected, string(t))
		}
	}
	if len(missing) > 0 {
		failures = append(failures, fmt.Sprintf("missing expected issues: %v", missing))
	}
	if len(unexpected) > 0 {
		failures = append(failures, fmt.Sprintf("unexpected issues: %v", unexpected))
	}

	nodes := len(run.Nodes)
	if exp.MinNodes > 0 && nodes < exp.MinNodes {
		failures = append(failures, fmt.Sprintf("expected at least %d nodes, got %d", exp.MinNodes, nodes))
	}
	if exp.MaxNodes > 0 && nodes > exp.MaxNodes {
		failures = append(failures, fmt.Sprintf("expected at most %d nodes, got %d", exp.MaxNodes, nodes))
	}

	if exp.Output != nil {
		if ok, msg := matchOutput(finalOutput(run), exp.Output); !ok {
			failures = append(failures, msg)
		}
	}
	return failures
}

// issueTypes lists the distinct issue types of a run in priority order.
func issueTypes(run *trace.TraceRun) []trace.IssueType {
	var out []trace.IssueType
	for _, t := range trace.IssueTypes {
		if run.IssueSummary[t] > 0 {
			out = append(out, t)
		}
	}
	return out
}

// finalOutput returns the content of the last output node, or "".
func finalOutput(run *trace.TraceRun) string {
	for i := len(run.Nodes) - 1; i >= 0; i-- {
		if run.Nodes[i].Type == trace.NodeOutput {
			return run.Nodes[i].Content
		}
	}
	return ""
}

// matchOutput checks the final answer against an output expectation
func matchOutput(actual string, exp *OutputExpectation) (bool, string) {
	switch exp.Type {
	case "exact":
		if actual == exp.Value {
			return true, ""
		}
		return false, fmt.Sprintf("expected exact output:\n  Expected: %s\n  Actual:   %s", exp.Value, actual)
	case "contains":
		actualLower := strings.ToLower(actual)
		var missing []string
		for _, value := range exp.Values {
			if !strings.Contains(actualLower, strings.ToLower(value)) {
				missing = append(missing, value)
			}
		}
		if len(missing) > 0 {
			return false, fmt.Sprintf("output missing expected values: %v", missing)
		}
		return true, ""
	case "regex":
		re, err := regexp.Compile(exp.Pattern)
		if err != nil {
			return false, fmt.Sprintf("invalid regex pattern: %v", err)
		}
		if re.MatchString(actual) {
			return true, ""
		}
		return false, fmt.Sprintf("output does not match regex pattern: %s", exp.Pattern)
	default:
		return false, fmt.Sprintf("unknown output expectation type: %s", exp.Type)
	}
}
