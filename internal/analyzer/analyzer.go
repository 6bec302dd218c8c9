// Package analyzer detects behavioral failure patterns in a canonical
// trace and scores the run's risk.
package analyzer

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agenticgokit/agtrace/internal/trace"
)

// Thresholds tune the positional detectors.
type Thresholds struct {
	SpeculationWindow    int      `mapstructure:"speculation_window" toml:"speculation_window"`
	TrailingOutputWindow int      `mapstructure:"trailing_output_window" toml:"trailing_output_window"`
	LoopMinRepeats       int      `mapstructure:"loop_min_repeats" toml:"loop_min_repeats"`
	LoopErrorRepeats     int      `mapstructure:"loop_error_repeats" toml:"loop_error_repeats"`
	ShortContentChars    int      `mapstructure:"short_content_chars" toml:"short_content_chars"`
	LongContentChars     int      `mapstructure:"long_content_chars" toml:"long_content_chars"`
	ArgumentToolHints    []string `mapstructure:"argument_tool_hints" toml:"argument_tool_hints"`
}

// DefaultThresholds returns the stock detector tuning.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SpeculationWindow:    3,
		TrailingOutputWindow: 3,
		LoopMinRepeats:       3,
		LoopErrorRepeats:     5,
		ShortContentChars:    10,
		LongContentChars:     5000,
		ArgumentToolHints:    []string{"search", "query", "fetch", "get", "post", "api", "call"},
	}
}

// withDefaults fills unset fields so a partially populated config works.
func (t Thresholds) withDefaults() Thresholds {
	d := DefaultThresholds()
	if t.SpeculationWindow <= 0 {
		t.SpeculationWindow = d.SpeculationWindow
	}
	if t.TrailingOutputWindow <= 0 {
		t.TrailingOutputWindow = d.TrailingOutputWindow
	}
	if t.LoopMinRepeats <= 1 {
		t.LoopMinRepeats = d.LoopMinRepeats
	}
	if t.LoopErrorRepeats < t.LoopMinRepeats {
		t.LoopErrorRepeats = max(d.LoopErrorRepeats, t.LoopMinRepeats)
	}
	if t.ShortContentChars <= 0 {
		t.ShortContentChars = d.ShortContentChars
	}
	if t.LongContentChars <= t.ShortContentChars {
		t.LongContentChars = max(d.LongContentChars, t.ShortContentChars+1)
	}
	if t.ArgumentToolHints == nil {
		t.ArgumentToolHints = d.ArgumentToolHints
	}
	return t
}

// Analyzer annotates runs with issues and risk. It keeps no state between
// calls and is safe for concurrent use.
type Analyzer struct {
	th     Thresholds
	logger zerolog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithThresholds overrides detector tuning.
func WithThresholds(th Thresholds) Option {
	return func(a *Analyzer) {
		a.th = th.withDefaults()
	}
}

// WithLogger sets the debug logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// New creates an Analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{th: DefaultThresholds(), logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze runs the analyzer with default thresholds.
func Analyze(run *trace.TraceRun) *trace.TraceRun {
	return New().Analyze(run)
}

// Analyze returns an annotated copy of run. Any previous annotations are
// discarded first, so analyzing an analyzed run yields the same result.
func (a *Analyzer) Analyze(run *trace.TraceRun) *trace.TraceRun {
	if run == nil {
		return nil
	}
	out := run.Clone()

	p := &pass{
		nodes:            out.Nodes,
		labels:           make([]labels, len(out.Nodes)),
		th:               a.th,
		commitAfterEmpty: make(map[int]bool),
	}
	for i, n := range out.Nodes {
		p.labels[i] = labelNode(n)
	}

	issues := []*trace.TraceIssue{}
	for _, d := range detectors {
		found := d.run(p)
		if len(found) > 0 {
			a.logger.Debug().Str("detector", string(d.issueType)).Int("issues", len(found)).Msg("detector fired")
		}
		issues = append(issues, found...)
	}

	byID := make(map[string]*trace.TraceNode, len(out.Nodes))
	for _, n := range out.Nodes {
		if _, dup := byID[n.ID]; !dup {
			byID[n.ID] = n
		}
	}
	for _, issue := range issues {
		issue.ID = uuid.NewString()
		for _, id := range issue.NodeIDs {
			if n, ok := byID[id]; ok {
				n.Issues = append(n.Issues, issue)
			}
		}
	}

	summary := make(map[trace.IssueType]int)
	for _, issue := range issues {
		summary[issue.Type]++
	}

	errorNodes := 0
	actions := 0
	indicator := false
	for i, n := range out.Nodes {
		if n.Type == trace.NodeAction {
			actions++
		}
		if p.labels[i].errorObservation || p.labels[i].errorIndicator {
			errorNodes++
		}
		if p.labels[i].errorIndicator {
			indicator = true
		}
	}

	out.Issues = issues
	out.IssueSummary = summary
	out.RiskLevel = riskLevel(summary, indicator)
	out.RiskExplanation = explainRisk(summary, out.RiskLevel, countIndicators(p.labels))
	out.Stats = &trace.Stats{
		TotalNodes:   len(out.Nodes),
		TotalActions: actions,
		TotalErrors:  errorNodes,
	}
	for _, n := range out.Nodes {
		if n.Type == trace.NodeOutput {
			n.RiskLevel = out.RiskLevel
		}
	}
	return out
}

var (
	highRiskTypes   = []trace.IssueType{trace.IssueGuessingAfterError, trace.IssueCommitAfterEmpty, trace.IssueUnhandledError, trace.IssueErrorIgnored}
	mediumRiskTypes = []trace.IssueType{trace.IssueSuspiciousTransition, trace.IssueLoop, trace.IssueMissingObservation}
)

// riskLevel tiers the run by which issue kinds are present.
func riskLevel(summary map[trace.IssueType]int, errorIndicator bool) trace.RiskLevel {
	if errorIndicator {
		return trace.RiskHigh
	}
	for _, t := range highRiskTypes {
		if summary[t] > 0 {
			return trace.RiskHigh
		}
	}
	for _, t := range mediumRiskTypes {
		if summary[t] > 0 {
			return trace.RiskMedium
		}
	}
	return trace.RiskLow
}

func countIndicators(ls []labels) int {
	n := 0
	for _, l := range ls {
		if l.errorIndicator {
			n++
		}
	}
	return n
}

var issuePhrases = map[trace.IssueType][2]string{
	trace.IssueGuessingAfterError:     {"guess after a tool error", "guesses after tool errors"},
	trace.IssueCommitAfterEmpty:       {"commit after an empty result", "commits after empty results"},
	trace.IssueUnhandledError:         {"unhandled error", "unhandled errors"},
	trace.IssueErrorIgnored:           {"ignored error", "ignored errors"},
	trace.IssueLoop:                   {"tool loop", "tool loops"},
	trace.IssueSuspiciousTransition:   {"suspicious transition", "suspicious transitions"},
	trace.IssueMissingObservation:     {"action without observation", "actions without observation"},
	trace.IssueEmptyResult:            {"empty result", "empty results"},
	trace.IssueContradictionCandidate: {"possible contradiction", "possible contradictions"},
}

// explainRisk lists the present issue counts in a fixed order.
func explainRisk(summary map[trace.IssueType]int, level trace.RiskLevel, indicators int) string {
	var parts []string
	if level == trace.RiskHigh && indicators > 0 {
		parts = append(parts, plural(indicators, "step reported an error", "steps reported errors"))
	}
	for _, t := range trace.IssueTypes {
		if c := summary[t]; c > 0 {
			ph := issuePhrases[t]
			parts = append(parts, plural(c, ph[0], ph[1]))
		}
	}
	if len(parts) == 0 {
		return "No significant issues detected."
	}
	return strings.Join(parts, "; ")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", one)
	}
	return fmt.Sprintf("%d %s", n, many)
}
