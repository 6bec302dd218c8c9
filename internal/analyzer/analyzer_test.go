package analyzer

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenticgokit/agtrace/internal/trace"
)

type nodeSpec struct {
	typ     trace.NodeType
	content string
	meta    map[string]any
}

func obs(content string) nodeSpec     { return nodeSpec{typ: trace.NodeObservation, content: content} }
func thought(content string) nodeSpec { return nodeSpec{typ: trace.NodeThought, content: content} }
func output(content string) nodeSpec  { return nodeSpec{typ: trace.NodeOutput, content: content} }

func action(tool, input string) nodeSpec {
	meta := map[string]any{"tool": tool}
	content := tool
	if input != "" {
		meta["tool_input"] = input
		content = tool + ": " + input
	}
	return nodeSpec{typ: trace.NodeAction, content: content, meta: meta}
}

func buildRun(specs ...nodeSpec) *trace.TraceRun {
	run := &trace.TraceRun{ID: "run", Source: "test"}
	for i, s := range specs {
		n := &trace.TraceNode{
			ID:       fmt.Sprintf("n%d", i),
			Type:     s.typ,
			Content:  s.content,
			Order:    i,
			Metadata: s.meta,
			Issues:   []*trace.TraceIssue{},
		}
		if i > 0 {
			parent := fmt.Sprintf("n%d", i-1)
			n.ParentID = &parent
		}
		run.Nodes = append(run.Nodes, n)
	}
	return run
}

func issuesOf(run *trace.TraceRun, t trace.IssueType) []*trace.TraceIssue {
	var out []*trace.TraceIssue
	for _, issue := range run.Issues {
		if issue.Type == t {
			out = append(out, issue)
		}
	}
	return out
}

func TestLoopThresholds(t *testing.T) {
	tests := []struct {
		name     string
		repeats  int
		wantLoop bool
		wantSev  trace.Severity
	}{
		{"two calls", 2, false, ""},
		{"three calls", 3, true, trace.SeverityWarning},
		{"four calls", 4, true, trace.SeverityWarning},
		{"five calls", 5, true, trace.SeverityError},
		{"seven calls", 7, true, trace.SeverityError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var specs []nodeSpec
			for i := 0; i < tt.repeats; i++ {
				specs = append(specs, action("search", fmt.Sprintf("query %d", i)), obs(fmt.Sprintf("result %d", i)))
			}
			specs = append(specs, output("Here is what I found."))

			got := issuesOf(Analyze(buildRun(specs...)), trace.IssueLoop)
			if !tt.wantLoop {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.Equal(t, tt.wantSev, got[0].Severity)
			assert.Len(t, got[0].NodeIDs, tt.repeats)
		})
	}
}

func TestLoop_DifferentToolsBreakTheRun(t *testing.T) {
	run := Analyze(buildRun(
		action("search", "a"), obs("x"),
		action("search", "b"), obs("y"),
		action("lookup", "c"), obs("z"),
		action("search", "d"), obs("w"),
	))
	assert.Empty(t, issuesOf(run, trace.IssueLoop))
}

func TestCommitAfterEmpty(t *testing.T) {
	run := Analyze(buildRun(
		obs("flights: []"),
		action("payment_api", `{"amount": 420}`),
		output("Flight booked successfully!"),
	))

	got := issuesOf(run, trace.IssueCommitAfterEmpty)
	require.NotEmpty(t, got)
	assert.Equal(t, trace.SeverityError, got[0].Severity)
	assert.Equal(t, []string{"n0", "n1", "n2"}, got[0].NodeIDs)
	assert.Equal(t, trace.RiskHigh, run.RiskLevel)
	assert.Equal(t, trace.RiskHigh, run.Nodes[2].RiskLevel)
	assert.Empty(t, run.Nodes[0].RiskLevel, "risk is copied to output nodes only")

	// Covered by commit_after_empty, so not reported again.
	assert.Empty(t, issuesOf(run, trace.IssueEmptyResult))
}

func TestGuessingAfterError(t *testing.T) {
	run := Analyze(buildRun(
		action("weather_api", "Paris"),
		obs("Error 503: service unavailable"),
		thought("The API failed, I'll just guess it is sunny"),
		output("It is probably sunny in Paris."),
	))

	got := issuesOf(run, trace.IssueGuessingAfterError)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"n1", "n2"}, got[0].NodeIDs)
	assert.Equal(t, trace.RiskHigh, run.RiskLevel)
	assert.Empty(t, issuesOf(run, trace.IssueUnhandledError), "speculative answers are not confident")
}

func TestGuessingAfterError_FlaggedAction(t *testing.T) {
	n := buildRun(
		action("weather_api", "Paris"),
		thought("I'll just guess the answer"),
	)
	n.Nodes[0].Metrics = &trace.Metrics{IsError: true}
	run := Analyze(n)

	got := issuesOf(run, trace.IssueGuessingAfterError)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"n0", "n1"}, got[0].NodeIDs)
}

func TestGuessingAfterError_OutsideWindow(t *testing.T) {
	run := Analyze(buildRun(
		obs("request failed"),
		thought("a"), thought("b"), thought("c"),
		thought("maybe it is fine"),
	))
	assert.Empty(t, issuesOf(run, trace.IssueGuessingAfterError))
}

func TestUnhandledError(t *testing.T) {
	run := Analyze(buildRun(
		action("db_query", "select 1"),
		obs("connection timeout"),
		action("db_query", "select 1"),
		obs("1 row"),
		output("Your report is ready."),
	))

	got := issuesOf(run, trace.IssueUnhandledError)
	require.Len(t, got, 1)
	assert.Equal(t, trace.SeverityWarning, got[0].Severity)
	assert.Equal(t, []string{"n1", "n4"}, got[0].NodeIDs)
	assert.Empty(t, issuesOf(run, trace.IssueErrorIgnored), "same tool is a retry")
	assert.Equal(t, trace.RiskHigh, run.RiskLevel)
}

func TestUnhandledError_Acknowledged(t *testing.T) {
	run := Analyze(buildRun(
		action("db_query", "select 1"),
		obs("connection timeout"),
		output("Sorry, the database could not be reached."),
	))
	assert.Empty(t, issuesOf(run, trace.IssueUnhandledError))
}

func TestErrorIgnored(t *testing.T) {
	run := Analyze(buildRun(
		action("fetch_price", "AAPL"),
		obs("HTTP 500 Internal Server Error"),
		action("send_email", "price report"),
		obs("sent"),
	))

	got := issuesOf(run, trace.IssueErrorIgnored)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"n1", "n2"}, got[0].NodeIDs)
}

func TestMissingObservation(t *testing.T) {
	run := Analyze(buildRun(
		action("search", "a"),
		thought("hmm"),
		action("search", "b"),
	))

	got := issuesOf(run, trace.IssueMissingObservation)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"n0"}, got[0].NodeIDs)
	assert.Equal(t, []string{"n2"}, got[1].NodeIDs)
	assert.Equal(t, trace.RiskMedium, run.RiskLevel)
}

func TestEmptyResult(t *testing.T) {
	run := Analyze(buildRun(
		action("search", "rare thing"),
		obs("No results found"),
		thought("Let me search differently"),
	))

	got := issuesOf(run, trace.IssueEmptyResult)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"n1", "n2"}, got[0].NodeIDs)
}

func TestSuspiciousTransition(t *testing.T) {
	t.Run("output right after action", func(t *testing.T) {
		run := Analyze(buildRun(action("calculator", "2+2"), output("4")))
		got := issuesOf(run, trace.IssueSuspiciousTransition)
		require.Len(t, got, 1)
		assert.Equal(t, []string{"n0", "n1"}, got[0].NodeIDs)
		assert.Equal(t, trace.RiskMedium, run.RiskLevel)
	})

	t.Run("argument tool without arguments", func(t *testing.T) {
		run := Analyze(buildRun(action("web_search", ""), obs("some results")))
		got := issuesOf(run, trace.IssueSuspiciousTransition)
		require.Len(t, got, 1)
		assert.Equal(t, []string{"n0"}, got[0].NodeIDs)
	})

	t.Run("size mismatch", func(t *testing.T) {
		big := make([]byte, 6000)
		for i := range big {
			big[i] = 'a'
		}
		run := Analyze(buildRun(
			nodeSpec{typ: trace.NodeAction, content: "ls", meta: map[string]any{"tool": "ls"}},
			obs(string(big)),
		))
		assert.Len(t, issuesOf(run, trace.IssueSuspiciousTransition), 1)
	})

	t.Run("configurable thresholds", func(t *testing.T) {
		a := New(WithThresholds(Thresholds{ShortContentChars: 3, LongContentChars: 20, ArgumentToolHints: []string{}}))
		run := a.Analyze(buildRun(
			nodeSpec{typ: trace.NodeAction, content: "ls", meta: map[string]any{"tool": "ls"}},
			obs("a fairly long listing of files"),
		))
		assert.Len(t, issuesOf(run, trace.IssueSuspiciousTransition), 1)
	})
}

func TestContradictionCandidate(t *testing.T) {
	run := Analyze(buildRun(
		action("inventory", "sku-1"),
		obs("Item unavailable"),
		action("inventory", "sku-1 warehouse"),
		obs("Item available in warehouse 2"),
	))

	got := issuesOf(run, trace.IssueContradictionCandidate)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"n1", "n3"}, got[0].NodeIDs)
	assert.Equal(t, trace.RiskLow, run.RiskLevel)
}

func TestContradictionPairs(t *testing.T) {
	tests := []struct {
		name  string
		first string
		later string
		want  int
	}{
		{"existence", "Item not found", "Item found on shelf 3", 1},
		{"availability", "Seats not available", "Seats are available", 1},
		{"results", "No results", "Found 3 results", 1},
		{"success", "Payment failed", "Payment successful", 1},
		{"approval", "Request denied", "Request approved", 1},
		{"negation repeated", "Item not found", "Item still not found", 0},
		{"unrelated", "Item not found", "Searching the backup index", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := Analyze(buildRun(obs(tt.first), output(tt.later)))
			got := issuesOf(run, trace.IssueContradictionCandidate)
			require.Len(t, got, tt.want)
			if tt.want > 0 {
				assert.Equal(t, []string{"n0", "n1"}, got[0].NodeIDs)
			}
		})
	}
}

func TestContradictionsScaleLinearly(t *testing.T) {
	specs := make([]nodeSpec, 5000)
	for i := range specs {
		specs[i] = obs("No results found")
	}
	run := buildRun(specs...)

	start := time.Now()
	run = Analyze(run)
	elapsed := time.Since(start)

	assert.Empty(t, issuesOf(run, trace.IssueContradictionCandidate))
	assert.Less(t, elapsed, 5*time.Second)
}

func TestCleanRunIsLowRisk(t *testing.T) {
	run := Analyze(buildRun(
		thought("I need the weather"),
		action("weather", "Paris"),
		obs("18C"),
		output("It is 18C in Paris."),
	))

	assert.Empty(t, run.Issues)
	assert.Equal(t, trace.RiskLow, run.RiskLevel)
	assert.Equal(t, "No significant issues detected.", run.RiskExplanation)
	assert.Equal(t, &trace.Stats{TotalNodes: 4, TotalActions: 1, TotalErrors: 0}, run.Stats)
}

func TestErrorIndicatorForcesHighRisk(t *testing.T) {
	run := Analyze(buildRun(
		nodeSpec{typ: trace.NodeSystem, content: "worker crashed", meta: map[string]any{"status": "failed"}},
		output("All good."),
	))

	assert.Equal(t, trace.RiskHigh, run.RiskLevel)
	assert.Equal(t, 1, run.Stats.TotalErrors)
	assert.Contains(t, run.RiskExplanation, "1 step reported an error")
}

func TestStatsCountErrorsOnce(t *testing.T) {
	n := buildRun(
		action("a", "x"),
		obs("error: boom"),
	)
	n.Nodes[1].Metadata = map[string]any{"error": "boom"}
	run := Analyze(n)
	assert.Equal(t, 1, run.Stats.TotalErrors)
}

func TestAttachment(t *testing.T) {
	run := Analyze(buildRun(
		obs("flights: []"),
		action("payment_api", `{"amount": 420}`),
		output("Flight booked successfully!"),
	))

	for _, issue := range run.Issues {
		assert.NotEmpty(t, issue.ID)
		for _, id := range issue.NodeIDs {
			assert.Contains(t, run.Node(id).Issues, issue)
		}
	}
	total := 0
	for _, c := range run.IssueSummary {
		total += c
	}
	assert.Equal(t, len(run.Issues), total)
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	base := buildRun(
		action("weather_api", "Paris"),
		obs("rate limit exceeded"),
		thought("I'll just guess"),
		action("search", ""),
		action("search", ""),
		action("search", ""),
		output("Booked successfully"),
	)

	first := Analyze(base)
	second := Analyze(first)

	type key struct {
		Type  trace.IssueType
		Sev   trace.Severity
		Nodes string
	}
	keys := func(run *trace.TraceRun) []key {
		var out []key
		for _, issue := range run.Issues {
			out = append(out, key{issue.Type, issue.Severity, fmt.Sprint(issue.NodeIDs)})
		}
		return out
	}

	assert.Equal(t, keys(first), keys(second))
	assert.Equal(t, first.RiskLevel, second.RiskLevel)
	assert.Equal(t, first.RiskExplanation, second.RiskExplanation)
	assert.Equal(t, first.Stats, second.Stats)
	for i := range first.Nodes {
		assert.Len(t, second.Nodes[i].Issues, len(first.Nodes[i].Issues))
	}
	assert.Empty(t, base.Issues, "input run is not modified")
	assert.Empty(t, base.Nodes[1].Issues)
}

func TestRiskExplanationOrder(t *testing.T) {
	summary := map[trace.IssueType]int{
		trace.IssueLoop:               2,
		trace.IssueGuessingAfterError: 1,
		trace.IssueEmptyResult:        1,
	}
	assert.Equal(t, "1 guess after a tool error; 2 tool loops; 1 empty result",
		explainRisk(summary, trace.RiskHigh, 0))
}
