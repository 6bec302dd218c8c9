package check

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/agenticgokit/agtrace/internal/analyzer"
	"github.com/agenticgokit/agtrace/internal/normalize"
)

// RunnerConfig configures the suite runner
type RunnerConfig struct {
	FailFast bool
	Verbose  bool
	// Progress receives per-case lines when Verbose is set.
	Progress io.Writer

	NormalizeOptions []normalize.Option
	AnalyzerOptions  []analyzer.Option
}

// Runner executes suites
type Runner struct {
	config   *RunnerConfig
	analyzer *analyzer.Analyzer
}

// NewRunner creates a new suite runner
func NewRunner(config *RunnerConfig) *Runner {
	if config == nil {
		config = &RunnerConfig{}
	}
	if config.Progress == nil {
		config.Progress = io.Discard
	}
	return &Runner{
		config:   config,
		analyzer: analyzer.New(config.AnalyzerOptions...),
	}
}

// Run executes every case of a suite in order. It stops early when ctx is
// cancelled or, with FailFast, after the first failure.
func (r *Runner) Run(ctx context.Context, suite *Suite) (*SuiteResults, error) {
	results := &SuiteResults{
		SuiteName:  suite.Name,
		TotalTests: len(suite.Cases),
		StartTime:  time.Now(),
		Results:    make([]CaseResult, 0, len(suite.Cases)),
	}

	for i, c := range suite.Cases {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("suite interrupted: %w", err)
		}
		if r.config.Verbose {
			fmt.Fprintf(r.config.Progress, "\n[%d/%d] Checking: %s\n", i+1, len(suite.Cases), c.Name)
		}

		result := r.runCase(suite, c)
		results.Results = append(results.Results, result)

		if result.Passed {
			results.PassedTests++
			if r.config.Verbose {
				fmt.Fprintf(r.config.Progress, "  ✓ PASSED (%s)\n", formatDuration(result.Duration))
			}
			continue
		}

		results.FailedTests++
		if r.config.Verbose {
			for _, f := range result.Failures {
				fmt.Fprintf(r.config.Progress, "  ✗ %s\n", f)
			}
		}
		if r.config.FailFast {
			break
		}
	}

	results.EndTime = time.Now()
	results.Duration = results.EndTime.Sub(results.StartTime)

	return results, nil
}

func (r *Runner) runCase(suite *Suite, c Case) CaseResult {
	path := suite.resolve(c)
	result := CaseResult{Name: c.Name, File: path}
	start := time.Now()

	data, err := os.ReadFile(path)
	if err != nil {
		result.Failures = []string{fmt.Sprintf("failed to read trace file: %v", err)}
		result.Duration = time.Since(start)
		return result
	}

	opts := append(append([]normalize.Option{}, r.config.NormalizeOptions...), normalize.WithMapping(c.Mapping))
	res := normalize.New(opts...).ParseBytes(data)

	if !res.Success {
		result.ParseError = res.Error
		if c.Expect.WantSuccess() {
			result.Failures = []string{fmt.Sprintf("normalization failed: %s", res.Error)}
		} else {
			result.Passed = true
		}
		result.Duration = time.Since(start)
		return result
	}
	if !c.Expect.WantSuccess() {
		result.Failures = []string{"expected normalization to fail, but it succeeded"}
	}

	run := r.analyzer.Analyze(res.Trace)
	result.RunID = run.ID
	result.Risk = run.RiskLevel
	result.IssueTypes = issueTypes(run)
	result.NodeCount = len(run.Nodes)
	result.ActualOutput = finalOutput(run)

	if c.Expect.WantSuccess() {
		result.Failures = evaluate(run, c.Expect)
	}
	result.Passed = len(result.Failures) == 0
	result.Duration = time.Since(start)
	return result
}
