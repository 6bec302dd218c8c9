package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/agenticgokit/agtrace/internal/check"
	"github.com/agenticgokit/agtrace/internal/utils"
)

const reportsDirName = ".agtrace/reports"

var checkCmd = &cobra.Command{
	Use:   "check <suite-file>",
	Short: "Run a regression suite of trace fixtures",
	Long: `Run a regression suite defined in YAML. Each test points at a trace
fixture and states the expected outcome: whether it parses, its risk level,
which issue types must and must not be detected, node counts and the final
answer.

Examples:
  # Run a suite
  agtrace check regressions.yaml

  # JUnit output for CI
  agtrace check regressions.yaml --format junit > results.xml

  # Per-test progress on stderr
  agtrace check regressions.yaml --verbose

  # Validate the suite file without running it
  agtrace check regressions.yaml --validate-only`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

var (
	checkValidateOnly bool
	checkOutputFormat string
	checkFailFast     bool
	checkReportFile   string
	checkSaveReport   bool
)

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().BoolVar(&checkValidateOnly, "validate-only", false, "Only validate the suite file, don't run tests")
	checkCmd.Flags().StringVarP(&checkOutputFormat, "format", "f", "console", "Output format (console, json, junit, markdown)")
	checkCmd.Flags().BoolVar(&checkFailFast, "fail-fast", false, "Stop on first test failure")
	checkCmd.Flags().StringVarP(&checkReportFile, "report", "r", "", "Save a markdown report to this file")
	checkCmd.Flags().BoolVar(&checkSaveReport, "save-report", false, "Save a markdown report under "+reportsDirName)
}

func runCheck(cmd *cobra.Command, args []string) error {
	suiteFile := args[0]

	if !utils.FileExists(suiteFile) {
		return utils.NewUserError(
			fmt.Sprintf("Suite file not found: %s", suiteFile),
			"Check the path to your regression suite",
			nil,
		)
	}

	absPath, err := filepath.Abs(suiteFile)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	out := cmd.OutOrStdout()
	if verbose {
		fmt.Fprintf(out, "📋 Loading suite: %s\n", absPath)
	}

	suite, err := check.ParseSuiteFile(absPath)
	if err != nil {
		return fmt.Errorf("failed to parse suite file: %w", err)
	}

	if verbose {
		fmt.Fprintf(out, "✓ Loaded %d test(s) from suite: %s\n", len(suite.Cases), suite.Name)
	}

	if checkValidateOnly {
		fmt.Fprintln(out, "✓ Suite file is valid")
		return nil
	}

	runner := check.NewRunner(&check.RunnerConfig{
		FailFast:         checkFailFast,
		Verbose:          verbose,
		Progress:         cmd.ErrOrStderr(),
		NormalizeOptions: normalizerOptions(nil),
		AnalyzerOptions:  analyzerOptions(),
	})

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	results, err := runner.Run(ctx, suite)
	if err != nil {
		return fmt.Errorf("suite execution failed: %w", err)
	}

	reporter := check.NewReporter(checkOutputFormat)
	if err := reporter.Generate(results, out); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	reportPath := checkReportFile
	if reportPath == "" && checkSaveReport {
		timestamp := time.Now().Format("20060102-150405")
		reportPath = filepath.Join(reportsDirName, fmt.Sprintf("check-report-%s.md", timestamp))
	}
	if reportPath != "" {
		writeMarkdownReport(cmd, results, reportPath)
	}

	if !results.AllPassed() {
		return utils.NewExitError(1, "")
	}
	return nil
}

// writeMarkdownReport only warns on failure; the suite outcome decides the
// exit code.
func writeMarkdownReport(cmd *cobra.Command, results *check.SuiteResults, path string) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to create report directory: %v\n", err)
		return
	}
	reportFile, err := os.Create(path)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to create report file: %v\n", err)
		return
	}
	defer reportFile.Close()

	if err := check.NewReporter("markdown").Generate(results, reportFile); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to write markdown report: %v\n", err)
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "\n📄 Detailed report saved to: %s\n", path)
}
