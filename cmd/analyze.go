package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agenticgokit/agtrace/internal/report"
	"github.com/agenticgokit/agtrace/internal/store"
	"github.com/agenticgokit/agtrace/internal/trace"
	"github.com/agenticgokit/agtrace/internal/utils"
)

// Exit codes of the analyze command
const (
	exitRiskThreshold = 1
	exitParseFailure  = 2
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <trace-file|->",
	Short: "Normalize a trace and detect failure patterns",
	Long: `Normalize an agent execution log into the canonical trace and run every
detector over it. The report lists the detected issues, the risk level of
the run and any warnings raised while normalizing.

Examples:
  # Analyze a LangChain or OpenAI log
  agtrace analyze trace.json

  # Read from stdin and emit JSON
  cat trace.json | agtrace analyze - --format json

  # Custom log layout
  agtrace analyze events.json --steps-path data.events --content-field body.text

  # Fail a CI job on high risk and keep the result
  agtrace analyze trace.json --fail-on high --save`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

var (
	analyzeFormat  string
	analyzeOutput  string
	analyzeSave    bool
	analyzeFailOn  string
	analyzeMapping mappingFlags
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVarP(&analyzeFormat, "format", "f", "", "Output format (console, json, markdown); defaults to report.format")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "Write the report to a file instead of stdout")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "Save the analysis to the history database")
	analyzeCmd.Flags().StringVar(&analyzeFailOn, "fail-on", "none", "Exit non-zero when risk is at or above: low, medium, high, none")
	analyzeMapping.register(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	threshold, err := parseFailOn(analyzeFailOn)
	if err != nil {
		return err
	}
	format := analyzeFormat
	if format == "" {
		format = GetConfig().Report.Format
	}

	path := args[0]
	res, run, err := loadTrace(cmd, path, &analyzeMapping)
	if err != nil {
		return err
	}

	w, closeOut, err := utils.OpenOutput(analyzeOutput, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeOut()

	rep := report.New(displayName(path), res, run)
	if err := report.NewReporter(format).Generate(rep, w); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	if !res.Success {
		return utils.NewExitError(exitParseFailure, "")
	}

	if analyzeSave {
		if err := saveAnalysis(cmd, run, displayName(path)); err != nil {
			GetLogger().Error().Err(err).Msg("failed to save analysis")
			return err
		}
	}

	if threshold != "" && run.RiskLevel.Rank() >= threshold.Rank() {
		return utils.NewExitError(exitRiskThreshold, "")
	}
	return nil
}

func saveAnalysis(cmd *cobra.Command, run *trace.TraceRun, file string) error {
	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	saved, err := s.Save(cmd.Context(), run, file)
	if err != nil {
		return fmt.Errorf("failed to save analysis: %w", err)
	}
	if analyzeOutput != "" || analyzeFormat == "console" || analyzeFormat == "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "💾 Saved as %s\n", shortID(saved.ID))
	}
	return nil
}

func openStore(cmd *cobra.Command) (*store.SQLiteStore, error) {
	s, err := store.NewSQLite(GetConfig().Store.Path)
	if err != nil {
		return nil, utils.NewUserError(
			fmt.Sprintf("Cannot open history database: %s", GetConfig().Store.Path),
			"Set store.path in your config or AGTRACE_STORE_PATH to a writable location",
			err,
		)
	}
	if err := s.Migrate(cmd.Context()); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}
	return s, nil
}

// parseFailOn returns "" for none.
func parseFailOn(value string) (trace.RiskLevel, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" || v == "none" {
		return "", nil
	}
	level := trace.RiskLevel(v)
	if !level.Valid() {
		return "", utils.NewValidationError("fail-on", "must be one of low, medium, high, none")
	}
	return level, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
