package cmd

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/agenticgokit/agtrace/internal/normalize"
	"github.com/agenticgokit/agtrace/internal/report"
	"github.com/agenticgokit/agtrace/internal/store"
	"github.com/agenticgokit/agtrace/internal/trace"
	"github.com/agenticgokit/agtrace/internal/tui"
	"github.com/agenticgokit/agtrace/internal/utils"
)

// historyCmd lists saved analyses
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse analyses saved with analyze --save",
	Long: `Browse the local history of analyzed traces.

The history lives in the SQLite database at store.path
(default .agtrace/history.db).

Examples:
  agtrace history                    # Newest analyses
  agtrace history list --risk high   # Only high-risk runs
  agtrace history show 3f2a9c1e      # Full report of one analysis
  agtrace history show 3f2a --view   # Open it in the viewer
  agtrace history delete 3f2a9c1e`,
	RunE: runHistoryList,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved analyses, newest first",
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a saved analysis",
	Long:  `Show a saved analysis. The id may be abbreviated to any unique prefix.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved analysis",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

var (
	historyRisk   string
	historySource string
	historyLimit  int
	historyOffset int
	historyFormat string
	historyView   bool
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)

	for _, c := range []*cobra.Command{historyCmd, historyListCmd} {
		c.Flags().StringVar(&historyRisk, "risk", "", "Only show runs with this risk level (low, medium, high)")
		c.Flags().StringVar(&historySource, "source", "", "Only show runs from this source framework")
		c.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of rows")
		c.Flags().IntVar(&historyOffset, "offset", 0, "Skip this many rows")
	}

	historyShowCmd.Flags().StringVarP(&historyFormat, "format", "f", "", "Output format (console, json, markdown); defaults to report.format")
	historyShowCmd.Flags().BoolVar(&historyView, "view", false, "Open the analysis in the interactive viewer")
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	filter := store.Filter{
		RiskLevel: trace.RiskLevel(strings.ToLower(historyRisk)),
		Source:    historySource,
		Limit:     historyLimit,
		Offset:    historyOffset,
	}
	if filter.RiskLevel != "" && !filter.RiskLevel.Valid() {
		return utils.NewValidationError("risk", "must be one of low, medium, high")
	}

	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	analyses, err := s.List(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("failed to list analyses: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(analyses) == 0 {
		fmt.Fprintln(out, "No saved analyses. Run agtrace analyze <file> --save to record one.")
		return nil
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%-10s %-20s %-8s %-6s %-7s %-12s %s\n",
		"ID", "Saved", "Risk", "Nodes", "Issues", "Source", "File")
	fmt.Fprintln(out, strings.Repeat("-", 92))

	for _, a := range analyses {
		fmt.Fprintf(out, "%-10s %-20s %-8s %-6d %-7d %-12s %s\n",
			shortID(a.ID),
			a.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			strings.ToUpper(string(a.RiskLevel)),
			a.NodeCount,
			a.IssueCount,
			a.Source,
			a.File)
	}
	fmt.Fprintln(out)
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	a, err := getAnalysis(cmd, args[0])
	if err != nil {
		return err
	}

	if historyView {
		if err := tui.Run(a.Run); err != nil {
			return fmt.Errorf("failed to run TUI: %w", err)
		}
		return nil
	}

	format := historyFormat
	if format == "" {
		format = GetConfig().Report.Format
	}
	rep := report.New(a.File, &normalize.Result{Success: true, Trace: a.Run}, a.Run)
	rep.GeneratedAt = a.CreatedAt
	if err := report.NewReporter(format).Generate(rep, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}
	return nil
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	a, err := getAnalysis(cmd, args[0])
	if err != nil {
		return err
	}

	s, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Delete(cmd.Context(), a.ID); err != nil {
		return fmt.Errorf("failed to delete analysis: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %s\n", shortID(a.ID))
	return nil
}

func getAnalysis(cmd *cobra.Command, id string) (*store.Analysis, error) {
	s, err := openStore(cmd)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	a, err := s.Get(cmd.Context(), id)
	if eris.Is(err, store.ErrNotFound) {
		return nil, utils.NewUserError(
			fmt.Sprintf("No saved analysis matches %q", id),
			"List saved analyses with: agtrace history",
			nil,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load analysis: %w", err)
	}
	return a, nil
}
