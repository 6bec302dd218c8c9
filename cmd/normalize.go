package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agenticgokit/agtrace/internal/utils"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize <trace-file|->",
	Short: "Convert a trace into the canonical node format",
	Long: `Normalize an agent execution log and print the canonical trace as JSON,
without running the analyzer.

When the log cannot be parsed the output is a run holding a single system
node that explains the failure. With --strict the parse result is printed
instead and the command exits non-zero.

Examples:
  agtrace normalize trace.json
  agtrace normalize events.json --mapping mapping.yaml -o canonical.json`,
	Args: cobra.ExactArgs(1),
	RunE: runNormalize,
}

var (
	normalizeOutput  string
	normalizeStrict  bool
	normalizeMapping mappingFlags
)

func init() {
	rootCmd.AddCommand(normalizeCmd)

	normalizeCmd.Flags().StringVarP(&normalizeOutput, "output", "o", "", "Write the trace to a file instead of stdout")
	normalizeCmd.Flags().BoolVar(&normalizeStrict, "strict", false, "Print the parse error and exit non-zero when the log cannot be parsed")
	normalizeMapping.register(normalizeCmd)
}

func runNormalize(cmd *cobra.Command, args []string) error {
	mapping, err := normalizeMapping.build()
	if err != nil {
		return err
	}
	data, err := utils.ReadInput(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	res := normalizeTrace(ctx, data, mapping)

	w, closeOut, err := utils.OpenOutput(normalizeOutput, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeOut()

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if normalizeStrict && !res.Success {
		if err := encoder.Encode(res); err != nil {
			return fmt.Errorf("failed to write result: %w", err)
		}
		return utils.NewExitError(exitParseFailure, "")
	}

	for _, warning := range res.Warnings {
		GetLogger().Warn().Msg(warning)
	}
	if err := encoder.Encode(res.Run()); err != nil {
		return fmt.Errorf("failed to write trace: %w", err)
	}
	return nil
}
