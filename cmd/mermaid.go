package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agenticgokit/agtrace/internal/render"
	"github.com/agenticgokit/agtrace/internal/utils"
)

// mermaidCmd generates Mermaid diagram from trace
var mermaidCmd = &cobra.Command{
	Use:   "mermaid <trace-file|->",
	Short: "Generate Mermaid diagram from trace",
	Long: `Generate a Mermaid flowchart visualizing the agent's execution path.

Each step becomes a node shaped and colored by its type, linked to its
parent. Steps implicated in an issue get a red (error) or amber (warning)
border. With --fence the output is wrapped in a Markdown code block.`,
	Args: cobra.ExactArgs(1),
	RunE: runMermaid,
}

var (
	mermaidOutput  string
	mermaidFence   bool
	mermaidMapping mappingFlags
)

func init() {
	rootCmd.AddCommand(mermaidCmd)

	mermaidCmd.Flags().StringVarP(&mermaidOutput, "output", "o", "", "Output file (default: stdout)")
	mermaidCmd.Flags().BoolVar(&mermaidFence, "fence", false, "Wrap the diagram in a ```mermaid Markdown fence")
	mermaidMapping.register(mermaidCmd)
}

func runMermaid(cmd *cobra.Command, args []string) error {
	res, run, err := loadTrace(cmd, args[0], &mermaidMapping)
	if err != nil {
		return err
	}
	if !res.Success {
		return utils.NewUserError(
			"Could not normalize the trace",
			"Run agtrace analyze for details, or pass a --mapping for custom logs",
			errors.New(res.Error),
		)
	}

	w, closeOut, err := utils.OpenOutput(mermaidOutput, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeOut()

	if _, err := fmt.Fprintln(w, render.Mermaid(run, render.MermaidOptions{Fence: mermaidFence})); err != nil {
		return fmt.Errorf("failed to write diagram: %w", err)
	}
	if mermaidOutput != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Mermaid diagram written to %s\n", mermaidOutput)
	}
	return nil
}
