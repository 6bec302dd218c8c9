package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agenticgokit/agtrace/internal/tui"
	"github.com/agenticgokit/agtrace/internal/utils"
)

var viewCmd = &cobra.Command{
	Use:   "view <trace-file|->",
	Short: "Explore an analyzed trace interactively",
	Long: `Open the interactive viewer on an analyzed trace.

The left panel shows the steps nested by parent; the right panel shows the
selected step's overview, content, issues, metrics and metadata.

Keys:
  ↑/↓ j/k   move          h/l space  fold and unfold
  ←/→ 1-5   switch tabs   enter d    full-screen details
  e/E       next/previous step with issues
  /  n/N    search        q          quit`,
	Args: cobra.ExactArgs(1),
	RunE: runView,
}

var viewMapping mappingFlags

func init() {
	rootCmd.AddCommand(viewCmd)
	viewMapping.register(viewCmd)
}

func runView(cmd *cobra.Command, args []string) error {
	if args[0] == utils.StdioPath {
		return utils.NewUserError(
			"The viewer needs the terminal for input",
			"Save the trace to a file first and pass its path",
			nil,
		)
	}
	res, run, err := loadTrace(cmd, args[0], &viewMapping)
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

	if err := tui.Run(run); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}
