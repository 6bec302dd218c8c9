package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	// Set via ldflags during build
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = runtime.Version()
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display version, build, and runtime information for agtrace.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "agtrace\n")
		fmt.Fprintf(out, "Version:     %s\n", Version)
		fmt.Fprintf(out, "Git Commit:  %s\n", GitCommit)
		fmt.Fprintf(out, "Build Date:  %s\n", BuildDate)
		fmt.Fprintf(out, "Go Version:  %s\n", GoVersion)
		fmt.Fprintf(out, "OS/Arch:     %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
