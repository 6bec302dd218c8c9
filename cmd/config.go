package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/agenticgokit/agtrace/internal/config"
	"github.com/agenticgokit/agtrace/internal/utils"
)

var configInitForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the agtrace configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write the default configuration file",
	Long: `Write the built-in defaults as a TOML config file.

Without a path the file is written to $HOME/.agtrace.toml, the location
agtrace reads by default.

Examples:
  agtrace config init
  agtrace config init ./agtrace.toml --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long:  `Print the configuration after merging defaults, the config file and AGTRACE_* environment variables.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := config.NewGenerator().Render(GetConfig())
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(content)
		return err
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "Overwrite an existing file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, err := configPath(args)
	if err != nil {
		return err
	}

	if err := config.NewGenerator().GenerateConfig(config.Default(), path, configInitForce); err != nil {
		color.Red("✗ %v", err)
		if !configInitForce && utils.FileExists(path) {
			color.Yellow("Use --force to overwrite")
		}
		return err
	}

	color.Green("✅ Wrote default configuration to %s", path)
	return nil
}

func configPath(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory: %w", err)
	}
	return filepath.Join(home, ".agtrace.toml"), nil
}
