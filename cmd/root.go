// Package cmd implements the command-line interface for agtrace.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/agenticgokit/agenticgokit/observability"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/agenticgokit/agtrace/internal/config"
	"github.com/agenticgokit/agtrace/internal/utils"
)

var (
	cfgFile        string
	verbose        bool
	debug          bool
	traceEnabled   bool
	traceExporter  string
	traceEndpoint  string
	traceSample    float64
	tracerShutdown func(context.Context) error
	logger         *zerolog.Logger
	appConfig      *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "agtrace",
	Short: "Agent trace normalizer and analyzer",
	Long: `agtrace turns execution logs from any agent framework into one canonical
trace and flags the behavioral failures hiding in them.

Features:
  • Format detection for LangChain, LangGraph, OpenAI, Anthropic and custom logs
  • Canonical thought/action/observation/output nodes with metrics
  • Detection of guessing, fabricated commits, ignored errors and loops
  • Mermaid export, an interactive viewer and regression suites

Get started with: agtrace analyze trace.json`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = utils.NewLogger(debug)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if debug {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
		zerolog.TimeFieldFormat = time.RFC3339

		appConfig, err = config.Load(viper.GetViper())
		if err != nil {
			return utils.NewUserError(
				"Invalid configuration",
				"Fix the value in your config file or AGTRACE_* environment, or regenerate it with: agtrace config init --force",
				err,
			)
		}

		traceEnabled = viper.GetBool("trace")
		traceExporter = viper.GetString("trace_exporter")
		traceEndpoint = viper.GetString("trace_endpoint")
		traceSample = viper.GetFloat64("trace_sample")

		if traceEnabled {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			ctx = observability.WithRunID(ctx, generateRunID())
			ctx = observability.WithLogger(ctx, logger)
			cmd.SetContext(ctx)

			cfg := observability.TracerConfig{
				ServiceName:    "agtrace",
				ServiceVersion: Version,
				Environment:    viper.GetString("environment"),
				Endpoint:       traceEndpoint,
				Exporter:       traceExporter,
				SampleRate:     traceSample,
				Debug:          debug,
				FilePath:       traceEndpoint,
			}

			tracerShutdown, err = observability.SetupTracer(ctx, cfg)
			if err != nil {
				logger.Error().Err(err).Msg("failed to set up tracer")
			}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if tracerShutdown != nil {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			_ = tracerShutdown(ctx)
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.agtrace.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug mode")
	rootCmd.PersistentFlags().BoolVar(&traceEnabled, "trace", false, "enable tracing of agtrace itself")
	rootCmd.PersistentFlags().StringVar(&traceExporter, "trace-exporter", "console", "trace exporter: console|otlp|file")
	rootCmd.PersistentFlags().StringVar(&traceEndpoint, "trace-endpoint", "", "OTLP endpoint URL or file path (for file exporter)")
	rootCmd.PersistentFlags().Float64Var(&traceSample, "trace-sample", 1.0, "trace sample rate (0.0-1.0)")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("trace", rootCmd.PersistentFlags().Lookup("trace"))
	_ = viper.BindPFlag("trace_exporter", rootCmd.PersistentFlags().Lookup("trace-exporter"))
	_ = viper.BindPFlag("trace_endpoint", rootCmd.PersistentFlags().Lookup("trace-endpoint"))
	_ = viper.BindPFlag("trace_sample", rootCmd.PersistentFlags().Lookup("trace-sample"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("toml")
		viper.SetConfigName(".agtrace")
	}

	config.BindEnv(viper.GetViper())
	config.SetDefaults(viper.GetViper())

	viper.SetDefault("trace_exporter", "console")
	viper.SetDefault("trace_sample", 1.0)
	viper.SetDefault("environment", "dev")

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// GetLogger returns the configured logger
func GetLogger() *zerolog.Logger {
	if logger == nil {
		if l, err := utils.NewLogger(false); err == nil {
			logger = l
		} else {
			l := zerolog.New(os.Stderr).With().Timestamp().Logger()
			logger = &l
		}
	}
	return logger
}

// GetConfig returns the loaded configuration, or the defaults before the
// root command has run.
func GetConfig() *config.Config {
	if appConfig == nil {
		return config.Default()
	}
	return appConfig
}

func generateRunID() string {
	return fmt.Sprintf("run-%d", time.Now().UnixNano())
}
