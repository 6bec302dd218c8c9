// Package config loads agtrace settings and writes the default config file.
package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/agenticgokit/agtrace/internal/analyzer"
	"github.com/agenticgokit/agtrace/internal/normalize"
	"github.com/agenticgokit/agtrace/internal/report"
	"github.com/agenticgokit/agtrace/internal/utils"
)

// EnvPrefix prefixes every environment override, e.g. AGTRACE_STORE_PATH.
const EnvPrefix = "AGTRACE"

// Config is the full application configuration
type Config struct {
	Normalize normalize.Thresholds `mapstructure:"normalize" toml:"normalize"`
	Analyzer  analyzer.Thresholds  `mapstructure:"analyzer" toml:"analyzer"`
	Store     StoreConfig          `mapstructure:"store" toml:"store"`
	Report    ReportConfig         `mapstructure:"report" toml:"report"`
}

// StoreConfig locates the history database
type StoreConfig struct {
	Path string `mapstructure:"path" toml:"path"`
}

// ReportConfig sets report defaults
type ReportConfig struct {
	Format string `mapstructure:"format" toml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Normalize: normalize.DefaultThresholds(),
		Analyzer:  analyzer.DefaultThresholds(),
		Store:     StoreConfig{Path: ".agtrace/history.db"},
		Report:    ReportConfig{Format: "console"},
	}
}

// SetDefaults registers every key with its default so environment
// overrides and Unmarshal see the full key set.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("normalize.slow_threshold_ms", d.Normalize.SlowMs)
	v.SetDefault("normalize.token_heavy_threshold", d.Normalize.TokenHeavy)
	v.SetDefault("analyzer.speculation_window", d.Analyzer.SpeculationWindow)
	v.SetDefault("analyzer.trailing_output_window", d.Analyzer.TrailingOutputWindow)
	v.SetDefault("analyzer.loop_min_repeats", d.Analyzer.LoopMinRepeats)
	v.SetDefault("analyzer.loop_error_repeats", d.Analyzer.LoopErrorRepeats)
	v.SetDefault("analyzer.short_content_chars", d.Analyzer.ShortContentChars)
	v.SetDefault("analyzer.long_content_chars", d.Analyzer.LongContentChars)
	v.SetDefault("analyzer.argument_tool_hints", d.Analyzer.ArgumentToolHints)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("report.format", d.Report.Format)
}

// BindEnv enables AGTRACE_* overrides for nested keys.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Normalize.SlowMs <= 0 {
		return utils.NewValidationError("normalize.slow_threshold_ms", "must be positive")
	}
	if c.Normalize.TokenHeavy <= 0 {
		return utils.NewValidationError("normalize.token_heavy_threshold", "must be positive")
	}
	a := c.Analyzer
	for _, f := range []struct {
		key   string
		value int
	}{
		{"analyzer.speculation_window", a.SpeculationWindow},
		{"analyzer.trailing_output_window", a.TrailingOutputWindow},
		{"analyzer.short_content_chars", a.ShortContentChars},
		{"analyzer.long_content_chars", a.LongContentChars},
	} {
		if f.value <= 0 {
			return utils.NewValidationError(f.key, "must be positive")
		}
	}
	if a.LoopMinRepeats < 2 {
		return utils.NewValidationError("analyzer.loop_min_repeats", "must be at least 2")
	}
	if a.LoopErrorRepeats < a.LoopMinRepeats {
		return utils.NewValidationError("analyzer.loop_error_repeats", "must not be below analyzer.loop_min_repeats")
	}
	if a.LongContentChars <= a.ShortContentChars {
		return utils.NewValidationError("analyzer.long_content_chars", "must exceed analyzer.short_content_chars")
	}
	if c.Store.Path == "" {
		return utils.NewValidationError("store.path", "is required")
	}
	if !slices.Contains(report.Formats, c.Report.Format) {
		return utils.NewValidationError("report.format", fmt.Sprintf("must be one of %s", strings.Join(report.Formats, ", ")))
	}
	return nil
}
