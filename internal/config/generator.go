package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const configHeader = `# agtrace configuration
# Every key can be overridden with an AGTRACE_ environment variable,
# e.g. AGTRACE_ANALYZER_LOOP_MIN_REPEATS=4.

`

// Generator writes configuration files
type Generator struct{}

// NewGenerator creates a new config generator
func NewGenerator() *Generator {
	return &Generator{}
}

// Render encodes cfg as TOML with a short header.
func (g *Generator) Render(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(configHeader)
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// GenerateConfig writes cfg to outputPath. An existing file is kept
// unless force is set.
func (g *Generator) GenerateConfig(cfg *Config, outputPath string, force bool) error {
	if cfg == nil {
		cfg = Default()
	}
	if _, err := os.Stat(outputPath); err == nil && !force {
		return fmt.Errorf("config file already exists: %s", outputPath)
	}

	content, err := g.Render(cfg)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(outputPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
