package check

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/agenticgokit/agtrace/internal/normalize"
	"github.com/agenticgokit/agtrace/internal/trace"
)

// ParseSuiteFile parses a YAML suite file. Case files are resolved
// relative to the suite file's directory.
func ParseSuiteFile(filePath string) (*Suite, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	suite, err := ParseSuite(data)
	if err != nil {
		return nil, err
	}
	suite.baseDir = filepath.Dir(filePath)
	return suite, nil
}

// ParseSuite parses and validates suite YAML.
func ParseSuite(data []byte) (*Suite, error) {
	var suite Suite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateSuite(&suite); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &suite, nil
}

// resolve returns the fixture path of a case.
func (s *Suite) resolve(c Case) string {
	if filepath.IsAbs(c.File) || s.baseDir == "" {
		return c.File
	}
	return filepath.Join(s.baseDir, c.File)
}

func validateSuite(suite *Suite) error {
	if suite.Name == "" {
		return fmt.Errorf("suite name is required")
	}

	if len(suite.Cases) == 0 {
		return fmt.Errorf("at least one test is required")
	}

	for i, c := range suite.Cases {
		if c.Name == "" {
			return fmt.Errorf("test %d: name is required", i)
		}
		if c.File == "" {
			return fmt.Errorf("test '%s': file is required", c.Name)
		}
		if err := normalize.ValidateMapping(c.Mapping); err != nil {
			return fmt.Errorf("test '%s': %w", c.Name, err)
		}

		exp := c.Expect
		if exp.Risk != "" && !exp.Risk.Valid() {
			return fmt.Errorf("test '%s': expect.risk must be low, medium or high, got %q", c.Name, exp.Risk)
		}
		for _, list := range [][]trace.IssueType{exp.Issues, exp.Absent} {
			for _, t := range list {
				if !t.Valid() {
					return fmt.Errorf("test '%s': unknown issue type %q", c.Name, t)
				}
			}
		}
		if exp.MinNodes < 0 || exp.MaxNodes < 0 {
			return fmt.Errorf("test '%s': node bounds must not be negative", c.Name)
		}
		if exp.MaxNodes > 0 && exp.MinNodes > exp.MaxNodes {
			return fmt.Errorf("test '%s': expect.min_nodes exceeds expect.max_nodes", c.Name)
		}
		if exp.Output != nil {
			if err := validateOutput(c.Name, exp.Output); err != nil {
				return err
			}
		}
	}

	return nil
}

func validateOutput(name string, out *OutputExpectation) error {
	switch out.Type {
	case "exact":
		if out.Value == "" {
			return fmt.Errorf("test '%s': expect.output.value is required for 'exact' type", name)
		}
	case "contains":
		if len(out.Values) == 0 {
			return fmt.Errorf("test '%s': expect.output.values is required for 'contains' type", name)
		}
	case "regex":
		if out.Pattern == "" {
			return fmt.Errorf("test '%s': expect.output.pattern is required for 'regex' type", name)
		}
	case "":
		return fmt.Errorf("test '%s': expect.output.type is required", name)
	default:
		return fmt.Errorf("test '%s': unknown expect.output.type %q", name, out.Type)
	}
	return nil
}
