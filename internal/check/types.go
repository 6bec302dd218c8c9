// Package check runs regression suites: YAML files that list trace
// fixtures and the analysis outcome each one must produce.
package check

import (
	"time"

	"github.com/agenticgokit/agtrace/internal/trace"
)

// Suite represents a collection of trace checks
type Suite struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description,omitempty"`
	Cases       []Case            `yaml:"tests"`
	Metadata    map[string]string `yaml:"metadata,omitempty"`

	// baseDir is the suite file's directory; case files resolve against it.
	baseDir string
}

// Case is one trace fixture and its expected analysis
type Case struct {
	Name        string              `yaml:"name"`
	Description string              `yaml:"description,omitempty"`
	File        string              `yaml:"file"`
	Mapping     *trace.FieldMapping `yaml:"mapping,omitempty"`
	Expect      Expectation         `yaml:"expect"`
}

// Expectation defines what the analysis must yield
type Expectation struct {
	Success  *bool              `yaml:"success,omitempty"` // default true
	Risk     trace.RiskLevel    `yaml:"risk,omitempty"`
	Issues   []trace.IssueType  `yaml:"issues,omitempty"` // all must be present
	Absent   []trace.IssueType  `yaml:"absent,omitempty"` // all must be absent
	MinNodes int                `yaml:"min_nodes,omitempty"`
	MaxNodes int                `yaml:"max_nodes,omitempty"`
	Output   *OutputExpectation `yaml:"output,omitempty"`
}

// OutputExpectation matches the content of the run's last output node
type OutputExpectation struct {
	Type    string   `yaml:"type"` // exact, contains, regex
	Value   string   `yaml:"value,omitempty"`
	Values  []string `yaml:"values,omitempty"`
	Pattern string   `yaml:"pattern,omitempty"`
}

// WantSuccess reports whether the case expects normalization to succeed.
func (e Expectation) WantSuccess() bool {
	return e.Success == nil || *e.Success
}

// CaseResult represents the result of a single check
type CaseResult struct {
	Name         string            `json:"name"`
	File         string            `json:"file"`
	Passed       bool              `json:"passed"`
	Duration     time.Duration     `json:"duration"`
	Failures     []string          `json:"failures,omitempty"`
	RunID        string            `json:"runId,omitempty"`
	Risk         trace.RiskLevel   `json:"risk,omitempty"`
	IssueTypes   []trace.IssueType `json:"issueTypes,omitempty"`
	NodeCount    int               `json:"nodeCount"`
	ParseError   string            `json:"parseError,omitempty"`
	ActualOutput string            `json:"actualOutput,omitempty"`
}

// SuiteResults represents results for an entire suite
type SuiteResults struct {
	SuiteName   string        `json:"suiteName"`
	TotalTests  int           `json:"totalTests"`
	PassedTests int           `json:"passedTests"`
	FailedTests int           `json:"failedTests"`
	Duration    time.Duration `json:"duration"`
	Results     []CaseResult  `json:"results"`
	StartTime   time.Time     `json:"startTime"`
	EndTime     time.Time     `json:"endTime"`
}

// AllPassed returns true if all checks passed
func (sr *SuiteResults) AllPassed() bool {
	return sr.FailedTests == 0
}

// PassRate returns the pass rate as a percentage
func (sr *SuiteResults) PassRate() float64 {
	if sr.TotalTests == 0 {
		return 0
	}
	return float64(sr.PassedTests) / float64(sr.TotalTests) * 100
}
