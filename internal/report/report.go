// Package report renders analysis results for people and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/agenticgokit/agtrace/internal/normalize"
	"github.com/agenticgokit/agtrace/internal/trace"
)

// Formats lists the supported output formats.
var Formats = []string{"console", "json", "markdown"}

// Report bundles everything known about one analyzed document.
type Report struct {
	File        string           `json:"file,omitempty"`
	Success     bool             `json:"success"`
	Error       string           `json:"error,omitempty"`
	Warnings    []string         `json:"warnings,omitempty"`
	Format      normalize.Format `json:"format,omitempty"`
	StepsPath   string           `json:"stepsPath,omitempty"`
	Run         *trace.TraceRun  `json:"trace"`
	GeneratedAt time.Time        `json:"generatedAt"`
}

// New assembles a report from a parse result and its analyzed run. A nil
// run falls back to the parse result's own trace.
func New(file string, res *normalize.Result, run *trace.TraceRun) *Report {
	r := &Report{File: file, Run: run, GeneratedAt: time.Now()}
	if res != nil {
		r.Success = res.Success
		r.Error = res.Error
		r.Warnings = res.Warnings
		r.Format = res.Format
		r.StepsPath = res.StepsPath
		if r.Run == nil {
			r.Run = res.Trace
		}
	}
	return r
}

// IssuesBySeverity splits the run's issues, errors first.
func (r *Report) IssuesBySeverity() (errors, warnings []*trace.TraceIssue) {
	if r.Run == nil {
		return nil, nil
	}
	for _, issue := range r.Run.Issues {
		if issue.Severity == trace.SeverityError {
			errors = append(errors, issue)
		} else {
			warnings = append(warnings, issue)
		}
	}
	return errors, warnings
}

// Reporter writes reports in one format
type Reporter struct {
	format string
}

// NewReporter creates a reporter for the given format.
func NewReporter(format string) *Reporter {
	return &Reporter{format: format}
}

// Generate writes the report to w.
func (r *Reporter) Generate(rep *Report, w io.Writer) error {
	switch r.format {
	case "console", "":
		return generateConsole(rep, w)
	case "json":
		return generateJSON(rep, w)
	case "markdown", "md":
		return generateMarkdown(rep, w)
	default:
		return fmt.Errorf("unsupported format: %s", r.format)
	}
}

func generateJSON(rep *Report, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(rep)
}
