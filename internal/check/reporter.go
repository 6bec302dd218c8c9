package check

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
)

// Reporter generates suite reports in various formats
type Reporter struct {
	format string
}

// NewReporter creates a new reporter
func NewReporter(format string) *Reporter {
	return &Reporter{format: format}
}

// Generate creates a report and writes it to the writer
func (r *Reporter) Generate(results *SuiteResults, w io.Writer) error {
	switch r.format {
	case "console", "":
		return r.generateConsole(results, w)
	case "json":
		return r.generateJSON(results, w)
	case "junit":
		return r.generateJUnit(results, w)
	case "markdown", "md":
		return r.generateMarkdown(results, w)
	default:
		return fmt.Errorf("unsupported format: %s", r.format)
	}
}

func (r *Reporter) generateConsole(results *SuiteResults, w io.Writer) error {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "  CHECK RESULTS: %s\n", results.SuiteName)
	fmt.Fprintf(w, "═══════════════════════════════════════════════════════════════\n")
	fmt.Fprintf(w, "\n")

	fmt.Fprintf(w, "Total Checks:   %d\n", results.TotalTests)
	fmt.Fprintf(w, "Passed:         %s\n", color.GreenString("%d ✓", results.PassedTests))
	fmt.Fprintf(w, "Failed:         %s\n", color.RedString("%d ✗", results.FailedTests))
	fmt.Fprintf(w, "Pass Rate:      %.1f%%\n", results.PassRate())
	fmt.Fprintf(w, "Duration:       %s\n", formatDuration(results.Duration))
	fmt.Fprintf(w, "\n")

	if results.FailedTests > 0 {
		fmt.Fprintf(w, "───────────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "  FAILED CHECKS\n")
		fmt.Fprintf(w, "───────────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "\n")

		for _, result := range results.Results {
			if result.Passed {
				continue
			}
			fmt.Fprintf(w, "%s\n", color.RedString("✗ %s", result.Name))
			fmt.Fprintf(w, "  File: %s\n", result.File)
			if result.RunID != "" {
				fmt.Fprintf(w, "  Run:  %s (risk %s, %d nodes)\n", result.RunID, result.Risk, result.NodeCount)
			}
			for _, f := range result.Failures {
				fmt.Fprintf(w, "  • %s\n", f)
			}
			fmt.Fprintf(w, "  💡 Inspect it: agtrace analyze %s\n", result.File)
			fmt.Fprintf(w, "\n")
		}
	}

	fmt.Fprintf(w, "───────────────────────────────────────────────────────────────\n")
	if results.AllPassed() {
		fmt.Fprintf(w, "  %s\n", color.GreenString("✓ ALL CHECKS PASSED"))
	} else {
		fmt.Fprintf(w, "  %s\n", color.RedString("✗ SOME CHECKS FAILED"))
	}
	fmt.Fprintf(w, "───────────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "\n")

	return nil
}

func (r *Reporter) generateJSON(results *SuiteResults, w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}

func (r *Reporter) generateJUnit(results *SuiteResults, w io.Writer) error {
	fmt.Fprintf(w, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	fmt.Fprintf(w, "<testsuite name=\"%s\" tests=\"%d\" failures=\"%d\" time=\"%.3f\">\n",
		escapeXML(results.SuiteName), results.TotalTests, results.FailedTests, results.Duration.Seconds())

	for _, result := range results.Results {
		fmt.Fprintf(w, "  <testcase name=\"%s\" classname=\"%s\" time=\"%.3f\">\n",
			escapeXML(result.Name), escapeXML(result.File), result.Duration.Seconds())

		if !result.Passed {
			fmt.Fprintf(w, "    <failure message=\"%s\">\n", escapeXML(strings.Join(result.Failures, "; ")))
			fmt.Fprintf(w, "      Risk: %s, Issues: %s\n", escapeXML(string(result.Risk)), escapeXML(fmt.Sprint(result.IssueTypes)))
			fmt.Fprintf(w, "    </failure>\n")
		}

		fmt.Fprintf(w, "  </testcase>\n")
	}

	fmt.Fprintf(w, "</testsuite>\n")
	return nil
}

func (r *Reporter) generateMarkdown(results *SuiteResults, w io.Writer) error {
	fmt.Fprintf(w, "# Check Report: %s\n\n", results.SuiteName)
	fmt.Fprintf(w, "**Generated:** %s\n\n", time.Now().Format("2006-01-02 15:04:05"))

	fmt.Fprintf(w, "## Summary\n\n")
	fmt.Fprintf(w, "| Metric | Value |\n")
	fmt.Fprintf(w, "|--------|-------|\n")
	fmt.Fprintf(w, "| Total Checks | %d |\n", results.TotalTests)
	fmt.Fprintf(w, "| Passed | %d ✓ |\n", results.PassedTests)
	fmt.Fprintf(w, "| Failed | %d ✗ |\n", results.FailedTests)
	fmt.Fprintf(w, "| Pass Rate | %.1f%% |\n", results.PassRate())
	fmt.Fprintf(w, "| Duration | %s |\n\n", formatDuration(results.Duration))

	if results.AllPassed() {
		fmt.Fprintf(w, "### ✓ All Checks Passed\n\n")
	} else {
		fmt.Fprintf(w, "### ✗ Some Checks Failed\n\n")
	}

	fmt.Fprintf(w, "## Results\n\n")
	fmt.Fprintf(w, "| # | Check | Status | Risk | Issues | Nodes |\n")
	fmt.Fprintf(w, "|---|-------|--------|------|--------|-------|\n")
	for i, result := range results.Results {
		status := "✓ PASSED"
		if !result.Passed {
			status = "✗ FAILED"
		}
		issues := make([]string, len(result.IssueTypes))
		for j, t := range result.IssueTypes {
			issues[j] = string(t)
		}
		fmt.Fprintf(w, "| %d | %s | %s | %s | %s | %d |\n",
			i+1, result.Name, status, result.Risk, strings.Join(issues, ", "), result.NodeCount)
	}
	fmt.Fprintf(w, "\n")

	for _, result := range results.Results {
		if result.Passed {
			continue
		}
		fmt.Fprintf(w, "### ✗ %s\n\n", result.Name)
		fmt.Fprintf(w, "**File:** `%s`\n\n", result.File)
		for _, f := range result.Failures {
			fmt.Fprintf(w, "- %s\n", f)
		}
		fmt.Fprintf(w, "\n")
		if result.ActualOutput != "" {
			fmt.Fprintf(w, "**Final Output:**\n\n```\n%s\n```\n\n", truncate(result.ActualOutput, 500))
		}
	}

	return nil
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.0fms", float64(d.Milliseconds()))
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func escapeXML(s string) string {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return s
	}
	return b.String()
}
