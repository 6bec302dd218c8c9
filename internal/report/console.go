package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/agenticgokit/agtrace/internal/trace"
)

const (
	rule      = "═══════════════════════════════════════════════════════════════"
	thinRule  = "───────────────────────────────────────────────────────────────"
	maxQuoted = 200
)

func riskString(level trace.RiskLevel) string {
	label := strings.ToUpper(string(level))
	switch level {
	case trace.RiskHigh:
		return color.New(color.FgRed, color.Bold).Sprint(label)
	case trace.RiskMedium:
		return color.YellowString(label)
	case trace.RiskLow:
		return color.GreenString(label)
	default:
		return "UNKNOWN"
	}
}

func generateConsole(rep *Report, w io.Writer) error {
	fmt.Fprintf(w, "\n%s\n", rule)
	if rep.File != "" {
		fmt.Fprintf(w, "  TRACE ANALYSIS: %s\n", rep.File)
	} else {
		fmt.Fprintf(w, "  TRACE ANALYSIS\n")
	}
	fmt.Fprintf(w, "%s\n\n", rule)

	if !rep.Success {
		fmt.Fprintf(w, "%s %s\n\n", color.RedString("✗ Could not normalize trace:"), rep.Error)
		writeWarnings(rep, w)
		return nil
	}

	run := rep.Run
	fmt.Fprintf(w, "Run ID:         %s\n", run.ID)
	if run.Source != "" {
		fmt.Fprintf(w, "Source:         %s\n", run.Source)
	}
	if rep.Format != "" {
		fmt.Fprintf(w, "Format:         %s (steps at %s)\n", rep.Format, rep.StepsPath)
	}
	if run.Analyzed() {
		fmt.Fprintf(w, "Risk:           %s\n", riskString(run.RiskLevel))
		fmt.Fprintf(w, "                %s\n", run.RiskExplanation)
	}
	if run.Stats != nil {
		fmt.Fprintf(w, "Nodes:          %d\n", run.Stats.TotalNodes)
		fmt.Fprintf(w, "Actions:        %d\n", run.Stats.TotalActions)
		fmt.Fprintf(w, "Errors:         %d\n", run.Stats.TotalErrors)
	} else {
		fmt.Fprintf(w, "Nodes:          %d\n", len(run.Nodes))
	}
	fmt.Fprintf(w, "\n")

	errs, warns := rep.IssuesBySeverity()
	if len(errs)+len(warns) == 0 {
		if run.Analyzed() {
			fmt.Fprintf(w, "%s\n\n", color.GreenString("✓ No issues detected"))
		}
	} else {
		writeIssueGroup(w, "ERRORS", errs, color.RedString)
		writeIssueGroup(w, "WARNINGS", warns, color.YellowString)
	}

	writeWarnings(rep, w)
	return nil
}

func writeIssueGroup(w io.Writer, title string, issues []*trace.TraceIssue, paint func(string, ...interface{}) string) {
	if len(issues) == 0 {
		return
	}
	fmt.Fprintf(w, "%s\n", thinRule)
	fmt.Fprintf(w, "  %s (%d)\n", title, len(issues))
	fmt.Fprintf(w, "%s\n\n", thinRule)
	for _, issue := range issues {
		fmt.Fprintf(w, "%s %s\n", paint("● [%s]", issue.Type), issue.Title)
		fmt.Fprintf(w, "  Nodes: %s\n", strings.Join(issue.NodeIDs, ", "))
		fmt.Fprintf(w, "  %s\n", truncate(issue.Description, maxQuoted))
		if issue.Suggestion != "" {
			fmt.Fprintf(w, "  💡 %s\n", issue.Suggestion)
		}
		fmt.Fprintf(w, "\n")
	}
}

func writeWarnings(rep *Report, w io.Writer) {
	if len(rep.Warnings) == 0 {
		return
	}
	fmt.Fprintf(w, "%s\n", color.HiBlackString("Normalization warnings:"))
	for _, warning := range rep.Warnings {
		fmt.Fprintf(w, "  • %s\n", warning)
	}
	fmt.Fprintf(w, "\n")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
