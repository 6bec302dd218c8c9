package report

import (
	"io"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/agenticgokit/agtrace/internal/trace"
)

const markdownTemplate = `# Trace Analysis{{ with .File }}: {{ . }}{{ end }}

**Generated:** {{ .GeneratedAt | date "2006-01-02 15:04:05" }}

{{ if not .Success -}}
## Normalization Failed

` + "```" + `
{{ .Error }}
` + "```" + `
{{ else -}}
## Summary

| Field | Value |
|-------|-------|
| Run ID | ` + "`{{ .Run.ID }}`" + ` |
| Source | {{ .Run.Source | default "unknown" }} |
| Format | {{ .Format | toString | default "n/a" }} |
| Steps Path | ` + "`{{ .StepsPath }}`" + ` |
| Risk | **{{ risk .Run.RiskLevel }}** |
{{- with .Run.Stats }}
| Nodes | {{ .TotalNodes }} |
| Actions | {{ .TotalActions }} |
| Errors | {{ .TotalErrors }} |
{{- end }}

{{ .Run.RiskExplanation }}

## Issues

{{ if not .Run.Issues -}}
No issues detected.
{{ else -}}
{{ range $i, $issue := .Run.Issues -}}
### {{ add1 $i }}. {{ severityIcon $issue.Severity }} {{ $issue.Title }}

- **Type:** ` + "`{{ $issue.Type }}`" + `
- **Severity:** {{ $issue.Severity }}
- **Nodes:** {{ join ", " $issue.NodeIDs }}

{{ $issue.Description }}
{{ with $issue.Suggestion }}
> 💡 {{ . }}
{{ end }}
{{ end -}}
{{ end -}}
## Steps

| # | ID | Type | Content | Issues |
|---|----|------|---------|--------|
{{ range .Run.Nodes -}}
| {{ .Order }} | ` + "`{{ .ID }}`" + ` | {{ .Type }} | {{ cell .Content }} | {{ len .Issues }} |
{{ end -}}
{{ end -}}
{{ with .Warnings }}
## Normalization Warnings

{{ range . -}}
- {{ . }}
{{ end -}}
{{ end -}}
`

const maxCellChars = 80

var cellReplacer = strings.NewReplacer("|", `\|`, "\r", " ", "\n", " ", "`", "'")

func markdownFuncs() template.FuncMap {
	funcs := sprig.TxtFuncMap()
	funcs["risk"] = func(level trace.RiskLevel) string {
		if level == "" {
			return "N/A"
		}
		return strings.ToUpper(string(level))
	}
	funcs["severityIcon"] = func(sev trace.Severity) string {
		if sev == trace.SeverityError {
			return "🔴"
		}
		return "🟡"
	}
	funcs["cell"] = func(s string) string {
		s = strings.Join(strings.Fields(cellReplacer.Replace(s)), " ")
		if r := []rune(s); len(r) > maxCellChars {
			s = string(r[:maxCellChars-3]) + "..."
		}
		return s
	}
	return funcs
}

var markdownTmpl = template.Must(template.New("report").Funcs(markdownFuncs()).Parse(markdownTemplate))

func generateMarkdown(rep *Report, w io.Writer) error {
	return markdownTmpl.Execute(w, rep)
}
