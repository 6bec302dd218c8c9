package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenticgokit/agtrace/internal/trace"
	"github.com/agenticgokit/agtrace/internal/utils"
)

const bookingTrace = `{
  "intermediate_steps": [
    [{"tool": "search_flights", "tool_input": "NYC", "log": "search_flights: NYC"}, "[]"],
    [{"tool": "book_flight", "tool_input": "FL-1", "log": "book_flight: FL-1"}, "Booking confirmed | ref 42"]
  ],
  "output": "Your flight is booked!"
}`

// executeCommand runs the root command in an isolated home directory and
// history database.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("AGTRACE_STORE_PATH", filepath.Join(home, "history.db"))

	t.Cleanup(func() {
		analyzeFormat, analyzeOutput, analyzeFailOn, analyzeSave = "", "", "none", false
		analyzeMapping = mappingFlags{}
		normalizeOutput, normalizeStrict = "", false
		normalizeMapping = mappingFlags{}
		mermaidOutput, mermaidFence = "", false
		mermaidMapping = mappingFlags{}
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestAnalyzeJSON(t *testing.T) {
	path := writeFixture(t, "booking.json", bookingTrace)

	out, err := executeCommand(t, "analyze", path, "--format", "json")
	require.NoError(t, err)

	var rep struct {
		Success bool            `json:"success"`
		Run     *trace.TraceRun `json:"trace"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.True(t, rep.Success)
	assert.Equal(t, trace.RiskHigh, rep.Run.RiskLevel)
	assert.Positive(t, rep.Run.IssueSummary[trace.IssueCommitAfterEmpty])
}

func TestAnalyzeFailOn(t *testing.T) {
	path := writeFixture(t, "booking.json", bookingTrace)

	_, err := executeCommand(t, "analyze", path, "--format", "json", "--fail-on", "medium")
	var exitErr *utils.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, exitRiskThreshold, exitErr.Code)
}

func TestAnalyzeParseFailure(t *testing.T) {
	path := writeFixture(t, "odd.json", `{"foo": {"bar": 1}}`)

	out, err := executeCommand(t, "analyze", path, "--format", "markdown")
	var exitErr *utils.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, exitParseFailure, exitErr.Code)
	assert.Contains(t, out, "Normalization Failed")
}

func TestAnalyzeMissingFile(t *testing.T) {
	_, err := executeCommand(t, "analyze", filepath.Join(t.TempDir(), "nope.json"))
	var userErr *utils.UserError
	require.True(t, errors.As(err, &userErr))
	assert.Contains(t, userErr.Message, "not found")
}

func TestAnalyzeSaveAndHistory(t *testing.T) {
	path := writeFixture(t, "booking.json", bookingTrace)
	home := t.TempDir()

	run := func(args ...string) string {
		t.Setenv("HOME", home)
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetErr(&bytes.Buffer{})
		rootCmd.SetArgs(args)
		require.NoError(t, rootCmd.Execute())
		return out.String()
	}
	t.Setenv("AGTRACE_STORE_PATH", filepath.Join(home, "db", "history.db"))
	t.Cleanup(func() {
		analyzeSave, analyzeFormat = false, ""
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	run("analyze", path, "--format", "json", "--save")
	analyzeSave = false

	list := run("history", "list")
	assert.Contains(t, list, "HIGH")
	assert.Contains(t, list, "booking.json")
}

func TestNormalizeCommand(t *testing.T) {
	path := writeFixture(t, "booking.json", bookingTrace)

	out, err := executeCommand(t, "normalize", path)
	require.NoError(t, err)

	var run trace.TraceRun
	require.NoError(t, json.Unmarshal([]byte(out), &run))
	assert.Equal(t, "langchain", run.Source)
	assert.False(t, run.Analyzed(), "normalize does not analyze")
	assert.NotEmpty(t, run.Nodes)
}

func TestNormalizeFailure(t *testing.T) {
	path := writeFixture(t, "odd.json", `{"foo": {"bar": 1}}`)

	t.Run("degenerate run", func(t *testing.T) {
		out, err := executeCommand(t, "normalize", path)
		require.NoError(t, err)

		var run trace.TraceRun
		require.NoError(t, json.Unmarshal([]byte(out), &run))
		require.Len(t, run.Nodes, 1)
		assert.Equal(t, trace.NodeSystem, run.Nodes[0].Type)
	})

	t.Run("strict", func(t *testing.T) {
		out, err := executeCommand(t, "normalize", path, "--strict")
		var exitErr *utils.ExitError
		require.True(t, errors.As(err, &exitErr))
		assert.Contains(t, out, `"success": false`)
	})
}

func TestMermaidCommand(t *testing.T) {
	path := writeFixture(t, "booking.json", bookingTrace)

	out, err := executeCommand(t, "mermaid", path, "--fence")
	require.NoError(t, err)
	assert.Contains(t, out, "```mermaid")
	assert.Contains(t, out, "flowchart")
}

func TestParseFailOn(t *testing.T) {
	tests := []struct {
		in      string
		want    trace.RiskLevel
		wantErr bool
	}{
		{"none", "", false},
		{"", "", false},
		{"HIGH", trace.RiskHigh, false},
		{"medium", trace.RiskMedium, false},
		{"critical", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseFailOn(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMappingFlagsBuild(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		m, err := (&mappingFlags{}).build()
		require.NoError(t, err)
		assert.Nil(t, m)
	})

	t.Run("file with flag override", func(t *testing.T) {
		path := writeFixture(t, "mapping.yaml", "stepsPath: data.events\ncontentField: body.text\n")
		m, err := (&mappingFlags{file: path, contentField: "msg"}).build()
		require.NoError(t, err)
		assert.Equal(t, "data.events", m.StepsPath)
		assert.Equal(t, "msg", m.ContentField)
	})

	t.Run("json file", func(t *testing.T) {
		path := writeFixture(t, "mapping.json", `{"idField": "meta.id"}`)
		m, err := (&mappingFlags{file: path}).build()
		require.NoError(t, err)
		assert.Equal(t, "meta.id", m.IDField)
	})

	t.Run("invalid path", func(t *testing.T) {
		_, err := (&mappingFlags{stepsPath: "data..events"}).build()
		var userErr *utils.UserError
		require.True(t, errors.As(err, &userErr))
	})
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"analyze", "normalize", "mermaid", "view", "check", "history", "config", "version"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestAnalyzeCommand_Flags(t *testing.T) {
	for _, name := range []string{"format", "output", "save", "fail-on", "mapping", "steps-path", "content-field"} {
		assert.NotNil(t, analyzeCmd.Flags().Lookup(name), "analyze should have --%s", name)
	}
	assert.Equal(t, "none", analyzeCmd.Flags().Lookup("fail-on").DefValue)
}
