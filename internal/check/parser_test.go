package check

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenticgokit/agtrace/internal/trace"
)

func TestParseSuite(t *testing.T) {
	suite, err := ParseSuite([]byte(`
name: regressions
tests:
  - name: fabricated booking
    file: fixtures/booking.json
    mapping:
      contentField: body
    expect:
      risk: high
      issues: [commit_after_empty]
      absent: [loop]
      min_nodes: 2
      output:
        type: contains
        values: [booked]
`))
	require.NoError(t, err)
	assert.Equal(t, "regressions", suite.Name)
	require.Len(t, suite.Cases, 1)

	c := suite.Cases[0]
	assert.Equal(t, "body", c.Mapping.ContentField)
	assert.Equal(t, trace.RiskHigh, c.Expect.Risk)
	assert.Equal(t, []trace.IssueType{trace.IssueCommitAfterEmpty}, c.Expect.Issues)
	assert.True(t, c.Expect.WantSuccess())
	assert.Equal(t, "contains", c.Expect.Output.Type)
}

func TestParseSuiteValidation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"missing name", "tests: [{name: a, file: a.json}]", "suite name is required"},
		{"no tests", "name: s", "at least one test is required"},
		{"case without name", "name: s\ntests: [{file: a.json}]", "test 0: name is required"},
		{"case without file", "name: s\ntests: [{name: a}]", "file is required"},
		{"bad risk", "name: s\ntests: [{name: a, file: a.json, expect: {risk: critical}}]", "expect.risk"},
		{"bad issue", "name: s\ntests: [{name: a, file: a.json, expect: {issues: [hallucination]}}]", "unknown issue type"},
		{"bad absent", "name: s\ntests: [{name: a, file: a.json, expect: {absent: [nope]}}]", "unknown issue type"},
		{"inverted bounds", "name: s\ntests: [{name: a, file: a.json, expect: {min_nodes: 5, max_nodes: 2}}]", "min_nodes"},
		{"bad mapping", "name: s\ntests: [{name: a, file: a.json, mapping: {stepsPath: 'a..b'}}]", "stepsPath"},
		{"output without type", "name: s\ntests: [{name: a, file: a.json, expect: {output: {value: x}}}]", "expect.output.type is required"},
		{"regex without pattern", "name: s\ntests: [{name: a, file: a.json, expect: {output: {type: regex}}}]", "pattern is required"},
		{"invalid yaml", "name: [", "failed to parse YAML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSuite([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseSuiteFileResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "suite.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: s\ntests: [{name: a, file: traces/a.json}, {name: b, file: /abs/b.json}]\n"), 0644))

	suite, err := ParseSuiteFile(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "traces", "a.json"), suite.resolve(suite.Cases[0]))
	assert.Equal(t, "/abs/b.json", suite.resolve(suite.Cases[1]))
}

func TestParseSuiteFileMissing(t *testing.T) {
	_, err := ParseSuiteFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read file")
}
