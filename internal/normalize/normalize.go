// Package normalize turns heterogeneous agent execution logs into the
// canonical trace model. It detects the log dialect, finds the array of
// steps, splits compound records and extracts every canonical field with
// an ordered fallback chain.
package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/agenticgokit/agtrace/internal/trace"
)

// Result is the outcome of a parse. A failed parse carries a human
// readable error instead of a trace; it is never reported as a Go error.
type Result struct {
	Success   bool            `json:"success"`
	Trace     *trace.TraceRun `json:"trace,omitempty"`
	Error     string          `json:"error,omitempty"`
	Warnings  []string        `json:"warnings,omitempty"`
	Format    Format          `json:"format,omitempty"`
	StepsPath string          `json:"stepsPath,omitempty"`
}

// Normalizer parses trace documents. It holds only read-only settings and
// is safe for concurrent use.
type Normalizer struct {
	logger     zerolog.Logger
	mapping    *trace.FieldMapping
	thresholds Thresholds
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLogger sets the debug logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(n *Normalizer) {
		n.logger = logger
	}
}

// WithMapping sets a custom field mapping. Populated fields take priority
// over the heuristics; a nil or empty mapping is ignored.
func WithMapping(mapping *trace.FieldMapping) Option {
	return func(n *Normalizer) {
		if mapping.IsZero() {
			n.mapping = nil
			return
		}
		m := *mapping
		n.mapping = &m
	}
}

// WithThresholds overrides the slow and token-heavy limits.
func WithThresholds(th Thresholds) Option {
	return func(n *Normalizer) {
		n.thresholds = th
	}
}

// New creates a Normalizer.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		logger:     zerolog.Nop(),
		thresholds: DefaultThresholds(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Parse normalizes an already decoded JSON document with default settings.
func Parse(root any, mapping *trace.FieldMapping) *Result {
	return New(WithMapping(mapping)).Parse(root)
}

// ParseBytes decodes and normalizes a JSON document.
func (n *Normalizer) ParseBytes(data []byte) *Result {
	root, err := decodeJSON(data)
	if err != nil {
		return &Result{Error: "Invalid JSON: " + err.Error()}
	}
	return n.Parse(root)
}

// Parse normalizes a decoded JSON document. It never panics and always
// returns a Result.
func (n *Normalizer) Parse(root any) (res *Result) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error().Interface("panic", r).Msg("normalization aborted")
			res = &Result{Error: fmt.Sprintf("Failed to normalize trace: %v", r)}
		}
	}()

	if root == nil {
		return &Result{Error: "No trace data provided. Expected a JSON object or array of steps."}
	}

	var warnings []string
	customPath := ""
	if n.mapping != nil && n.mapping.StepsPath != "" {
		if err := ValidatePath(n.mapping.StepsPath); err != nil {
			warnings = append(warnings, fmt.Sprintf("Ignoring custom steps path: %v", err))
		} else {
			customPath = n.mapping.StepsPath
		}
	}

	format := DetectFormat(root)
	n.logger.Debug().Str("format", string(format)).Msg("detected trace format")

	loc, err := LocateSteps(root, format, customPath)
	if err != nil {
		n.logger.Debug().Err(err).Msg("no steps array found")
		return &Result{Error: err.Error(), Warnings: warnings, Format: format}
	}
	if customPath != "" && loc.Path != customPath {
		warnings = append(warnings, fmt.Sprintf("Custom steps path %q did not resolve to an array; using %q instead", customPath, loc.Path))
	}
	n.logger.Debug().Str("path", loc.Path).Int("records", len(loc.Steps)).Msg("located steps")

	steps := expandSteps(loc.Steps)
	if len(steps) != len(loc.Steps) {
		n.logger.Debug().Int("records", len(loc.Steps)).Int("steps", len(steps)).Msg("expanded compound records")
	}

	run, stepWarnings := n.assemble(root, format, steps)
	warnings = append(warnings, stepWarnings...)
	for _, w := range stepWarnings {
		n.logger.Debug().Msg(w)
	}

	return &Result{
		Success:   true,
		Trace:     run,
		Warnings:  warnings,
		Format:    format,
		StepsPath: loc.Path,
	}
}

// Run returns the parsed trace, or a run holding a single system node
// describing the failure.
func (r *Result) Run() *trace.TraceRun {
	if r.Success {
		return r.Trace
	}
	return failedRun(r.Error, r.Warnings)
}

// Normalize always returns a run. When parsing fails the run holds a
// single system node describing the failure.
func (n *Normalizer) Normalize(root any) *trace.TraceRun {
	return n.Parse(root).Run()
}

// NormalizeBytes is Normalize over raw JSON.
func (n *Normalizer) NormalizeBytes(data []byte) *trace.TraceRun {
	return n.ParseBytes(data).Run()
}

func decodeJSON(data []byte) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("input is empty")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after the top-level value")
	}
	return root, nil
}

// MappingError reports an unusable field mapping path.
type MappingError struct {
	Field string
	Err   error
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *MappingError) Unwrap() error {
	return e.Err
}

// ValidateMapping checks that every populated path is syntactically valid.
func ValidateMapping(m *trace.FieldMapping) error {
	if m == nil {
		return nil
	}
	fields := []struct {
		name string
		path string
	}{
		{"stepsPath", m.StepsPath},
		{"idField", m.IDField},
		{"parentIdField", m.ParentIDField},
		{"typeField", m.TypeField},
		{"contentField", m.ContentField},
		{"timestampField", m.TimestampField},
	}
	for _, f := range fields {
		if f.path == "" {
			continue
		}
		if err := ValidatePath(f.path); err != nil {
			return &MappingError{Field: f.name, Err: err}
		}
	}
	return nil
}
