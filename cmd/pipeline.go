package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gopkg.in/yaml.v3"

	"github.com/agenticgokit/agtrace/internal/analyzer"
	"github.com/agenticgokit/agtrace/internal/normalize"
	"github.com/agenticgokit/agtrace/internal/trace"
	"github.com/agenticgokit/agtrace/internal/utils"
)

const tracerName = "agtrace"

// mappingFlags collects the custom field mapping options shared by every
// command that parses a trace.
type mappingFlags struct {
	file           string
	stepsPath      string
	idField        string
	parentField    string
	typeField      string
	contentField   string
	timestampField string
}

func (f *mappingFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "mapping", "m", "", "Field mapping file (YAML or JSON)")
	cmd.Flags().StringVar(&f.stepsPath, "steps-path", "", "Dot path of the steps array, e.g. data.events")
	cmd.Flags().StringVar(&f.idField, "id-field", "", "Dot path of the step id")
	cmd.Flags().StringVar(&f.parentField, "parent-field", "", "Dot path of the parent step id")
	cmd.Flags().StringVar(&f.typeField, "type-field", "", "Dot path of the step type")
	cmd.Flags().StringVar(&f.contentField, "content-field", "", "Dot path of the step content")
	cmd.Flags().StringVar(&f.timestampField, "timestamp-field", "", "Dot path of the step timestamp")
}

// build merges the mapping file with the individual flags; flags win.
func (f *mappingFlags) build() (*trace.FieldMapping, error) {
	mapping := &trace.FieldMapping{}
	if f.file != "" {
		loaded, err := loadMappingFile(f.file)
		if err != nil {
			return nil, err
		}
		mapping = loaded
	}

	for _, o := range []struct {
		value  string
		target *string
	}{
		{f.stepsPath, &mapping.StepsPath},
		{f.idField, &mapping.IDField},
		{f.parentField, &mapping.ParentIDField},
		{f.typeField, &mapping.TypeField},
		{f.contentField, &mapping.ContentField},
		{f.timestampField, &mapping.TimestampField},
	} {
		if o.value != "" {
			*o.target = o.value
		}
	}

	if err := normalize.ValidateMapping(mapping); err != nil {
		return nil, utils.NewUserError(
			"Invalid field mapping",
			"Use dot paths such as data.steps or messages[0].content",
			err,
		)
	}
	if mapping.IsZero() {
		return nil, nil
	}
	return mapping, nil
}

// loadMappingFile reads a FieldMapping from YAML. JSON files decode the
// same way since the keys are identical.
func loadMappingFile(path string) (*trace.FieldMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, utils.NewUserError(
			fmt.Sprintf("Cannot read mapping file: %s", path),
			"Check the --mapping path",
			err,
		)
	}
	var mapping trace.FieldMapping
	if err := yaml.Unmarshal(data, &mapping); err != nil {
		return nil, utils.NewUserError(
			fmt.Sprintf("Cannot parse mapping file: %s", path),
			"Use keys stepsPath, idField, parentIdField, typeField, contentField, timestampField",
			err,
		)
	}
	return &mapping, nil
}

func normalizerOptions(mapping *trace.FieldMapping) []normalize.Option {
	return []normalize.Option{
		normalize.WithLogger(*GetLogger()),
		normalize.WithThresholds(GetConfig().Normalize),
		normalize.WithMapping(mapping),
	}
}

func analyzerOptions() []analyzer.Option {
	return []analyzer.Option{
		analyzer.WithLogger(*GetLogger()),
		analyzer.WithThresholds(GetConfig().Analyzer),
	}
}

// normalizeTrace parses data inside a span.
func normalizeTrace(ctx context.Context, data []byte, mapping *trace.FieldMapping) *normalize.Result {
	_, span := otel.Tracer(tracerName).Start(ctx, "agtrace.normalize")
	defer span.End()

	res := normalize.New(normalizerOptions(mapping)...).ParseBytes(data)
	span.SetAttributes(
		attribute.Bool("agtrace.success", res.Success),
		attribute.String("agtrace.format", string(res.Format)),
		attribute.Int("agtrace.warnings", len(res.Warnings)),
	)
	if !res.Success {
		span.SetStatus(codes.Error, res.Error)
		return res
	}
	span.SetAttributes(
		attribute.Int("agtrace.nodes", len(res.Trace.Nodes)),
		attribute.String("agtrace.steps_path", res.StepsPath),
	)
	GetLogger().Debug().
		Str("format", string(res.Format)).
		Str("steps_path", res.StepsPath).
		Int("nodes", len(res.Trace.Nodes)).
		Msg("trace normalized")
	return res
}

// analyzeTrace runs the analyzer inside a span.
func analyzeTrace(ctx context.Context, run *trace.TraceRun) *trace.TraceRun {
	_, span := otel.Tracer(tracerName).Start(ctx, "agtrace.analyze")
	defer span.End()

	analyzed := analyzer.New(analyzerOptions()...).Analyze(run)
	span.SetAttributes(
		attribute.String("agtrace.risk", string(analyzed.RiskLevel)),
		attribute.Int("agtrace.issues", len(analyzed.Issues)),
	)
	GetLogger().Debug().
		Str("risk", string(analyzed.RiskLevel)).
		Int("issues", len(analyzed.Issues)).
		Msg("trace analyzed")
	return analyzed
}

// loadTrace reads, normalizes and, when parsing succeeded, analyzes a trace
// file. The analyzed run is nil for a failed parse.
func loadTrace(cmd *cobra.Command, path string, flags *mappingFlags) (*normalize.Result, *trace.TraceRun, error) {
	mapping, err := flags.build()
	if err != nil {
		return nil, nil, err
	}
	data, err := utils.ReadInput(path, cmd.InOrStdin())
	if err != nil {
		return nil, nil, err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := otel.Tracer(tracerName).Start(ctx, "agtrace.load")
	span.SetAttributes(attribute.String("agtrace.file", path))
	defer span.End()

	res := normalizeTrace(ctx, data, mapping)
	if !res.Success {
		return res, nil, nil
	}
	return res, analyzeTrace(ctx, res.Trace), nil
}

// displayName is the file label used in reports and history.
func displayName(path string) string {
	if path == utils.StdioPath {
		return "stdin"
	}
	return path
}
