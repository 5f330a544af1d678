package pipeline

import (
	"context"

	"github.com/ironsheep/dataset-augment/internal/config"
	"github.com/ironsheep/dataset-augment/internal/metadata"
	"k8s.io/klog/v2"
)

// Aggregate commits rows, already populated by the caller, as the stage output
// table over the input table's columns. The input schema is copied unchanged.
//
// With no rows a header-only table is written.
func Aggregate(ctx context.Context, in config.StageInput, rows []metadata.Row) (*Result, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	settings, err := config.Load(in.ScriptConfig)
	if err != nil {
		return nil, err
	}

	inputs, err := metadata.DiscoverInputs(in.DataDir, settings.MatchPolicy)
	if err != nil {
		return nil, err
	}
	table, err := metadata.LoadTable(inputs.TablePath)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	klog.Infof("Running aggregate on %s with %d rows", in.DataDir, len(rows))
	tablePath, schemaPath, err := metadata.WriteOutputs(metadata.Output{
		ResultDir: in.ResultDir,
		RunID:     inputs.RunID,
		SchemaSrc: inputs.SchemaPath,
		Columns:   metadata.Assemble(table.Columns(), nil, rows),
		Rows:      rows,
	})
	if err != nil {
		return nil, err
	}
	return &Result{
		RunID:      inputs.RunID,
		TablePath:  tablePath,
		SchemaPath: schemaPath,
		Rows:       len(rows),
	}, nil
}
