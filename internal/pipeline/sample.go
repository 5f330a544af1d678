package pipeline

import (
	"github.com/ironsheep/dataset-augment/internal/config"
)

// SamplePlan describes what a Prepare run with the same inputs and generator
// would work on.
type SamplePlan struct {
	RunID      string   `json:"run_id"`
	TablePath  string   `json:"table_path"`
	SchemaPath string   `json:"schema_path"`
	Images     []string `json:"images"`
	Variants   int      `json:"variants"`
}

// Sample resolves the stage inputs and draws the image sample without
// compositing or writing anything.
func Sample(in config.StageInput, opts Options) (*SamplePlan, error) {
	p, err := resolve(in, opts)
	if err != nil {
		return nil, err
	}
	return &SamplePlan{
		RunID:      p.inputs.RunID,
		TablePath:  p.inputs.TablePath,
		SchemaPath: p.inputs.SchemaPath,
		Images:     p.images,
		Variants:   len(p.images) * p.settings.BackgroundPerImage,
	}, nil
}
