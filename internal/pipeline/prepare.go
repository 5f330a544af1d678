package pipeline

import (
	"context"
	"io"
	"math/rand/v2"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/ironsheep/dataset-augment/internal/config"
	"github.com/ironsheep/dataset-augment/internal/imaging"
	"github.com/ironsheep/dataset-augment/internal/metadata"
	"github.com/ironsheep/dataset-augment/internal/sampling"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

// Options tunes a stage run.
type Options struct {
	// Rand replaces the generator built from the configured seed.
	Rand *rand.Rand

	// Progress receives a progress bar over compositing tasks. Nil disables it.
	Progress io.Writer
}

// Result summarizes a finished stage run.
type Result struct {
	RunID      string `json:"run_id"`
	TablePath  string `json:"table_path"`
	SchemaPath string `json:"schema_path"`
	Rows       int    `json:"rows"`
	Images     int    `json:"images"`
	Skipped    int    `json:"skipped,omitempty"`
	Bytes      int64  `json:"bytes_written"`

	// Variants lists the images written by prepare, in task order.
	Variants []imaging.Variant `json:"variants,omitempty"`
}

// plan is everything resolved before any output is produced.
type plan struct {
	settings *config.Settings
	inputs   *metadata.Inputs
	images   []string
	rng      *rand.Rand
}

// resolve loads the config, discovers the input table and schema, and samples
// the source images. It writes nothing.
func resolve(in config.StageInput, opts Options) (*plan, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	settings, err := config.Load(in.ScriptConfig)
	if err != nil {
		return nil, err
	}
	settings.ApplyEnv()
	if err := settings.Validate(); err != nil {
		return nil, errors.WithMessagef(err, "config %q", in.ScriptConfig)
	}

	inputs, err := metadata.DiscoverInputs(in.DataDir, settings.MatchPolicy)
	if err != nil {
		return nil, err
	}

	rng := opts.Rand
	if rng == nil {
		rng = sampling.NewRand(settings.Seed)
	}
	images, err := sampling.Locate(rng, in.DataDir, settings.ImagePattern, settings.ImageSampleCount)
	if err != nil {
		return nil, err
	}
	return &plan{settings: settings, inputs: inputs, images: images, rng: rng}, nil
}

// Prepare runs the augmentation stage: it composites every sampled image onto
// BackgroundPerImage random backgrounds in ResultDir, propagates one metadata
// row per variant, assigns split labels, and commits the output table and
// schema under ResultDir/AP_Metadata.
//
// On error no output table or schema is written. Variant images already saved
// stay in ResultDir.
func Prepare(ctx context.Context, in config.StageInput, opts Options) (*Result, error) {
	p, err := resolve(in, opts)
	if err != nil {
		return nil, err
	}
	s := p.settings
	klog.Infof("Running prepare on %s with color range (%d, %d), imageSampleCount: %d, backgroundPerImage: %d, testThreshold: %g, valThreshold: %g",
		in.DataDir, s.ColorRangeMin, s.ColorRangeMax, s.ImageSampleCount, s.BackgroundPerImage, s.TestThreshold, s.ValThreshold)

	table, err := metadata.LoadTable(p.inputs.TablePath)
	if err != nil {
		return nil, err
	}
	klog.V(1).Infof("loaded %d metadata rows from %s", table.Len(), p.inputs.TablePath)
	if err := os.MkdirAll(in.ResultDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create result dir %q", in.ResultDir)
	}

	// With no backgrounds there is nothing to composite, so sources are never
	// decoded.
	var tasks []task
	if s.BackgroundPerImage > 0 {
		tasks = make([]task, len(p.images))
	}
	cache := imaging.NewImageCache()
	for i := range tasks {
		path := p.images[i]
		cache.Expect(path, 1)
		tasks[i] = task{index: i, path: path, stem: metadata.Stem(path), rng: sampling.Derive(p.rng)}
	}

	compositor := imaging.NewCompositor(cache, in.ResultDir, s.ColorRangeMin, s.ColorRangeMax)
	newWorker := func(id int) *Worker {
		return &Worker{
			ID:         id,
			compositor: compositor,
			table:      table,
			runID:      p.inputs.RunID,
			policy:     s.MatchPolicy,
			count:      s.BackgroundPerImage,
			skipDecode: s.OnDecodeError == config.DecodeSkip,
		}
	}

	var done func()
	if opts.Progress != nil && len(tasks) > 0 {
		bar := progressbar.NewOptions(len(tasks),
			progressbar.OptionSetWriter(opts.Progress),
			progressbar.OptionSetDescription("Compositing"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetTheme(progressbar.ThemeASCII),
		)
		defer bar.Finish()
		done = func() { _ = bar.Add(1) }
	}

	results, err := runPool(ctx, s.Workers, tasks, newWorker, done)
	if err != nil {
		return nil, err
	}
	// Every task releases its source, so a drained pool leaves the cache empty.
	if n := cache.Len(); n > 0 {
		klog.Warningf("%d decoded images still cached after compositing", n)
	}

	res := &Result{RunID: p.inputs.RunID, Images: len(p.images)}
	var rows []metadata.Row
	for _, r := range results {
		if r.skipped {
			res.Skipped++
			continue
		}
		rows = append(rows, r.rows...)
		res.Variants = append(res.Variants, r.variants...)
		res.Bytes += r.bytes
	}

	labels := sampling.NewAssigner(p.rng, s.TestThreshold, s.ValThreshold).
		AssignAll(len(rows), s.SplitGranularity, func(i int) string { return rows[i][metadata.NameColumn] })
	for i, row := range rows {
		metadata.ApplyLabel(row, labels[i])
	}

	res.TablePath, res.SchemaPath, err = metadata.WriteOutputs(metadata.Output{
		ResultDir:   in.ResultDir,
		RunID:       p.inputs.RunID,
		SchemaSrc:   p.inputs.SchemaPath,
		Descriptors: metadata.SplitDescriptors,
		Columns:     metadata.Assemble(table.Columns(), metadata.PrepareColumns, rows),
		Rows:        rows,
	})
	if err != nil {
		return nil, err
	}
	res.Rows = len(rows)

	klog.Infof("Wrote %d rows for %d sampled images (%s of images) to %s",
		res.Rows, res.Images, humanize.Bytes(uint64(res.Bytes)), res.TablePath)
	if res.Skipped > 0 {
		klog.Warningf("%d sampled images could not be decoded and were skipped", res.Skipped)
	}
	return res, nil
}
