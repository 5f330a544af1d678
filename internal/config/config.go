package config

import (
	"encoding/json"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/ironsheep/dataset-augment/internal/metadata"
	"github.com/ironsheep/dataset-augment/internal/sampling"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ErrConfigNotFound is returned when the stage config file does not exist.
var ErrConfigNotFound = errors.New("stage config not found")

// DefaultWorkers is the compositing pool width when Workers is not set.
const DefaultWorkers = 64

// Keys of the stage config document. The threshold spellings are part of the
// existing config contract.
const (
	KeyColorRangeMin      = "ColorRangeMin"
	KeyColorRangeMax      = "ColorRangeMax"
	KeyImageSampleCount   = "ImageSampleCount"
	KeyBackgroundPerImage = "BackgroundPerImage"
	KeyTestThreshold      = "TestThreshhold"
	KeyValThreshold       = "ValThreshhold"
	KeyWorkers            = "Workers"
	KeySeed               = "Seed"
	KeyImagePattern       = "ImagePattern"
	KeyMatchPolicy        = "MatchPolicy"
	KeySplitGranularity   = "SplitGranularity"
	KeyOnDecodeError      = "OnDecodeError"
)

// PrepareKeys must be present for the Prepare stage.
var PrepareKeys = []string{
	KeyColorRangeMin,
	KeyColorRangeMax,
	KeyImageSampleCount,
	KeyBackgroundPerImage,
	KeyTestThreshold,
	KeyValThreshold,
}

// DecodePolicy selects what happens when a sampled source image cannot be decoded.
type DecodePolicy string

const (
	// DecodeAbort fails the run on the first undecodable image.
	DecodeAbort DecodePolicy = "abort"
	// DecodeSkip logs the image and drops its rows from the output.
	DecodeSkip DecodePolicy = "skip"
)

// ParseDecodePolicy maps a config value to a DecodePolicy. Empty means DecodeAbort.
func ParseDecodePolicy(s string) (DecodePolicy, error) {
	switch DecodePolicy(s) {
	case "", DecodeAbort:
		return DecodeAbort, nil
	case DecodeSkip:
		return DecodeSkip, nil
	}
	return "", errors.Errorf("unknown decode error policy %q (want %q or %q)", s, DecodeAbort, DecodeSkip)
}

// StageInput is the descriptor a job orchestrator hands to a stage.
type StageInput struct {
	// DataDir holds the source images, the input table and its schema.
	DataDir string `json:"data_dir"`

	// ToolsDir holds auxiliary tools. It is accepted and unused.
	ToolsDir string `json:"tools_dir,omitempty"`

	// ScriptConfig is the path of the stage config document.
	ScriptConfig string `json:"script_config"`

	// ResultDir receives generated images and the AP_Metadata outputs.
	ResultDir string `json:"result_dir"`
}

// Validate checks that the required directories and files are named.
func (in StageInput) Validate() error {
	var missing []string
	if in.DataDir == "" {
		missing = append(missing, "data dir")
	}
	if in.ScriptConfig == "" {
		missing = append(missing, "script config")
	}
	if in.ResultDir == "" {
		missing = append(missing, "result dir")
	}
	if len(missing) > 0 {
		return errors.Errorf("stage input is missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// Settings is the parsed stage config.
type Settings struct {
	ColorRangeMin      int     `json:"color_range_min"`
	ColorRangeMax      int     `json:"color_range_max"`
	ImageSampleCount   int     `json:"image_sample_count"`
	BackgroundPerImage int     `json:"background_per_image"`
	TestThreshold      float64 `json:"test_threshold"`
	ValThreshold       float64 `json:"val_threshold"`

	Workers          int                  `json:"workers"`
	Seed             *uint64              `json:"seed,omitempty"`
	ImagePattern     string               `json:"image_pattern"`
	MatchPolicy      metadata.MatchPolicy `json:"match_policy"`
	SplitGranularity sampling.Granularity `json:"split_granularity"`
	OnDecodeError    DecodePolicy         `json:"on_decode_error"`

	// keys that were present in the document
	present map[string]bool
}

// Default returns Settings with every optional field at its default.
func Default() *Settings {
	return &Settings{
		Workers:          DefaultWorkers,
		ImagePattern:     sampling.DefaultImagePattern,
		MatchPolicy:      metadata.FirstMatch,
		SplitGranularity: sampling.PerVariant,
		OnDecodeError:    DecodeAbort,
		present:          map[string]bool{},
	}
}

// Load reads the stage config document at path.
//
// A missing file yields ErrConfigNotFound. Numeric keys accept either JSON
// numbers or numeric strings.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrConfigNotFound, "%q", path)
		}
		return nil, errors.Wrapf(err, "failed to read config %q", path)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, errors.WithMessagef(err, "config %q", path)
	}
	return s, nil
}

// Parse decodes a stage config document. Unknown keys are ignored.
func Parse(data []byte) (*Settings, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}

	s := Default()
	for k := range doc {
		s.present[k] = true
	}

	ints := []struct {
		key string
		dst *int
	}{
		{KeyColorRangeMin, &s.ColorRangeMin},
		{KeyColorRangeMax, &s.ColorRangeMax},
		{KeyImageSampleCount, &s.ImageSampleCount},
		{KeyBackgroundPerImage, &s.BackgroundPerImage},
		{KeyWorkers, &s.Workers},
	}
	for _, f := range ints {
		raw, ok := doc[f.key]
		if !ok {
			continue
		}
		v, err := parseInt(raw)
		if err != nil {
			return nil, errors.WithMessagef(err, "key %s", f.key)
		}
		*f.dst = v
	}

	floats := []struct {
		key string
		dst *float64
	}{
		{KeyTestThreshold, &s.TestThreshold},
		{KeyValThreshold, &s.ValThreshold},
	}
	for _, f := range floats {
		raw, ok := doc[f.key]
		if !ok {
			continue
		}
		v, err := parseFloat(raw)
		if err != nil {
			return nil, errors.WithMessagef(err, "key %s", f.key)
		}
		*f.dst = v
	}

	if raw, ok := doc[KeySeed]; ok && string(raw) != "null" {
		seed, err := strconv.ParseUint(scalar(raw), 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "key %s", KeySeed)
		}
		s.Seed = &seed
	}

	strs := map[string]string{}
	for _, k := range []string{KeyImagePattern, KeyMatchPolicy, KeySplitGranularity, KeyOnDecodeError} {
		if raw, ok := doc[k]; ok {
			strs[k] = scalar(raw)
		}
	}
	if p := strs[KeyImagePattern]; p != "" {
		s.ImagePattern = p
	}
	var err error
	if s.MatchPolicy, err = metadata.ParseMatchPolicy(strs[KeyMatchPolicy]); err != nil {
		return nil, err
	}
	if s.SplitGranularity, err = sampling.ParseGranularity(strs[KeySplitGranularity]); err != nil {
		return nil, err
	}
	if s.OnDecodeError, err = ParseDecodePolicy(strs[KeyOnDecodeError]); err != nil {
		return nil, err
	}
	return s, nil
}

// Has reports whether key was present in the parsed document.
func (s *Settings) Has(key string) bool {
	return s.present[key]
}

// Validate checks the settings the Prepare stage depends on.
//
// Thresholds outside [0,1] are accepted with a warning; they make the
// corresponding draw constant.
func (s *Settings) Validate() error {
	var missing []string
	for _, k := range PrepareKeys {
		if !s.Has(k) {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return errors.Errorf("config is missing %s", strings.Join(missing, ", "))
	}

	if s.ColorRangeMin < 0 || s.ColorRangeMax > 255 || s.ColorRangeMin > s.ColorRangeMax {
		return errors.Errorf("invalid color range [%d, %d]: want 0 <= %s <= %s <= 255",
			s.ColorRangeMin, s.ColorRangeMax, KeyColorRangeMin, KeyColorRangeMax)
	}
	if s.ImageSampleCount < 0 {
		return errors.Errorf("%s must not be negative, got %d", KeyImageSampleCount, s.ImageSampleCount)
	}
	if s.BackgroundPerImage < 0 {
		return errors.Errorf("%s must not be negative, got %d", KeyBackgroundPerImage, s.BackgroundPerImage)
	}
	if s.Workers < 1 {
		return errors.Errorf("%s must be at least 1, got %d", KeyWorkers, s.Workers)
	}
	for _, th := range []struct {
		key string
		v   float64
	}{{KeyTestThreshold, s.TestThreshold}, {KeyValThreshold, s.ValThreshold}} {
		if th.v < 0 || th.v > 1 {
			klog.Warningf("%s=%g is outside [0, 1]", th.key, th.v)
		}
	}
	return nil
}

// scalar returns the text of a JSON string, or the raw token otherwise.
func scalar(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}

func parseFloat(raw json.RawMessage) (float64, error) {
	v, err := strconv.ParseFloat(scalar(raw), 64)
	if err != nil {
		return 0, errors.Errorf("%s is not a number", raw)
	}
	return v, nil
}

func parseInt(raw json.RawMessage) (int, error) {
	text := scalar(raw)
	if v, err := strconv.Atoi(text); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, errors.Errorf("%s is not an integer", raw)
	}
	return int(f), nil
}
