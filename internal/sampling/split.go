package sampling

import (
	"math/rand/v2"

	"github.com/pkg/errors"
)

// Label is the partition assignment of one row.
//
// Train and Test are mutually exclusive and exhaustive; Val is only ever set on
// training rows.
type Label struct {
	Train bool `json:"is_train"`
	Val   bool `json:"is_val"`
	Test  bool `json:"is_test"`
}

// Granularity selects what one split draw applies to.
type Granularity string

const (
	// PerVariant draws an independent label for every generated row. Variants of
	// one source image can land in different partitions.
	PerVariant Granularity = "variant"

	// PerSource draws one label per source stem and shares it across all of that
	// source's rows.
	PerSource Granularity = "source"
)

// ParseGranularity maps a config value to a Granularity. Empty means PerVariant.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case "", PerVariant:
		return PerVariant, nil
	case PerSource:
		return PerSource, nil
	}
	return "", errors.Errorf("unknown split granularity %q (want %q or %q)", s, PerVariant, PerSource)
}

// Assigner draws split labels.
//
// testThreshold and valThreshold are taken as given; values outside [0,1] make
// the corresponding draw always true or always false.
type Assigner struct {
	rng           *rand.Rand
	testThreshold float64
	valThreshold  float64
}

// NewAssigner creates an Assigner drawing from rng.
func NewAssigner(rng *rand.Rand, testThreshold, valThreshold float64) *Assigner {
	return &Assigner{rng: rng, testThreshold: testThreshold, valThreshold: valThreshold}
}

// Assign draws one label.
//
// A row is training data when u1 > testThreshold. Only training rows draw u2, and
// they become validation rows when u2 < valThreshold.
func (a *Assigner) Assign() Label {
	train := a.rng.Float64() > a.testThreshold
	val := false
	if train {
		val = a.rng.Float64() < a.valThreshold
	}
	return Label{Train: train, Val: val, Test: !train}
}

// AssignAll labels n rows whose group keys are given by key(i).
//
// With PerVariant every row gets its own draw and key is never called. With
// PerSource the first row of each key draws and later rows reuse that label.
func (a *Assigner) AssignAll(n int, g Granularity, key func(i int) string) []Label {
	labels := make([]Label, n)
	if g != PerSource {
		for i := range labels {
			labels[i] = a.Assign()
		}
		return labels
	}
	byKey := make(map[string]Label)
	for i := range labels {
		k := key(i)
		l, ok := byKey[k]
		if !ok {
			l = a.Assign()
			byKey[k] = l
		}
		labels[i] = l
	}
	return labels
}
