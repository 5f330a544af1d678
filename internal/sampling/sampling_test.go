package sampling

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(seed uint64) *uint64 { return &seed }

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}
}

func TestNewRand_Seeded(t *testing.T) {
	a, b := NewRand(seeded(5)), NewRand(seeded(5))
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Uint64(), b.Uint64())
	}
	assert.NotNil(t, NewRand(nil))
}

func TestDerive_Reproducible(t *testing.T) {
	p1, p2 := NewRand(seeded(9)), NewRand(seeded(9))
	c1, c2 := Derive(p1), Derive(p2)
	assert.Equal(t, c1.Uint64(), c2.Uint64())

	// Siblings differ.
	d1 := Derive(p1)
	assert.NotEqual(t, Derive(NewRand(seeded(9))).Uint64(), d1.Uint64())
}

func TestFindImages(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "b.png", "a.png", "table.csv", "c.jpg")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))
	touch(t, filepath.Join(dir, "nested"), "deep.png")

	got, err := FindImages(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.png"), filepath.Join(dir, "b.png")}, got)

	got, err = FindImages(dir, "*.jpg")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "c.jpg")}, got)
}

func TestSample_ExactCountFromPool(t *testing.T) {
	pool := []string{"a", "b", "c"}
	inPool := map[string]bool{"a": true, "b": true, "c": true}
	rng := NewRand(seeded(1))

	for _, n := range []int{0, 1, 3, 10, 100} {
		got, err := Sample(rng, pool, n)
		require.NoError(t, err)
		assert.Len(t, got, n)
		for _, p := range got {
			assert.True(t, inPool[p], "sampled %q not in pool", p)
		}
	}
}

func TestSample_WithReplacement(t *testing.T) {
	got, err := Sample(NewRand(seeded(2)), []string{"only"}, 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"only", "only", "only", "only"}, got)
}

func TestSample_EmptyPool(t *testing.T) {
	_, err := Sample(NewRand(seeded(1)), nil, 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyImagePool))

	got, err := Sample(NewRand(seeded(1)), nil, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestSample_Negative(t *testing.T) {
	_, err := Sample(NewRand(seeded(1)), []string{"a"}, -1)
	assert.Error(t, err)
}

func TestLocate_EmptyDirectory(t *testing.T) {
	_, err := Locate(NewRand(seeded(1)), t.TempDir(), "", 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyImagePool))
}

func TestAssigner_Invariants(t *testing.T) {
	thresholds := []struct{ test, val float64 }{
		{0.2, 0.1}, {0.5, 0.5}, {0, 1}, {1, 0}, {0.9, 0.9},
	}
	for _, th := range thresholds {
		a := NewAssigner(NewRand(seeded(3)), th.test, th.val)
		for i := 0; i < 1000; i++ {
			l := a.Assign()
			if l.Train == l.Test {
				t.Fatalf("train/test not exclusive: %+v", l)
			}
			if l.Val && !l.Train {
				t.Fatalf("validation row outside training: %+v", l)
			}
		}
	}
}

func TestAssigner_Degenerate(t *testing.T) {
	allTrain := NewAssigner(NewRand(seeded(4)), 0.0, 1.0)
	for i := 0; i < 200; i++ {
		assert.Equal(t, Label{Train: true, Val: true}, allTrain.Assign())
	}

	allTest := NewAssigner(NewRand(seeded(4)), 1.0, 1.0)
	for i := 0; i < 200; i++ {
		assert.Equal(t, Label{Test: true}, allTest.Assign())
	}

	// Out-of-range thresholds are not rejected.
	below := NewAssigner(NewRand(seeded(4)), -0.5, 2)
	assert.Equal(t, Label{Train: true, Val: true}, below.Assign())
}

func TestAssigner_Proportions(t *testing.T) {
	a := NewAssigner(NewRand(seeded(8)), 0.2, 0.25)
	const n = 20000
	var train, val int
	for i := 0; i < n; i++ {
		l := a.Assign()
		if l.Train {
			train++
		}
		if l.Val {
			val++
		}
	}
	assert.InDelta(t, 0.8, float64(train)/n, 0.02)
	assert.InDelta(t, 0.25, float64(val)/float64(train), 0.02)
}

func TestAssigner_AssignAllPerSource(t *testing.T) {
	keys := []string{"a", "b", "a", "c", "b", "a"}
	a := NewAssigner(NewRand(seeded(6)), 0.5, 0.5)
	labels := a.AssignAll(len(keys), PerSource, func(i int) string { return keys[i] })
	require.Len(t, labels, len(keys))
	assert.Equal(t, labels[0], labels[2])
	assert.Equal(t, labels[0], labels[5])
	assert.Equal(t, labels[1], labels[4])
}

func TestAssigner_AssignAllPerVariant(t *testing.T) {
	a := NewAssigner(NewRand(seeded(6)), 0.5, 0.5)
	labels := a.AssignAll(50, PerVariant, func(int) string {
		t.Fatal("key must not be consulted per variant")
		return ""
	})
	assert.Len(t, labels, 50)
}

func TestParseGranularity(t *testing.T) {
	g, err := ParseGranularity("")
	require.NoError(t, err)
	assert.Equal(t, PerVariant, g)

	g, err = ParseGranularity("source")
	require.NoError(t, err)
	assert.Equal(t, PerSource, g)

	_, err = ParseGranularity("image")
	assert.Error(t, err)
}
