package sampling

import (
	"math/rand/v2"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
)

// DefaultImagePattern matches the raster files a stage consumes.
const DefaultImagePattern = "*.png"

// ErrEmptyImagePool is returned when a positive sample is requested from a
// directory without any matching image.
var ErrEmptyImagePool = errors.New("no source images found")

// FindImages lists files directly under dir that match pattern, sorted by name.
// Subdirectories are not searched. An empty pattern means DefaultImagePattern.
func FindImages(dir, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultImagePattern
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid image pattern %q", pattern)
	}
	sort.Strings(matches)
	return matches, nil
}

// Sample draws n paths from pool uniformly and independently, with replacement.
//
// Duplicates are expected when n approaches or exceeds len(pool). n == 0 returns
// an empty, non-nil slice even for an empty pool.
//
// # Errors
//
//   - ErrEmptyImagePool if pool is empty and n > 0
//   - an error if n is negative
func Sample(rng *rand.Rand, pool []string, n int) ([]string, error) {
	if n < 0 {
		return nil, errors.Errorf("image sample count must not be negative, got %d", n)
	}
	out := make([]string, 0, n)
	if n == 0 {
		return out, nil
	}
	if len(pool) == 0 {
		return nil, errors.Wrapf(ErrEmptyImagePool, "cannot draw %d samples", n)
	}
	for i := 0; i < n; i++ {
		out = append(out, pool[rng.IntN(len(pool))])
	}
	return out, nil
}

// Locate finds the images under dir and draws n of them.
func Locate(rng *rand.Rand, dir, pattern string, n int) ([]string, error) {
	pool, err := FindImages(dir, pattern)
	if err != nil {
		return nil, err
	}
	sample, err := Sample(rng, pool, n)
	if err != nil {
		return nil, errors.WithMessagef(err, "sampling %q in %s", pattern, dir)
	}
	return sample, nil
}
