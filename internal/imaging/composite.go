package imaging

import (
	"context"
	"fmt"
	"image"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Origin is where every source image is placed on its canvas.
var Origin = image.Point{}

// Variant is one background-randomized copy of a source image, already persisted.
type Variant struct {
	// Source is the path of the image the variant was generated from.
	Source string `json:"source"`

	// Stem is the source file name without its extension.
	Stem string `json:"stem"`

	// Color is the background drawn for this variant.
	Color BackgroundColor `json:"color"`

	// ColorHex is Color in "#rrggbb" form.
	ColorHex string `json:"color_hex"`

	// Position is where the source was placed on the canvas (always the origin).
	Position image.Point `json:"position"`

	// Path is the written PNG file.
	Path string `json:"path"`

	// Bytes is the size of the written file.
	Bytes int64 `json:"bytes"`
}

// FileName returns the base name of the written file.
func (v Variant) FileName() string {
	return filepath.Base(v.Path)
}

// VariantFileName derives the deterministic output name for a source stem and color.
func VariantFileName(stem string, c BackgroundColor) string {
	return fmt.Sprintf("%s_%s.png", stem, c)
}

// Composite builds an opaque canvas the size of src filled with bg and draws src
// on it at the origin, blending through src's alpha channel.
func Composite(src image.Image, bg BackgroundColor) *image.NRGBA {
	bounds := src.Bounds()
	canvas := imaging.New(bounds.Dx(), bounds.Dy(), bg.RGBA())
	if !HasAlpha(src) {
		return imaging.Paste(canvas, src, Origin)
	}
	return imaging.Overlay(canvas, src, Origin, 1.0)
}

// Compositor generates and persists background variants for source images.
type Compositor struct {
	cache    *ImageCache
	outDir   string
	colorMin int
	colorMax int
}

// NewCompositor creates a Compositor writing into outDir and drawing channel values
// from [colorMin, colorMax]. A nil cache gets a private one.
func NewCompositor(cache *ImageCache, outDir string, colorMin, colorMax int) *Compositor {
	if cache == nil {
		cache = NewImageCache()
	}
	return &Compositor{
		cache:    cache,
		outDir:   outDir,
		colorMin: colorMin,
		colorMax: colorMax,
	}
}

// Compose produces count variants of the image at path.
//
// Parameters:
//   - ctx: checked between variants so a failing run stops early.
//   - path: source image path.
//   - stem: join key of the source, used in output file names.
//   - count: number of variants (backgrounds) to generate.
//   - rng: random source owned by the calling goroutine.
//
// Returns the variants in generation order. On any error the variants written so
// far stay on disk and the error is returned alone.
//
// # Errors
//
//   - *DecodeError if the source cannot be decoded
//   - wrapped write errors if a variant cannot be persisted
//   - ctx.Err() if the context was cancelled
func (c *Compositor) Compose(ctx context.Context, path, stem string, count int, rng *rand.Rand) ([]Variant, error) {
	defer c.cache.Release(path)
	src, err := c.cache.Load(path)
	if err != nil {
		return nil, err
	}

	variants := make([]Variant, 0, count)
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		bg := RandomColor(rng, c.colorMin, c.colorMax)
		out := filepath.Join(c.outDir, VariantFileName(stem, bg))
		klog.V(2).Infof("FileName: %s, newFile: %s, color: %s", stem, out, bg)

		n, err := SavePNG(out, Composite(src, bg))
		if err != nil {
			return nil, err
		}
		variants = append(variants, Variant{
			Source:   path,
			Stem:     stem,
			Color:    bg,
			ColorHex: bg.Hex(),
			Position: Origin,
			Path:     out,
			Bytes:    n,
		})
	}
	return variants, nil
}

// SavePNG encodes img as PNG at path, replacing any existing file, and returns the
// number of bytes written.
func SavePNG(path string, img image.Image) (int64, error) {
	if err := imgio.Save(path, img, imgio.PNGEncoder()); err != nil {
		return 0, errors.Wrapf(err, "failed to write variant %q", path)
	}
	stat, err := os.Stat(path)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to stat variant %q", path)
	}
	return stat.Size(), nil
}
