package imaging

import (
	"fmt"
	"image/color"
	"math/rand/v2"

	"github.com/lucasb-eyer/go-colorful"
)

// BackgroundColor is one solid background drawn for a variant.
//
// Channels are kept as int so that the configured bounds can be compared and
// reported without truncation. RandomColor only produces values in 0-255.
type BackgroundColor struct {
	R int `json:"r"` // Red component (0-255)
	G int `json:"g"` // Green component (0-255)
	B int `json:"b"` // Blue component (0-255)
}

// String renders the color as "(r, g, b)".
//
// This text is both the BackgroundColor column value and the color part of the
// variant file name, so downstream tooling that parses either sees the same token.
func (c BackgroundColor) String() string {
	return fmt.Sprintf("(%d, %d, %d)", c.R, c.G, c.B)
}

// RGBA converts the background to an opaque color.NRGBA.
func (c BackgroundColor) RGBA() color.NRGBA {
	return color.NRGBA{R: uint8(c.R), G: uint8(c.G), B: uint8(c.B), A: 255}
}

// Hex returns the "#rrggbb" form.
func (c BackgroundColor) Hex() string {
	cf, _ := colorful.MakeColor(c.RGBA())
	return cf.Hex()
}

// RandomColor draws three independent channel values uniformly from
// [min, max], inclusive on both ends.
//
// min == max is legal and always yields the same color. The caller guarantees
// 0 <= min <= max <= 255; config validation enforces it for pipeline runs.
func RandomColor(rng *rand.Rand, min, max int) BackgroundColor {
	span := max - min + 1
	return BackgroundColor{
		R: min + rng.IntN(span),
		G: min + rng.IntN(span),
		B: min + rng.IntN(span),
	}
}
