// Package imaging provides the raster side of dataset augmentation.
//
// This package decodes source images, draws random solid background colors, and
// composites each source onto an opaque canvas of the same size before persisting
// the result as PNG. All operations work with standard Go image.Image types and use
// a coordinate system where (0,0) is at the top-left corner.
//
// # Compositing
//
// The source image is placed at the origin of the canvas and blended through its own
// alpha channel, so transparent regions show the background. Images without an
// alpha channel overwrite the canvas.
//
// The canvas is always opaque, so the encoded PNG carries three color channels and
// no alpha.
//
// # Output Naming
//
// Variants are written to "{stem}_{color}.png" where color is rendered as
// "(r, g, b)". Two draws of the same color for the same source map to the same file;
// the later write wins.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Compositor holds no mutable state
// besides its cache, so one Compositor can serve every worker of a run as long as
// each worker brings its own random source.
//
// # Error Handling
//
// A source that cannot be opened or decoded yields a *DecodeError, which matches
// ErrImageDecode under errors.Is. Encoding and write failures are returned wrapped
// with the destination path.
package imaging
