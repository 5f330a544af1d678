package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"sync"

	"github.com/pkg/errors"
)

// ErrImageDecode is matched by every error produced when a source image cannot be
// opened or decoded.
var ErrImageDecode = errors.New("image decode failed")

// DecodeError reports the source image that could not be loaded.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode image %q: %v", e.Path, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *DecodeError) Unwrap() error { return e.Err }

// Is reports ErrImageDecode so callers can match the category without caring about
// the concrete cause.
func (e *DecodeError) Is(target error) bool { return target == ErrImageDecode }

// ImageCache provides thread-safe, reference-counted caching of decoded images.
//
// Sampling with replacement means the same source path is usually handed to
// several workers. The cache decodes each path once and keeps the decoded image
// alive until every expected use has called Release.
//
// # Lifecycle
//
//	cache := imaging.NewImageCache()
//	cache.Expect(path, 3)      // three tasks will use this image
//	img, err := cache.Load(path)
//	...
//	cache.Release(path)        // after the third Release the entry is evicted
//
// Paths that were never announced with Expect are still loaded and cached; a
// single Release evicts them.
type ImageCache struct {
	mu      sync.Mutex
	images  map[string]image.Image
	pending map[string]int
	loading map[string]*sync.WaitGroup
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images:  make(map[string]image.Image),
		pending: make(map[string]int),
		loading: make(map[string]*sync.WaitGroup),
	}
}

// Expect records that n more uses of path will follow.
func (c *ImageCache) Expect(path string, n int) {
	if n <= 0 {
		return
	}
	c.mu.Lock()
	c.pending[path] += n
	c.mu.Unlock()
}

// Load retrieves an image from the cache or decodes it from disk.
//
// Concurrent loads of the same path wait for a single decode instead of racing to
// read the file. Failed decodes are not cached, so a later call retries.
//
// # Errors
//
// Any open or decode failure is returned as *DecodeError.
func (c *ImageCache) Load(path string) (image.Image, error) {
	for {
		c.mu.Lock()
		if img, ok := c.images[path]; ok {
			c.mu.Unlock()
			return img, nil
		}
		if wg, ok := c.loading[path]; ok {
			c.mu.Unlock()
			wg.Wait()
			continue
		}
		wg := &sync.WaitGroup{}
		wg.Add(1)
		c.loading[path] = wg
		c.mu.Unlock()

		img, err := decodeFile(path)

		c.mu.Lock()
		delete(c.loading, path)
		if err == nil {
			c.images[path] = img
		}
		c.mu.Unlock()
		wg.Done()
		return img, err
	}
}

// Release marks one use of path as finished and evicts the image once no
// expected uses remain.
func (c *ImageCache) Release(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending[path] > 1 {
		c.pending[path]--
		return
	}
	delete(c.pending, path)
	delete(c.images, path)
}

// Len returns the number of decoded images currently held.
func (c *ImageCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.images)
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}
	return img, nil
}

// HasAlpha reports whether the decoded image carries an alpha channel that can act
// as a blend mask.
//
// Paletted images count as having alpha only when their palette contains a
// non-opaque entry (PNG tRNS chunks decode that way).
func HasAlpha(img image.Image) bool {
	switch m := img.(type) {
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64, *image.Alpha, *image.Alpha16:
		return true
	case *image.Paletted:
		for _, c := range m.Palette {
			if _, _, _, a := c.RGBA(); a != 0xffff {
				return true
			}
		}
		return false
	default:
		return false
	}
}
