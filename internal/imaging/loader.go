package imaging

import (
	"fmt"
	"image"
	"os"
	"sync"
	"time"

	"github.com/tliron/commonlog"

	"github.com/ironsheep/colorgrade-mcp/internal/grade"
)

var log = commonlog.GetLogger("colorgrade.imaging")

// Source is a decoded source image together with what the loader learned
// about the file it came from.
type Source struct {
	// Image is the decoded, orientation-corrected image.
	Image image.Image

	// Format is the sniffed container format ("png", "jpg", "webp", ...).
	Format string

	modTime time.Time
	size    int64
}

// ImageCache provides thread-safe caching of decoded source images so that
// repeated grading of the same photo does not decode it again.
//
// Entries are keyed by path and revalidated against the file's modification
// time and size on every Load, so an edited source is picked up without an
// explicit Evict.
//
// ImageCache is safe for concurrent use by multiple goroutines.
//
// # Example Usage
//
//	cache := imaging.NewImageCache()
//	img, err := cache.Load("/photos/beach.jpg")
//	if err != nil {
//	    return err
//	}
//	graded, err := grade.ApplyImage(ctx, img, plan)
type ImageCache struct {
	mu      sync.RWMutex
	sources map[string]*Source
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		sources: make(map[string]*Source),
	}
}

// Load returns the decoded image at path, reading it from disk only when it
// is not cached or the file has changed since it was cached.
//
// Decoding goes through grade.Decode, so every supported container (PNG, JPEG,
// GIF, BMP, TIFF, WebP) is accepted and EXIF orientation is applied.
//
// # Errors
//
//   - Returns error if the file does not exist or cannot be read
//   - Returns an error wrapping grade.ErrUndecodable if the content is not a
//     decodable image
func (c *ImageCache) Load(path string) (image.Image, error) {
	src, err := c.Source(path)
	if err != nil {
		return nil, err
	}
	return src.Image, nil
}

// Source is Load returning the full cache entry.
func (c *ImageCache) Source(path string) (*Source, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	c.mu.RLock()
	src, ok := c.sources[path]
	c.mu.RUnlock()
	if ok && src.modTime.Equal(stat.ModTime()) && src.size == stat.Size() {
		return src, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, format, err := grade.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	log.Debugf("decoded %s (%s, %dx%d)", path, format, img.Bounds().Dx(), img.Bounds().Dy())

	src = &Source{Image: img, Format: format, modTime: stat.ModTime(), size: stat.Size()}
	c.mu.Lock()
	c.sources[path] = src
	c.mu.Unlock()

	return src, nil
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.sources = make(map[string]*Source)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by the path it was loaded
// with. Evicting a path that is not cached does nothing.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.sources, path)
	c.mu.Unlock()
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sources)
}

// ImageInfo contains metadata about a loaded source image.
type ImageInfo struct {
	// Width is the image width in pixels, after orientation correction.
	Width int `json:"width"`

	// Height is the image height in pixels, after orientation correction.
	Height int `json:"height"`

	// Format is the container format detected from the file contents.
	Format string `json:"format"`

	// ColorDepth indicates the bit depth per channel: "8-bit" or "16-bit".
	// Grading always works on 8-bit channels.
	ColorDepth string `json:"color_depth"`

	// HasAlpha indicates whether the decoded image carries an alpha channel.
	// Alpha passes through grading unchanged.
	HasAlpha bool `json:"has_alpha"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo loads an image and returns metadata about it.
//
// Color depth is determined by the decoded Go image type:
//   - *image.RGBA64, *image.NRGBA64, *image.Gray16 -> "16-bit"
//   - All other types -> "8-bit"
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	src, err := cache.Source(path)
	if err != nil {
		return nil, err
	}

	hasAlpha := false
	colorDepth := "8-bit"
	switch src.Image.(type) {
	case *image.RGBA, *image.NRGBA:
		hasAlpha = true
	case *image.RGBA64, *image.NRGBA64:
		hasAlpha = true
		colorDepth = "16-bit"
	case *image.Gray16:
		colorDepth = "16-bit"
	case *image.Paletted:
		hasAlpha = palettedHasAlpha(src.Image.(*image.Paletted))
	}

	bounds := src.Image.Bounds()
	return &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        src.Format,
		ColorDepth:    colorDepth,
		HasAlpha:      hasAlpha,
		FileSizeBytes: src.size,
	}, nil
}

func palettedHasAlpha(p *image.Paletted) bool {
	for _, c := range p.Palette {
		if _, _, _, a := c.RGBA(); a != 0xffff {
			return true
		}
	}
	return false
}

// DimensionsResult contains the width and height of an image.
type DimensionsResult struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// GetDimensions returns the dimensions of an image without additional metadata.
func GetDimensions(cache *ImageCache, path string) (*DimensionsResult, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	return &DimensionsResult{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}
