package imaging

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"sync"
	"time"

	"github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/tiff" // Register TIFF format decoder

	"github.com/ironsheep/dhpsf-tools-mcp/internal/detection"
)

// DefaultCacheEntries bounds how many decoded frames an ImageCache keeps.
const DefaultCacheEntries = 256

// ImageCache provides thread-safe caching of decoded images to avoid redundant disk reads.
//
// Calibration sweeps and repeated tool calls tend to revisit the same frames,
// so decoded images are kept keyed by their file path. Each entry remembers the
// file's modification time and size; Load re-stats the file and decodes it
// again when either has changed, so a frame rewritten in place is never served
// stale.
//
// ImageCache is safe for concurrent use by multiple goroutines.
//
// # Memory Management
//
// At most MaxEntries images are kept. Inserting beyond that drops the oldest
// entry. Evict() and Clear() remove entries explicitly.
type ImageCache struct {
	// MaxEntries caps the number of cached images; zero or less means unbounded.
	MaxEntries int

	mu     sync.RWMutex
	images map[string]cachedImage
	order  []string
}

type cachedImage struct {
	img     image.Image
	modTime time.Time
	size    int64
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		MaxEntries: DefaultCacheEntries,
		images:     make(map[string]cachedImage),
	}
}

// Load retrieves an image from the cache or decodes it from disk if not cached
// or if the file changed since it was cached.
//
// Supported formats are PNG, JPEG, GIF, and TIFF (8 and 16 bit). EXIF
// orientation is applied so the returned pixels match what a viewer shows.
//
// # Errors
//
//   - Returns error if the file does not exist or cannot be read
//   - Returns error if the file is not a decodable image
func (c *ImageCache) Load(path string) (image.Image, error) {
	st, err := os.Stat(path)
	if err != nil {
		c.Evict(path)
		return nil, fmt.Errorf("failed to open image: %w", err)
	}

	c.mu.RLock()
	entry, ok := c.images[path]
	c.mu.RUnlock()
	if ok && entry.size == st.Size() && entry.modTime.Equal(st.ModTime()) {
		return entry.img, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	if err != nil {
		c.Evict(path)
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}

	c.mu.Lock()
	if _, exists := c.images[path]; !exists {
		c.order = append(c.order, path)
	}
	c.images[path] = cachedImage{img: img, modTime: st.ModTime(), size: st.Size()}
	for c.MaxEntries > 0 && len(c.order) > c.MaxEntries {
		delete(c.images, c.order[0])
		c.order = c.order[1:]
	}
	c.mu.Unlock()

	return img, nil
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]cachedImage)
	c.order = nil
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.images[path]; !ok {
		return
	}
	delete(c.images, path)
	for i, p := range c.order {
		if p == path {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

// ImageInfo contains metadata about an image file.
type ImageInfo struct {
	// Width is the image width in pixels (number of columns).
	Width int `json:"width"`

	// Height is the image height in pixels (number of rows).
	Height int `json:"height"`

	// Format is the decoder that recognised the file: "png", "jpeg", "gif" or "tiff".
	Format string `json:"format"`

	// ColorDepth indicates the bit depth per channel: "8-bit" or "16-bit".
	ColorDepth string `json:"color_depth"`

	// Grayscale is true when the file stores a single gray channel.
	Grayscale bool `json:"grayscale"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo loads an image into the cache and returns its metadata.
//
// The format is detected from the file contents, not the extension.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	_, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read image header: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	colorDepth := "8-bit"
	grayscale := false
	switch img.(type) {
	case *image.Gray16:
		colorDepth = "16-bit"
		grayscale = true
	case *image.Gray:
		grayscale = true
	case *image.RGBA64, *image.NRGBA64:
		colorDepth = "16-bit"
	}

	bounds := img.Bounds()
	return &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        format,
		ColorDepth:    colorDepth,
		Grayscale:     grayscale,
		FileSizeBytes: stat.Size(),
	}, nil
}

// ToIntensity converts an image to a grayscale intensity array in [0, 1].
//
// Luminance follows ITU-R BT.601 (0.299*R + 0.587*G + 0.114*B) and is taken
// at 16-bit precision, so 16-bit gray TIFF frames keep their full depth.
// Rows map to image Y and columns to image X, relative to the bounds origin.
func ToIntensity(img image.Image) (*detection.Image, error) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	pix := make([]float64, 0, width*height)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			g := color.Gray16Model.Convert(img.At(x, y)).(color.Gray16)
			pix = append(pix, float64(g.Y)/0xffff)
		}
	}

	return detection.NewImage(height, width, pix)
}

// IntensityLoader decodes frames through an ImageCache and converts them to
// intensity arrays, optionally cropping and smoothing them first.
type IntensityLoader struct {
	// Cache holds decoded frames. Must not be nil.
	Cache *ImageCache

	// ROI restricts every frame to a region of interest. nil keeps the whole frame.
	ROI *Region

	// BlurRadius is the Gaussian pre-blur radius in pixels. 0 disables it.
	// Blurring works on 8-bit channels and discards extra depth.
	BlurRadius float64
}

// NewIntensityLoader creates a loader with its own cache.
func NewIntensityLoader(blurRadius float64) *IntensityLoader {
	return &IntensityLoader{Cache: NewImageCache(), BlurRadius: blurRadius}
}

// Intensity loads the frame at path as an intensity array.
func (l *IntensityLoader) Intensity(path string) (*detection.Image, error) {
	img, err := l.Cache.Load(path)
	if err != nil {
		return nil, err
	}
	if l.ROI != nil {
		if img, err = CropRegion(img, *l.ROI); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	if l.BlurRadius > 0 {
		img = blur.Gaussian(img, l.BlurRadius)
	}
	return ToIntensity(img)
}
