package band

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"phenotrace/internal/raster"

	_ "golang.org/x/image/tiff"
)

// LoadFrame decodes a raw frame image file (TIFF, PNG, or JPEG) into a
// single-band float plane.
func LoadFrame(path string) (*raster.Map, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open frame: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}
	return FrameFromImage(img), nil
}

// FrameFromImage reduces a decoded image to a single-band float plane.
// Grayscale images convert directly; color images (including single-band
// captures saved with three identical channels) reduce via luminance.
func FrameFromImage(img image.Image) *raster.Map {
	b := img.Bounds()
	m := raster.NewMap(b.Dx(), b.Dy())

	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < m.H; y++ {
			for x := 0; x < m.W; x++ {
				m.Pix[y*m.W+x] = float64(src.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
	case *image.Gray16:
		for y := 0; y < m.H; y++ {
			for x := 0; x < m.W; x++ {
				m.Pix[y*m.W+x] = float64(src.Gray16At(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
	default:
		for y := 0; y < m.H; y++ {
			for x := 0; x < m.W; x++ {
				r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				// 16-bit premultiplied channels back to 8-bit luminance.
				m.Pix[y*m.W+x] = (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(bl)) / 257.0
			}
		}
	}
	return m
}

// FrameMeta is the identity encoded in an uploaded frame filename, using
// the producer's {Species}_{YYYY-MM-DD}_plant{N} naming contract.
type FrameMeta struct {
	Species string
	Date    string
	PlantID string
}

var frameNameRe = regexp.MustCompile(`(?i)^([A-Z][A-Za-z-]+)_(\d{4}-\d{2}-\d{2})_plant(\d+)\.(tiff|tif|png|jpe?g)$`)

// ParseFrameName extracts frame identity metadata from a file path. It
// returns false when the filename does not follow the naming contract.
func ParseFrameName(path string) (FrameMeta, bool) {
	base := filepath.Base(path)
	parts := frameNameRe.FindStringSubmatch(base)
	if parts == nil {
		return FrameMeta{}, false
	}
	n, _ := strconv.Atoi(parts[3])
	return FrameMeta{
		Species: parts[1],
		Date:    parts[2],
		PlantID: "plant" + strconv.Itoa(n),
	}, true
}

// SupportedFormats returns the list of supported raw frame formats.
func SupportedFormats() []string {
	return []string{".tiff", ".tif", ".png", ".jpg", ".jpeg"}
}

// IsSupportedFormat checks if the given path has a supported frame format.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}
