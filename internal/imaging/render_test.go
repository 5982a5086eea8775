package imaging

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/dhpsf-tools-mcp/internal/detection"
)

func createTestMask(rows, cols int, points ...[2]int) *detection.Mask {
	mask := detection.NewMask(rows, cols)
	for _, p := range points {
		mask.Set(p[0], p[1], true)
	}
	return mask
}

func TestMaskImage(t *testing.T) {
	mask := createTestMask(4, 5, [2]int{1, 3}, [2]int{2, 0})

	img := MaskImage(mask)
	if img.Bounds().Dx() != 5 || img.Bounds().Dy() != 4 {
		t.Fatalf("size: got %v, want 5x4", img.Bounds())
	}
	if img.GrayAt(3, 1).Y != 255 || img.GrayAt(0, 2).Y != 255 {
		t.Error("foreground pixels should be white")
	}
	if img.GrayAt(0, 0).Y != 0 {
		t.Error("background pixels should be black")
	}
}

func TestLabelImage(t *testing.T) {
	mask := createTestMask(3, 7, [2]int{0, 0}, [2]int{0, 3}, [2]int{0, 6})
	labels := detection.Label(mask, detection.Four)
	if labels.Count != 3 {
		t.Fatalf("expected 3 regions, got %d", labels.Count)
	}

	img := LabelImage(labels)
	if got := img.RGBAAt(1, 1); got != (color.RGBA{A: 255}) {
		t.Errorf("background: got %v, want opaque black", got)
	}

	seen := make(map[color.RGBA]bool)
	for _, x := range []int{0, 3, 6} {
		c := img.RGBAAt(x, 0)
		if c == (color.RGBA{A: 255}) {
			t.Errorf("region at x=%d rendered as background", x)
		}
		if seen[c] {
			t.Errorf("region at x=%d reuses color %v", x, c)
		}
		seen[c] = true
	}
}

func TestAnnotateCentroids(t *testing.T) {
	mask := createTestMask(10, 10, [2]int{2, 2}, [2]int{7, 8})
	green := color.RGBA{0, 255, 0, 255}

	img := AnnotateCentroids(mask,
		detection.Point{Row: 2.9, Col: 3.4},
		detection.Point{Row: 7, Col: 8},
		detection.Point{Row: 12, Col: -1},
	)

	// Marked at the truncated pixel.
	if got := img.RGBAAt(3, 2); got != green {
		t.Errorf("first marker: got %v, want %v", got, green)
	}
	if got := img.RGBAAt(8, 7); got != green {
		t.Errorf("second marker overrides foreground: got %v, want %v", got, green)
	}
	if got := img.RGBAAt(2, 2); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("unmarked foreground: got %v, want white", got)
	}
	if got := img.RGBAAt(0, 0); got != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("background: got %v, want black", got)
	}
}

func TestEncodePNG(t *testing.T) {
	mask := createTestMask(6, 8, [2]int{0, 0})

	result, err := EncodePNG(MaskImage(mask), 4)
	if err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}
	if result.Width != 32 || result.Height != 24 {
		t.Errorf("scaled size: got %dx%d, want 32x24", result.Width, result.Height)
	}
	if result.MimeType != "image/png" {
		t.Errorf("MimeType: got %s", result.MimeType)
	}

	data, err := base64.StdEncoding.DecodeString(result.ImageBase64)
	if err != nil {
		t.Fatalf("invalid base64: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("invalid PNG: %v", err)
	}

	// Nearest-neighbour keeps the corner pixel crisp.
	r, _, _, _ := decoded.At(3, 3).RGBA()
	if r != 0xffff {
		t.Errorf("scaled foreground: got %d, want 0xffff", r)
	}
	r, _, _, _ = decoded.At(4, 4).RGBA()
	if r != 0 {
		t.Errorf("scaled background: got %d, want 0", r)
	}
}

func TestEncodePNG_NoScale(t *testing.T) {
	result, err := EncodePNG(image.NewGray(image.Rect(0, 0, 7, 3)), 0)
	if err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}
	if result.Width != 7 || result.Height != 3 {
		t.Errorf("size: got %dx%d, want 7x3", result.Width, result.Height)
	}

	if _, err := EncodePNG(image.NewGray(image.Rect(0, 0, 7, 3)), 0.1); err == nil {
		t.Error("expected error when scale collapses the image")
	}
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.png")
	mask := createTestMask(5, 5, [2]int{1, 1})

	if err := SavePNG(path, AnnotateCentroids(mask, detection.Point{Row: 1, Col: 1})); err != nil {
		t.Fatalf("SavePNG failed: %v", err)
	}

	img, err := imaging.Open(path)
	if err != nil {
		t.Fatalf("saved file unreadable: %v", err)
	}
	r, g, b, _ := img.At(1, 1).RGBA()
	if r != 0 || g != 0xffff || b != 0 {
		t.Errorf("saved marker: got (%d,%d,%d), want green", r, g, b)
	}

	if err := SavePNG(filepath.Join(t.TempDir(), "labels.unknown"), img); err == nil {
		t.Error("expected error for unsupported extension")
	}
}
