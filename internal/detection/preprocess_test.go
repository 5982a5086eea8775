package detection

import (
	"errors"
	"math"
	"testing"
)

// createTestImage creates a uniform rows x cols image
func createTestImage(t *testing.T, rows, cols int, value float64) *Image {
	t.Helper()
	pix := make([]float64, rows*cols)
	for i := range pix {
		pix[i] = value
	}
	img, err := NewImage(rows, cols, pix)
	if err != nil {
		t.Fatalf("NewImage failed: %v", err)
	}
	return img
}

// fillRect sets every sample in rows [r1, r2] and cols [c1, c2] (inclusive) to value
func fillRect(img *Image, r1, c1, r2, c2 int, value float64) {
	for r := r1; r <= r2; r++ {
		for c := c1; c <= c2; c++ {
			img.Pix[r*img.Cols+c] = value
		}
	}
}

func TestNewImage_InvalidShape(t *testing.T) {
	tests := []struct {
		name       string
		rows, cols int
		pix        []float64
	}{
		{"zero rows", 0, 3, nil},
		{"negative cols", 2, -1, nil},
		{"sample count mismatch", 2, 2, []float64{1, 2, 3}},
		{"NaN sample", 1, 2, []float64{0, math.NaN()}},
		{"infinite sample", 1, 2, []float64{math.Inf(1), 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewImage(tt.rows, tt.cols, tt.pix)
			if !errors.Is(err, ErrInvalidImage) {
				t.Errorf("expected ErrInvalidImage, got %v", err)
			}
		})
	}
}

func TestNewImage_CopiesSamples(t *testing.T) {
	pix := []float64{1, 2, 3, 4}
	img, err := NewImage(2, 2, pix)
	if err != nil {
		t.Fatalf("NewImage failed: %v", err)
	}
	pix[0] = 99
	if img.At(0, 0) != 1 {
		t.Errorf("image changed with caller slice: got %v, want 1", img.At(0, 0))
	}
}

func TestImageFromRows(t *testing.T) {
	img, err := ImageFromRows([][]float64{{0, 1, 2}, {3, 4, 5}})
	if err != nil {
		t.Fatalf("ImageFromRows failed: %v", err)
	}
	if img.Rows != 2 || img.Cols != 3 {
		t.Fatalf("unexpected shape %dx%d", img.Rows, img.Cols)
	}
	if img.At(1, 2) != 5 {
		t.Errorf("At(1,2): got %v, want 5", img.At(1, 2))
	}

	if _, err := ImageFromRows([][]float64{{0, 1}, {2}}); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("ragged rows: expected ErrInvalidImage, got %v", err)
	}
	if _, err := ImageFromRows(nil); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("nil rows: expected ErrInvalidImage, got %v", err)
	}
}

func TestNormalize(t *testing.T) {
	img, _ := ImageFromRows([][]float64{{10, 20}, {30, 50}})

	norm, err := Normalize(img)
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	want := []float64{0, 0.25, 0.5, 1}
	for i, w := range want {
		if math.Abs(norm.Pix[i]-w) > 1e-12 {
			t.Errorf("Pix[%d]: got %v, want %v", i, norm.Pix[i], w)
		}
	}
	if img.Pix[3] != 50 {
		t.Error("Normalize modified its input")
	}
}

func TestNormalize_ZeroRange(t *testing.T) {
	img := createTestImage(t, 4, 4, 0.7)

	_, err := Normalize(img)
	if !errors.Is(err, ErrInvalidImage) {
		t.Errorf("expected ErrInvalidImage for flat image, got %v", err)
	}
}

func TestNormalize_Empty(t *testing.T) {
	if _, err := Normalize(nil); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("expected ErrInvalidImage for nil image, got %v", err)
	}
	if _, err := Normalize(&Image{}); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("expected ErrInvalidImage for empty image, got %v", err)
	}
}

func TestBinarize_ShapeAndValues(t *testing.T) {
	img := createTestImage(t, 6, 9, 1.0)
	fillRect(img, 1, 1, 2, 3, 0.0)

	mask, err := Binarize(img, DefaultThreshold, DarkBlobs)
	if err != nil {
		t.Fatalf("Binarize failed: %v", err)
	}
	if mask.Rows != img.Rows || mask.Cols != img.Cols || len(mask.Pix) != len(img.Pix) {
		t.Fatalf("mask shape %dx%d (%d), want %dx%d", mask.Rows, mask.Cols, len(mask.Pix), img.Rows, img.Cols)
	}
	if got := mask.Foreground(); got != 6 {
		t.Errorf("foreground count: got %d, want 6", got)
	}
	if !mask.At(1, 1) || mask.At(0, 0) {
		t.Error("dark rectangle should be foreground, background should not")
	}
}

func TestBinarize_ThresholdTieBreak(t *testing.T) {
	// Normalized values are 0, 0.25, 0.5, 0.75, 1.
	img, _ := ImageFromRows([][]float64{{0, 1, 2, 3, 4}})

	dark, err := Binarize(img, 0.5, DarkBlobs)
	if err != nil {
		t.Fatalf("Binarize failed: %v", err)
	}
	wantDark := []bool{true, true, false, false, false}
	for i, w := range wantDark {
		if dark.Pix[i] != w {
			t.Errorf("dark Pix[%d]: got %v, want %v", i, dark.Pix[i], w)
		}
	}

	bright, err := Binarize(img, 0.5, BrightBlobs)
	if err != nil {
		t.Fatalf("Binarize failed: %v", err)
	}
	for i, w := range wantDark {
		if bright.Pix[i] == w {
			t.Errorf("bright Pix[%d] should be the complement of dark", i)
		}
	}
}

func TestBinarize_InvalidThreshold(t *testing.T) {
	img, _ := ImageFromRows([][]float64{{0, 1}})

	for _, th := range []float64{-0.1, 1.5, math.NaN()} {
		if _, err := Binarize(img, th, DarkBlobs); !errors.Is(err, ErrInvalidOptions) {
			t.Errorf("threshold %v: expected ErrInvalidOptions, got %v", th, err)
		}
	}
}

func TestBinarize_FlatImage(t *testing.T) {
	img := createTestImage(t, 3, 3, 5)
	if _, err := Binarize(img, DefaultThreshold, DarkBlobs); !errors.Is(err, ErrInvalidImage) {
		t.Errorf("expected ErrInvalidImage, got %v", err)
	}
}

func TestParsePolarity(t *testing.T) {
	tests := []struct {
		in      string
		want    Polarity
		wantErr bool
	}{
		{"dark", DarkBlobs, false},
		{"", DarkBlobs, false},
		{"bright", BrightBlobs, false},
		{"grey", DarkBlobs, true},
	}
	for _, tt := range tests {
		got, err := ParsePolarity(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePolarity(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParsePolarity(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if DarkBlobs.String() != "dark" || BrightBlobs.String() != "bright" {
		t.Error("Polarity.String mismatch")
	}
}
