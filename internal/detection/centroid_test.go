package detection

import (
	"errors"
	"math"
	"testing"
)

func TestCentroid_Rectangles(t *testing.T) {
	mask := maskFromStrings(
		"##......",
		"##......",
		"........",
		"....###.",
		"....###.",
		"....###.",
	)
	labels := Label(mask, Four)

	c1, err := Centroid(labels, 1)
	if err != nil {
		t.Fatalf("Centroid(1) failed: %v", err)
	}
	if c1.Row != 0.5 || c1.Col != 0.5 {
		t.Errorf("Centroid(1): got (%v, %v), want (0.5, 0.5)", c1.Row, c1.Col)
	}

	c2, err := Centroid(labels, 2)
	if err != nil {
		t.Fatalf("Centroid(2) failed: %v", err)
	}
	if c2.Row != 4 || c2.Col != 5 {
		t.Errorf("Centroid(2): got (%v, %v), want (4, 5)", c2.Row, c2.Col)
	}
}

func TestCentroid_IrregularRegion(t *testing.T) {
	mask := maskFromStrings(
		"#..",
		"##.",
		"###",
	)
	labels := Label(mask, Four)

	c, err := Centroid(labels, 1)
	if err != nil {
		t.Fatalf("Centroid failed: %v", err)
	}
	// Rows: 0 + 1*2 + 2*3 = 8 over 6 pixels; cols: 0 + (0+1) + (0+1+2) = 4 over 6.
	if math.Abs(c.Row-8.0/6.0) > 1e-12 || math.Abs(c.Col-4.0/6.0) > 1e-12 {
		t.Errorf("got (%v, %v), want (%v, %v)", c.Row, c.Col, 8.0/6.0, 4.0/6.0)
	}
}

func TestCentroid_RegionNotFound(t *testing.T) {
	labels := Label(maskFromStrings("#.", ".."), Four)

	for _, label := range []int{0, 2, -1} {
		if _, err := Centroid(labels, label); !errors.Is(err, ErrRegionNotFound) {
			t.Errorf("label %d: expected ErrRegionNotFound, got %v", label, err)
		}
	}
}
