package detection

import (
	"errors"
	"math"
	"testing"
)

// createRingMask draws one-pixel circle outlines of the given radius into a rows x cols mask
func createRingMask(rows, cols, radius int, centers ...Point) *Mask {
	mask := NewMask(rows, cols)
	for _, c := range centers {
		for _, o := range circleOffsets(radius) {
			mask.Set(int(c.Row)+o[0], int(c.Col)+o[1], true)
		}
	}
	return mask
}

func TestDetectCircles_TwoDisks(t *testing.T) {
	a := Point{Row: 8, Col: 8}
	b := Point{Row: 22, Col: 24}
	mask := createRingMask(32, 32, 3, a, b)

	circles := DetectCircles(mask, DefaultMinRadius, DefaultMaxRadius)
	if len(circles) < 2 {
		t.Fatalf("expected at least 2 circles, got %d", len(circles))
	}

	// Both rings score 1.0; the tie goes to the upper center.
	if circles[0].Center != a || circles[1].Center != b {
		t.Errorf("circle centers %v and %v, want %v and %v", circles[0].Center, circles[1].Center, a, b)
	}
	if circles[0].Radius != 3 || circles[0].Score != 1.0 {
		t.Errorf("first circle radius %d score %v, want 3 and 1.0", circles[0].Radius, circles[0].Score)
	}

	for i := 1; i < len(circles); i++ {
		if circles[i].Score > circles[i-1].Score {
			t.Errorf("circles not sorted by score at index %d", i)
		}
	}
}

func TestDetectCircles_EmptyMask(t *testing.T) {
	if circles := DetectCircles(NewMask(20, 20), 2, 5); len(circles) != 0 {
		t.Errorf("expected no circles in empty mask, got %d", len(circles))
	}
}

func TestCircleDetector_Detect(t *testing.T) {
	a := Point{Row: 6, Col: 20}
	b := Point{Row: 20, Col: 6}
	mask := createRingMask(28, 28, 3, a, b)

	det, err := CircleDetector{MinRadius: 2, MaxRadius: 5}.Detect(mask)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if det.Labels != nil {
		t.Error("circle detection should not return a label map")
	}
	if det.First != a || det.Second != b {
		t.Errorf("got %v and %v, want %v and %v", det.First, det.Second, a, b)
	}
	if det.Regions < 2 || len(det.Circles) != det.Regions {
		t.Errorf("Regions %d, Circles %d", det.Regions, len(det.Circles))
	}
}

func TestCircleDetector_Errors(t *testing.T) {
	if _, err := (CircleDetector{MinRadius: 2, MaxRadius: 5}).Detect(NewMask(10, 10)); !errors.Is(err, ErrNoBlobsFound) {
		t.Errorf("empty mask: expected ErrNoBlobsFound, got %v", err)
	}
	if _, err := (CircleDetector{MinRadius: 4, MaxRadius: 4}).Detect(NewMask(10, 10)); !errors.Is(err, ErrInvalidOptions) {
		t.Errorf("empty radius range: expected ErrInvalidOptions, got %v", err)
	}
	if _, err := (CircleDetector{MinRadius: 0, MaxRadius: 3}).Detect(NewMask(10, 10)); !errors.Is(err, ErrInvalidOptions) {
		t.Errorf("zero radius: expected ErrInvalidOptions, got %v", err)
	}
}

func TestCircleDetector_SingleDisk(t *testing.T) {
	mask := createRingMask(24, 24, 3, Point{Row: 12, Col: 12})

	_, err := CircleDetector{MinRadius: 3, MaxRadius: 4}.Detect(mask)
	if !errors.Is(err, ErrInsufficientBlobs) {
		t.Errorf("expected ErrInsufficientBlobs for a single disk, got %v", err)
	}
}

func TestCircleOffsets(t *testing.T) {
	for radius := 1; radius <= 6; radius++ {
		offsets := circleOffsets(radius)
		seen := make(map[[2]int]bool)
		for _, o := range offsets {
			if seen[o] {
				t.Fatalf("radius %d: duplicate offset %v", radius, o)
			}
			seen[o] = true
			d := math.Hypot(float64(o[0]), float64(o[1]))
			if math.Abs(d-float64(radius)) > 1 {
				t.Errorf("radius %d: offset %v at distance %v", radius, o, d)
			}
		}
	}
}

func TestFilterDuplicateCircles(t *testing.T) {
	circles := []Circle{
		{Center: Point{10, 10}, Radius: 3, Score: 0.9},
		{Center: Point{11, 10}, Radius: 3, Score: 0.8},
		{Center: Point{30, 30}, Radius: 3, Score: 0.7},
	}

	filtered := filterDuplicateCircles(circles)
	if len(filtered) != 2 {
		t.Fatalf("expected 2 circles after filtering, got %d", len(filtered))
	}
	if filtered[0].Score != 0.9 || filtered[1].Score != 0.7 {
		t.Errorf("wrong circles kept: %+v", filtered)
	}
}
