package detection

import (
	"math"
	"testing"
)

func TestAngle(t *testing.T) {
	tests := []struct {
		name   string
		c1, c2 Point
		want   float64
	}{
		{"second to the right", Point{0, 0}, Point{0, 1}, 180},
		{"second below", Point{0, 0}, Point{1, 0}, -90},
		{"second to the left", Point{0, 1}, Point{0, 0}, 0},
		{"second above", Point{1, 0}, Point{0, 0}, 90},
		{"diagonal", Point{2, 2}, Point{1, 1}, 45},
		{"coincident", Point{3, 3}, Point{3, 3}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Angle(tt.c1, tt.c2)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Angle(%v, %v) = %v, want %v", tt.c1, tt.c2, got, tt.want)
			}
		})
	}
}

func TestAngle_Range(t *testing.T) {
	for r := -3.0; r <= 3; r += 0.5 {
		for c := -3.0; c <= 3; c += 0.5 {
			got := Angle(Point{0, 0}, Point{r, c})
			if got <= -180 || got > 180 {
				t.Fatalf("Angle to (%v, %v) = %v outside (-180, 180]", r, c, got)
			}
		}
	}
}

func TestAngle_SwapFlipsBy180(t *testing.T) {
	pairs := [][2]Point{
		{{0, 0}, {0, 1}},
		{{0, 0}, {1, 0}},
		{{4.5, 2.25}, {1.5, 7}},
		{{10, 3}, {2, 9}},
	}

	for _, p := range pairs {
		a := Angle(p[0], p[1])
		b := Angle(p[1], p[0])
		diff := math.Mod(math.Abs(a-b), 360)
		if math.Abs(diff-180) > 1e-9 {
			t.Errorf("swapping %v and %v: %v vs %v, difference %v", p[0], p[1], a, b, diff)
		}
	}
}

func TestSeparation(t *testing.T) {
	if got := Separation(Point{0, 0}, Point{3, 4}); got != 5 {
		t.Errorf("Separation: got %v, want 5", got)
	}
}
