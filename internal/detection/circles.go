package detection

import (
	"fmt"
	"math"
	"sort"
)

// Default radius bounds for the Hough circle detector, in pixels.
const (
	DefaultMinRadius = 2
	DefaultMaxRadius = 5
)

// Circle is a circle found by the Hough transform.
type Circle struct {
	// Center is the accumulator peak position.
	Center Point `json:"center"`

	// Radius is the radius whose accumulator produced the peak.
	Radius int `json:"radius"`

	// Score is the fraction of the circle's perimeter pixels that voted (0.0 to 1.0).
	Score float64 `json:"score"`
}

// CircleDetector finds the two lobes as the two strongest Hough circles.
//
// This is the less reliable of the two strategies: it tends to miss lobes that
// are merged or strongly elongated, which happens near focus. It is kept for
// frames whose lobes are round and well separated.
type CircleDetector struct {
	// MinRadius is the smallest radius searched (inclusive).
	MinRadius int
	// MaxRadius bounds the search from above (exclusive).
	MaxRadius int
}

// Detect implements Detector.
//
// # Algorithm (Hough Circle Transform)
//
//  1. Edge extraction: foreground pixels with a background 4-neighbor or on
//     the image border
//  2. Accumulator voting: for each radius in [MinRadius, MaxRadius), every
//     edge pixel votes for all centers at that distance
//  3. Scoring: votes are divided by the number of perimeter offsets, so
//     radii of different size compete fairly
//  4. Peak detection: local maxima within the radius window scoring at
//     least half of the best score
//  5. Duplicate removal: circles whose centers are closer than the mean of
//     their radii are merged, keeping the stronger one
//
// The first centroid is the strongest circle, the second the runner-up. Ties
// are broken by radius, then by row-major position of the center.
func (d CircleDetector) Detect(mask *Mask) (*Detection, error) {
	if d.MinRadius < 1 || d.MaxRadius <= d.MinRadius {
		return nil, fmt.Errorf("%w: radius range [%d, %d)", ErrInvalidOptions, d.MinRadius, d.MaxRadius)
	}
	if mask.Foreground() == 0 {
		return nil, ErrNoBlobsFound
	}

	circles := DetectCircles(mask, d.MinRadius, d.MaxRadius)
	if len(circles) == 0 {
		return nil, ErrNoBlobsFound
	}
	if len(circles) < 2 {
		return nil, fmt.Errorf("%w: found %d circle", ErrInsufficientBlobs, len(circles))
	}

	return &Detection{
		First:   circles[0].Center,
		Second:  circles[1].Center,
		Regions: len(circles),
		Circles: circles,
	}, nil
}

// DetectCircles runs the Hough circle transform over the edges of a mask.
// Results are sorted by score (highest first). See CircleDetector.Detect.
func DetectCircles(mask *Mask, minRadius, maxRadius int) []Circle {
	edges := maskEdges(mask)
	if len(edges) == 0 {
		return nil
	}

	candidates := make([]Circle, 0)
	for radius := minRadius; radius < maxRadius; radius++ {
		offsets := circleOffsets(radius)
		accumulator := make([]int, mask.Rows*mask.Cols)

		for _, e := range edges {
			for _, o := range offsets {
				cy := e[0] - o[0]
				cx := e[1] - o[1]
				if cx >= 0 && cx < mask.Cols && cy >= 0 && cy < mask.Rows {
					accumulator[cy*mask.Cols+cx]++
				}
			}
		}

		for y := 0; y < mask.Rows; y++ {
			for x := 0; x < mask.Cols; x++ {
				votes := accumulator[y*mask.Cols+x]
				if votes == 0 || !isLocalMax(accumulator, mask.Rows, mask.Cols, y, x, radius) {
					continue
				}
				candidates = append(candidates, Circle{
					Center: Point{Row: float64(y), Col: float64(x)},
					Radius: radius,
					Score:  math.Min(float64(votes)/float64(len(offsets)), 1.0),
				})
			}
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Radius != b.Radius {
			return a.Radius < b.Radius
		}
		if a.Center.Row != b.Center.Row {
			return a.Center.Row < b.Center.Row
		}
		return a.Center.Col < b.Center.Col
	})

	best := candidates[0].Score
	strong := candidates[:0]
	for _, c := range candidates {
		if c.Score >= 0.5*best {
			strong = append(strong, c)
		}
	}

	return filterDuplicateCircles(strong)
}

// maskEdges returns the (row, col) of every foreground pixel on a region boundary.
func maskEdges(mask *Mask) [][2]int {
	edges := make([][2]int, 0)
	for y := 0; y < mask.Rows; y++ {
		for x := 0; x < mask.Cols; x++ {
			if !mask.At(y, x) {
				continue
			}
			if y == 0 || x == 0 || y == mask.Rows-1 || x == mask.Cols-1 ||
				!mask.At(y-1, x) || !mask.At(y+1, x) || !mask.At(y, x-1) || !mask.At(y, x+1) {
				edges = append(edges, [2]int{y, x})
			}
		}
	}
	return edges
}

// circleOffsets returns the distinct integer (dy, dx) offsets on a circle of
// the given radius, sampled every degree.
func circleOffsets(radius int) [][2]int {
	seen := make(map[[2]int]bool)
	offsets := make([][2]int, 0)
	for angle := 0; angle < 360; angle++ {
		rad := float64(angle) * math.Pi / 180
		o := [2]int{
			int(math.Round(float64(radius) * math.Sin(rad))),
			int(math.Round(float64(radius) * math.Cos(rad))),
		}
		if !seen[o] {
			seen[o] = true
			offsets = append(offsets, o)
		}
	}
	return offsets
}

// isLocalMax reports whether no accumulator cell within the window is larger.
func isLocalMax(acc []int, rows, cols, y, x, window int) bool {
	v := acc[y*cols+x]
	for dy := -window; dy <= window; dy++ {
		for dx := -window; dx <= window; dx++ {
			if dy == 0 && dx == 0 {
				continue
			}
			ny, nx := y+dy, x+dx
			if ny >= 0 && ny < rows && nx >= 0 && nx < cols && acc[ny*cols+nx] > v {
				return false
			}
		}
	}
	return true
}

// filterDuplicateCircles removes circles with overlapping centers.
//
// Two circles are considered duplicates if the distance between their centers
// is less than the average of their radii. Input must be sorted strongest
// first; the first of each group is kept.
func filterDuplicateCircles(circles []Circle) []Circle {
	filtered := make([]Circle, 0, len(circles))
	for _, c := range circles {
		isDuplicate := false
		for _, f := range filtered {
			dist := Separation(c.Center, f.Center)
			if dist < float64(c.Radius+f.Radius)/2 {
				isDuplicate = true
				break
			}
		}
		if !isDuplicate {
			filtered = append(filtered, c)
		}
	}
	return filtered
}
