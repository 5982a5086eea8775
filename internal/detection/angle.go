package detection

import "math"

// Angle returns the signed rotation of the line joining two centroids.
//
// The angle is atan2(c1.Row-c2.Row, c1.Col-c2.Col) converted to degrees. Row
// difference comes first; calibration slopes depend on this order. The result
// lies in (-180, 180]: the branch cut value -180 is reported as 180.
func Angle(c1, c2 Point) float64 {
	deg := math.Atan2(c1.Row-c2.Row, c1.Col-c2.Col) * 180 / math.Pi
	if deg == -180 {
		return 180
	}
	return deg
}

// Separation returns the Euclidean distance between two centroids in pixels.
func Separation(c1, c2 Point) float64 {
	return math.Hypot(c1.Row-c2.Row, c1.Col-c2.Col)
}
