package detection

import "fmt"

// Centroid returns the center of mass of one labeled region.
//
// The mask is binary, so every pixel of the region has the same weight and
// the center of mass is the mean row and mean column of its pixels.
//
// Returns an error wrapping ErrRegionNotFound if no pixel carries label.
func Centroid(labels *Labels, label int) (Point, error) {
	if label <= 0 {
		return Point{}, fmt.Errorf("%w: label %d is not a region", ErrRegionNotFound, label)
	}

	var sumRow, sumCol float64
	n := 0
	for row := 0; row < labels.Rows; row++ {
		for col := 0; col < labels.Cols; col++ {
			if labels.Pix[row*labels.Cols+col] == label {
				sumRow += float64(row)
				sumCol += float64(col)
				n++
			}
		}
	}
	if n == 0 {
		return Point{}, fmt.Errorf("%w: label %d", ErrRegionNotFound, label)
	}

	return Point{Row: sumRow / float64(n), Col: sumCol / float64(n)}, nil
}

// RegionSizes returns the pixel count of every region, indexed by label.
// Index 0 holds the background count.
func RegionSizes(labels *Labels) []int {
	sizes := make([]int, labels.Count+1)
	for _, l := range labels.Pix {
		sizes[l]++
	}
	return sizes
}
