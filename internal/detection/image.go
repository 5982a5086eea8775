package detection

import (
	"fmt"
	"math"
)

// Image is a grayscale intensity array stored row-major.
//
// Values are arbitrary real numbers; Normalize maps them onto [0, 1].
// An Image is never modified after construction.
type Image struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Pix  []float64 `json:"-"`
}

// NewImage validates the shape and copies pix into a new Image.
//
// Parameters:
//   - rows, cols: Array shape. Both must be positive.
//   - pix: Row-major samples, len(pix) must equal rows*cols.
//
// Returns an error wrapping ErrInvalidImage if the shape is empty or does not
// match the sample count, or if any sample is NaN or infinite.
func NewImage(rows, cols int, pix []float64) (*Image, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: empty shape %dx%d", ErrInvalidImage, rows, cols)
	}
	if len(pix) != rows*cols {
		return nil, fmt.Errorf("%w: %d samples for shape %dx%d", ErrInvalidImage, len(pix), rows, cols)
	}
	for i, v := range pix {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: non-finite sample at index %d", ErrInvalidImage, i)
		}
	}
	cp := make([]float64, len(pix))
	copy(cp, pix)
	return &Image{Rows: rows, Cols: cols, Pix: cp}, nil
}

// ImageFromRows builds an Image from a slice of equal-length rows.
func ImageFromRows(data [][]float64) (*Image, error) {
	if len(data) == 0 || len(data[0]) == 0 {
		return nil, fmt.Errorf("%w: empty array", ErrInvalidImage)
	}
	cols := len(data[0])
	pix := make([]float64, 0, len(data)*cols)
	for r, row := range data {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrInvalidImage, r, len(row), cols)
		}
		pix = append(pix, row...)
	}
	return NewImage(len(data), cols, pix)
}

// At returns the sample at (row, col). No bounds checking is performed.
func (m *Image) At(row, col int) float64 {
	return m.Pix[row*m.Cols+col]
}

// Mask is a binary foreground/background array with the shape of its source Image.
type Mask struct {
	Rows int    `json:"rows"`
	Cols int    `json:"cols"`
	Pix  []bool `json:"-"`
}

// NewMask returns an all-background mask.
func NewMask(rows, cols int) *Mask {
	return &Mask{Rows: rows, Cols: cols, Pix: make([]bool, rows*cols)}
}

// At reports whether (row, col) is foreground.
func (m *Mask) At(row, col int) bool {
	return m.Pix[row*m.Cols+col]
}

// Set marks (row, col) as foreground or background.
func (m *Mask) Set(row, col int, v bool) {
	m.Pix[row*m.Cols+col] = v
}

// Foreground counts the foreground pixels.
func (m *Mask) Foreground() int {
	n := 0
	for _, v := range m.Pix {
		if v {
			n++
		}
	}
	return n
}

// Labels is a connected-component label map.
//
// 0 is background; regions are numbered 1..Count in the order their first
// pixel is met by a row-major scan.
type Labels struct {
	Rows  int   `json:"rows"`
	Cols  int   `json:"cols"`
	Pix   []int `json:"-"`
	Count int   `json:"count"`
}

// At returns the label at (row, col).
func (l *Labels) At(row, col int) int {
	return l.Pix[row*l.Cols+col]
}

// Point is a sub-pixel position in (row, column) order.
type Point struct {
	Row float64 `json:"row"`
	Col float64 `json:"col"`
}
