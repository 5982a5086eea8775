package detection

import "fmt"

// Connectivity is the neighborhood used to join foreground pixels.
type Connectivity int

const (
	// Four joins pixels that share an edge.
	Four Connectivity = 4
	// Eight also joins diagonal neighbors.
	Eight Connectivity = 8
)

// ParseConnectivity accepts 4 or 8. Zero selects Four.
func ParseConnectivity(n int) (Connectivity, error) {
	switch n {
	case 0, 4:
		return Four, nil
	case 8:
		return Eight, nil
	default:
		return Four, fmt.Errorf("%w: connectivity %d, want 4 or 8", ErrInvalidOptions, n)
	}
}

var (
	fourNeighbors  = [][2]int{{-1, 0}, {0, -1}, {0, 1}, {1, 0}}
	eightNeighbors = [][2]int{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}
)

func (c Connectivity) offsets() [][2]int {
	if c == Eight {
		return eightNeighbors
	}
	return fourNeighbors
}

// Label finds the connected components of a mask.
//
// Seeds are visited in row-major order (row by row, left to right within a
// row), so the region containing the first foreground pixel of the scan is
// always label 1. The returned Count is whatever was found; no assumption is
// made about how many lobes exist.
//
// # Algorithm
//
// Each unvisited foreground pixel starts an iterative flood fill that assigns
// the next label to every pixel reachable through the chosen neighborhood.
// The fill uses an explicit stack, so large regions cannot overflow the
// goroutine stack.
func Label(mask *Mask, conn Connectivity) *Labels {
	labels := &Labels{
		Rows: mask.Rows,
		Cols: mask.Cols,
		Pix:  make([]int, len(mask.Pix)),
	}

	for row := 0; row < mask.Rows; row++ {
		for col := 0; col < mask.Cols; col++ {
			idx := row*mask.Cols + col
			if mask.Pix[idx] && labels.Pix[idx] == 0 {
				labels.Count++
				floodFill(mask, labels, row, col, labels.Count, conn.offsets())
			}
		}
	}

	return labels
}

// floodFill assigns label to the component containing (startRow, startCol).
func floodFill(mask *Mask, labels *Labels, startRow, startCol, label int, offsets [][2]int) {
	stack := [][2]int{{startRow, startCol}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		row, col := p[0], p[1]
		if row < 0 || row >= mask.Rows || col < 0 || col >= mask.Cols {
			continue
		}
		idx := row*mask.Cols + col
		if labels.Pix[idx] != 0 || !mask.Pix[idx] {
			continue
		}

		labels.Pix[idx] = label

		for _, d := range offsets {
			stack = append(stack, [2]int{row + d[0], col + d[1]})
		}
	}
}
