package detection

import "fmt"

// Detection is the ordered pair of lobe centers found in a mask.
type Detection struct {
	// First and Second are the two lobe centers. For ComponentDetector they are
	// the centroids of labels 1 and 2; for CircleDetector the two strongest circles.
	First  Point `json:"first"`
	Second Point `json:"second"`

	// Regions is the number of components (or circles) found, which may exceed two.
	Regions int `json:"regions"`

	// Labels is the label map. Nil for CircleDetector.
	Labels *Labels `json:"-"`

	// Circles lists the accepted Hough circles. Nil for ComponentDetector.
	Circles []Circle `json:"circles,omitempty"`
}

// Detector locates the two DH-PSF lobes in a binary mask.
type Detector interface {
	Detect(mask *Mask) (*Detection, error)
}

// ComponentDetector finds the lobes by connected-component labeling and
// takes the centroids of labels 1 and 2.
type ComponentDetector struct {
	Connectivity Connectivity
}

// Detect implements Detector.
//
// An all-background mask yields ErrNoBlobsFound. A mask with a single region
// yields ErrInsufficientBlobs wrapping the ErrRegionNotFound raised for label 2.
// Regions beyond the second are counted but otherwise ignored.
func (d ComponentDetector) Detect(mask *Mask) (*Detection, error) {
	conn := d.Connectivity
	if conn == 0 {
		conn = Four
	}
	if conn != Four && conn != Eight {
		return nil, fmt.Errorf("%w: connectivity %d", ErrInvalidOptions, int(conn))
	}

	labels := Label(mask, conn)
	if labels.Count == 0 {
		return nil, ErrNoBlobsFound
	}

	c1, err := Centroid(labels, 1)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInsufficientBlobs, err)
	}
	c2, err := Centroid(labels, 2)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInsufficientBlobs, err)
	}

	return &Detection{
		First:   c1,
		Second:  c2,
		Regions: labels.Count,
		Labels:  labels,
	}, nil
}

// Method names a Detector strategy.
type Method string

const (
	// MethodComponents selects ComponentDetector.
	MethodComponents Method = "components"
	// MethodCircles selects CircleDetector.
	MethodCircles Method = "circles"
)
