package detection

import "fmt"

// Options configures an Estimator. Use DefaultOptions as a starting point.
type Options struct {
	// Threshold is the binarization level on the normalized scale [0, 1].
	Threshold float64 `json:"threshold"`

	// Polarity selects whether lobes are darker or brighter than the background.
	Polarity Polarity `json:"polarity"`

	// Connectivity is the labeling neighborhood for MethodComponents.
	Connectivity Connectivity `json:"connectivity"`

	// Method selects the lobe detector.
	Method Method `json:"method"`

	// MinRadius and MaxRadius bound the Hough search for MethodCircles.
	// The range is half-open: [MinRadius, MaxRadius).
	MinRadius int `json:"min_radius"`
	MaxRadius int `json:"max_radius"`
}

// DefaultOptions returns threshold 0.4, dark lobes, 4-connectivity,
// connected components, and radius bounds [2, 5).
func DefaultOptions() Options {
	return Options{
		Threshold:    DefaultThreshold,
		Polarity:     DarkBlobs,
		Connectivity: Four,
		Method:       MethodComponents,
		MinRadius:    DefaultMinRadius,
		MaxRadius:    DefaultMaxRadius,
	}
}

// Validate checks every option against its allowed range.
func (o Options) Validate() error {
	if !(o.Threshold >= 0 && o.Threshold <= 1) {
		return fmt.Errorf("%w: threshold %v outside [0, 1]", ErrInvalidOptions, o.Threshold)
	}
	if o.Polarity != DarkBlobs && o.Polarity != BrightBlobs {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, o.Polarity)
	}
	if o.Connectivity != Four && o.Connectivity != Eight {
		return fmt.Errorf("%w: connectivity %d, want 4 or 8", ErrInvalidOptions, int(o.Connectivity))
	}
	switch o.Method {
	case MethodComponents:
	case MethodCircles:
		if o.MinRadius < 1 || o.MaxRadius <= o.MinRadius {
			return fmt.Errorf("%w: radius range [%d, %d)", ErrInvalidOptions, o.MinRadius, o.MaxRadius)
		}
	default:
		return fmt.Errorf("%w: unknown method %q", ErrInvalidOptions, o.Method)
	}
	return nil
}

// Detector returns the strategy selected by Method.
func (o Options) Detector() Detector {
	if o.Method == MethodCircles {
		return CircleDetector{MinRadius: o.MinRadius, MaxRadius: o.MaxRadius}
	}
	return ComponentDetector{Connectivity: o.Connectivity}
}

// Estimate is the outcome of running the pipeline on one frame.
type Estimate struct {
	// First and Second are the lobe centers, in detector order.
	First  Point `json:"first"`
	Second Point `json:"second"`

	// AngleDegrees is Angle(First, Second).
	AngleDegrees float64 `json:"angle_degrees"`

	// SeparationPixels is the distance between the lobe centers.
	SeparationPixels float64 `json:"separation_pixels"`

	// Regions is the number of regions or circles the detector found.
	Regions int `json:"regions"`

	// Method is the detector that produced the result.
	Method Method `json:"method"`

	// Mask is the binarized frame.
	Mask *Mask `json:"-"`

	// Labels is the label map (nil for MethodCircles).
	Labels *Labels `json:"-"`

	// Circles lists the Hough circles (nil for MethodComponents).
	Circles []Circle `json:"circles,omitempty"`
}

// Estimator runs the full image-to-angle pipeline with fixed options.
type Estimator struct {
	opts     Options
	detector Detector
}

// NewEstimator validates opts and builds an Estimator.
func NewEstimator(opts Options) (*Estimator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Estimator{opts: opts, detector: opts.Detector()}, nil
}

// Options returns the options the Estimator was built with.
func (e *Estimator) Options() Options {
	return e.opts
}

// Binarize runs only the preprocessing stage.
func (e *Estimator) Binarize(img *Image) (*Mask, error) {
	return Binarize(img, e.opts.Threshold, e.opts.Polarity)
}

// Estimate binarizes img, locates both lobes, and measures their angle.
//
// Errors wrap ErrInvalidImage for degenerate frames and ErrInsufficientBlobs
// (or ErrNoBlobsFound) when two lobes cannot be found. No default angle is
// ever substituted.
func (e *Estimator) Estimate(img *Image) (*Estimate, error) {
	mask, err := e.Binarize(img)
	if err != nil {
		return nil, err
	}
	return e.EstimateMask(mask)
}

// EstimateMask runs detection and angle measurement on an existing mask.
func (e *Estimator) EstimateMask(mask *Mask) (*Estimate, error) {
	det, err := e.detector.Detect(mask)
	if err != nil {
		return nil, err
	}

	return &Estimate{
		First:            det.First,
		Second:           det.Second,
		AngleDegrees:     Angle(det.First, det.Second),
		SeparationPixels: Separation(det.First, det.Second),
		Regions:          det.Regions,
		Method:           e.opts.Method,
		Mask:             mask,
		Labels:           det.Labels,
		Circles:          det.Circles,
	}, nil
}
