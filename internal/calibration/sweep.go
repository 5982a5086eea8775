package calibration

import (
	"context"
	"fmt"
	"log"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/dhpsf-tools-mcp/internal/detection"
)

// Frame is one image of a calibration sweep at a known defocus.
type Frame struct {
	Defocus float64 `json:"defocus" yaml:"defocus"`
	Path    string  `json:"path" yaml:"path"`
}

// ImageSource turns a frame path into an intensity array.
type ImageSource interface {
	Intensity(path string) (*detection.Image, error)
}

// FrameResult pairs a frame with its successful estimate.
type FrameResult struct {
	Frame    Frame
	Estimate *detection.Estimate
}

// FrameError records a frame that could not be measured.
type FrameError struct {
	Frame Frame
	Err   error
}

func (e FrameError) Error() string {
	return fmt.Sprintf("frame %s (defocus %v): %v", e.Frame.Path, e.Frame.Defocus, e.Err)
}

func (e FrameError) Unwrap() error { return e.Err }

// Sweep is the outcome of running a calibration sweep.
// Samples and Results share acquisition order and length.
type Sweep struct {
	Samples  []Sample
	Results  []FrameResult
	Failures []FrameError
}

// Fit fits the sweep's samples with FitLinear.
func (s *Sweep) Fit(keep Predicate) (*Fit, error) {
	return FitLinear(s.Samples, keep)
}

// Predictions evaluates m at every sample's defocus, including samples the
// fit excluded.
func (s *Sweep) Predictions(m Model) []float64 {
	out := make([]float64, len(s.Samples))
	for i, sample := range s.Samples {
		out[i] = m.Angle(sample.Defocus)
	}
	return out
}

// Runner measures the frames of a sweep in parallel.
type Runner struct {
	Source    ImageSource
	Estimator *detection.Estimator

	// Workers bounds concurrent frames. Zero or less uses runtime.NumCPU().
	Workers int
}

// NewRunner creates a Runner.
func NewRunner(source ImageSource, est *detection.Estimator, workers int) *Runner {
	return &Runner{Source: source, Estimator: est, Workers: workers}
}

// Run measures every frame and assembles the sweep in frame order.
//
// A frame that fails to load or estimate does not stop the sweep; it is
// reported in Sweep.Failures. Run returns an error only when ctx is done.
func (r *Runner) Run(ctx context.Context, frames []Frame) (*Sweep, error) {
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	type slot struct {
		est *detection.Estimate
		err error
	}
	slots := make([]slot, len(frames))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, f := range frames {
		if gctx.Err() != nil {
			break
		}
		i, f := i, f
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			est, err := r.measure(f)
			slots[i] = slot{est: est, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sweep := &Sweep{}
	for i, s := range slots {
		f := frames[i]
		if s.err != nil {
			log.Printf("[WARN] calibration: %s (defocus %v): %v", f.Path, f.Defocus, s.err)
			sweep.Failures = append(sweep.Failures, FrameError{Frame: f, Err: s.err})
			continue
		}
		sweep.Samples = append(sweep.Samples, Sample{Defocus: f.Defocus, Angle: s.est.AngleDegrees})
		sweep.Results = append(sweep.Results, FrameResult{Frame: f, Estimate: s.est})
	}
	return sweep, nil
}

func (r *Runner) measure(f Frame) (*detection.Estimate, error) {
	img, err := r.Source.Intensity(f.Path)
	if err != nil {
		return nil, err
	}
	return r.Estimator.Estimate(img)
}
