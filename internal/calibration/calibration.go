// Package calibration fits the linear relation between defocus and DH-PSF
// lobe angle, and inverts it to recover defocus from a measured angle.
//
// A calibration sweep images one emitter at known defocus positions. Each
// frame goes through the detection pipeline to give one Sample. FitLinear
// fits angle = slope*defocus + intercept by ordinary least squares over the
// samples a Predicate keeps, which by default is the near-focus range where
// the rotation is close to linear.
package calibration

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrInsufficientCalibrationData is returned when fewer than two samples
	// survive the filter, or when they all share one defocus value.
	ErrInsufficientCalibrationData = errors.New("insufficient calibration data")

	// ErrDegenerateCalibration is returned when inverting a model with zero slope.
	ErrDegenerateCalibration = errors.New("degenerate calibration: slope is zero")
)

// DefaultDefocusBound is the default |defocus| limit for samples used in a fit.
const DefaultDefocusBound = 4.0

// Sample is one calibration point: a known defocus and the measured angle.
type Sample struct {
	Defocus float64 `json:"defocus" yaml:"defocus"`
	Angle   float64 `json:"angle_degrees" yaml:"angle"`
}

// Predicate selects the samples used by a fit.
type Predicate func(Sample) bool

// WithinDefocus keeps samples with |defocus| strictly below bound.
func WithinDefocus(bound float64) Predicate {
	return func(s Sample) bool {
		return math.Abs(s.Defocus) < bound
	}
}

// AllSamples keeps every sample.
func AllSamples(Sample) bool { return true }

// Model is a fitted linear calibration. The zero value is not usable.
type Model struct {
	Slope      float64 `json:"slope" yaml:"slope"`
	Intercept  float64 `json:"intercept" yaml:"intercept"`
	MinDefocus float64 `json:"min_defocus" yaml:"min_defocus"`
	MaxDefocus float64 `json:"max_defocus" yaml:"max_defocus"`
}

// Angle predicts the lobe angle in degrees at the given defocus.
func (m Model) Angle(defocus float64) float64 {
	return m.Slope*defocus + m.Intercept
}

// Defocus inverts the model, returning the defocus that produces angle.
func (m Model) Defocus(angle float64) (float64, error) {
	if m.Slope == 0 {
		return 0, ErrDegenerateCalibration
	}
	return (angle - m.Intercept) / m.Slope, nil
}

// InRange reports whether defocus lies inside the range the model was fitted on.
// Values outside it are extrapolations.
func (m Model) InRange(defocus float64) bool {
	return defocus >= m.MinDefocus && defocus <= m.MaxDefocus
}

// Fit is the result of FitLinear.
type Fit struct {
	Model Model `json:"model"`

	// Used holds the samples that entered the regression, in input order.
	Used []Sample `json:"used"`

	// Residuals holds measured minus predicted angle for each entry of Used.
	Residuals []float64 `json:"residuals"`

	// RSquared is the coefficient of determination of the fit.
	RSquared float64 `json:"r_squared"`
}

// FitLinear fits angle = slope*defocus + intercept by ordinary least squares
// over the samples keep accepts. A nil keep uses every sample.
func FitLinear(samples []Sample, keep Predicate) (*Fit, error) {
	if keep == nil {
		keep = AllSamples
	}

	var used []Sample
	for _, s := range samples {
		if keep(s) {
			used = append(used, s)
		}
	}
	if len(used) < 2 {
		return nil, fmt.Errorf("%w: %d of %d samples kept, need at least 2",
			ErrInsufficientCalibrationData, len(used), len(samples))
	}

	xs := make([]float64, len(used))
	ys := make([]float64, len(used))
	for i, s := range used {
		xs[i] = s.Defocus
		ys[i] = s.Angle
	}

	lo, hi := floats.Min(xs), floats.Max(xs)
	if lo == hi {
		return nil, fmt.Errorf("%w: all kept samples share defocus %v",
			ErrInsufficientCalibrationData, lo)
	}

	// Centred least squares: exact on noiseless integer-valued sweeps.
	mx, my := stat.Mean(xs, nil), stat.Mean(ys, nil)
	dx := append([]float64(nil), xs...)
	dy := append([]float64(nil), ys...)
	floats.AddConst(-mx, dx)
	floats.AddConst(-my, dy)
	slope := floats.Dot(dx, dy) / floats.Dot(dx, dx)
	intercept := my - slope*mx
	model := Model{
		Slope:      slope,
		Intercept:  intercept,
		MinDefocus: lo,
		MaxDefocus: hi,
	}

	residuals := make([]float64, len(used))
	for i := range used {
		residuals[i] = ys[i] - model.Angle(xs[i])
	}

	r2 := stat.RSquared(xs, ys, nil, intercept, slope)
	if math.IsNaN(r2) || math.IsInf(r2, 0) {
		// Constant angles: the flat line explains everything there is.
		r2 = 1
	}

	return &Fit{
		Model:     model,
		Used:      used,
		Residuals: residuals,
		RSquared:  r2,
	}, nil
}
