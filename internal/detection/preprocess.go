package detection

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// DefaultThreshold is the binarization level on the normalized [0, 1] scale.
const DefaultThreshold = 0.4

// Polarity selects which side of the threshold is foreground.
type Polarity int

const (
	// DarkBlobs marks pixels strictly below the threshold as foreground.
	DarkBlobs Polarity = iota
	// BrightBlobs marks pixels at or above the threshold as foreground.
	BrightBlobs
)

func (p Polarity) String() string {
	switch p {
	case DarkBlobs:
		return "dark"
	case BrightBlobs:
		return "bright"
	default:
		return fmt.Sprintf("Polarity(%d)", int(p))
	}
}

// ParsePolarity converts "dark" or "bright" into a Polarity.
func ParsePolarity(s string) (Polarity, error) {
	switch s {
	case "dark", "":
		return DarkBlobs, nil
	case "bright":
		return BrightBlobs, nil
	default:
		return DarkBlobs, fmt.Errorf("%w: unknown polarity %q", ErrInvalidOptions, s)
	}
}

// Normalize contrast-stretches an image onto [0, 1].
//
// The observed minimum maps to 0 and the observed maximum to 1. An image whose
// samples are all equal has no defined stretch and yields ErrInvalidImage.
func Normalize(img *Image) (*Image, error) {
	if img == nil || len(img.Pix) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}
	lo := floats.Min(img.Pix)
	hi := floats.Max(img.Pix)
	if lo == hi {
		return nil, fmt.Errorf("%w: zero dynamic range (all samples %v)", ErrInvalidImage, lo)
	}

	out := make([]float64, len(img.Pix))
	span := hi - lo
	for i, v := range img.Pix {
		out[i] = (v - lo) / span
	}
	return &Image{Rows: img.Rows, Cols: img.Cols, Pix: out}, nil
}

// Binarize normalizes img and thresholds it into a Mask.
//
// Parameters:
//   - img: Source intensities (any range).
//   - threshold: Level on the normalized scale, in [0, 1].
//   - polarity: DarkBlobs keeps v < threshold, BrightBlobs keeps the rest.
//
// The comparison is strict, so a pixel exactly at the threshold is background
// for DarkBlobs and foreground for BrightBlobs.
func Binarize(img *Image, threshold float64, polarity Polarity) (*Mask, error) {
	if !(threshold >= 0 && threshold <= 1) {
		return nil, fmt.Errorf("%w: threshold %v outside [0, 1]", ErrInvalidOptions, threshold)
	}
	if polarity != DarkBlobs && polarity != BrightBlobs {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, polarity)
	}
	norm, err := Normalize(img)
	if err != nil {
		return nil, err
	}

	mask := NewMask(norm.Rows, norm.Cols)
	for i, v := range norm.Pix {
		below := v < threshold
		if polarity == DarkBlobs {
			mask.Pix[i] = below
		} else {
			mask.Pix[i] = !below
		}
	}
	return mask, nil
}
