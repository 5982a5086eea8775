package detection

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidImage reports a degenerate input: empty, mis-shaped, non-finite
	// or without dynamic range.
	ErrInvalidImage = errors.New("invalid image")

	// ErrInsufficientBlobs reports that fewer than two regions were found.
	ErrInsufficientBlobs = errors.New("insufficient blobs")

	// ErrNoBlobsFound reports a mask without any foreground region.
	// It wraps ErrInsufficientBlobs.
	ErrNoBlobsFound = fmt.Errorf("no blobs found: %w", ErrInsufficientBlobs)

	// ErrRegionNotFound reports a label with no pixels.
	ErrRegionNotFound = errors.New("region not found")

	// ErrInvalidOptions reports an out-of-range option value.
	ErrInvalidOptions = errors.New("invalid options")
)
