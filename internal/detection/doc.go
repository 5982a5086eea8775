// Package detection estimates the rotation of a Double-Helix Point Spread Function
// (DH-PSF) from a single grayscale frame.
//
// A DH-PSF images a point source as two lobes whose connecting line rotates
// linearly with axial defocus. This package turns an intensity array into the
// signed angle of that line.
//
// # Pipeline
//
// Every frame goes through the same stages:
//
//  1. Normalization: contrast-stretch the intensities to [0, 1] using the
//     observed minimum and maximum
//  2. Binarization: threshold at a fixed level (default 0.4) with a strict "<"
//     comparison; polarity selects whether dark or bright pixels are foreground
//  3. Segmentation: flood-fill connected-component labeling (4-connectivity by
//     default) with labels assigned in row-major scan order
//  4. Centroids: unweighted center of mass of labels 1 and 2
//  5. Angle: atan2(r1-r2, c1-c2) in degrees, in the range (-180, 180]
//
// A Hough circle detector is available as an alternative to step 3 and 4. It
// satisfies the same Detector interface and is selected through Options.Method.
//
// # Coordinate System
//
// Arrays are row-major with the origin at the top-left corner:
//   - Row: vertical position (0 = topmost)
//   - Col: horizontal position (0 = leftmost)
//
// Centroids are reported as (Row, Col) pairs in pixel units.
//
// # Error Handling
//
// All failures are returned as errors wrapping one of the package sentinels
// (ErrInvalidImage, ErrNoBlobsFound, ErrInsufficientBlobs, ErrRegionNotFound,
// ErrInvalidOptions). Use errors.Is to classify them. ErrNoBlobsFound also
// matches ErrInsufficientBlobs, so callers that only need two lobes can test
// for the latter.
//
// # Thread Safety
//
// Images, masks and label maps are never modified after construction and all
// functions are free of shared state. An Estimator may be used from multiple
// goroutines at once.
package detection
