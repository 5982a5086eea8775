// Package imaging turns image files into intensity arrays for detection and
// renders detection results back into viewable images.
//
// Decoding goes through ImageCache, which understands PNG, JPEG, GIF and TIFF
// including 16-bit grayscale TIFF stacks written by scientific cameras.
// IntensityLoader combines the cache with an optional region of interest and
// Gaussian pre-blur, and satisfies the frame source used by calibration sweeps.
//
// # Coordinate System
//
// Intensity arrays are indexed (row, col) where row follows image Y and col
// follows image X, both 0-based from the top-left of the image bounds.
// Regions use (x1,y1) inclusive and (x2,y2) exclusive.
//
// # Rendering
//
// MaskImage, LabelImage and AnnotateCentroids produce in-memory images.
// EncodePNG wraps any of them as base64 PNG for tool responses, and SavePNG
// writes them to disk.
//
// # Thread Safety
//
// ImageCache and IntensityLoader are safe for concurrent use. Rendering
// functions allocate a fresh image on every call.
package imaging
