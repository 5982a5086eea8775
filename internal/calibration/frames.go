package calibration

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// ErrNoFrames is returned when a directory holds no usable calibration frames.
var ErrNoFrames = errors.New("no calibration frames found")

var frameExtensions = map[string]bool{
	".tif":  true,
	".tiff": true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

// DiscoverFrames lists the frames in dir whose file stem is a defocus value,
// such as "-3.tiff" or "0.5.png", sorted by defocus.
//
// Files with other names or extensions are ignored. Frames with equal
// defocus are ordered by file name.
func DiscoverFrames(dir string) ([]Frame, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame directory: %w", err)
	}

	var frames []Frame
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := filepath.Ext(name)
		if !frameExtensions[strings.ToLower(ext)] {
			continue
		}
		defocus, err := strconv.ParseFloat(strings.TrimSuffix(name, ext), 64)
		if err != nil || math.IsNaN(defocus) || math.IsInf(defocus, 0) {
			continue
		}
		frames = append(frames, Frame{Defocus: defocus, Path: filepath.Join(dir, name)})
	}

	if len(frames) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFrames, dir)
	}

	slices.SortFunc(frames, func(a, b Frame) int {
		if c := cmp.Compare(a.Defocus, b.Defocus); c != 0 {
			return c
		}
		return strings.Compare(a.Path, b.Path)
	})
	return frames, nil
}
