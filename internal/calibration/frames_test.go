package calibration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
}

func TestDiscoverFrames(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"-5.tiff", "4.tiff", "0.tiff", "-0.5.TIF", "1.png", "notes.txt", "focus.tiff", "2.csv"} {
		touch(t, dir, name)
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "3.tiff"), 0755))

	frames, err := DiscoverFrames(dir)
	require.NoError(t, err)

	var defocus []float64
	for _, f := range frames {
		defocus = append(defocus, f.Defocus)
	}
	assert.Equal(t, []float64{-5, -0.5, 0, 1, 4}, defocus)
	assert.Equal(t, filepath.Join(dir, "-0.5.TIF"), frames[1].Path)
}

func TestDiscoverFrames_TiesByName(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "1.tiff")
	touch(t, dir, "1.png")

	frames, err := DiscoverFrames(dir)
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, filepath.Join(dir, "1.png"), frames[0].Path)
}

func TestDiscoverFrames_Errors(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "readme.md")

	_, err := DiscoverFrames(dir)
	assert.ErrorIs(t, err, ErrNoFrames)

	_, err = DiscoverFrames(filepath.Join(dir, "absent"))
	assert.Error(t, err)
}
