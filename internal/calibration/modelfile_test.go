package calibration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadModel(t *testing.T) {
	fit, err := FitLinear(linearSweep(-18, 2.5), WithinDefocus(4))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "models", "dhpsf.yaml")
	require.NoError(t, SaveModel(NewModelFile(fit, 4), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "slope:")
	assert.Contains(t, string(data), "intercept:")

	mf, err := LoadModel(path)
	require.NoError(t, err)
	assert.Equal(t, fit.Model, mf.Model)
	assert.Equal(t, 7, mf.Samples)
	assert.Equal(t, 4.0, mf.DefocusBound)
	assert.False(t, mf.CreatedAt.IsZero())

	d, err := mf.Defocus(mf.Angle(1.5))
	require.NoError(t, err)
	assert.InDelta(t, 1.5, d, 1e-9)
}

func TestLoadModel_Invalid(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"not yaml", "slope: [unterminated"},
		{"zero slope", "slope: 0\nintercept: 1\n"},
		{"infinite intercept", "slope: 2\nintercept: .inf\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			_, err := LoadModel(path)
			assert.Error(t, err)
		})
	}

	_, err := LoadModel(filepath.Join(dir, "absent.yaml"))
	assert.Error(t, err)
}
