package calibration

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ModelFile is the on-disk form of a calibration.
type ModelFile struct {
	Model `yaml:",inline"`

	RSquared     float64   `yaml:"r_squared"`
	Samples      int       `yaml:"samples"`
	DefocusBound float64   `yaml:"defocus_bound"`
	CreatedAt    time.Time `yaml:"created_at"`
}

// NewModelFile describes fit for saving. bound is the |defocus| limit the fit used.
func NewModelFile(fit *Fit, bound float64) *ModelFile {
	return &ModelFile{
		Model:        fit.Model,
		RSquared:     fit.RSquared,
		Samples:      len(fit.Used),
		DefocusBound: bound,
		CreatedAt:    time.Now().UTC(),
	}
}

// SaveModel writes mf to path as YAML, creating parent directories.
func SaveModel(mf *ModelFile, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating model directory: %w", err)
		}
	}

	data, err := yaml.Marshal(mf)
	if err != nil {
		return fmt.Errorf("error marshaling model: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing model file: %w", err)
	}
	return nil
}

// LoadModel reads a model written by SaveModel.
func LoadModel(path string) (*ModelFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading model file: %w", err)
	}

	var mf ModelFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("error parsing model file: %w", err)
	}

	for name, v := range map[string]float64{"slope": mf.Slope, "intercept": mf.Intercept} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("model file %s: %s is not finite", path, name)
		}
	}
	if mf.Slope == 0 {
		return nil, fmt.Errorf("model file %s: %w", path, ErrDegenerateCalibration)
	}
	return &mf, nil
}
