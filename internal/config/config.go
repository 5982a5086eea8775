// Package config provides configuration loading and management for the DH-PSF tools.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/dhpsf-tools-mcp/internal/calibration"
	"github.com/ironsheep/dhpsf-tools-mcp/internal/detection"
	"github.com/ironsheep/dhpsf-tools-mcp/internal/imaging"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Detection parameters
	Detection struct {
		// Threshold is the binarization cutoff on the normalized image, in [0,1]
		Threshold float64 `yaml:"threshold"`

		// Polarity selects which side of the threshold is foreground: "dark" or "bright"
		Polarity string `yaml:"polarity"`

		// Connectivity is the pixel neighborhood for labeling: 4 or 8
		Connectivity int `yaml:"connectivity"`

		// Method selects the lobe detector: "components" or "circles"
		Method string `yaml:"method"`

		// MinRadius and MaxRadius bound the Hough circle radii, max exclusive
		MinRadius int `yaml:"minRadius"`
		MaxRadius int `yaml:"maxRadius"`
	} `yaml:"detection"`

	// Image loading parameters
	Imaging struct {
		// BlurRadius is the Gaussian pre-blur radius in pixels, 0 to disable
		BlurRadius float64 `yaml:"blurRadius"`

		// ROI restricts every frame to a region of interest
		ROI *imaging.Region `yaml:"roi,omitempty"`
	} `yaml:"imaging"`

	// Calibration parameters
	Calibration struct {
		// DefocusBound keeps samples with |defocus| below this value in the fit
		DefocusBound float64 `yaml:"defocusBound"`

		// Workers specifies how many frames are processed in parallel
		Workers int `yaml:"workers"`

		// ModelPath is where the fitted model is written and read
		ModelPath string `yaml:"modelPath"`
	} `yaml:"calibration"`

	// Storage parameters
	Storage struct {
		// DBPath is the SQLite run history file; empty disables the store
		DBPath string `yaml:"dbPath"`
	} `yaml:"storage"`

	// Logging parameters
	Logging struct {
		// Level is "info" or "debug"
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Detection.Threshold = detection.DefaultThreshold
	cfg.Detection.Polarity = detection.DarkBlobs.String()
	cfg.Detection.Connectivity = int(detection.Four)
	cfg.Detection.Method = string(detection.MethodComponents)
	cfg.Detection.MinRadius = detection.DefaultMinRadius
	cfg.Detection.MaxRadius = detection.DefaultMaxRadius

	cfg.Imaging.BlurRadius = 0

	cfg.Calibration.DefocusBound = calibration.DefaultDefocusBound
	cfg.Calibration.Workers = runtime.NumCPU() // Use all available cores by default
	cfg.Calibration.ModelPath = "dhpsf-model.yaml"

	cfg.Logging.Level = "info"

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}

// Validate checks that every field holds a usable value.
func (c *Config) Validate() error {
	if _, err := c.DetectionOptions(); err != nil {
		return err
	}
	if !(c.Imaging.BlurRadius >= 0) {
		return fmt.Errorf("imaging.blurRadius must not be negative, got %v", c.Imaging.BlurRadius)
	}
	if c.Imaging.ROI != nil && c.Imaging.ROI.Empty() {
		return fmt.Errorf("imaging.roi selects no pixels: %+v", *c.Imaging.ROI)
	}
	if !(c.Calibration.DefocusBound > 0) {
		return fmt.Errorf("calibration.defocusBound must be positive, got %v", c.Calibration.DefocusBound)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "info", "debug":
	default:
		return fmt.Errorf("logging.level must be info or debug, got %q", c.Logging.Level)
	}
	return nil
}

// DetectionOptions converts the detection section into pipeline options.
func (c *Config) DetectionOptions() (detection.Options, error) {
	polarity, err := detection.ParsePolarity(c.Detection.Polarity)
	if err != nil {
		return detection.Options{}, err
	}
	conn, err := detection.ParseConnectivity(c.Detection.Connectivity)
	if err != nil {
		return detection.Options{}, err
	}

	opts := detection.Options{
		Threshold:    c.Detection.Threshold,
		Polarity:     polarity,
		Connectivity: conn,
		Method:       detection.Method(c.Detection.Method),
		MinRadius:    c.Detection.MinRadius,
		MaxRadius:    c.Detection.MaxRadius,
	}
	if err := opts.Validate(); err != nil {
		return detection.Options{}, err
	}
	return opts, nil
}

// IntensityLoader builds a frame loader from the imaging section.
func (c *Config) IntensityLoader() *imaging.IntensityLoader {
	loader := imaging.NewIntensityLoader(c.Imaging.BlurRadius)
	loader.ROI = c.Imaging.ROI
	return loader
}

// Debug reports whether debug logging is enabled.
func (c *Config) Debug() bool {
	return strings.EqualFold(c.Logging.Level, "debug")
}
