// Package config holds the parameters for trace extraction and noise
// estimation. Parameter files are YAML, or JSON when the file name ends
// in .json.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/524D/mztrace/deviation"
)

// ErrInvalidConfig means a parameter is out of range
var ErrInvalidConfig = errors.New("config: invalid parameter")

// Config contains all parameters
type Config struct {
	// Tolerance between consecutive points of a trace
	Tolerance deviation.Deviation `json:"tolerance" yaml:"tolerance"`
	Noise     Noise               `json:"noise" yaml:"noise"`
	Ms2       Ms2                 `json:"ms2" yaml:"ms2"`
}

// Noise configures the MS1 noise estimator
type Noise struct {
	BandWidth  int     `json:"band_width" yaml:"band_width"`
	Percentile float64 `json:"percentile" yaml:"percentile"`
}

// Ms2 configures the MS2 noise estimator
type Ms2 struct {
	Seed int64 `json:"seed" yaml:"seed"`
}

// Default returns the default parameters
func Default() Config {
	return Config{
		Tolerance: deviation.New(10),
		Noise: Noise{
			BandWidth:  20,
			Percentile: 0.25,
		},
		Ms2: Ms2{Seed: 1},
	}
}

// Load reads parameters from path. Parameters missing from the file keep
// their default value, a missing file gives the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		d := json.NewDecoder(bytes.NewReader(data))
		d.DisallowUnknownFields()
		err = d.Decode(&cfg)
	} else {
		d := yaml.NewDecoder(bytes.NewReader(data))
		d.KnownFields(true)
		err = d.Decode(&cfg)
		if errors.Is(err, io.EOF) {
			// Empty file
			err = nil
		}
	}
	if err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that all parameters are in range
func (c Config) Validate() error {
	switch {
	case c.Tolerance.PPM < 0 || c.Tolerance.Absolute < 0:
		return fmt.Errorf("%w: negative tolerance", ErrInvalidConfig)
	case c.Tolerance.PPM == 0 && c.Tolerance.Absolute == 0:
		return fmt.Errorf("%w: zero tolerance", ErrInvalidConfig)
	case c.Noise.BandWidth < 1:
		return fmt.Errorf("%w: noise.band_width %d, must be at least 1", ErrInvalidConfig, c.Noise.BandWidth)
	case c.Noise.Percentile < 0 || c.Noise.Percentile >= 1:
		return fmt.Errorf("%w: noise.percentile %g, must be in [0,1)", ErrInvalidConfig, c.Noise.Percentile)
	}
	return nil
}
