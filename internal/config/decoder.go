// Package config loads lasinfo settings from JSON or YAML.
package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Silvaye/FSCT-dockerized/internal/fsutil"
	"github.com/Silvaye/FSCT-dockerized/internal/las"
)

// Defaults applied when a key is absent.
const (
	DEFAULT_PARALLEL_THRESHOLD = las.DEFAULT_PARALLEL_THRESHOLD
	DEFAULT_MAX_INPUT_BYTES    = int64(4) << 30 // 4 GiB
	DEFAULT_HISTOGRAM_BINS     = 50
	DEFAULT_SCATTER_MAX_POINTS = 5000

	MAX_CONFIG_FILE_SIZE = 1 << 20 // 1MB
)

// DecoderConfig holds the settings of the lasinfo tool. Every field is a
// pointer so a partial file leaves the rest at their defaults; use the Get*
// methods to read effective values.
type DecoderConfig struct {
	// Decode params
	Workers           *int   `json:"workers,omitempty" yaml:"workers,omitempty"`
	ParallelThreshold *int   `json:"parallel_threshold,omitempty" yaml:"parallel_threshold,omitempty"`
	MaxInputBytes     *int64 `json:"max_input_bytes,omitempty" yaml:"max_input_bytes,omitempty"`
	Debug             *bool  `json:"debug,omitempty" yaml:"debug,omitempty"`

	// Report params
	HistogramBins    *int `json:"histogram_bins,omitempty" yaml:"histogram_bins,omitempty"`
	ScatterMaxPoints *int `json:"scatter_max_points,omitempty" yaml:"scatter_max_points,omitempty"`
}

func ptrInt(v int) *int { return &v }

// EmptyDecoderConfig returns a config with every field unset.
func EmptyDecoderConfig() *DecoderConfig {
	return &DecoderConfig{}
}

// LoadDecoderConfig reads a JSON (.json) or YAML (.yaml, .yml) config file.
// Files over 1MB are rejected.
func LoadDecoderConfig(fsys fsutil.FileSystem, path string) (*DecoderConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	data, err := fsutil.ReadLimited(fsys, cleanPath, MAX_CONFIG_FILE_SIZE)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg := EmptyDecoderConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that the set values are in range.
func (c *DecoderConfig) Validate() error {
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	if c.ParallelThreshold != nil && *c.ParallelThreshold < 1 {
		return fmt.Errorf("parallel_threshold must be at least 1, got %d", *c.ParallelThreshold)
	}
	if c.MaxInputBytes != nil && *c.MaxInputBytes < 0 {
		return fmt.Errorf("max_input_bytes must be non-negative, got %d", *c.MaxInputBytes)
	}
	if c.HistogramBins != nil && (*c.HistogramBins < 1 || *c.HistogramBins > 10000) {
		return fmt.Errorf("histogram_bins must be between 1 and 10000, got %d", *c.HistogramBins)
	}
	if c.ScatterMaxPoints != nil && *c.ScatterMaxPoints < 1 {
		return fmt.Errorf("scatter_max_points must be at least 1, got %d", *c.ScatterMaxPoints)
	}
	return nil
}

// SetWorkers overrides the worker count, as the -workers flag does.
func (c *DecoderConfig) SetWorkers(n int) { c.Workers = ptrInt(n) }

// GetWorkers returns the decode worker count. Zero or unset means one
// worker per CPU.
func (c *DecoderConfig) GetWorkers() int {
	if c.Workers == nil || *c.Workers == 0 {
		return runtime.NumCPU()
	}
	return *c.Workers
}

// GetParallelThreshold returns the point count at which decoding fans out.
func (c *DecoderConfig) GetParallelThreshold() int {
	if c.ParallelThreshold == nil {
		return DEFAULT_PARALLEL_THRESHOLD
	}
	return *c.ParallelThreshold
}

// GetMaxInputBytes returns the largest input file accepted. Zero disables
// the limit.
func (c *DecoderConfig) GetMaxInputBytes() int64 {
	if c.MaxInputBytes == nil {
		return DEFAULT_MAX_INPUT_BYTES
	}
	return *c.MaxInputBytes
}

// GetDebug reports whether debug logging is on.
func (c *DecoderConfig) GetDebug() bool {
	return c.Debug != nil && *c.Debug
}

// GetHistogramBins returns the elevation histogram bin count.
func (c *DecoderConfig) GetHistogramBins() int {
	if c.HistogramBins == nil {
		return DEFAULT_HISTOGRAM_BINS
	}
	return *c.HistogramBins
}

// GetScatterMaxPoints returns the point budget of the scatter chart.
func (c *DecoderConfig) GetScatterMaxPoints() int {
	if c.ScatterMaxPoints == nil {
		return DEFAULT_SCATTER_MAX_POINTS
	}
	return *c.ScatterMaxPoints
}

// DecoderOptions converts the config into decoder options.
func (c *DecoderConfig) DecoderOptions() []las.Option {
	return []las.Option{
		las.WithWorkers(c.GetWorkers()),
		las.WithParallelThreshold(c.GetParallelThreshold()),
	}
}
