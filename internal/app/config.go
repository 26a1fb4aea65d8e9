package app

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default configuration constants
const (
	// DefaultSampleRate is the baseband sample rate a FileSource is
	// assumed to be recorded at absent an override: 10x the 4800-baud
	// symbol rate, comfortably above the processor's 2x floor.
	DefaultSampleRate = 48000
	// DefaultFIRTaps is the tap count LowPassTaps builds when filtering
	// is enabled.
	DefaultFIRTaps = 63
	// DefaultFIRCutoffHz is the low-pass cutoff used when filtering is
	// enabled, comfortably above the 4800-baud symbol rate's Nyquist
	// bandwidth.
	DefaultFIRCutoffHz = 3000
)

// Config holds application configuration, assembled from (in increasing
// priority) built-in defaults, an optional YAML file, and CLI flags.
type Config struct {
	SourceFile string `yaml:"source_file"`
	SampleRate uint32 `yaml:"sample_rate"`

	EnableFilter bool    `yaml:"enable_filter"`
	FIRTaps      int     `yaml:"fir_taps"`
	FIRCutoffHz  float64 `yaml:"fir_cutoff_hz"`

	LogDir       string `yaml:"log_dir"`
	LogRotateUTC bool   `yaml:"log_rotate_utc"`

	MetricsAddr string `yaml:"metrics_addr"`
	StreamAddr  string `yaml:"stream_addr"`

	RateLogEvery uint64 `yaml:"rate_log_every"`

	Verbose     bool
	ShowVersion bool
	ConfigFile  string
}

// LoadConfigFile reads a YAML file at path and unmarshals it into cfg,
// overlaying any fields it sets on top of cfg's current values. It does
// not consult CLI flags; giving explicitly set flags precedence is left to
// the caller.
func LoadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}
