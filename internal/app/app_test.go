package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstants(t *testing.T) {
	assert.Equal(t, uint32(48000), uint32(DefaultSampleRate))
	assert.Equal(t, 63, DefaultFIRTaps)
	assert.Equal(t, float64(3000), DefaultFIRCutoffHz)
}

func TestShowVersion(t *testing.T) {
	assert.NotPanics(t, func() {
		ShowVersion()
	})
}

func TestNewApplication(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
	}{
		{name: "normal logging", verbose: false},
		{name: "verbose logging", verbose: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Config{
				SampleRate: DefaultSampleRate,
				LogDir:     t.TempDir(),
				Verbose:    tt.verbose,
			}

			application := NewApplication(config)

			require.NotNil(t, application)
			assert.NotNil(t, application.logger)
			assert.NotEmpty(t, application.instanceID)
		})
	}
}

func TestNewApplicationGeneratesDistinctInstanceIDs(t *testing.T) {
	a := NewApplication(Config{SampleRate: DefaultSampleRate, LogDir: t.TempDir()})
	b := NewApplication(Config{SampleRate: DefaultSampleRate, LogDir: t.TempDir()})

	assert.NotEqual(t, a.instanceID, b.instanceID)
}

func TestLoadConfigFileOverlaysFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := `
source_file: /tmp/capture.f32
sample_rate: 96000
enable_filter: true
fir_taps: 31
fir_cutoff_hz: 2500
log_dir: /tmp/p25logs
log_rotate_utc: false
metrics_addr: ":9100"
stream_addr: ":9101"
rate_log_every: 500
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))

	var cfg Config
	require.NoError(t, LoadConfigFile(path, &cfg))

	assert.Equal(t, "/tmp/capture.f32", cfg.SourceFile)
	assert.Equal(t, uint32(96000), cfg.SampleRate)
	assert.True(t, cfg.EnableFilter)
	assert.Equal(t, 31, cfg.FIRTaps)
	assert.Equal(t, 2500.0, cfg.FIRCutoffHz)
	assert.Equal(t, "/tmp/p25logs", cfg.LogDir)
	assert.False(t, cfg.LogRotateUTC)
	assert.Equal(t, ":9100", cfg.MetricsAddr)
	assert.Equal(t, ":9101", cfg.StreamAddr)
	assert.Equal(t, uint64(500), cfg.RateLogEvery)
}

func TestLoadConfigFilePreservesUnsetFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sample_rate: 96000\n"), 0644))

	cfg := Config{LogDir: "./logs", RateLogEvery: 1000}
	require.NoError(t, LoadConfigFile(path, &cfg))

	assert.Equal(t, uint32(96000), cfg.SampleRate)
	assert.Equal(t, "./logs", cfg.LogDir)
	assert.Equal(t, uint64(1000), cfg.RateLogEvery)
}

func TestLoadConfigFileMissingFile(t *testing.T) {
	var cfg Config
	err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"), &cfg)
	assert.Error(t, err)
}

func TestLoadConfigFileInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("sample_rate: [this is not a scalar\n"), 0644))

	var cfg Config
	err := LoadConfigFile(path, &cfg)
	assert.Error(t, err)
}

func TestApplicationInitializeComponentsWithFileSource(t *testing.T) {
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "samples.bin")
	require.NoError(t, os.WriteFile(sourcePath, make([]byte, 4*100), 0644))

	application := NewApplication(Config{
		SourceFile:   sourcePath,
		SampleRate:   DefaultSampleRate,
		LogDir:       filepath.Join(dir, "logs"),
		LogRotateUTC: true,
	})

	err := application.initializeComponents()
	require.NoError(t, err)

	assert.NotNil(t, application.processor)
	assert.NotNil(t, application.framer)
	assert.NotNil(t, application.metrics)
	assert.NotNil(t, application.limiter)
	assert.Nil(t, application.filter, "filtering defaults to off")
	assert.Nil(t, application.hub, "stream hub only built when StreamAddr is set")

	application.logRotator.Close()
}

func TestApplicationInitializeComponentsWithFilterAndStream(t *testing.T) {
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "samples.bin")
	require.NoError(t, os.WriteFile(sourcePath, make([]byte, 4*100), 0644))

	application := NewApplication(Config{
		SourceFile:   sourcePath,
		SampleRate:   DefaultSampleRate,
		EnableFilter: true,
		FIRTaps:      DefaultFIRTaps,
		FIRCutoffHz:  DefaultFIRCutoffHz,
		LogDir:       filepath.Join(dir, "logs"),
		StreamAddr:   ":0",
	})

	err := application.initializeComponents()
	require.NoError(t, err)

	assert.NotNil(t, application.filter)
	assert.NotNil(t, application.hub)

	application.logRotator.Close()
}

func TestApplicationInitializeComponentsRejectsLowSampleRate(t *testing.T) {
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "samples.bin")
	require.NoError(t, os.WriteFile(sourcePath, make([]byte, 4*100), 0644))

	application := NewApplication(Config{
		SourceFile: sourcePath,
		SampleRate: 4800,
		LogDir:     filepath.Join(dir, "logs"),
	})

	err := application.initializeComponents()
	assert.Error(t, err)
}
