package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"p25recv/internal/app"
)

func newFlagsCmd(config *app.Config) *cobra.Command {
	cmd := &cobra.Command{Use: "p25recv"}
	cmd.Flags().StringVar(&config.SourceFile, "source-file", "", "")
	cmd.Flags().Uint32VarP(&config.SampleRate, "sample-rate", "s", app.DefaultSampleRate, "")
	cmd.Flags().BoolVar(&config.EnableFilter, "filter", false, "")
	cmd.Flags().IntVar(&config.FIRTaps, "fir-taps", app.DefaultFIRTaps, "")
	cmd.Flags().Float64Var(&config.FIRCutoffHz, "fir-cutoff", app.DefaultFIRCutoffHz, "")
	cmd.Flags().StringVarP(&config.LogDir, "log-dir", "l", "./logs", "")
	cmd.Flags().BoolVarP(&config.LogRotateUTC, "utc", "u", true, "")
	cmd.Flags().StringVar(&config.MetricsAddr, "metrics-addr", "", "")
	cmd.Flags().StringVar(&config.StreamAddr, "ws-addr", "", "")
	cmd.Flags().Uint64Var(&config.RateLogEvery, "rate-log-every", 1000, "")
	cmd.Flags().StringVarP(&config.ConfigFile, "config", "c", "", "")
	return cmd
}

func TestApplyConfigFileFlagsWinOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := "sample_rate: 96000\nlog_dir: /tmp/from-file\nmetrics_addr: \":9100\"\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))

	var config app.Config
	cmd := newFlagsCmd(&config)
	require.NoError(t, cmd.ParseFlags([]string{"--log-dir", "/tmp/from-flag", "--config", path}))

	err := applyConfigFile(cmd, &config)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/from-flag", config.LogDir, "flag-set value must win over file value")
	assert.Equal(t, uint32(96000), config.SampleRate, "file value applies where no flag was set")
	assert.Equal(t, ":9100", config.MetricsAddr)
}

func TestApplyConfigFileMissingFileReturnsError(t *testing.T) {
	var config app.Config
	config.ConfigFile = filepath.Join(t.TempDir(), "missing.yaml")
	cmd := newFlagsCmd(&config)
	require.NoError(t, cmd.ParseFlags(nil))

	err := applyConfigFile(cmd, &config)
	assert.Error(t, err)
}
