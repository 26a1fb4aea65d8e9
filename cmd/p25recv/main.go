package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"p25recv/internal/app"
)

func main() {
	var config app.Config

	rootCmd := &cobra.Command{
		Use:   "p25recv",
		Short: "APCO P25 Phase 1 symbol-to-message receiver",
		Long: `P25 Phase 1 symbol-to-message receiver core.

Reads a stream of soft-symbol phase samples, recovers symbol timing
against the P25 sync pattern, BCH-decodes each NID, and reassembles
message payloads, publishing them as JSON log lines and (optionally) a
live WebSocket fan-out and Prometheus metrics.

Example usage:
  p25recv --source-file capture.f32 --sample-rate 48000 --log-dir ./logs`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if config.ShowVersion {
				app.ShowVersion()
				return nil
			}

			if config.ConfigFile != "" {
				if err := applyConfigFile(cmd, &config); err != nil {
					return err
				}
			}

			application := app.NewApplication(config)
			return application.Start()
		},
	}

	rootCmd.Flags().StringVar(&config.SourceFile, "source-file", "", "Path to a raw little-endian float32 phase-sample file")
	rootCmd.Flags().Uint32VarP(&config.SampleRate, "sample-rate", "s", app.DefaultSampleRate, "Sample source rate (Hz), must exceed 2x the 4800-baud symbol rate")
	rootCmd.Flags().BoolVar(&config.EnableFilter, "filter", false, "Enable the low-pass FIR front-end filter")
	rootCmd.Flags().IntVar(&config.FIRTaps, "fir-taps", app.DefaultFIRTaps, "FIR filter tap count, when --filter is set")
	rootCmd.Flags().Float64Var(&config.FIRCutoffHz, "fir-cutoff", app.DefaultFIRCutoffHz, "FIR filter cutoff frequency (Hz), when --filter is set")
	rootCmd.Flags().StringVarP(&config.LogDir, "log-dir", "l", "./logs", "Log directory")
	rootCmd.Flags().BoolVarP(&config.LogRotateUTC, "utc", "u", true, "Use UTC for log rotation")
	rootCmd.Flags().StringVar(&config.MetricsAddr, "metrics-addr", "", "Address to serve Prometheus metrics on, e.g. :9100 (disabled if empty)")
	rootCmd.Flags().StringVar(&config.StreamAddr, "ws-addr", "", "Address to serve the WebSocket message stream on, e.g. :9101 (disabled if empty)")
	rootCmd.Flags().Uint64Var(&config.RateLogEvery, "rate-log-every", 1000, "Log at most one in this many repeated rate-limited warnings")
	rootCmd.Flags().StringVarP(&config.ConfigFile, "config", "c", "", "Optional YAML config file; flags explicitly set on the command line override it")
	rootCmd.Flags().BoolVarP(&config.Verbose, "verbose", "v", false, "Verbose logging")
	rootCmd.Flags().BoolVar(&config.ShowVersion, "version", false, "Show version information")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// applyConfigFile loads config.ConfigFile into a scratch Config and
// copies over only the fields whose flags were never explicitly set on
// the command line, so a flag the caller did type always wins over the
// file.
func applyConfigFile(cmd *cobra.Command, config *app.Config) error {
	file := *config
	if err := app.LoadConfigFile(config.ConfigFile, &file); err != nil {
		return err
	}

	if !cmd.Flags().Changed("source-file") {
		config.SourceFile = file.SourceFile
	}
	if !cmd.Flags().Changed("sample-rate") {
		config.SampleRate = file.SampleRate
	}
	if !cmd.Flags().Changed("filter") {
		config.EnableFilter = file.EnableFilter
	}
	if !cmd.Flags().Changed("fir-taps") {
		config.FIRTaps = file.FIRTaps
	}
	if !cmd.Flags().Changed("fir-cutoff") {
		config.FIRCutoffHz = file.FIRCutoffHz
	}
	if !cmd.Flags().Changed("log-dir") {
		config.LogDir = file.LogDir
	}
	if !cmd.Flags().Changed("utc") {
		config.LogRotateUTC = file.LogRotateUTC
	}
	if !cmd.Flags().Changed("metrics-addr") {
		config.MetricsAddr = file.MetricsAddr
	}
	if !cmd.Flags().Changed("ws-addr") {
		config.StreamAddr = file.StreamAddr
	}
	if !cmd.Flags().Changed("rate-log-every") {
		config.RateLogEvery = file.RateLogEvery
	}

	return nil
}
