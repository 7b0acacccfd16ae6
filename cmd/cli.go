// SPDX-License-Identifier: MIT
package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"audiolink/internal/config"
	"audiolink/pkg/build"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Commands main knows how to execute.
const (
	CommandRun     = "run"
	CommandList    = "list"
	CommandInspect = "inspect"
)

// Invocation is the parsed command line: what to do and with which
// configuration.
type Invocation struct {
	Command string
	Args    []string
	Config  *config.Config
}

// ParseArgs parses args (without the program name). A nil Invocation with
// a nil error means help or version output was printed and there is
// nothing to run.
func ParseArgs(args []string, out io.Writer) (*Invocation, error) {
	buildInfo := build.Get()
	v := viper.New()
	var (
		inv        Invocation
		configPath string
	)

	load := func(cmd *cobra.Command) error {
		if err := bindFlags(cmd, v); err != nil {
			return err
		}
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if err := cfg.ApplyOverrides(v); err != nil {
			return fmt.Errorf("invalid flag or environment override: %w", err)
		}
		inv.Config = cfg
		return nil
	}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return load(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			inv.Command = CommandRun
			return nil
		},
	}
	rootCmd.SetVersionTemplate(buildInfo.String() + "\n")
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
	rootCmd.SetOut(out)
	rootCmd.SetErr(out)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List audio output devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv.Command = CommandList
			return nil
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "inspect <file.wav>",
		Short: "Print the format and length of a recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inv.Command = CommandInspect
			inv.Args = args
			return nil
		},
	})

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Config file (default audiolink.yaml or config.yaml if present)")

	// Logging
	flags.BoolP("debug", "v", false, "Enable debug logging")
	flags.String("log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")

	// Link
	flags.String("link", config.DefaultLinkKind, "Link kind (tcp, file)")
	flags.StringP("address", "a", config.DefaultLinkAddress, "Device address for the tcp link")
	flags.String("replay", "", "Raw capture replayed by the file link")
	flags.Duration("replay-interval", config.DefaultReplayInterval, "Pause between replayed buffers")
	flags.Bool("loop", false, "Restart the replayed capture at end of file")
	flags.IntP("sample-rate", "s", config.DefaultSampleRate, "Link sample rate in Hz")
	flags.String("sample-format", config.DefaultSampleFormat, "Link sample format (pcm8, pcm16)")
	flags.IntP("buffer-size", "b", config.DefaultBufferSize, "Bytes per link read")
	flags.Int("zero-offset", config.DefaultZeroOffset, "Value subtracted from recorded bytes")
	flags.Bool("connect", true, "Connect at startup")

	// Playback
	flags.String("playback", config.DefaultPlayback, "Playback backend (portaudio, stdout, discard)")
	flags.IntP("device", "d", config.DefaultDeviceID, "Output device ID. Use 'list' command to see available devices.")
	flags.BoolP("low-latency", "l", config.DefaultLowLatency, "Use the device's low output latency")

	// Tuning
	flags.String("algorithm", config.DefaultAlgorithm, "Fourier transform (fft, dft, dft-zeroed)")
	flags.IntP("frame-size", "n", config.DefaultFrameSize, "Samples per analyzed frame")
	flags.String("mode", config.DefaultMode, "Tuning mode (peak, spectrogram)")
	flags.String("window", config.DefaultWindow, "Taper applied before the transform (none, hann, hamming, ...)")
	flags.Float64("min-hz", 0, "Lower edge of the spectrogram window")
	flags.Float64("max-hz", 0, "Upper edge of the spectrogram window (0 for the full range)")
	flags.BoolP("tune", "t", false, "Start tuning at startup")

	// Recording
	flags.StringP("output-dir", "o", config.DefaultOutputDir, "Directory for recordings")
	flags.BoolP("record", "r", false, "Start recording at startup")

	// Outputs
	flags.String("listen", "", "Serve the control API and websocket on this address")
	flags.String("udp-target", "", "Send spectrum packets to this host:port")
	flags.Duration("udp-interval", config.DefaultUDPInterval, "Interval between spectrum packets")
	flags.BoolP("monitor", "m", false, "Show the terminal monitor (logs go to monitor.log_file)")
	flags.Duration("monitor-refresh", config.DefaultMonitorRefresh, "Interval between monitor refreshes")

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	if inv.Command == "" {
		return nil, nil
	}
	return &inv, nil
}

// bindFlags binds each flag and its AUDIOLINK_ environment variable to the
// viper key of the same name.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var errs []error

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Name == "config" || f.Name == "help" || f.Name == "version" {
			return
		}
		envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))

		if err := v.BindPFlag(f.Name, f); err != nil {
			errs = append(errs, err)
		}
		if err := v.BindEnv(f.Name, config.EnvPrefix+"_"+envVarSuffix); err != nil {
			errs = append(errs, err)
		}
	})

	return errors.Join(errs...)
}
