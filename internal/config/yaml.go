// SPDX-License-Identifier: MIT
package config

import (
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"strings"
	"time"

	"audiolink/internal/analysis"
	"audiolink/internal/fft"
	applog "audiolink/internal/log"
	"audiolink/pkg/bitint"

	"gopkg.in/yaml.v3"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Forces debug logging.
	LogLevel  string          `yaml:"log_level"` // "debug", "info", "warn" or "error".
	Link      LinkConfig      `yaml:"link"`      // Where audio comes from and how it is framed.
	Playback  PlaybackConfig  `yaml:"playback"`  // Where audio is played.
	Tuning    TuningConfig    `yaml:"tuning"`    // Spectral analysis settings.
	Recording RecordingConfig `yaml:"recording"` // WAV recording settings.
	Server    ServerConfig    `yaml:"server"`    // HTTP control API.
	UDP       UDPConfig       `yaml:"udp"`       // Spectrum packets over UDP.
	Monitor   MonitorConfig   `yaml:"monitor"`   // Terminal monitor.
}

// LinkConfig selects the byte-stream source and describes its samples.
type LinkConfig struct {
	Kind           string        `yaml:"kind"`            // "tcp" or "file".
	Address        string        `yaml:"address"`         // host:port for tcp.
	DialTimeout    time.Duration `yaml:"dial_timeout"`    // tcp handshake limit.
	Path           string        `yaml:"path"`            // Raw capture replayed by the file link.
	ReplayInterval time.Duration `yaml:"replay_interval"` // Pause between replayed buffers.
	Loop           bool          `yaml:"loop"`            // Restart the capture at EOF.
	SampleRate     int           `yaml:"sample_rate"`     // Hz.
	SampleFormat   string        `yaml:"sample_format"`   // "pcm8" or "pcm16".
	BufferSize     int           `yaml:"buffer_size"`     // Bytes per read.
	ZeroOffset     int           `yaml:"zero_offset"`     // Subtracted from recorded bytes, 0-255.
	QueueCapacity  int           `yaml:"queue_capacity"`  // Buffers per consumer queue.
	Connect        bool          `yaml:"connect"`         // Connect at startup.
}

// PlaybackConfig selects the playback sink.
type PlaybackConfig struct {
	Backend    string `yaml:"backend"`     // "portaudio", "stdout" or "discard".
	Device     int    `yaml:"device"`      // PortAudio device index (-1 for default).
	LowLatency bool   `yaml:"low_latency"` // Request the device's low output latency.
}

// TuningConfig holds settings for the tuner and spectrogram.
type TuningConfig struct {
	Algorithm string  `yaml:"algorithm"`  // "fft", "dft" or "dft-zeroed".
	FrameSize int     `yaml:"frame_size"` // Samples per analyzed frame.
	Mode      string  `yaml:"mode"`       // "peak" or "spectrogram".
	Window    string  `yaml:"window"`     // Taper applied before the transform ("none", "hann", ...).
	MinHz     float64 `yaml:"min_hz"`     // Initial spectrogram window, 0 for the full range.
	MaxHz     float64 `yaml:"max_hz"`
	Start     bool    `yaml:"start"` // Start tuning at startup.
}

// RecordingConfig holds settings related to audio recording functionality.
type RecordingConfig struct {
	OutputDir     string `yaml:"output_dir"`      // Directory to save recorded audio files.
	Channels      int    `yaml:"channels"`        // Channels written to the WAV header.
	BitsPerSample int    `yaml:"bits_per_sample"` // Bits per sample written to the WAV header.
	Start         bool   `yaml:"start"`           // Start recording at startup.
}

// ServerConfig configures the HTTP control API and websocket.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

// UDPConfig holds settings related to sending spectrum windows over the network.
type UDPConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Target   string        `yaml:"target"`   // host:port receiving the packets.
	Interval time.Duration `yaml:"interval"` // Interval between packets.
}

// MonitorConfig configures the terminal monitor. While it runs, log output
// goes to LogFile instead of the terminal.
type MonitorConfig struct {
	Enabled bool          `yaml:"enabled"`
	Refresh time.Duration `yaml:"refresh"`  // Interval between screen refreshes.
	LogFile string        `yaml:"log_file"` // Receives JSON log lines.
}

// Candidate files searched by LoadConfig when no path is given.
var defaultConfigFiles = []string{"audiolink.yaml", "config.yaml"}

// LoadConfig loads configuration from a YAML file specified by path. If path is empty,
// it searches default locations ("audiolink.yaml", "config.yaml"). If no file is found,
// it uses built-in defaults. The result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		for _, candidate := range defaultConfigFiles {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	applog.Debugf("Config: Loaded %s", path)
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		add("log_level '%s' is not one of debug, info, warn, error", c.LogLevel)
	}

	// Link
	switch strings.ToLower(c.Link.Kind) {
	case LinkTCP:
		if _, _, err := net.SplitHostPort(c.Link.Address); err != nil {
			add("link.address '%s' appears invalid: %v", c.Link.Address, err)
		}
	case LinkFile:
		if c.Link.Path == "" {
			add("link.path must be set for the file link")
		}
		if c.Link.ReplayInterval < 0 {
			add("link.replay_interval cannot be negative")
		}
	default:
		add("link.kind '%s' is not one of tcp, file", c.Link.Kind)
	}
	if c.Link.SampleRate < MinSampleRate || c.Link.SampleRate > MaxSampleRate {
		add("link.sample_rate %d out of range [%d, %d]", c.Link.SampleRate, MinSampleRate, MaxSampleRate)
	}
	format, err := analysis.ParseSampleFormat(c.Link.SampleFormat)
	if err != nil {
		add("link.sample_format: %v", err)
	}
	if c.Link.BufferSize <= 0 || c.Link.BufferSize > MaxBufferSize {
		add("link.buffer_size %d out of range [1, %d]", c.Link.BufferSize, MaxBufferSize)
	} else if err == nil && c.Link.BufferSize%format.BytesPerSample() != 0 {
		add("link.buffer_size %d is not a whole number of %s samples", c.Link.BufferSize, format)
	}
	if c.Link.ZeroOffset < 0 || c.Link.ZeroOffset > 255 {
		add("link.zero_offset %d out of range [0, 255]", c.Link.ZeroOffset)
	}
	if c.Link.QueueCapacity <= 0 {
		add("link.queue_capacity must be positive")
	}

	// Playback
	switch strings.ToLower(c.Playback.Backend) {
	case PlaybackPortAudio, PlaybackStdout, PlaybackDiscard:
	default:
		add("playback.backend '%s' is not one of portaudio, stdout, discard", c.Playback.Backend)
	}
	if c.Playback.Device < MinDeviceID {
		add("playback.device %d is invalid", c.Playback.Device)
	}

	// Tuning
	transform, err := fft.New(c.Tuning.Algorithm)
	if err != nil {
		add("tuning.algorithm: %v", err)
	}
	switch {
	case c.Tuning.FrameSize <= 0 || c.Tuning.FrameSize > MaxFrameSize:
		add("tuning.frame_size %d out of range [1, %d]", c.Tuning.FrameSize, MaxFrameSize)
	case transform != nil && fft.RequiresPowerOfTwo(transform) && !bitint.IsPowerOfTwo(c.Tuning.FrameSize):
		add("tuning.frame_size %d must be a power of two for '%s' (try %d)",
			c.Tuning.FrameSize, c.Tuning.Algorithm, bitint.NextPowerOfTwo(c.Tuning.FrameSize))
	}
	switch strings.ToLower(strings.TrimSpace(c.Tuning.Mode)) {
	case "peak", "spectrogram":
	default:
		add("tuning.mode '%s' is not one of peak, spectrogram", c.Tuning.Mode)
	}
	if _, err := analysis.ParseWindowFunc(c.Tuning.Window); err != nil {
		add("tuning.window: %v", err)
	}
	span := float64(c.Link.SampleRate)
	switch {
	case math.IsNaN(c.Tuning.MinHz) || math.IsNaN(c.Tuning.MaxHz):
		add("tuning.min_hz and tuning.max_hz must be numbers")
	case c.Tuning.MinHz < 0 || c.Tuning.MaxHz < 0:
		add("tuning.min_hz and tuning.max_hz cannot be negative")
	case c.Tuning.MinHz > span || c.Tuning.MaxHz > span:
		add("tuning.min_hz and tuning.max_hz cannot exceed the spectrum (%.1f Hz)", span)
	case c.Tuning.MaxHz > 0 && c.Tuning.MaxHz < c.Tuning.MinHz:
		add("tuning.max_hz %.1f is below tuning.min_hz %.1f", c.Tuning.MaxHz, c.Tuning.MinHz)
	}

	// Recording
	if c.Recording.OutputDir == "" {
		add("recording.output_dir must be set")
	}
	if err := c.WavFormat().Validate(); err != nil {
		add("recording: %v", err)
	}

	// Server
	if c.Server.Enabled {
		if _, _, err := net.SplitHostPort(c.Server.Listen); err != nil {
			add("server.listen '%s' appears invalid: %v", c.Server.Listen, err)
		}
	}

	// UDP
	if c.UDP.Enabled {
		if _, _, err := net.SplitHostPort(c.UDP.Target); err != nil {
			add("udp.target '%s' appears invalid (missing port?)", c.UDP.Target)
		}
		if c.UDP.Interval <= 0 {
			add("udp.interval must be positive when UDP is enabled")
		}
	}

	// Monitor
	if c.Monitor.Enabled {
		if c.Monitor.Refresh <= 0 {
			add("monitor.refresh must be positive when the monitor is enabled")
		}
		if c.Monitor.LogFile == "" {
			add("monitor.log_file must be set when the monitor is enabled")
		}
		if strings.EqualFold(c.Playback.Backend, PlaybackStdout) {
			add("monitor and the stdout playback backend cannot share the terminal")
		}
	}

	return errors.Join(errs...)
}
