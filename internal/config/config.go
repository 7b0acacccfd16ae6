// SPDX-License-Identifier: MIT
//
// Package config loads, overrides and validates the runtime configuration.
// The resulting *Config is passed explicitly to every constructor that
// needs it; nothing here is read through globals.
package config

import "time"

// Defaults for a link to the stock device.
const (
	DefaultLogLevel = "info"

	DefaultLinkKind       = LinkTCP
	DefaultLinkAddress    = "127.0.0.1:7070"
	DefaultDialTimeout    = 5 * time.Second
	DefaultReplayInterval = 32 * time.Millisecond // 128 bytes at 4 kHz.
	DefaultSampleRate     = 4000                  // Device sample rate (Hz).
	DefaultSampleFormat   = "pcm8"
	DefaultBufferSize     = 128  // Bytes per link read.
	DefaultZeroOffset     = 74   // Resting level of the device's 8-bit samples.
	DefaultQueueCapacity  = 4000 // Buffers per consumer queue.

	DefaultPlayback   = PlaybackPortAudio
	DefaultDeviceID   = MinDeviceID
	DefaultLowLatency = true

	DefaultAlgorithm = "fft"
	DefaultFrameSize = 1024
	DefaultMode      = "peak"
	DefaultWindow    = "none"

	DefaultOutputDir     = "./recordings"
	DefaultChannels      = 2
	DefaultBitsPerSample = 16

	DefaultListen = "127.0.0.1:8080"

	DefaultUDPTarget   = "127.0.0.1:9090"
	DefaultUDPInterval = 33 * time.Millisecond // ~30Hz.

	DefaultMonitorRefresh = 100 * time.Millisecond
	DefaultMonitorLogFile = "audiolink.log"
)

// Limits enforced by Validate.
const (
	MinDeviceID   = -1 // -1 represents the system default device.
	MinSampleRate = 1000
	MaxSampleRate = 192000
	MaxBufferSize = 1 << 16
	MaxFrameSize  = 1 << 16
)

// Link connector kinds.
const (
	LinkTCP  = "tcp"
	LinkFile = "file"
)

// Playback backends.
const (
	PlaybackPortAudio = "portaudio"
	PlaybackStdout    = "stdout"
	PlaybackDiscard   = "discard"
)

// NewConfig returns a Config holding every default. LoadConfig starts
// from it before applying a file.
func NewConfig() *Config {
	return &Config{
		LogLevel: DefaultLogLevel,
		Link: LinkConfig{
			Kind:           DefaultLinkKind,
			Address:        DefaultLinkAddress,
			DialTimeout:    DefaultDialTimeout,
			ReplayInterval: DefaultReplayInterval,
			SampleRate:     DefaultSampleRate,
			SampleFormat:   DefaultSampleFormat,
			BufferSize:     DefaultBufferSize,
			ZeroOffset:     DefaultZeroOffset,
			QueueCapacity:  DefaultQueueCapacity,
			Connect:        true,
		},
		Playback: PlaybackConfig{
			Backend:    DefaultPlayback,
			Device:     DefaultDeviceID,
			LowLatency: DefaultLowLatency,
		},
		Tuning: TuningConfig{
			Algorithm: DefaultAlgorithm,
			FrameSize: DefaultFrameSize,
			Mode:      DefaultMode,
			Window:    DefaultWindow,
		},
		Recording: RecordingConfig{
			OutputDir:     DefaultOutputDir,
			Channels:      DefaultChannels,
			BitsPerSample: DefaultBitsPerSample,
		},
		Server: ServerConfig{
			Listen: DefaultListen,
		},
		UDP: UDPConfig{
			Target:   DefaultUDPTarget,
			Interval: DefaultUDPInterval,
		},
		Monitor: MonitorConfig{
			Refresh: DefaultMonitorRefresh,
			LogFile: DefaultMonitorLogFile,
		},
	}
}
