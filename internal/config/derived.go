// SPDX-License-Identifier: MIT
package config

import (
	"time"

	"audiolink/internal/analysis"
	"audiolink/internal/fft"
	applog "audiolink/internal/log"
	"audiolink/internal/wav"
)

// Typed views of the string settings. They assume Validate passed and
// fall back to defaults otherwise.

// Level returns the effective log level; Debug forces LevelDebug.
func (c *Config) Level() applog.LogLevel {
	if c.Debug {
		return applog.LevelDebug
	}
	level, _ := applog.ParseLevel(c.LogLevel)
	return level
}

// SampleFormat returns the link's sample format.
func (c *Config) SampleFormat() analysis.SampleFormat {
	f, _ := analysis.ParseSampleFormat(c.Link.SampleFormat)
	return f
}

// Transform builds the configured Fourier transform.
func (c *Config) Transform() (fft.Transform, error) {
	return fft.New(c.Tuning.Algorithm)
}

// WindowFunc returns the analysis taper.
func (c *Config) WindowFunc() analysis.WindowFunc {
	w, _ := analysis.ParseWindowFunc(c.Tuning.Window)
	return w
}

// WavFormat returns the header parameters written around recordings.
func (c *Config) WavFormat() wav.Format {
	return wav.Format{
		SampleRate:    c.Link.SampleRate,
		Channels:      c.Recording.Channels,
		BitsPerSample: c.Recording.BitsPerSample,
	}
}

// BufferDuration is how much audio one link read carries.
func (c *Config) BufferDuration() time.Duration {
	bytesPerSecond := c.Link.SampleRate * c.SampleFormat().BytesPerSample()
	if bytesPerSecond <= 0 {
		return 0
	}
	return time.Duration(c.Link.BufferSize) * time.Second / time.Duration(bytesPerSecond)
}
