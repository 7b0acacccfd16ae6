// SPDX-License-Identifier: MIT
package analysis

import (
	"encoding/binary"
	"fmt"
	"strings"

	"audiolink/internal/fft"
)

// SampleFormat describes how raw link bytes map to samples.
type SampleFormat int

const (
	// PCM8 is one signed byte per sample.
	PCM8 SampleFormat = iota
	// PCM16 is one little-endian signed 16-bit word per sample.
	PCM16
)

func (f SampleFormat) String() string {
	switch f {
	case PCM8:
		return "pcm8"
	case PCM16:
		return "pcm16"
	default:
		return fmt.Sprintf("SampleFormat(%d)", int(f))
	}
}

// ParseSampleFormat accepts "pcm8"/"8" and "pcm16"/"16".
func ParseSampleFormat(name string) (SampleFormat, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "pcm8", "8":
		return PCM8, nil
	case "pcm16", "16":
		return PCM16, nil
	default:
		return PCM8, fmt.Errorf("unsupported sample format: '%s'", name)
	}
}

// BytesPerSample returns 1 for PCM8 and 2 for PCM16.
func (f SampleFormat) BytesPerSample() int {
	if f == PCM16 {
		return 2
	}
	return 1
}

// BitsPerSample returns 8 or 16.
func (f SampleFormat) BitsPerSample() int {
	return f.BytesPerSample() * 8
}

// Decode converts frame into samples, reusing dst when it has enough
// capacity. The frame must hold a whole number of samples.
func (f SampleFormat) Decode(dst []float64, frame []byte) ([]float64, error) {
	width := f.BytesPerSample()
	if len(frame)%width != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of %s samples",
			fft.ErrInvalidFrameLength, len(frame), f)
	}

	n := len(frame) / width
	if cap(dst) < n {
		dst = make([]float64, n)
	}
	dst = dst[:n]

	if f == PCM16 {
		for i := range n {
			dst[i] = float64(int16(binary.LittleEndian.Uint16(frame[2*i:])))
		}
		return dst, nil
	}
	for i, b := range frame {
		dst[i] = float64(int8(b))
	}
	return dst, nil
}
