// SPDX-License-Identifier: MIT
//
// Package wav wraps raw PCM bytes in a canonical RIFF/WAVE container and
// reads finished recordings back.
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderSize is the length of the canonical PCM header.
const HeaderSize = 44

const pcmFormatTag = 1

var errBadFormat = errors.New("wav: invalid format")

// Format describes the PCM payload. The zero value is not usable; see
// DefaultFormat.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// DefaultFormat is 16-bit stereo at sampleRate.
func DefaultFormat(sampleRate int) Format {
	return Format{SampleRate: sampleRate, Channels: 2, BitsPerSample: 16}
}

// BlockAlign is the size in bytes of one frame across all channels.
func (f Format) BlockAlign() int { return f.Channels * f.BitsPerSample / 8 }

// ByteRate is the number of payload bytes per second.
func (f Format) ByteRate() int { return f.SampleRate * f.BlockAlign() }

// Validate rejects formats a player could not open.
func (f Format) Validate() error {
	switch {
	case f.SampleRate <= 0:
		return fmt.Errorf("%w: sample rate %d", errBadFormat, f.SampleRate)
	case f.Channels <= 0:
		return fmt.Errorf("%w: %d channels", errBadFormat, f.Channels)
	case f.BitsPerSample <= 0 || f.BitsPerSample%8 != 0:
		return fmt.Errorf("%w: %d bits per sample", errBadFormat, f.BitsPerSample)
	}
	return nil
}

// BuildHeader returns the 44-byte header for payloadBytes bytes of PCM
// data. Multi-byte fields are little-endian.
//
//	offset  size  field
//	0       4     "RIFF"
//	4       4     chunk size (36 + payload)
//	8       4     "WAVE"
//	12      4     "fmt "
//	16      4     16
//	20      2     1 (PCM)
//	22      2     channels
//	24      4     sample rate
//	28      4     byte rate
//	32      2     block align
//	34      2     bits per sample
//	36      4     "data"
//	40      4     payload size
func BuildHeader(payloadBytes int, f Format) []byte {
	h := make([]byte, HeaderSize)
	le := binary.LittleEndian

	copy(h[0:4], "RIFF")
	le.PutUint32(h[4:8], uint32(36+payloadBytes))
	copy(h[8:12], "WAVE")
	copy(h[12:16], "fmt ")
	le.PutUint32(h[16:20], 16)
	le.PutUint16(h[20:22], pcmFormatTag)
	le.PutUint16(h[22:24], uint16(f.Channels))
	le.PutUint32(h[24:28], uint32(f.SampleRate))
	le.PutUint32(h[28:32], uint32(f.ByteRate()))
	le.PutUint16(h[32:34], uint16(f.BlockAlign()))
	le.PutUint16(h[34:36], uint16(f.BitsPerSample))
	copy(h[36:40], "data")
	le.PutUint32(h[40:44], uint32(payloadBytes))
	return h
}

// Encode returns header and payload as one file image.
func Encode(payload []byte, f Format) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	out := make([]byte, 0, HeaderSize+len(payload))
	out = append(out, BuildHeader(len(payload), f)...)
	return append(out, payload...), nil
}
