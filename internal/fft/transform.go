// SPDX-License-Identifier: MIT
/*
Package fft implements the discrete Fourier analysis used by the tuner.

Two interchangeable algorithms satisfy the Transform interface:

  - DirectDFT evaluates the O(N²) definition for any frame length and is
    the numerical reference. Its output is raw: bin 0 carries the DC term.
  - RadixTwoFFT is a recursive decimation-in-time Cooley–Tukey transform,
    O(N log N), restricted to power-of-two frame lengths. Bin 0 is always
    reported as 0 so a constant offset never wins peak detection or
    dominates display scaling.

ZeroDC wraps any Transform with the same bin 0 policy, which gives the
DC-zeroed DFT variant used when comparing the two algorithms bin for bin.

The algorithm is chosen once, when the analyzer is built (see New); no
caller switches implementations per frame.
*/
package fft

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidFrameLength is returned when a frame cannot be transformed by
// the selected algorithm (empty, or not a power of two for RadixTwoFFT).
var ErrInvalidFrameLength = errors.New("invalid frame length")

// Spectrum holds one magnitude per frequency bin. Bin k covers
// k * sampleRate / len(Spectrum) Hz.
type Spectrum []float64

// Transform converts a time-domain frame into its magnitude spectrum.
// Implementations are pure: the same input always yields the same output
// and the input slice is never modified.
type Transform interface {
	Transform(samples []float64) (Spectrum, error)
}

// Algorithm names accepted by New.
const (
	AlgorithmFFT       = "fft"        // RadixTwoFFT, DC zeroed.
	AlgorithmDFT       = "dft"        // DirectDFT, raw.
	AlgorithmDFTZeroed = "dft-zeroed" // DirectDFT wrapped by ZeroDC.
)

// New returns the Transform registered under name (case-insensitive).
func New(name string) (Transform, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case AlgorithmFFT, "radix2":
		return RadixTwoFFT{}, nil
	case AlgorithmDFT:
		return DirectDFT{}, nil
	case AlgorithmDFTZeroed:
		return ZeroDC(DirectDFT{}), nil
	default:
		return nil, fmt.Errorf("unknown fourier transform algorithm: '%s'", name)
	}
}

// RequiresPowerOfTwo reports whether t only accepts power-of-two frames.
func RequiresPowerOfTwo(t Transform) bool {
	switch v := t.(type) {
	case RadixTwoFFT:
		return true
	case dcZeroed:
		return RequiresPowerOfTwo(v.inner)
	default:
		return false
	}
}

type dcZeroed struct {
	inner Transform
}

// ZeroDC returns a Transform that reports bin 0 as 0 and leaves every
// other bin of inner untouched.
func ZeroDC(inner Transform) Transform {
	return dcZeroed{inner: inner}
}

func (z dcZeroed) Transform(samples []float64) (Spectrum, error) {
	spectrum, err := z.inner.Transform(samples)
	if err != nil {
		return nil, err
	}
	spectrum[0] = 0
	return spectrum, nil
}

func magnitudes(coeffs []Complex) Spectrum {
	out := make(Spectrum, len(coeffs))
	for i, c := range coeffs {
		out[i] = c.Abs()
	}
	return out
}
