// SPDX-License-Identifier: MIT
package fft

import (
	"fmt"
	"math"

	"audiolink/pkg/bitint"
)

// RadixTwoFFT is a recursive decimation-in-time Cooley–Tukey transform.
// Frames must hold a power-of-two number of samples; anything else is
// rejected with ErrInvalidFrameLength rather than padded or truncated.
// The magnitude at bin 0 is always reported as 0.
type RadixTwoFFT struct{}

func (f RadixTwoFFT) Transform(samples []float64) (Spectrum, error) {
	coeffs, err := f.Coefficients(samples)
	if err != nil {
		return nil, err
	}
	spectrum := magnitudes(coeffs)
	spectrum[0] = 0
	return spectrum, nil
}

// Coefficients returns the raw complex output, DC term included.
func (RadixTwoFFT) Coefficients(samples []float64) ([]Complex, error) {
	if !bitint.IsPowerOfTwo(len(samples)) {
		return nil, fmt.Errorf("%w: radix-2 transform needs a power of two, got %d samples",
			ErrInvalidFrameLength, len(samples))
	}
	input := make([]Complex, len(samples))
	for i, x := range samples {
		input[i] = Complex{Re: x}
	}
	return radix2(input), nil
}

// radix2 splits input into even and odd halves, transforms both and
// combines them with the twiddle W = e^{2πi/N}, accumulated by repeated
// multiplication across the butterfly.
func radix2(input []Complex) []Complex {
	n := len(input)
	if n == 1 {
		return input
	}

	half := n / 2
	even := make([]Complex, half)
	odd := make([]Complex, half)
	for i := range half {
		even[i] = input[2*i]
		odd[i] = input[2*i+1]
	}
	y0 := radix2(even)
	y1 := radix2(odd)

	wn := Complex{Re: math.Cos(2 * math.Pi / float64(n)), Im: math.Sin(2 * math.Pi / float64(n))}
	w := Complex{Re: 1}
	result := make([]Complex, n)
	for k := range half {
		t := w.Mul(y1[k])
		result[k] = y0[k].Add(t)
		result[k+half] = y0[k].Sub(t)
		w = w.Mul(wn)
	}
	return result
}
