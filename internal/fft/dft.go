// SPDX-License-Identifier: MIT
package fft

import (
	"fmt"
	"math"
)

// DirectDFT evaluates
//
//	X[k] = Σ x[j] · (cos(2πkj/N) − i·sin(2πkj/N))
//
// for every k in [0, N). It accepts any N >= 1 and keeps the DC term.
type DirectDFT struct{}

func (DirectDFT) Transform(samples []float64) (Spectrum, error) {
	n := len(samples)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty frame", ErrInvalidFrameLength)
	}

	coeffs := make([]Complex, n)
	for k := range n {
		var acc Complex
		for j, x := range samples {
			angle := 2 * math.Pi * float64(k) * float64(j) / float64(n)
			acc = acc.Add(Complex{Re: x}.Mul(Complex{Re: math.Cos(angle), Im: -math.Sin(angle)}))
		}
		coeffs[k] = acc
	}
	return magnitudes(coeffs), nil
}
