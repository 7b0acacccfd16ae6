// SPDX-License-Identifier: MIT
package fft

import (
	"math"
	"strconv"
)

// Complex is an immutable complex value. Two values are equal when both
// parts are equal, so Complex can be compared with == directly.
type Complex struct {
	Re float64
	Im float64
}

// Add returns c + o.
func (c Complex) Add(o Complex) Complex {
	return Complex{c.Re + o.Re, c.Im + o.Im}
}

// Sub returns c - o.
func (c Complex) Sub(o Complex) Complex {
	return Complex{c.Re - o.Re, c.Im - o.Im}
}

// Mul returns c * o.
func (c Complex) Mul(o Complex) Complex {
	return Complex{
		Re: c.Re*o.Re - c.Im*o.Im,
		Im: c.Re*o.Im + c.Im*o.Re,
	}
}

// Abs returns the magnitude sqrt(re² + im²).
func (c Complex) Abs() float64 {
	return math.Sqrt(c.Re*c.Re + c.Im*c.Im)
}

func (c Complex) String() string {
	return strconv.FormatFloat(c.Re, 'g', -1, 64) + " + " + strconv.FormatFloat(c.Im, 'g', -1, 64) + "i"
}
