// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
)

// WindowFunc selects the taper applied to decoded samples before the
// transform. The default, Rectangular, leaves samples untouched so the
// spectrum is exactly the transform of the raw frame.
type WindowFunc int

const (
	Rectangular WindowFunc = iota
	BartlettHann
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
)

var windowNames = map[WindowFunc]string{
	Rectangular:     "rectangular",
	BartlettHann:    "bartletthann",
	Blackman:        "blackman",
	BlackmanNuttall: "blackmannuttall",
	Hann:            "hann",
	Hamming:         "hamming",
	Lanczos:         "lanczos",
	Nuttall:         "nuttall",
}

func (w WindowFunc) String() string {
	if name, ok := windowNames[w]; ok {
		return name
	}
	return fmt.Sprintf("WindowFunc(%d)", int(w))
}

// ParseWindowFunc converts a name (case-insensitive) to a WindowFunc.
// An empty name and "none" select Rectangular. Unknown names return
// Rectangular and an error.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none", "rectangular":
		return Rectangular, nil
	case "bartletthann":
		return BartlettHann, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return Rectangular, fmt.Errorf("unknown window function name: '%s'", name)
	}
}

// applyWindow multiplies samples in place by the coefficients of w.
func applyWindow(samples []float64, w WindowFunc) {
	switch w {
	case BartlettHann:
		window.BartlettHann(samples)
	case Blackman:
		window.Blackman(samples)
	case BlackmanNuttall:
		window.BlackmanNuttall(samples)
	case Hann:
		window.Hann(samples)
	case Hamming:
		window.Hamming(samples)
	case Lanczos:
		window.Lanczos(samples)
	case Nuttall:
		window.Nuttall(samples)
	default:
		window.Rectangular(samples)
	}
}
