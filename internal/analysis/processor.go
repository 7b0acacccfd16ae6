// SPDX-License-Identifier: MIT
package analysis

import (
	"time"

	"audiolink/internal/fft"
)

// Result is one analyzed tuning frame.
type Result struct {
	Spectrum   fft.Spectrum // Full magnitude spectrum, one value per bin.
	PeakIndex  int          // Strongest bin, first occurrence on ties.
	PeakHz     float64      // PeakIndex * Resolution.
	Resolution float64      // Hz per bin.
}

// WindowedResult is a Result cut down to the displayed frequency window.
type WindowedResult struct {
	Result
	Window Range        // Inclusive bin range of Slice.
	Slice  fft.Spectrum // Spectrum[Window.Min : Window.Max+1].
	MinHz  float64      // Window.Min * Resolution.
	MaxHz  float64      // Window.Max * Resolution.
	At     time.Time    // When the frame was analyzed.

	// WindowPeakHz is the strongest frequency inside the window.
	WindowPeakHz float64
}

// ResultProvider is implemented by components that hold the most recent
// analysis result, for readers polling at their own pace (UDP publisher,
// HTTP state endpoint). ok is false until a first frame was analyzed.
type ResultProvider interface {
	LatestResult() (result WindowedResult, ok bool)
}
