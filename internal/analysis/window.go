// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"strconv"
	"sync"

	"audiolink/internal/fft"
)

// binRatio returns hz/resolution clamped to [0, n] so the int conversion
// cannot overflow.
func binRatio(hz, resolution float64, n int) float64 {
	q := hz / resolution
	if !(q > 0) {
		return 0
	}
	return min(q, float64(n))
}

// SelectMinIndex maps a requested lower bound in Hz to the bin whose
// covered range [k*res, (k+1)*res) contains it. The result is in [0, n].
func SelectMinIndex(requestedHz, resolution float64, n int) int {
	c := int(binRatio(requestedHz, resolution, n))
	lo := float64(c) * resolution
	hi := float64(c+1) * resolution

	switch {
	case lo <= requestedHz && requestedHz < hi:
		return c
	case hi <= requestedHz:
		return min(c+1, n)
	default:
		return max(c-1, 0)
	}
}

// SelectMaxIndex maps a requested upper bound in Hz to the ceiling bin,
// the smallest k with k*res >= requestedHz. The result is in [0, n]; callers
// clamp to n-1 before slicing.
func SelectMaxIndex(requestedHz, resolution float64, n int) int {
	c := int(binRatio(requestedHz, resolution, n)) + 1
	lo := float64(c-1) * resolution
	hi := float64(c) * resolution

	switch {
	case lo < requestedHz && requestedHz <= hi:
		return c
	case lo >= requestedHz:
		return c - 1
	default:
		return min(c+1, n)
	}
}

// FormatHz renders a bin frequency label. Whole numbers keep one decimal
// ("2000.0"), anything else uses the shortest exact representation.
func FormatHz(hz float64) string {
	if hz == math.Trunc(hz) && !math.IsInf(hz, 0) {
		return strconv.FormatFloat(hz, 'f', 1, 64)
	}
	return strconv.FormatFloat(hz, 'f', -1, 64)
}

// Range is an inclusive bin index range.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Len returns the number of bins covered.
func (r Range) Len() int { return r.Max - r.Min + 1 }

// FrequencyWindow holds the displayed bin range for spectra of n bins.
// Writers (control requests) and readers (the tuning consumer) may run
// concurrently.
type FrequencyWindow struct {
	n          int
	resolution float64

	mu  sync.RWMutex
	rng Range
}

// NewFrequencyWindow starts with the full spectrum selected.
func NewFrequencyWindow(n int, resolution float64) *FrequencyWindow {
	return &FrequencyWindow{
		n:          n,
		resolution: resolution,
		rng:        Range{Min: 0, Max: max(n-1, 0)},
	}
}

// Bins returns the spectrum length the window was built for.
func (w *FrequencyWindow) Bins() int { return w.n }

// Resolution returns Hz per bin.
func (w *FrequencyWindow) Resolution() float64 { return w.resolution }

// Span returns the frequency at the upper edge of the last bin, the
// largest value a window edge can be asked for.
func (w *FrequencyWindow) Span() float64 { return float64(w.n) * w.resolution }

// SetMin selects the lower bound. It is clamped to [0, current max]; NaN
// leaves the window unchanged.
func (w *FrequencyWindow) SetMin(hz float64) Range {
	if math.IsNaN(hz) {
		return w.Range()
	}
	idx := w.clamp(SelectMinIndex(hz, w.resolution, w.n))

	w.mu.Lock()
	defer w.mu.Unlock()
	w.rng.Min = min(idx, w.rng.Max)
	return w.rng
}

// SetMax selects the upper bound. It is clamped to [current min, n-1]; NaN
// leaves the window unchanged.
func (w *FrequencyWindow) SetMax(hz float64) Range {
	if math.IsNaN(hz) {
		return w.Range()
	}
	idx := w.clamp(SelectMaxIndex(hz, w.resolution, w.n))

	w.mu.Lock()
	defer w.mu.Unlock()
	w.rng.Max = max(idx, w.rng.Min)
	return w.rng
}

// Reset selects the full spectrum again.
func (w *FrequencyWindow) Reset() Range {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rng = Range{Min: 0, Max: max(w.n-1, 0)}
	return w.rng
}

// Range returns the current selection.
func (w *FrequencyWindow) Range() Range {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.rng
}

// Bounds returns the selection as Hz, recomputed from the bin indices.
func (w *FrequencyWindow) Bounds() (minHz, maxHz float64) {
	r := w.Range()
	return float64(r.Min) * w.resolution, float64(r.Max) * w.resolution
}

// Labels returns FormatHz of Bounds.
func (w *FrequencyWindow) Labels() (minLabel, maxLabel string) {
	lo, hi := w.Bounds()
	return FormatHz(lo), FormatHz(hi)
}

// Slice returns a copy of the selected part of s. A spectrum shorter than
// the window yields the overlapping part only.
func (w *FrequencyWindow) Slice(s fft.Spectrum) fft.Spectrum {
	return sliceRange(s, w.Range())
}

// Apply cuts result down to the current window.
func (w *FrequencyWindow) Apply(result Result) WindowedResult {
	r := w.Range()
	slice := sliceRange(result.Spectrum, r)
	return WindowedResult{
		Result:       result,
		Window:       r,
		Slice:        slice,
		MinHz:        float64(r.Min) * w.resolution,
		MaxHz:        float64(r.Max) * w.resolution,
		WindowPeakHz: float64(r.Min+PeakIndex(slice)) * w.resolution,
	}
}

func sliceRange(s fft.Spectrum, r Range) fft.Spectrum {
	if r.Min >= len(s) {
		return fft.Spectrum{}
	}
	end := min(r.Max+1, len(s))
	out := make(fft.Spectrum, end-r.Min)
	copy(out, s[r.Min:end])
	return out
}

func (w *FrequencyWindow) clamp(idx int) int {
	if w.n <= 0 {
		return 0
	}
	return min(max(idx, 0), w.n-1)
}
