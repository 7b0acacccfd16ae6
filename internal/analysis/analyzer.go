// SPDX-License-Identifier: MIT
package analysis

import (
	"errors"
	"fmt"

	"audiolink/internal/fft"
	applog "audiolink/internal/log"

	"gonum.org/v1/gonum/floats"
)

var (
	errNilTransform  = errors.New("analysis: transform cannot be nil")
	errBadSampleRate = errors.New("analysis: sample rate must be positive")
)

// SpectrumAnalyzer runs a Fourier transform over raw link frames and turns
// bins into frequencies. It holds no per-frame state and is safe for
// concurrent use.
type SpectrumAnalyzer struct {
	transform  fft.Transform
	format     SampleFormat
	sampleRate float64
	window     WindowFunc
}

// NewSpectrumAnalyzer binds a transform to the stream parameters. The
// transform is fixed for the analyzer's lifetime.
func NewSpectrumAnalyzer(transform fft.Transform, format SampleFormat, sampleRate float64, window WindowFunc) (*SpectrumAnalyzer, error) {
	if transform == nil {
		return nil, errNilTransform
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w, got %f", errBadSampleRate, sampleRate)
	}

	applog.Debugf("Analysis: Initializing SpectrumAnalyzer (Transform: %T, Format: %s, SampleRate: %.1f Hz, Window: %s)",
		transform, format, sampleRate, window)

	return &SpectrumAnalyzer{
		transform:  transform,
		format:     format,
		sampleRate: sampleRate,
		window:     window,
	}, nil
}

// SampleRate returns the configured sample rate in Hz.
func (a *SpectrumAnalyzer) SampleRate() float64 { return a.sampleRate }

// Format returns the sample format frames are decoded with.
func (a *SpectrumAnalyzer) Format() SampleFormat { return a.format }

// Resolution returns the width in Hz of one bin for a spectrum of n bins.
func (a *SpectrumAnalyzer) Resolution(n int) float64 {
	if n <= 0 {
		return 0
	}
	return a.sampleRate / float64(n)
}

// Spectrogram returns the full, unwindowed magnitude spectrum of frame.
func (a *SpectrumAnalyzer) Spectrogram(frame []byte) (fft.Spectrum, error) {
	samples, err := a.format.Decode(nil, frame)
	if err != nil {
		return nil, err
	}
	return a.SpectrogramSamples(samples)
}

// SpectrogramSamples is Spectrogram for already decoded samples. The input
// slice is not modified.
func (a *SpectrumAnalyzer) SpectrogramSamples(samples []float64) (fft.Spectrum, error) {
	input := samples
	if a.window != Rectangular {
		input = make([]float64, len(samples))
		copy(input, samples)
		applyWindow(input, a.window)
	}

	spectrum, err := a.transform.Transform(input)
	if err != nil {
		return nil, fmt.Errorf("analysis: frame of %d samples: %w", len(samples), err)
	}
	return spectrum, nil
}

// PeakFrequency returns the frequency of the strongest bin in frame.
func (a *SpectrumAnalyzer) PeakFrequency(frame []byte) (float64, error) {
	spectrum, err := a.Spectrogram(frame)
	if err != nil {
		return 0, err
	}
	return float64(PeakIndex(spectrum)) * a.Resolution(len(spectrum)), nil
}

// Analyze computes the spectrum and its peak in one pass.
func (a *SpectrumAnalyzer) Analyze(frame []byte) (Result, error) {
	spectrum, err := a.Spectrogram(frame)
	if err != nil {
		return Result{}, err
	}
	resolution := a.Resolution(len(spectrum))
	peak := PeakIndex(spectrum)
	return Result{
		Spectrum:   spectrum,
		PeakIndex:  peak,
		PeakHz:     float64(peak) * resolution,
		Resolution: resolution,
	}, nil
}

// PeakIndex returns the index of the largest magnitude. Ties go to the
// smallest index; an empty spectrum yields 0.
func PeakIndex(spectrum fft.Spectrum) int {
	if len(spectrum) == 0 {
		return 0
	}
	return floats.MaxIdx(spectrum)
}
