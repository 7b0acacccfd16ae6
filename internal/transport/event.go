// SPDX-License-Identifier: MIT
package transport

import (
	"time"

	"audiolink/internal/analysis"
)

// Kind tells clients how to interpret an Event.
type Kind string

const (
	// KindStatus is a persistent status transition (connecting, connected...).
	KindStatus Kind = "status"
	// KindMessage is a one-shot message, usually an error.
	KindMessage Kind = "message"
	// KindPeak carries the latest peak frequency.
	KindPeak Kind = "peak"
	// KindSpectrum carries the windowed spectrogram slice and its bounds.
	KindSpectrum Kind = "spectrum"
)

// Event is the JSON shape of every notification.
type Event struct {
	Kind    Kind      `json:"kind"`
	Session string    `json:"session"`
	Time    time.Time `json:"time"`

	Status  string `json:"status,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`

	PeakHz   float64   `json:"peak_hz,omitempty"`
	Spectrum []float64 `json:"spectrum,omitempty"`
	MinHz    float64   `json:"min_hz,omitempty"`
	MaxHz    float64   `json:"max_hz,omitempty"`
	MinLabel string    `json:"min_label,omitempty"`
	MaxLabel string    `json:"max_label,omitempty"`
}

// StatusEvent reports a status transition.
func StatusEvent(session, status string) Event {
	return Event{Kind: KindStatus, Session: session, Time: time.Now(), Status: status}
}

// MessageEvent reports a transient message. code is empty for plain
// information.
func MessageEvent(session, code, message string) Event {
	return Event{Kind: KindMessage, Session: session, Time: time.Now(), Code: code, Message: message}
}

// PeakEvent reports the peak frequency of one tuning frame.
func PeakEvent(session string, r analysis.WindowedResult) Event {
	return Event{Kind: KindPeak, Session: session, Time: r.At, PeakHz: r.PeakHz}
}

// SpectrumEvent reports the windowed slice of one tuning frame together
// with the peak inside the window.
func SpectrumEvent(session string, r analysis.WindowedResult) Event {
	return Event{
		Kind:     KindSpectrum,
		Session:  session,
		Time:     r.At,
		PeakHz:   r.WindowPeakHz,
		Spectrum: r.Slice,
		MinHz:    r.MinHz,
		MaxHz:    r.MaxHz,
		MinLabel: analysis.FormatHz(r.MinHz),
		MaxLabel: analysis.FormatHz(r.MaxHz),
	}
}
