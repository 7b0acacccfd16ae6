// SPDX-License-Identifier: MIT
//
// Package utils holds fakes and signal generators shared by tests across
// the module.
package utils

import (
	"context"
	"errors"
	"io"
	"math"
	"sync"
	"time"

	"audiolink/internal/link"
	"audiolink/internal/transport"
)

// ErrScriptEnded is returned by MockLink reads once all scripted buffers
// were delivered and no error was scripted.
var ErrScriptEnded = errors.New("mock link: script ended")

// MockLink replays a fixed list of buffers, then fails every further read
// with Err (ErrScriptEnded when nil). With Hold set it blocks after the
// script instead, until closed.
type MockLink struct {
	Buffers [][]byte
	Err     error
	Hold    bool

	mu      sync.Mutex
	pending []byte
	next    int
	closed  bool
	closeCh chan struct{}
	once    sync.Once
	written [][]byte
	closes  int
}

// NewMockLink scripts buffers followed by err.
func NewMockLink(err error, buffers ...[]byte) *MockLink {
	return &MockLink{Buffers: buffers, Err: err}
}

func (m *MockLink) init() {
	m.once.Do(func() { m.closeCh = make(chan struct{}) })
}

func (m *MockLink) Read(p []byte) (int, error) {
	m.init()
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	if len(m.pending) == 0 && m.next < len(m.Buffers) {
		m.pending = m.Buffers[m.next]
		m.next++
	}
	if len(m.pending) > 0 {
		n := copy(p, m.pending)
		m.pending = m.pending[n:]
		m.mu.Unlock()
		return n, nil
	}
	hold := m.Hold
	m.mu.Unlock()

	if hold {
		<-m.closeCh
		return 0, io.ErrClosedPipe
	}
	if m.Err != nil {
		return 0, m.Err
	}
	return 0, ErrScriptEnded
}

func (m *MockLink) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, io.ErrClosedPipe
	}
	c := make([]byte, len(p))
	copy(c, p)
	m.written = append(m.written, c)
	return len(p), nil
}

func (m *MockLink) Close() error {
	m.init()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes++
	if !m.closed {
		m.closed = true
		close(m.closeCh)
	}
	return nil
}

// Closes reports how many times Close was called.
func (m *MockLink) Closes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closes
}

// Connector returns a connector handing out m, or failing with err when
// err is non-nil.
func (m *MockLink) Connector(err error) link.Connector {
	return link.ConnectorFunc(func(context.Context) (link.Link, error) {
		if err != nil {
			return nil, err
		}
		return m, nil
	})
}

// EventRecorder is a transport that keeps every event it was sent.
type EventRecorder struct {
	mu     sync.Mutex
	events []transport.Event
	notify chan struct{}
	closed bool
}

// NewEventRecorder creates an empty recorder.
func NewEventRecorder() *EventRecorder {
	return &EventRecorder{notify: make(chan struct{}, 1)}
}

// Send records data when it is a transport.Event and ignores anything else.
func (r *EventRecorder) Send(data any) error {
	ev, ok := data.(transport.Event)
	if !ok {
		return nil
	}
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	select {
	case r.notify <- struct{}{}:
	default:
	}
	return nil
}

func (r *EventRecorder) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *EventRecorder) Events() []transport.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]transport.Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfKind filters the recorded events.
func (r *EventRecorder) OfKind(kind transport.Kind) []transport.Event {
	var out []transport.Event
	for _, ev := range r.Events() {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// Statuses lists the recorded status strings in order.
func (r *EventRecorder) Statuses() []string {
	var out []string
	for _, ev := range r.OfKind(transport.KindStatus) {
		out = append(out, ev.Status)
	}
	return out
}

// WaitFor blocks until an event satisfying match was recorded or timeout
// passes. It returns the first match.
func (r *EventRecorder) WaitFor(timeout time.Duration, match func(transport.Event) bool) (transport.Event, bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		for _, ev := range r.Events() {
			if match(ev) {
				return ev, true
			}
		}
		select {
		case <-r.notify:
		case <-deadline.C:
			return transport.Event{}, false
		}
	}
}

// WaitForCode waits for a message event carrying code.
func (r *EventRecorder) WaitForCode(timeout time.Duration, code string) (transport.Event, bool) {
	return r.WaitFor(timeout, func(ev transport.Event) bool {
		return ev.Kind == transport.KindMessage && ev.Code == code
	})
}

var _ transport.Transport = (*EventRecorder)(nil)

// GenerateSineFrame returns size 8-bit samples of a sine at frequency,
// stored as signed bytes with the given amplitude (at most 127).
func GenerateSineFrame(size int, sampleRate, frequency, amplitude float64) []byte {
	amplitude = math.Min(amplitude, 127)
	frame := make([]byte, size)
	for i := range frame {
		t := float64(i) / sampleRate
		frame[i] = byte(int8(math.Round(math.Sin(2*math.Pi*frequency*t) * amplitude)))
	}
	return frame
}

// GenerateSineFrame16 is GenerateSineFrame for little-endian 16-bit
// samples; the result holds 2*size bytes.
func GenerateSineFrame16(size int, sampleRate, frequency, amplitude float64) []byte {
	amplitude = math.Min(amplitude, math.MaxInt16)
	frame := make([]byte, 2*size)
	for i := range size {
		t := float64(i) / sampleRate
		v := uint16(int16(math.Round(math.Sin(2*math.Pi*frequency*t) * amplitude)))
		frame[2*i] = byte(v)
		frame[2*i+1] = byte(v >> 8)
	}
	return frame
}

// Split cuts b into consecutive chunks of size bytes; the last one may be
// shorter.
func Split(b []byte, size int) [][]byte {
	var out [][]byte
	for len(b) > 0 {
		n := min(size, len(b))
		out = append(out, b[:n])
		b = b[n:]
	}
	return out
}

// FindPeakBin returns the strongest bin in magnitudes[startBin:endBin+1].
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}

	if startBin < 0 {
		startBin = 0
	}

	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]

	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}

	return peakBin
}
