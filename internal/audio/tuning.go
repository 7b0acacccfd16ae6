// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"strings"
	"sync"

	"audiolink/internal/analysis"
	"audiolink/internal/transport"
)

// TuningMode selects what each analyzed frame publishes.
type TuningMode int32

const (
	// ModePeak publishes the peak frequency of the whole spectrum.
	ModePeak TuningMode = iota
	// ModeSpectrogram publishes the windowed slice and its bounds.
	ModeSpectrogram
)

func (m TuningMode) String() string {
	if m == ModeSpectrogram {
		return "spectrogram"
	}
	return "peak"
}

// ParseTuningMode accepts "peak" and "spectrogram".
func ParseTuningMode(s string) (TuningMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "peak", "tuner":
		return ModePeak, nil
	case "spectrogram", "spectrum":
		return ModeSpectrogram, nil
	default:
		return ModePeak, fmt.Errorf("unknown tuning mode: '%s'", s)
	}
}

type tuner struct {
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func (t *tuner) halt() {
	t.stopOnce.Do(func() { close(t.stop) })
	<-t.done
}

// StartTuning begins frame analysis in mode. Calling it while tuning only
// switches the mode.
func (p *Pipeline) StartTuning(mode TuningMode) error {
	p.ctrl.Lock()
	defer p.ctrl.Unlock()

	p.mode.Store(int32(mode))
	if p.tun != nil {
		if p.tuningQ.active.Load() {
			return nil
		}
		// The previous consumer gave up on its own; replace it.
		p.tun.halt()
		p.tun = nil
	}
	p.activate(p.tuningQ)

	t := &tuner{stop: make(chan struct{}), done: make(chan struct{})}
	p.tun = t
	go p.tune(t)

	p.log.Info().Stringer("mode", mode).Msg("tuning started")
	return nil
}

// StopTuning ends frame analysis. A partially assembled frame and any
// queued buffers are discarded.
func (p *Pipeline) StopTuning() {
	p.ctrl.Lock()
	defer p.ctrl.Unlock()

	if p.tun == nil {
		return
	}
	p.deactivate(p.tuningQ)
	p.tun.halt()
	p.tun = nil
	p.tuningQ.drain()
	p.log.Info().Msg("tuning stopped")
}

// SetMinFrequency moves the lower edge of the spectrogram window.
func (p *Pipeline) SetMinFrequency(hz float64) analysis.Range {
	return p.window.SetMin(hz)
}

// SetMaxFrequency moves the upper edge of the spectrogram window.
func (p *Pipeline) SetMaxFrequency(hz float64) analysis.Range {
	return p.window.SetMax(hz)
}

// ResetWindow selects the full spectrum again.
func (p *Pipeline) ResetWindow() analysis.Range {
	return p.window.Reset()
}

// LatestResult returns the most recently analyzed frame.
func (p *Pipeline) LatestResult() (analysis.WindowedResult, bool) {
	r := p.latest.Load()
	if r == nil {
		return analysis.WindowedResult{}, false
	}
	return *r, true
}

// tune assembles frames across buffer boundaries; bytes past the end of a
// frame start the next one.
func (p *Pipeline) tune(t *tuner) {
	defer close(t.done)

	frameBytes := p.opts.FrameSize * p.opts.Analyzer.Format().BytesPerSample()
	frame := make([]byte, 0, frameBytes)

	for {
		select {
		case <-t.stop:
			return
		case b := <-p.tuningQ.ch:
			for len(b) > 0 {
				take := min(frameBytes-len(frame), len(b))
				frame = append(frame, b[:take]...)
				b = b[take:]
				if len(frame) < frameBytes {
					continue
				}
				if err := p.analyzeFrame(frame); err != nil {
					p.tuningQ.consumed()
					p.tuningFailed(err)
					return
				}
				frame = frame[:0]
			}
			p.tuningQ.consumed()
		}
	}
}

func (p *Pipeline) analyzeFrame(frame []byte) error {
	result, err := p.opts.Analyzer.Analyze(frame)
	if err != nil {
		return err
	}
	windowed := p.window.Apply(result)
	windowed.At = p.opts.Now()
	p.latest.Store(&windowed)

	if TuningMode(p.mode.Load()) == ModeSpectrogram {
		p.notify(transport.SpectrumEvent(p.session, windowed))
	} else {
		p.notify(transport.PeakEvent(p.session, windowed))
	}
	return nil
}

// tuningFailed is called by the consumer itself; the flag is cleared so
// ingestion stops queueing for it.
func (p *Pipeline) tuningFailed(err error) {
	p.deactivate(p.tuningQ)
	p.tuningQ.drain()
	serr := newStreamError(ErrInvalidFrameLength, err)
	p.log.Error().Err(serr).Msg("tuning stopped")
	p.notify(transport.MessageEvent(p.session, string(serr.Code), serr.Message))
}
