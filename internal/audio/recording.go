// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"fmt"

	"audiolink/internal/storage"
	"audiolink/internal/transport"
	"audiolink/internal/wav"
)

type recorder struct {
	stop chan struct{}
	done chan []byte
}

// StartRecording begins accumulating link bytes. It does not require a
// connection; buffers are recorded whenever they arrive. Starting twice is
// a no-op.
func (p *Pipeline) StartRecording() error {
	p.ctrl.Lock()
	defer p.ctrl.Unlock()

	if p.rec != nil {
		return nil
	}
	p.recorded.Store(0)
	if n := p.activate(p.recordQ); n > 0 {
		p.log.Debug().Int("buffers", n).Msg("discarded stale recording buffers")
	}

	rec := &recorder{stop: make(chan struct{}), done: make(chan []byte, 1)}
	p.rec = rec
	go p.record(rec)

	p.notify(transport.StatusEvent(p.session, StatusRecording))
	p.log.Info().Msg("recording started")
	return nil
}

// StopRecording stops the recorder, waits until everything already queued
// has been appended, then saves the WAV file through the sink. It returns
// the saved path. A save failure discards the recorded bytes.
func (p *Pipeline) StopRecording() (string, error) {
	p.ctrl.Lock()
	defer p.ctrl.Unlock()

	rec := p.rec
	if rec == nil {
		return "", nil
	}
	p.deactivate(p.recordQ)
	close(rec.stop)
	payload := <-rec.done
	p.rec = nil

	path, err := p.save(payload)
	if err != nil {
		serr := newStreamError(ErrSaveFailed, err)
		p.log.Error().Err(err).Int("bytes", len(payload)).Msg("saving recording failed")
		p.notify(transport.MessageEvent(p.session, string(serr.Code), serr.Message))
		return "", serr
	}

	p.notify(transport.StatusEvent(p.session, StatusRecordingCompleted))
	p.notify(transport.MessageEvent(p.session, "", "Saved "+path))
	return path, nil
}

func (p *Pipeline) save(payload []byte) (string, error) {
	file, err := wav.Encode(payload, p.opts.WavFormat)
	if err != nil {
		return "", fmt.Errorf("encoding wav: %w", err)
	}
	return p.opts.Sink.Save(storage.RecordingName(p.opts.Now()), file)
}

// record runs until rec.stop is closed, then drains the queue and hands
// the accumulated bytes to StopRecording.
func (p *Pipeline) record(rec *recorder) {
	var acc bytes.Buffer
	appendBuf := func(b []byte) {
		Center(b, p.opts.ZeroOffset)
		acc.Write(b)
		p.recorded.Add(int64(len(b)))
		p.recordQ.consumed()
	}

	for {
		select {
		case b := <-p.recordQ.ch:
			appendBuf(b)
		case <-rec.stop:
			for {
				select {
				case b := <-p.recordQ.ch:
					appendBuf(b)
				default:
					rec.done <- acc.Bytes()
					return
				}
			}
		}
	}
}
