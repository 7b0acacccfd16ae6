// SPDX-License-Identifier: MIT
//
// Package udp streams the latest tuner spectrum to UDP listeners, for
// visualizers that cannot speak websocket.
package udp

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sync"
	"time"

	"audiolink/internal/analysis"
	applog "audiolink/internal/log"
)

var (
	errNilSender   = errors.New("udp publisher: sender cannot be nil")
	errNilProvider = errors.New("udp publisher: result provider cannot be nil")
)

// PacketSender is the part of Sender the publisher uses.
type PacketSender interface {
	Send(data []byte) error
}

// Publisher periodically packs the latest windowed spectrum and sends it.
// Nothing is sent until a first tuning frame was analyzed, and a result is
// sent only once.
type Publisher struct {
	sender   PacketSender
	source   analysis.ResultProvider
	interval time.Duration

	mu       sync.Mutex
	ticker   *time.Ticker
	doneChan chan struct{}
	wg       sync.WaitGroup

	sequenceNum uint32
	lastSent    time.Time
	f32Buffer   []float32
	packet      *bytes.Buffer
}

// NewPublisher creates a Publisher. An interval <= 0 defaults to 33ms.
func NewPublisher(interval time.Duration, sender PacketSender, source analysis.ResultProvider) (*Publisher, error) {
	if sender == nil {
		return nil, errNilSender
	}
	if source == nil {
		return nil, errNilProvider
	}
	if interval <= 0 {
		interval = 33 * time.Millisecond
		applog.Warnf("UDPPublisher: Invalid interval provided, defaulting to %s", interval)
	}
	return &Publisher{
		sender:   sender,
		source:   source,
		interval: interval,
		packet:   new(bytes.Buffer),
	}, nil
}

// Start launches the publishing goroutine. Calling Start on a running
// publisher is a no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		return
	}
	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	ticker, done := p.ticker, p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Infof("UDPPublisher: Started (Interval: %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.publish()
			case <-done:
				return
			}
		}
	}()
}

// Stop ends the goroutine and waits for it. Safe to call repeatedly.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}
	close(p.doneChan)
	p.ticker.Stop()
	p.ticker = nil
	p.mu.Unlock()

	p.wg.Wait()
	applog.Debugf("UDPPublisher: Stopped")
	return nil
}

// Close implements io.Closer.
func (p *Publisher) Close() error {
	return p.Stop()
}

/*
Packet layout (big-endian):

	offset  size   field
	0       4      sequence number (uint32)
	4       8      analysis time, ns since epoch (int64)
	12      4      peak frequency inside the window, Hz (float32)
	16      4      window lower bound, Hz (float32)
	20      4      resolution, Hz per bin (float32)
	24      2      magnitude count N (uint16)
	26      N*4    magnitudes (float32)
*/

// PacketHeaderSize is the number of bytes before the magnitudes.
const PacketHeaderSize = 26

func (p *Publisher) publish() {
	result, ok := p.source.LatestResult()
	if !ok || !result.At.After(p.lastSent) {
		return
	}

	packet, err := p.pack(result)
	if err != nil {
		applog.Errorf("UDPPublisher: Error packing data: %v", err)
		return
	}
	if err := p.sender.Send(packet); err != nil {
		applog.Debugf("UDPPublisher: %v", err)
		return
	}
	p.lastSent = result.At
	applog.Debugf("UDPPublisher: Sent packet %d (%d bytes)", p.sequenceNum, len(packet))
}

func (p *Publisher) pack(r analysis.WindowedResult) ([]byte, error) {
	n := min(len(r.Slice), 0xffff)
	if cap(p.f32Buffer) < n {
		p.f32Buffer = make([]float32, n)
	}
	p.f32Buffer = p.f32Buffer[:n]
	for i := range n {
		p.f32Buffer[i] = float32(r.Slice[i])
	}

	p.sequenceNum++
	p.packet.Reset()
	fields := []any{
		p.sequenceNum,
		r.At.UnixNano(),
		float32(r.WindowPeakHz),
		float32(r.MinHz),
		float32(r.Resolution),
		uint16(n),
		p.f32Buffer,
	}
	for _, f := range fields {
		if err := binary.Write(p.packet, binary.BigEndian, f); err != nil {
			return nil, err
		}
	}
	return p.packet.Bytes(), nil
}

var _ interface{ Close() error } = (*Publisher)(nil)
