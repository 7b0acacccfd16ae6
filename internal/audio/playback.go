// SPDX-License-Identifier: MIT
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"audiolink/internal/analysis"
	applog "audiolink/internal/log"

	"github.com/gordonklaus/portaudio"
)

// Playback receives every buffer read from the link, in order, on the
// ingestion goroutine. Write may block for as long as the output device
// needs to accept the audio but must not wait on anything else.
type Playback interface {
	io.Writer
	io.Closer
}

// DiscardPlayback drops all audio.
type DiscardPlayback struct{}

func (DiscardPlayback) Write(p []byte) (int, error) { return len(p), nil }
func (DiscardPlayback) Close() error                { return nil }

// WriterPlayback forwards raw audio to any writer, for example a pipe into
// an external player.
type WriterPlayback struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterPlayback wraps w. If w is an io.Closer it is closed by Close.
func NewWriterPlayback(w io.Writer) *WriterPlayback {
	return &WriterPlayback{w: w}
}

func (p *WriterPlayback) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.w.Write(b)
}

func (p *WriterPlayback) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

var errPlaybackClosed = errors.New("playback closed")

// PortAudioConfig selects the output device and stream format.
type PortAudioConfig struct {
	DeviceID   int                   // DefaultDeviceID for the host default.
	SampleRate float64               // 0 uses the device's default rate.
	Format     analysis.SampleFormat // PCM8 plays bytes as unsigned 8-bit.
	LowLatency bool
}

// PortAudioPlayback writes audio to a blocking PortAudio output stream.
// The stream format is fixed when the stream is opened.
type PortAudioPlayback struct {
	mu     sync.Mutex
	stream *portaudio.Stream
	format analysis.SampleFormat
	buf8   []uint8
	buf16  []int16
	rate   float64
	closed bool
}

// OpenPortAudioPlayback opens and starts a mono output stream. PortAudio
// must be initialized.
func OpenPortAudioPlayback(cfg PortAudioConfig) (*PortAudioPlayback, error) {
	device, err := OutputDevice(cfg.DeviceID)
	if err != nil {
		return nil, err
	}

	latency := device.DefaultHighOutputLatency
	if cfg.LowLatency {
		latency = device.DefaultLowOutputLatency
	}
	rate := cfg.SampleRate
	if rate <= 0 {
		rate = device.DefaultSampleRate
	}

	p := &PortAudioPlayback{format: cfg.Format, rate: rate}
	params := portaudio.StreamParameters{
		Output: portaudio.StreamDeviceParameters{
			Device:   device,
			Channels: 1,
			Latency:  latency,
		},
		SampleRate:      rate,
		FramesPerBuffer: portaudio.FramesPerBufferUnspecified,
	}

	var buffer any = &p.buf8
	if cfg.Format == analysis.PCM16 {
		buffer = &p.buf16
	}
	stream, err := portaudio.OpenStream(params, buffer)
	if err != nil {
		return nil, fmt.Errorf("opening output stream on %s: %w", device.Name, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("starting output stream on %s: %w", device.Name, err)
	}

	applog.Infof("Playback: %s, %.0f Hz, %s, latency %s", device.Name, rate, cfg.Format, latency)
	p.stream = stream
	return p, nil
}

// SampleRate returns the negotiated stream rate.
func (p *PortAudioPlayback) SampleRate() float64 { return p.rate }

func (p *PortAudioPlayback) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, errPlaybackClosed
	}

	if p.format == analysis.PCM16 {
		n := len(b) / 2
		p.buf16 = p.buf16[:0]
		for i := range n {
			p.buf16 = append(p.buf16, int16(binary.LittleEndian.Uint16(b[2*i:])))
		}
		if err := p.stream.Write(); err != nil {
			return 0, err
		}
		return n * 2, nil
	}

	p.buf8 = append(p.buf8[:0], b...)
	if err := p.stream.Write(); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (p *PortAudioPlayback) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if err := p.stream.Stop(); err != nil {
		p.stream.Close()
		return err
	}
	return p.stream.Close()
}

var (
	_ Playback = DiscardPlayback{}
	_ Playback = (*WriterPlayback)(nil)
	_ Playback = (*PortAudioPlayback)(nil)
)
