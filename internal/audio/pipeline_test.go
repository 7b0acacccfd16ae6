// SPDX-License-Identifier: MIT
package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"audiolink/internal/analysis"
	"audiolink/internal/fft"
	"audiolink/internal/link"
	applog "audiolink/internal/log"
	"audiolink/internal/storage"
	"audiolink/internal/transport"
	"audiolink/internal/wav"
	"audiolink/pkg/utils"

	"github.com/spf13/afero"
)

const (
	testSampleRate = 4000
	testBufferSize = 32
	testFrameSize  = 128
	waitTimeout    = 2 * time.Second
)

var testNow = time.Date(2026, 10, 19, 15, 4, 0, 0, time.UTC)

// countingPlayback keeps every buffer written to it.
type countingPlayback struct {
	mu     sync.Mutex
	writes [][]byte
	err    error
}

func (c *countingPlayback) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, bytes.Clone(p))
	if c.err != nil {
		return 0, c.err
	}
	return len(p), nil
}

func (c *countingPlayback) Close() error { return nil }

func (c *countingPlayback) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.writes)
}

type failingSink struct{}

func (failingSink) Save(string, []byte) (string, error) {
	return "", errors.New("disk full")
}

type fixture struct {
	p        *Pipeline
	events   *utils.EventRecorder
	fs       afero.Fs
	playback *countingPlayback
}

func newFixture(t *testing.T, mutate func(*Options)) *fixture {
	t.Helper()
	analyzer, err := analysis.NewSpectrumAnalyzer(fft.RadixTwoFFT{}, analysis.PCM8, testSampleRate, analysis.Rectangular)
	if err != nil {
		t.Fatalf("NewSpectrumAnalyzer: %v", err)
	}
	fs := afero.NewMemMapFs()
	sink, err := storage.NewDirSink(fs, "/recordings")
	if err != nil {
		t.Fatalf("NewDirSink: %v", err)
	}

	f := &fixture{events: utils.NewEventRecorder(), fs: fs, playback: &countingPlayback{}}
	opts := Options{
		Playback:   f.playback,
		Analyzer:   analyzer,
		Sink:       sink,
		Notifier:   f.events,
		BufferSize: testBufferSize,
		FrameSize:  testFrameSize,
		ZeroOffset: DefaultZeroOffset,
		Now:        func() time.Time { return testNow },
	}
	if mutate != nil {
		mutate(&opts)
	}
	f.p, err = NewPipeline(opts)
	if err != nil {
		t.Fatalf("NewPipeline: %v", err)
	}
	t.Cleanup(func() { f.p.Close() })
	return f
}

func fill(n int, v byte) []byte {
	return bytes.Repeat([]byte{v}, n)
}

func (f *fixture) waitIdleConsumers(t *testing.T) {
	t.Helper()
	if !f.p.awaitConsumers(waitTimeout) {
		t.Fatalf("consumers still have %d/%d buffers pending", f.p.recordQ.pending.Load(), f.p.tuningQ.pending.Load())
	}
}

func TestNewPipeline_Validation(t *testing.T) {
	analyzer, _ := analysis.NewSpectrumAnalyzer(fft.DirectDFT{}, analysis.PCM8, testSampleRate, analysis.Rectangular)
	sink, _ := storage.NewDirSink(afero.NewMemMapFs(), "/r")

	tests := []struct {
		name string
		opts Options
	}{
		{"missing analyzer", Options{Sink: sink}},
		{"missing sink", Options{Analyzer: analyzer}},
		{"bad wav format", Options{Analyzer: analyzer, Sink: sink, WavFormat: wav.Format{SampleRate: 4000, Channels: 2, BitsPerSample: 12}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewPipeline(tt.opts); err == nil {
				t.Error("NewPipeline succeeded, want error")
			}
		})
	}
}

func TestNewPipeline_Defaults(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.BufferSize, o.FrameSize, o.Playback = 0, 0, nil
	})
	if f.p.opts.BufferSize != DefaultBufferSize || f.p.opts.FrameSize != DefaultFrameSize {
		t.Errorf("defaults = %d/%d", f.p.opts.BufferSize, f.p.opts.FrameSize)
	}
	if cap(f.p.recordQ.ch) != DefaultQueueCapacity || cap(f.p.tuningQ.ch) != DefaultQueueCapacity {
		t.Errorf("queue capacity = %d/%d", cap(f.p.recordQ.ch), cap(f.p.tuningQ.ch))
	}
	if f.p.opts.WavFormat != wav.DefaultFormat(testSampleRate) {
		t.Errorf("wav format = %+v", f.p.opts.WavFormat)
	}
	if f.p.State() != StateIdle {
		t.Errorf("state = %s, want idle", f.p.State())
	}
	if got := f.events.Statuses(); !slices.Equal(got, []string{StatusReady}) {
		t.Errorf("statuses = %v", got)
	}
}

// The core fan-out property: K buffers exactly fill one tuning frame, then
// the link fails. By the time the interruption is announced one spectrum
// was published and K*bufferSize bytes were recorded.
func TestPipeline_InterruptAfterOneFrame(t *testing.T) {
	const k = testFrameSize / testBufferSize

	var (
		target     atomic.Pointer[Pipeline]
		recordedAt atomic.Int64
		peaksAt    atomic.Int64
	)
	recorder := utils.NewEventRecorder()
	notifier := transport.Multi{
		notifyFunc(func(data any) {
			ev, ok := data.(transport.Event)
			p := target.Load()
			if !ok || p == nil || ev.Code != string(CodeStreamInterrupted) {
				return
			}
			recordedAt.Store(p.RecordedBytes())
			peaksAt.Store(int64(len(recorder.OfKind(transport.KindPeak))))
		}),
		recorder,
	}

	frame := utils.GenerateSineFrame(testFrameSize, testSampleRate, 500, 100)
	ml := utils.NewMockLink(errors.New("connection reset"), utils.Split(frame, testBufferSize)...)

	f := newFixture(t, func(o *Options) {
		o.Connector = ml.Connector(nil)
		o.Notifier = notifier
	})
	target.Store(f.p)

	if err := f.p.StartRecording(); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	if err := f.p.StartTuning(ModePeak); err != nil {
		t.Fatalf("StartTuning: %v", err)
	}
	if err := f.p.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	if _, ok := recorder.WaitForCode(waitTimeout, string(CodeStreamInterrupted)); !ok {
		t.Fatal("no interruption notification")
	}

	if got := peaksAt.Load(); got != 1 {
		t.Errorf("peak events before interruption = %d, want 1", got)
	}
	if got := recordedAt.Load(); got != k*testBufferSize {
		t.Errorf("recorded bytes before interruption = %d, want %d", got, k*testBufferSize)
	}
	if got := f.playback.count(); got != k {
		t.Errorf("playback writes = %d, want %d", got, k)
	}
	if f.p.State() != StateInterrupted {
		t.Errorf("state = %s, want interrupted", f.p.State())
	}
	if f.p.Flags().Connected {
		t.Error("connected flag still set")
	}
	if !f.p.Flags().Recording || !f.p.Flags().Tuning {
		t.Errorf("flags = %+v, recording and tuning survive an interruption", f.p.Flags())
	}
	if ml.Closes() == 0 {
		t.Error("link was not closed")
	}

	statuses := recorder.Statuses()
	if statuses[len(statuses)-1] != StatusNotConnected {
		t.Errorf("last status = %q, want %q", statuses[len(statuses)-1], StatusNotConnected)
	}

	peak := recorder.OfKind(transport.KindPeak)[0]
	if peak.PeakHz != 500 && peak.PeakHz != testSampleRate-500 {
		t.Errorf("PeakHz = %v, want 500 or its mirror", peak.PeakHz)
	}
	if latest, ok := f.p.LatestResult(); !ok || !latest.At.Equal(testNow) {
		t.Errorf("LatestResult = %+v, %v", latest, ok)
	}
}

type notifyFunc func(any)

func (f notifyFunc) Send(data any) error { f(data); return nil }
func (notifyFunc) Close() error          { return nil }

func TestPipeline_ConnectErrors(t *testing.T) {
	tests := []struct {
		name      string
		connector link.Connector
		want      *StreamError
	}{
		{"no connector", nil, ErrTransportUnavailable},
		{"device missing", link.ConnectorFunc(func(context.Context) (link.Link, error) {
			return nil, fmt.Errorf("dial: %w", link.ErrDeviceNotFound)
		}), ErrDeviceNotFound},
		{"handshake failed", link.ConnectorFunc(func(context.Context) (link.Link, error) {
			return nil, errors.New("connection refused")
		}), ErrConnectFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(o *Options) { o.Connector = tt.connector })

			err := f.p.Connect(context.Background())
			if !errors.Is(err, tt.want) {
				t.Fatalf("Connect error = %v, want %v", err, tt.want)
			}
			var serr *StreamError
			if !errors.As(err, &serr) || serr.Code != tt.want.Code {
				t.Fatalf("error is not a *StreamError with code %s: %v", tt.want.Code, err)
			}
			if f.p.State() != StateInterrupted {
				t.Errorf("state = %s, want interrupted", f.p.State())
			}
			if _, ok := f.events.WaitForCode(0, string(tt.want.Code)); !ok {
				t.Errorf("no %s message", tt.want.Code)
			}
			statuses := f.events.Statuses()
			if statuses[len(statuses)-1] != StatusNotConnected {
				t.Errorf("statuses = %v", statuses)
			}
		})
	}
}

func TestPipeline_RetryFromInterrupted(t *testing.T) {
	ml := utils.NewMockLink(nil)
	ml.Hold = true

	attempts := 0
	f := newFixture(t, func(o *Options) {
		o.Connector = link.ConnectorFunc(func(ctx context.Context) (link.Link, error) {
			attempts++
			if attempts == 1 {
				return nil, errors.New("busy")
			}
			return ml, nil
		})
	})

	if err := f.p.Connect(context.Background()); err == nil {
		t.Fatal("first Connect succeeded")
	}
	if err := f.p.Connect(context.Background()); err != nil {
		t.Fatalf("retry Connect: %v", err)
	}
	if f.p.State() != StateStreaming || !f.p.Flags().Connected {
		t.Errorf("state = %s, flags = %+v", f.p.State(), f.p.Flags())
	}
	if err := f.p.Connect(context.Background()); err == nil {
		t.Error("Connect while streaming succeeded")
	}

	want := []string{StatusReady, StatusConnecting, StatusNotConnected, StatusConnecting, StatusConnected}
	if got := f.events.Statuses(); !slices.Equal(got, want) {
		t.Errorf("statuses = %v, want %v", got, want)
	}
}

func TestPipeline_DisconnectIsNotAnInterruption(t *testing.T) {
	ml := utils.NewMockLink(nil, fill(testBufferSize, 1))
	ml.Hold = true
	f := newFixture(t, func(o *Options) { o.Connector = ml.Connector(nil) })

	if err := f.p.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	deadline := time.Now().Add(waitTimeout)
	for f.playback.count() < 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if err := f.p.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if f.p.State() != StateIdle {
		t.Errorf("state = %s, want idle", f.p.State())
	}
	if _, ok := f.events.WaitForCode(20*time.Millisecond, string(CodeStreamInterrupted)); ok {
		t.Error("Disconnect emitted a stream interruption")
	}
	statuses := f.events.Statuses()
	if statuses[len(statuses)-1] != StatusNotConnected {
		t.Errorf("statuses = %v", statuses)
	}
	if ml.Closes() == 0 {
		t.Error("link was not closed")
	}

	// Disconnecting twice is harmless and silent.
	n := len(f.events.Events())
	if err := f.p.Disconnect(); err != nil {
		t.Errorf("second Disconnect: %v", err)
	}
	if len(f.events.Events()) != n {
		t.Error("second Disconnect emitted events")
	}
}

func TestPipeline_DispatchNeverBlocksPlayback(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.QueueCapacity = 1 })

	// Flag set with no consumer running: the queue fills after one buffer.
	f.p.tuningQ.active.Store(true)
	for i := range 3 {
		f.p.dispatch(fill(testBufferSize, byte(i)))
	}

	if got := f.playback.count(); got != 3 {
		t.Errorf("playback writes = %d, want 3", got)
	}
	if got := f.p.Dropped(); got != 2 {
		t.Errorf("Dropped() = %d, want 2", got)
	}
	if got := len(f.p.tuningQ.ch); got != 1 {
		t.Errorf("tuning queue length = %d, want 1", got)
	}
	if got := len(f.p.recordQ.ch); got != 0 {
		t.Errorf("recording queue length = %d, want 0 while not recording", got)
	}

	// A buffer left on a stopped consumer's queue is not waited for.
	f.p.tuningQ.active.Store(false)
	if !f.p.awaitConsumers(0) {
		t.Error("awaitConsumers waited on a stopped consumer")
	}
	f.p.tuningQ.drain()
	if got := f.p.tuningQ.pending.Load(); got != 0 {
		t.Errorf("pending = %d after drain", got)
	}
}

// endlessLink delivers silence until fail is called.
type endlessLink struct {
	failed atomic.Bool
	closed atomic.Bool
}

func (l *endlessLink) Read(p []byte) (int, error) {
	switch {
	case l.closed.Load():
		return 0, io.ErrClosedPipe
	case l.failed.Load():
		return 0, errors.New("link lost")
	}
	for i := range p {
		p[i] = DefaultZeroOffset
	}
	return len(p), nil
}

func (l *endlessLink) Write(p []byte) (int, error) { return len(p), nil }
func (l *endlessLink) Close() error                { l.closed.Store(true); return nil }

func TestPipeline_ToggledConsumersDoNotDelayInterruption(t *testing.T) {
	l := &endlessLink{}
	f := newFixture(t, func(o *Options) {
		o.Playback = DiscardPlayback{}
		o.Connector = link.ConnectorFunc(func(context.Context) (link.Link, error) { return l, nil })
	})
	if err := f.p.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	for range 300 {
		if err := f.p.StartRecording(); err != nil {
			t.Fatal(err)
		}
		if err := f.p.StartTuning(ModePeak); err != nil {
			t.Fatal(err)
		}
		f.p.StopTuning()
		if _, err := f.p.StopRecording(); err != nil {
			t.Fatal(err)
		}
	}

	for name, q := range map[string]*consumerQueue{"recording": f.p.recordQ, "tuning": f.p.tuningQ} {
		if n := len(q.ch); n != 0 {
			t.Errorf("%s queue holds %d buffers after its consumer stopped", name, n)
		}
	}

	start := time.Now()
	l.failed.Store(true)
	if _, ok := f.events.WaitForCode(2*consumerDrainTimeout, string(CodeStreamInterrupted)); !ok {
		t.Fatal("no interruption notification")
	}
	if elapsed := time.Since(start); elapsed >= consumerDrainTimeout {
		t.Errorf("interruption announced after %s, stopped consumers were waited for", elapsed)
	}
}

func TestPipeline_PlaybackFailureIsNotFatal(t *testing.T) {
	var logs bytes.Buffer
	applog.SetOutput(&logs, false)
	t.Cleanup(func() { applog.SetOutput(os.Stderr, true) })

	f := newFixture(t, nil)
	f.playback.err = errors.New("underrun")

	f.p.recordQ.active.Store(true)
	buf := fill(testBufferSize, 7)
	f.p.dispatch(buf)
	f.p.recordQ.active.Store(false)

	if got := len(f.p.recordQ.ch); got != 1 {
		t.Fatalf("recording queue length = %d, want 1", got)
	}
	queued := <-f.p.recordQ.ch
	f.p.recordQ.consumed()
	buf[0] = 99
	if queued[0] != 7 {
		t.Error("queued buffer aliases the ingestion buffer")
	}

	// The warning carries the session of the pipeline that logged it.
	var found bool
	for _, line := range bytes.Split(bytes.TrimSpace(logs.Bytes()), []byte("\n")) {
		var entry map[string]any
		if err := json.Unmarshal(line, &entry); err != nil {
			t.Fatalf("invalid log line %q: %v", line, err)
		}
		if entry["message"] != "playback write failed" {
			continue
		}
		found = true
		if entry["session"] != f.p.Session() || entry["component"] != "pipeline" || entry["error"] != "underrun" {
			t.Errorf("log entry = %v", entry)
		}
	}
	if !found {
		t.Errorf("no playback warning in %s", logs.String())
	}
}

func TestPipeline_RecordingSavesCenteredWav(t *testing.T) {
	ml := utils.NewMockLink(errors.New("eof"), fill(testBufferSize, DefaultZeroOffset), fill(testBufferSize, DefaultZeroOffset+1))
	f := newFixture(t, func(o *Options) { o.Connector = ml.Connector(nil) })

	if err := f.p.StartRecording(); err != nil {
		t.Fatal(err)
	}
	if err := f.p.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, ok := f.events.WaitForCode(waitTimeout, string(CodeStreamInterrupted)); !ok {
		t.Fatal("no interruption")
	}

	path, err := f.p.StopRecording()
	if err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	if want := "/recordings/Record from 3.04 PM, 19.10.26.wav"; path != want {
		t.Errorf("path = %q, want %q", path, want)
	}
	if f.p.Flags().Recording {
		t.Error("recording flag still set")
	}

	file, err := f.fs.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()
	info, err := wav.Probe(file)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if info.DataBytes != 2*testBufferSize || info.SampleRate != testSampleRate || info.Channels != 2 || info.BitsPerSample != 16 {
		t.Errorf("info = %+v", info)
	}

	data, _ := afero.ReadFile(f.fs, path)
	payload := data[wav.HeaderSize:]
	if !bytes.Equal(payload[:testBufferSize], fill(testBufferSize, 0)) {
		t.Error("offset bytes were not centered to 0")
	}
	if !bytes.Equal(payload[testBufferSize:], fill(testBufferSize, 1)) {
		t.Error("offset+1 bytes were not centered to 1")
	}

	statuses := f.events.Statuses()
	if !slices.Contains(statuses, StatusRecording) || statuses[len(statuses)-1] != StatusRecordingCompleted {
		t.Errorf("statuses = %v", statuses)
	}
}

func TestPipeline_StopRecordingDrainsQueue(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.ZeroOffset = 0 })
	if err := f.p.StartRecording(); err != nil {
		t.Fatal(err)
	}
	for range 10 {
		f.p.dispatch(fill(testBufferSize, 3))
	}
	path, err := f.p.StopRecording()
	if err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	data, _ := afero.ReadFile(f.fs, path)
	if got := len(data) - wav.HeaderSize; got != 10*testBufferSize {
		t.Errorf("payload = %d bytes, want %d", got, 10*testBufferSize)
	}
	if got := f.p.recordQ.pending.Load(); got != 0 {
		t.Errorf("pending = %d", got)
	}
}

func TestPipeline_SaveFailure(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.Sink = failingSink{} })
	if err := f.p.StartRecording(); err != nil {
		t.Fatal(err)
	}
	f.p.dispatch(fill(testBufferSize, 1))

	path, err := f.p.StopRecording()
	if !errors.Is(err, ErrSaveFailed) || path != "" {
		t.Fatalf("StopRecording = %q, %v; want SAVE_FAILED", path, err)
	}
	if _, ok := f.events.WaitForCode(0, string(CodeSaveFailed)); !ok {
		t.Error("no SAVE_FAILED message")
	}

	// The failed recording is gone; a new one starts empty.
	if err := f.p.StartRecording(); err != nil {
		t.Fatal(err)
	}
	if got := f.p.RecordedBytes(); got != 0 {
		t.Errorf("RecordedBytes = %d after restart", got)
	}
}

func TestPipeline_StopTuningDiscardsPartialFrame(t *testing.T) {
	f := newFixture(t, nil)
	feed := func(n int) {
		for range n {
			f.p.enqueue(f.p.tuningQ, fill(testBufferSize, 5))
		}
		f.waitIdleConsumers(t)
	}

	if err := f.p.StartTuning(ModePeak); err != nil {
		t.Fatal(err)
	}
	feed(3)
	f.p.StopTuning()
	if f.p.Flags().Tuning {
		t.Error("tuning flag still set")
	}

	if err := f.p.StartTuning(ModePeak); err != nil {
		t.Fatal(err)
	}
	feed(1)
	if got := len(f.events.OfKind(transport.KindPeak)); got != 0 {
		t.Fatalf("peak events = %d, the partial frame should have been discarded", got)
	}
	feed(3)
	if got := len(f.events.OfKind(transport.KindPeak)); got != 1 {
		t.Errorf("peak events = %d, want 1", got)
	}
}

func TestPipeline_FramesSpanBuffers(t *testing.T) {
	// 48-byte buffers do not divide a 128-byte frame.
	f := newFixture(t, nil)
	if err := f.p.StartTuning(ModePeak); err != nil {
		t.Fatal(err)
	}
	for range 8 {
		f.p.enqueue(f.p.tuningQ, fill(48, 5))
	}
	f.waitIdleConsumers(t)
	if got := len(f.events.OfKind(transport.KindPeak)); got != 3 {
		t.Errorf("peak events = %d, want 3 from 384 bytes", got)
	}
}

func TestPipeline_SpectrogramMode(t *testing.T) {
	f := newFixture(t, nil)
	if r := f.p.SetMinFrequency(500); r.Min != 16 {
		t.Errorf("min bin = %d, want 16", r.Min)
	}
	if r := f.p.SetMaxFrequency(1000); r.Max != 32 {
		t.Errorf("max bin = %d, want 32", r.Max)
	}
	if err := f.p.StartTuning(ModeSpectrogram); err != nil {
		t.Fatal(err)
	}

	f.p.enqueue(f.p.tuningQ, utils.GenerateSineFrame(testFrameSize, testSampleRate, 500, 100))
	f.waitIdleConsumers(t)

	events := f.events.OfKind(transport.KindSpectrum)
	if len(events) != 1 {
		t.Fatalf("spectrum events = %d, want 1", len(events))
	}
	ev := events[0]
	if len(ev.Spectrum) != 17 {
		t.Errorf("slice length = %d, want 17", len(ev.Spectrum))
	}
	if ev.MinHz != 500 || ev.MaxHz != 1000 || ev.MinLabel != "500.0" || ev.MaxLabel != "1000.0" {
		t.Errorf("bounds = %v..%v (%s..%s)", ev.MinHz, ev.MaxHz, ev.MinLabel, ev.MaxLabel)
	}
	if ev.PeakHz != 500 {
		t.Errorf("window peak = %v, want 500", ev.PeakHz)
	}

	// Switching mode while tuning keeps the consumer running.
	if err := f.p.StartTuning(ModePeak); err != nil {
		t.Fatal(err)
	}
	f.p.enqueue(f.p.tuningQ, utils.GenerateSineFrame(testFrameSize, testSampleRate, 500, 100))
	f.waitIdleConsumers(t)
	if got := len(f.events.OfKind(transport.KindPeak)); got != 1 {
		t.Errorf("peak events after switch = %d, want 1", got)
	}

	if r := f.p.ResetWindow(); r.Min != 0 || r.Max != testFrameSize-1 {
		t.Errorf("ResetWindow = %+v", r)
	}
}

func TestPipeline_InvalidFrameLengthStopsTuning(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.FrameSize = 100 })
	if err := f.p.StartTuning(ModePeak); err != nil {
		t.Fatal(err)
	}
	f.p.enqueue(f.p.tuningQ, fill(100, 1))

	if _, ok := f.events.WaitForCode(waitTimeout, string(CodeInvalidFrameLength)); !ok {
		t.Fatal("no INVALID_FRAME_LENGTH message")
	}
	f.waitIdleConsumers(t)
	if f.p.Flags().Tuning {
		t.Error("tuning flag still set after the consumer failed")
	}

	// Ingestion is unaffected and tuning can be restarted.
	f.p.dispatch(fill(testBufferSize, 1))
	if f.playback.count() != 1 {
		t.Error("playback stopped after a tuning failure")
	}
	if err := f.p.StartTuning(ModePeak); err != nil {
		t.Fatal(err)
	}
	if !f.p.Flags().Tuning {
		t.Error("restart did not set the tuning flag")
	}
}

func TestPipeline_SnapshotAndClose(t *testing.T) {
	f := newFixture(t, nil)
	if err := f.p.StartRecording(); err != nil {
		t.Fatal(err)
	}
	if err := f.p.StartTuning(ModeSpectrogram); err != nil {
		t.Fatal(err)
	}
	f.p.SetMinFrequency(1000)

	snap := f.p.Snapshot()
	if snap.Session != f.p.Session() || snap.State != "idle" || snap.Mode != "spectrogram" {
		t.Errorf("snapshot = %+v", snap)
	}
	if !snap.Flags.Recording || !snap.Flags.Tuning || snap.Flags.Connected {
		t.Errorf("flags = %+v", snap.Flags)
	}
	if snap.Window.Min != 32 || snap.MinLabel != "1000.0" {
		t.Errorf("window = %+v, label %s", snap.Window, snap.MinLabel)
	}
	if snap.Latest != nil {
		t.Error("Latest set before any frame")
	}
	if _, err := json.Marshal(snap); err != nil {
		t.Errorf("Marshal: %v", err)
	}

	if err := f.p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if flags := f.p.Flags(); flags.Recording || flags.Tuning {
		t.Errorf("flags after Close = %+v", flags)
	}
	names, err := afero.ReadDir(f.fs, "/recordings")
	if err != nil || len(names) != 1 {
		t.Errorf("recordings after Close = %v, %v", names, err)
	}
	if err := f.p.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
