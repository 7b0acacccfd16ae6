// SPDX-License-Identifier: MIT
/*
Package audio implements the streaming pipeline between an audio link and
its consumers:

  - One ingestion goroutine reads fixed-size buffers from the link and
    writes each one to the playback sink before doing anything else.
  - Copies of each buffer are offered, without blocking, to a recording
    queue and a tuning queue while the matching flag is set. A full queue
    drops the copy and counts it; playback never waits on a consumer.
  - The recording consumer centers and accumulates bytes until stopped,
    drains what is still queued, then saves a WAV file through the sink.
  - The tuning consumer assembles frames of the configured size, analyzes
    each full frame and publishes peak or windowed spectrum events. A
    partial frame is discarded when tuning stops.

Control operations (Connect, StartRecording, ...) are serialized by one
mutex. Flags are atomics read by the ingestion goroutine once per buffer;
a consumer flag only changes while dispatch is not queueing, so a stopped
consumer never receives another buffer.
*/
package audio

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"audiolink/internal/analysis"
	"audiolink/internal/link"
	applog "audiolink/internal/log"
	"audiolink/internal/storage"
	"audiolink/internal/transport"
	"audiolink/internal/wav"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// State of the link session.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateStreaming
	StateInterrupted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Status strings sent as status events.
const (
	StatusReady              = "ready to connect"
	StatusConnecting         = "connecting"
	StatusConnected          = "connected"
	StatusNotConnected       = "not connected"
	StatusRecording          = "recording"
	StatusRecordingCompleted = "recording completed"
)

// Defaults applied by NewPipeline to zero Options fields.
const (
	DefaultBufferSize    = 128
	DefaultFrameSize     = 1024
	DefaultQueueCapacity = 4000

	// consumerDrainTimeout bounds how long an interruption waits for the
	// consumers to finish buffers that were already queued.
	consumerDrainTimeout = 2 * time.Second
)

var (
	ErrAlreadyConnected = errors.New("pipeline: already connected")
	errNilAnalyzer      = errors.New("pipeline: analyzer cannot be nil")
	errNilSink          = errors.New("pipeline: file sink cannot be nil")
)

// StreamState holds the three consumer flags.
type StreamState struct {
	Connected bool `json:"connected"`
	Recording bool `json:"recording"`
	Tuning    bool `json:"tuning"`
}

// Options configures a Pipeline. Analyzer and Sink are required.
type Options struct {
	Connector link.Connector // nil means no transport is available.
	Playback  Playback       // nil discards audio.
	Analyzer  *analysis.SpectrumAnalyzer
	Sink      storage.FileSink
	Notifier  transport.Transport // nil drops notifications.

	BufferSize    int        // Bytes per link read.
	FrameSize     int        // Samples per tuning frame.
	QueueCapacity int        // Slots in each consumer queue.
	ZeroOffset    byte       // Subtracted from recorded bytes.
	WavFormat     wav.Format // Header written around recordings.

	Now func() time.Time
}

// Pipeline is the streaming pipeline. Create it with NewPipeline.
type Pipeline struct {
	opts    Options
	session string
	log     zerolog.Logger

	ctrl      sync.Mutex
	state     atomic.Int32
	connected atomic.Bool

	link       link.Link
	cancel     context.CancelFunc
	ingestDone chan struct{}

	// gate orders consumer flag changes against dispatch.
	gate    sync.Mutex
	recordQ *consumerQueue
	tuningQ *consumerQueue

	rec *recorder
	tun *tuner

	window   *analysis.FrequencyWindow
	mode     atomic.Int32
	latest   atomic.Pointer[analysis.WindowedResult]
	recorded atomic.Int64

	dropped atomic.Uint64
	dropLog *applog.Throttle
	playLog *applog.Throttle
	closed  atomic.Bool
}

// NewPipeline validates opts and returns an idle pipeline.
func NewPipeline(opts Options) (*Pipeline, error) {
	if opts.Analyzer == nil {
		return nil, errNilAnalyzer
	}
	if opts.Sink == nil {
		return nil, errNilSink
	}
	if opts.Playback == nil {
		opts.Playback = DiscardPlayback{}
	}
	if opts.Notifier == nil {
		opts.Notifier = transport.Discard{}
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}
	if opts.FrameSize <= 0 {
		opts.FrameSize = DefaultFrameSize
	}
	if opts.QueueCapacity <= 0 {
		opts.QueueCapacity = DefaultQueueCapacity
	}
	if opts.WavFormat == (wav.Format{}) {
		opts.WavFormat = wav.DefaultFormat(int(opts.Analyzer.SampleRate()))
	}
	if err := opts.WavFormat.Validate(); err != nil {
		return nil, err
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	session := uuid.NewString()
	p := &Pipeline{
		opts:     opts,
		session:  session,
		log:      applog.Component("pipeline").With().Str("session", session).Logger(),
		recordQ:  newConsumerQueue(opts.QueueCapacity),
		tuningQ:  newConsumerQueue(opts.QueueCapacity),
		window:   analysis.NewFrequencyWindow(opts.FrameSize, opts.Analyzer.Resolution(opts.FrameSize)),
		dropLog:  applog.NewThrottle(time.Second),
		playLog:  applog.NewThrottle(time.Second),
	}
	p.log.Info().
		Int("buffer_size", opts.BufferSize).
		Int("frame_size", opts.FrameSize).
		Int("queue_capacity", opts.QueueCapacity).
		Msg("pipeline ready")
	p.notify(transport.StatusEvent(session, StatusReady))
	return p, nil
}

// Session identifies this pipeline in every event it emits.
func (p *Pipeline) Session() string { return p.session }

// State returns the current link state.
func (p *Pipeline) State() State { return State(p.state.Load()) }

// Flags returns a snapshot of the three consumer flags.
func (p *Pipeline) Flags() StreamState {
	return StreamState{
		Connected: p.connected.Load(),
		Recording: p.recordQ.active.Load(),
		Tuning:    p.tuningQ.active.Load(),
	}
}

// Dropped returns how many buffer copies were discarded because a
// consumer queue was full.
func (p *Pipeline) Dropped() uint64 { return p.dropped.Load() }

// RecordedBytes returns the size of the recording in progress.
func (p *Pipeline) RecordedBytes() int64 { return p.recorded.Load() }

// Connect opens the link and starts ingestion. It is legal from Idle and
// Interrupted. Failures leave the pipeline Interrupted and are returned as
// *StreamError as well as notified.
func (p *Pipeline) Connect(ctx context.Context) error {
	p.ctrl.Lock()
	defer p.ctrl.Unlock()

	switch p.State() {
	case StateConnecting, StateStreaming:
		return ErrAlreadyConnected
	}
	p.reapLocked()

	if p.opts.Connector == nil {
		return p.connectFailed(newStreamError(ErrTransportUnavailable, nil))
	}

	p.setState(StateConnecting)
	p.notify(transport.StatusEvent(p.session, StatusConnecting))

	l, err := p.opts.Connector.Connect(ctx)
	if err != nil {
		if errors.Is(err, link.ErrDeviceNotFound) {
			return p.connectFailed(newStreamError(ErrDeviceNotFound, err))
		}
		return p.connectFailed(newStreamError(ErrConnectFailed, err))
	}

	ingestCtx, cancel := context.WithCancel(context.Background())
	p.link = l
	p.cancel = cancel
	p.ingestDone = make(chan struct{})
	p.connected.Store(true)
	p.setState(StateStreaming)
	p.notify(transport.StatusEvent(p.session, StatusConnected))

	go p.ingest(ingestCtx, l, p.ingestDone)
	return nil
}

func (p *Pipeline) connectFailed(err *StreamError) error {
	p.connected.Store(false)
	p.setState(StateInterrupted)
	p.notify(transport.StatusEvent(p.session, StatusNotConnected))
	p.notify(transport.MessageEvent(p.session, string(err.Code), err.Message))
	p.log.Warn().Err(err).Msg("connect failed")
	return err
}

// Disconnect stops ingestion and closes the link. Recording and tuning
// keep their flags; they simply receive no further data.
func (p *Pipeline) Disconnect() error {
	p.ctrl.Lock()
	defer p.ctrl.Unlock()
	return p.disconnectLocked()
}

func (p *Pipeline) disconnectLocked() error {
	if p.cancel == nil {
		return nil
	}
	wasStreaming := p.State() == StateStreaming
	p.reapLocked()
	p.setState(StateIdle)
	if wasStreaming {
		p.notify(transport.StatusEvent(p.session, StatusNotConnected))
	}
	return nil
}

// reapLocked cancels the current session, closes its link and waits for
// the ingestion goroutine. An interrupted session has already closed its
// link; closing it again is harmless.
func (p *Pipeline) reapLocked() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	if err := p.link.Close(); err != nil {
		p.log.Debug().Err(err).Msg("closing link")
	}
	<-p.ingestDone

	p.cancel = nil
	p.link = nil
	p.ingestDone = nil
	p.connected.Store(false)
}

// Close disconnects, stops tuning and finishes a recording in progress.
// The returned error is the first failure; every step is attempted.
func (p *Pipeline) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	var errs []error
	if err := p.Disconnect(); err != nil {
		errs = append(errs, err)
	}
	p.StopTuning()
	if p.recordQ.active.Load() {
		if _, err := p.StopRecording(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Pipeline) setState(s State) {
	prev := State(p.state.Swap(int32(s)))
	if prev != s {
		p.log.Info().Stringer("from", prev).Stringer("to", s).Msg("state")
	}
}

func (p *Pipeline) notify(ev transport.Event) {
	if err := p.opts.Notifier.Send(ev); err != nil {
		p.log.Debug().Err(err).Msg("notification dropped")
	}
}

// ingest is the only goroutine reading from l.
func (p *Pipeline) ingest(ctx context.Context, l link.Link, done chan<- struct{}) {
	defer close(done)

	buf := make([]byte, p.opts.BufferSize)
	for {
		n, err := io.ReadFull(l, buf)
		if n > 0 {
			p.dispatch(buf[:n])
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.interrupt(l, err)
			return
		}
	}
}

// dispatch writes b to playback, then offers copies to the active
// consumers.
func (p *Pipeline) dispatch(b []byte) {
	if _, err := p.opts.Playback.Write(b); err != nil && p.playLog.Allow() {
		p.log.Warn().Err(err).Msg("playback write failed")
	}

	p.gate.Lock()
	defer p.gate.Unlock()
	if p.recordQ.active.Load() {
		p.enqueue(p.recordQ, b)
	}
	if p.tuningQ.active.Load() {
		p.enqueue(p.tuningQ, b)
	}
}

func (p *Pipeline) enqueue(q *consumerQueue, b []byte) {
	c := make([]byte, len(b))
	copy(c, b)

	q.pending.Add(1)
	select {
	case q.ch <- c:
	default:
		q.pending.Add(-1)
		if n := p.dropped.Add(1); p.dropLog.Allow() {
			p.log.Warn().Uint64("dropped", n).Msg("consumer queue full")
		}
	}
}

// activate discards whatever is left in q from an earlier run, then sets
// its flag. It returns the number of stale buffers discarded.
func (p *Pipeline) activate(q *consumerQueue) int {
	p.gate.Lock()
	defer p.gate.Unlock()
	n := q.drain()
	q.pending.Store(0)
	q.active.Store(true)
	return n
}

// deactivate clears the flag of q. Once it returns dispatch queues nothing
// more for that consumer.
func (p *Pipeline) deactivate(q *consumerQueue) {
	p.gate.Lock()
	defer p.gate.Unlock()
	q.active.Store(false)
}

// interrupt handles a failed read. The consumers get a bounded amount of
// time to finish what was queued before the interruption is announced.
func (p *Pipeline) interrupt(l link.Link, cause error) {
	p.connected.Store(false)
	p.setState(StateInterrupted)
	_ = l.Close()

	if !p.awaitConsumers(consumerDrainTimeout) {
		p.log.Warn().
			Int64("recording", p.recordQ.pending.Load()).
			Int64("tuning", p.tuningQ.pending.Load()).
			Dur("timeout", consumerDrainTimeout).
			Msg("consumers still busy")
	}

	err := newStreamError(ErrStreamInterrupted, cause)
	p.log.Warn().Err(cause).Msg("stream interrupted")
	p.notify(transport.StatusEvent(p.session, StatusNotConnected))
	p.notify(transport.MessageEvent(p.session, string(err.Code), err.Message))
}

// awaitConsumers waits until no running consumer has queued buffers left.
// Consumers whose flag is clear are not waited for.
func (p *Pipeline) awaitConsumers(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for p.recordQ.busy() || p.tuningQ.busy() {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
	return true
}

// consumerQueue carries buffer copies to one consumer. pending counts the
// buffers queued but not yet handled.
type consumerQueue struct {
	ch      chan []byte
	active  atomic.Bool
	pending atomic.Int64
}

func newConsumerQueue(capacity int) *consumerQueue {
	return &consumerQueue{ch: make(chan []byte, capacity)}
}

// consumed marks one queued buffer as handled.
func (q *consumerQueue) consumed() { q.pending.Add(-1) }

// drain discards everything queued.
func (q *consumerQueue) drain() int {
	n := 0
	for {
		select {
		case <-q.ch:
			q.consumed()
			n++
		default:
			return n
		}
	}
}

func (q *consumerQueue) busy() bool {
	return q.active.Load() && q.pending.Load() > 0
}

// Snapshot is the externally visible state of the pipeline.
type Snapshot struct {
	Session  string                   `json:"session"`
	State    string                   `json:"state"`
	Flags    StreamState              `json:"flags"`
	Mode     string                   `json:"mode"`
	Window   analysis.Range           `json:"window"`
	MinHz    float64                  `json:"min_hz"`
	MaxHz    float64                  `json:"max_hz"`
	SpanHz   float64                  `json:"span_hz"`
	MinLabel string                   `json:"min_label"`
	MaxLabel string                   `json:"max_label"`
	Dropped  uint64                   `json:"dropped"`
	Recorded int64                    `json:"recorded_bytes"`
	Latest   *analysis.WindowedResult `json:"latest,omitempty"`
}

// Snapshot collects the current state in one value.
func (p *Pipeline) Snapshot() Snapshot {
	lo, hi := p.window.Labels()
	minHz, maxHz := p.window.Bounds()
	return Snapshot{
		Session:  p.session,
		State:    p.State().String(),
		Flags:    p.Flags(),
		Mode:     TuningMode(p.mode.Load()).String(),
		Window:   p.window.Range(),
		MinHz:    minHz,
		MaxHz:    maxHz,
		SpanHz:   p.window.Span(),
		MinLabel: lo,
		MaxLabel: hi,
		Dropped:  p.Dropped(),
		Recorded: p.RecordedBytes(),
		Latest:   p.latest.Load(),
	}
}
