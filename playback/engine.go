// SPDX-License-Identifier: EPL-2.0

package playback

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ik5/hpaslt/audio"
	"github.com/ik5/hpaslt/event"
)

// DefaultFramesPerBuffer is the period size requested from the device.
const DefaultFramesPerBuffer = 4096

// State is the playback state of an Engine.
type State int32

const (
	Idle State = iota
	Playing
	Paused
	Completed
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Completed:
		return "completed"
	default:
		return "idle"
	}
}

// TimeEvent carries the playback position and the buffer length, both in
// seconds.
type TimeEvent struct {
	Time   float64
	Length float64
}

// Option configures an Engine.
type Option func(*Engine)

// WithFramesPerBuffer sets the period size in frames.
func WithFramesPerBuffer(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.fpb = n
		}
	}
}

// WithDevice selects an output device by ID or name.
func WithDevice(id string) Option {
	return func(e *Engine) { e.device = id }
}

// WithLogger sets the logger. The real-time path never logs.
func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// Engine plays the bound Buffer through a Backend. User actions are
// serialized; Render may run concurrently with all of them.
type Engine struct {
	backend Backend
	log     logrus.FieldLogger
	fpb     int
	device  string

	mu     sync.Mutex
	stream Stream

	buf          atomic.Pointer[audio.Buffer]
	state        atomic.Int32
	needsRestart atomic.Bool

	// Notices posted by Render, drained by Dispatch.
	pendingTime atomic.Bool
	pendingDone atomic.Bool
	wake        chan struct{}

	status      event.Registry[bool]
	timeChanged event.Registry[TimeEvent]
}

// NewEngine returns an Engine with nothing bound.
func NewEngine(backend Backend, opts ...Option) *Engine {
	e := &Engine{
		backend: backend,
		log:     logrus.StandardLogger(),
		fpb:     DefaultFramesPerBuffer,
		wake:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StatusChanged is emitted with true when playback starts and false when it
// pauses, stops or completes.
func (e *Engine) StatusChanged() *event.Registry[bool] { return &e.status }

// TimeChanged is emitted when the position moves.
func (e *Engine) TimeChanged() *event.Registry[TimeEvent] { return &e.timeChanged }

// Backend returns the backend the engine opens streams on.
func (e *Engine) Backend() Backend { return e.backend }

// Buffer returns the bound buffer, or nil.
func (e *Engine) Buffer() *audio.Buffer { return e.buf.Load() }

// State returns the current playback state.
func (e *Engine) State() State { return State(e.state.Load()) }

// Playing reports whether the stream is running.
func (e *Engine) Playing() bool { return e.State() == Playing }

// Time returns the position of the bound buffer in seconds.
func (e *Engine) Time() float64 {
	if b := e.buf.Load(); b != nil {
		return b.Time()
	}
	return 0
}

// Length returns the duration of the bound buffer in seconds.
func (e *Engine) Length() float64 {
	if b := e.buf.Load(); b != nil {
		return b.Length()
	}
	return 0
}

// Bind attaches buf and opens a stream for its format. Any previous stream
// is paused and closed first. On failure buf stays attached without a
// stream and Play returns ErrNotBound until the next successful Bind.
func (e *Engine) Bind(buf *audio.Buffer) error {
	if buf == nil {
		return &StreamError{Op: "open", Err: ErrNotBound}
	}
	log := e.log.WithFields(logrus.Fields{
		"function":    "Bind",
		"channels":    buf.Channels(),
		"sample_rate": buf.SampleRate(),
	})

	e.mu.Lock()
	wasPlaying, err := e.pauseLocked()
	if err != nil {
		e.mu.Unlock()
		return err
	}

	if e.stream != nil {
		old := e.stream
		e.stream = nil
		if err := old.Close(); err != nil {
			log.WithError(err).Warn("Failed to close previous stream")
		}
	}

	e.buf.Store(buf)
	e.state.Store(int32(Idle))
	e.needsRestart.Store(false)
	e.pendingTime.Store(false)
	e.pendingDone.Store(false)

	err = e.openLocked(buf)
	e.mu.Unlock()

	if wasPlaying {
		e.status.Emit(false)
	}
	e.timeChanged.Emit(TimeEvent{Time: buf.Time(), Length: buf.Length()})

	if err != nil {
		log.WithError(err).Error("Failed to open output stream")
		return err
	}
	log.Debug("Output stream opened")
	return nil
}

// Unbind pauses playback, closes the stream and detaches the buffer.
// Play returns ErrNotBound until the next Bind.
func (e *Engine) Unbind() error {
	log := e.log.WithFields(logrus.Fields{"function": "Unbind"})

	e.mu.Lock()
	wasPlaying, err := e.pauseLocked()
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if e.stream != nil {
		if err := e.stream.Close(); err != nil {
			log.WithError(err).Warn("Failed to close stream")
		}
		e.stream = nil
	}
	e.buf.Store(nil)
	e.state.Store(int32(Idle))
	e.needsRestart.Store(false)
	e.pendingTime.Store(false)
	e.pendingDone.Store(false)
	e.mu.Unlock()

	if wasPlaying {
		e.status.Emit(false)
	}
	e.timeChanged.Emit(TimeEvent{})
	log.Debug("Buffer detached")
	return nil
}

func (e *Engine) openLocked(buf *audio.Buffer) error {
	devices, err := e.backend.Devices()
	if err != nil {
		return &StreamError{Op: "open", Err: err}
	}
	if _, ok := findDevice(devices, e.device); !ok {
		return &StreamError{Op: "open", Err: ErrNoDevice}
	}

	stream, err := e.backend.Open(StreamConfig{
		Channels:        buf.Channels(),
		SampleRate:      buf.SampleRate(),
		FramesPerBuffer: e.fpb,
		Device:          e.device,
	}, e.Render)
	if err != nil {
		return &StreamError{Op: "open", Err: err}
	}
	e.stream = stream
	return nil
}

// Play starts or resumes playback. After completion the stream is
// restarted, from the beginning when the cursor is at the end.
func (e *Engine) Play() error {
	log := e.log.WithFields(logrus.Fields{"function": "Play"})

	e.mu.Lock()
	if e.stream == nil {
		e.mu.Unlock()
		return &StreamError{Op: "start", Err: ErrNotBound}
	}
	if e.State() == Playing {
		e.mu.Unlock()
		return nil
	}

	rewound := false
	if e.needsRestart.Load() {
		if err := e.stream.Stop(); err != nil {
			e.mu.Unlock()
			log.WithError(err).Error("Failed to stop completed stream")
			return &StreamError{Op: "stop", Err: err}
		}
		e.needsRestart.Store(false)

		buf := e.buf.Load()
		if buf.Cursor() >= buf.SampleCount() {
			buf.SetCursor(0)
			rewound = true
		}
	}

	prev := e.state.Swap(int32(Playing))
	if err := e.stream.Start(); err != nil {
		e.state.CompareAndSwap(int32(Playing), prev)
		e.mu.Unlock()
		log.WithError(err).Error("Failed to start stream")
		return &StreamError{Op: "start", Err: err}
	}
	e.mu.Unlock()

	if rewound {
		e.emitTime()
	}
	e.status.Emit(true)
	log.Debug("Playback started")
	return nil
}

// Pause stops the stream and keeps the position.
func (e *Engine) Pause() error {
	e.mu.Lock()
	paused, err := e.pauseLocked()
	e.mu.Unlock()

	if err != nil {
		return err
	}
	if paused {
		e.status.Emit(false)
	}
	return nil
}

func (e *Engine) pauseLocked() (bool, error) {
	if !e.state.CompareAndSwap(int32(Playing), int32(Paused)) {
		return false, nil
	}
	if err := e.stream.Stop(); err != nil {
		e.state.CompareAndSwap(int32(Paused), int32(Playing))
		e.log.WithFields(logrus.Fields{"function": "Pause"}).WithError(err).Error("Failed to stop stream")
		return false, &StreamError{Op: "stop", Err: err}
	}
	e.needsRestart.Store(false)
	return true, nil
}

// Replay moves to the beginning and plays.
func (e *Engine) Replay() error {
	buf := e.buf.Load()
	if buf == nil {
		return &StreamError{Op: "start", Err: ErrNotBound}
	}
	buf.SetCursor(0)
	e.emitTime()
	return e.Play()
}

// Stop pauses and moves to the beginning.
func (e *Engine) Stop() error {
	if err := e.Pause(); err != nil {
		return err
	}

	buf := e.buf.Load()
	if buf == nil {
		return nil
	}
	buf.SetCursor(0)
	if !e.state.CompareAndSwap(int32(Paused), int32(Idle)) {
		e.state.CompareAndSwap(int32(Completed), int32(Idle))
	}
	e.emitTime()
	return nil
}

// SetTime seeks to t seconds, clamped to the buffer. It is safe during
// playback; the next period starts at the new position.
func (e *Engine) SetTime(t float64) {
	if buf := e.buf.Load(); buf != nil {
		buf.SetTime(t)
	}
}

// Close stops playback, closes the stream and the backend.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, _ = e.pauseLocked()
	var err error
	if e.stream != nil {
		if cerr := e.stream.Close(); cerr != nil {
			err = &StreamError{Op: "close", Err: cerr}
		}
		e.stream = nil
	}
	if cerr := e.backend.Close(); cerr != nil && err == nil {
		err = cerr
	}
	e.state.Store(int32(Idle))
	return err
}

// Render is the real-time callback handed to the backend. It fills out
// from the bound buffer and zero-fills what remains. At the end of the
// buffer it marks playback complete and returns Complete.
func (e *Engine) Render(out []float32) (status RenderStatus) {
	defer func() {
		if r := recover(); r != nil {
			clear(out)
			e.complete()
			status = Complete
		}
	}()

	buf := e.buf.Load()
	if buf == nil {
		clear(out)
		return Complete
	}

	n, end := buf.ReadInterleaved(out)
	clear(out[n:])
	if end {
		e.complete()
		return Complete
	}

	e.pendingTime.Store(true)
	e.notify()
	return Continue
}

func (e *Engine) complete() {
	if e.state.CompareAndSwap(int32(Playing), int32(Completed)) {
		e.needsRestart.Store(true)
		e.pendingDone.Store(true)
		e.notify()
	}
}

func (e *Engine) notify() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *Engine) emitTime() {
	e.timeChanged.Emit(TimeEvent{Time: e.Time(), Length: e.Length()})
}

// Dispatch delivers the notices posted by Render to subscribers on the
// calling goroutine and returns the number of events emitted. Time notices
// posted since the last call are coalesced into one event.
func (e *Engine) Dispatch() int {
	n := 0
	done := e.pendingDone.Swap(false)
	if e.pendingTime.Swap(false) || done {
		e.emitTime()
		n++
	}
	if done {
		e.status.Emit(false)
		n++
	}
	return n
}

// Run calls Dispatch whenever Render posts a notice, and at least every
// interval, until ctx is done.
func (e *Engine) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.wake:
			e.Dispatch()
		case <-ticker.C:
			e.Dispatch()
		}
	}
}
