// SPDX-License-Identifier: EPL-2.0

package playback

import (
	"sync"
	"time"
)

// NullBackend is an output without a device. Its streams render only when
// pumped, or on a wall clock when created WithRealtime.
type NullBackend struct {
	mu       sync.Mutex
	devices  []Device
	openErr  error
	startErr error
	realtime bool
	streams  []*NullStream
}

// NullOption configures a NullBackend.
type NullOption func(*NullBackend)

// WithNoDevices makes the backend report no output devices.
func WithNoDevices() NullOption {
	return func(b *NullBackend) { b.devices = nil }
}

// WithOpenError makes Open fail with err.
func WithOpenError(err error) NullOption {
	return func(b *NullBackend) { b.openErr = err }
}

// WithStartError makes Start of every stream fail with err.
func WithStartError(err error) NullOption {
	return func(b *NullBackend) { b.startErr = err }
}

// WithRealtime renders one period per period duration while a stream is
// started.
func WithRealtime() NullOption {
	return func(b *NullBackend) { b.realtime = true }
}

// NewNullBackend returns a backend with a single default device.
func NewNullBackend(opts ...NullOption) *NullBackend {
	b := &NullBackend{
		devices: []Device{{ID: "null", Name: "Null output", Default: true}},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *NullBackend) Name() string { return "null" }

func (b *NullBackend) Devices() ([]Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]Device(nil), b.devices...), nil
}

func (b *NullBackend) Open(cfg StreamConfig, render RenderFunc) (Stream, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.openErr != nil {
		return nil, b.openErr
	}
	if _, ok := findDevice(b.devices, cfg.Device); !ok {
		return nil, ErrNoDevice
	}

	s := &NullStream{
		cfg:      cfg,
		render:   render,
		period:   make([]float32, cfg.FramesPerBuffer*cfg.Channels),
		startErr: b.startErr,
		realtime: b.realtime,
	}
	b.streams = append(b.streams, s)
	return s, nil
}

// Close closes every stream opened by the backend.
func (b *NullBackend) Close() error {
	b.mu.Lock()
	streams := b.streams
	b.streams = nil
	b.mu.Unlock()

	for _, s := range streams {
		_ = s.Close()
	}
	return nil
}

// Opened returns the number of streams opened so far and not yet released
// by Close.
func (b *NullBackend) Opened() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.streams)
}

// Last returns the most recently opened stream, or nil.
func (b *NullBackend) Last() *NullStream {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.streams) == 0 {
		return nil
	}
	return b.streams[len(b.streams)-1]
}

// NullStream is a stream of a NullBackend.
type NullStream struct {
	cfg      StreamConfig
	render   RenderFunc
	startErr error
	realtime bool

	mu       sync.Mutex
	period   []float32
	started  bool
	finished bool
	closed   bool
	periods  int
	stop     chan struct{}
	done     chan struct{}
}

// Config returns the configuration the stream was opened with.
func (s *NullStream) Config() StreamConfig { return s.cfg }

func (s *NullStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStreamClosed
	}
	if s.startErr != nil {
		return s.startErr
	}
	s.started, s.finished = true, false

	if s.realtime && s.stop == nil {
		s.stop = make(chan struct{})
		s.done = make(chan struct{})
		go s.clock(s.stop, s.done)
	}
	return nil
}

func (s *NullStream) Stop() error {
	s.mu.Lock()
	s.started = false
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	return nil
}

func (s *NullStream) Close() error {
	err := s.Stop()

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return err
}

// Pump renders up to n periods and returns how many were rendered. It stops
// early when the stream is not started or the render completes.
func (s *NullStream) Pump(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	rendered := 0
	for range n {
		if !s.started || s.finished {
			break
		}
		status := s.render(s.period)
		rendered++
		s.periods++
		if status == Complete {
			s.finished = true
		}
	}
	return rendered
}

// Output returns a copy of the last rendered period.
func (s *NullStream) Output() []float32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]float32(nil), s.period...)
}

// Started reports whether the stream is started and has not completed.
func (s *NullStream) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.started && !s.finished
}

// Closed reports whether Close was called.
func (s *NullStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.closed
}

// Periods returns the number of periods rendered over the stream's life.
func (s *NullStream) Periods() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.periods
}

func (s *NullStream) clock(stop, done chan struct{}) {
	defer close(done)

	period := time.Duration(float64(time.Second) * float64(s.cfg.FramesPerBuffer) / float64(s.cfg.SampleRate))
	ticker := time.NewTicker(max(period, time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.Pump(1)
		}
	}
}
