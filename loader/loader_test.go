// SPDX-License-Identifier: EPL-2.0

package loader

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/hpaslt/audio"
	"github.com/ik5/hpaslt/formats"
	"github.com/ik5/hpaslt/formats/wav"
	"github.com/ik5/hpaslt/internal/audiotest"
	"github.com/ik5/hpaslt/playback"
)

type stubDecoder struct {
	newSource func() audio.Source
}

func (d stubDecoder) Decode(io.Reader) (audio.Source, error) { return d.newSource(), nil }

// gatedSource blocks its first read until release is closed.
type gatedSource struct {
	audio.Source
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *gatedSource) ReadSamples(dst []float32) (int, error) {
	s.once.Do(func() {
		close(s.started)
		<-s.release
	})
	return s.Source.ReadSamples(dst)
}

type fakeBinder struct {
	mu      sync.Mutex
	calls   []string
	bindErr error
	bound   *audio.Buffer
	frames  int
}

func (b *fakeBinder) Pause() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, "pause")
	return nil
}

func (b *fakeBinder) Bind(buf *audio.Buffer) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, "bind")
	b.bound = buf
	b.frames = buf.SampleCount()
	return b.bindErr
}

func (b *fakeBinder) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func writeTemp(t *testing.T, name string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("stub"), 0o600))
	return path
}

func newStubRegistry() *audio.Registry {
	reg := audio.NewRegistry()
	reg.Register("tone", stubDecoder{newSource: func() audio.Source {
		return audiotest.NewSineSource(8000, 2, 8000, 440)
	}})
	reg.Register("short", stubDecoder{newSource: func() audio.Source {
		return audiotest.NewConstantSource(16000, 1, 160, 0.5)
	}})
	reg.Register("wide", stubDecoder{newSource: func() audio.Source {
		return audiotest.NewSilentSource(48000, 6, 10)
	}})
	return reg
}

func TestLoad_SwapsBindsAndNotifies(t *testing.T) {
	t.Parallel()

	log, _ := test.NewNullLogger()
	binder := &fakeBinder{}
	l := New(newStubRegistry(), binder, log)

	var got []*audio.Buffer
	l.Loaded().Subscribe(func(b *audio.Buffer) { got = append(got, b) })

	target := audio.NewBuffer(1, 44100)
	require.NoError(t, l.Load(context.Background(), target, writeTemp(t, "a.tone")))

	assert.Equal(t, 2, target.Channels())
	assert.Equal(t, 8000, target.SampleRate())
	assert.Equal(t, 8000, target.SampleCount())
	assert.Zero(t, target.Cursor())

	assert.Equal(t, []string{"pause", "bind"}, binder.Calls())
	assert.Same(t, target, binder.bound)
	assert.Equal(t, 8000, binder.frames, "bound after the swap")
	assert.Equal(t, []*audio.Buffer{target}, got)
}

func TestLoad_FailureLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		path    func(t *testing.T) string
		wantErr error
	}{
		{name: "missing file", path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.tone") }, wantErr: os.ErrNotExist},
		{name: "unsupported", path: func(t *testing.T) string { return writeTemp(t, "a.xyz") }, wantErr: audio.ErrUnsupportedFormat},
		{name: "too many channels", path: func(t *testing.T) string { return writeTemp(t, "a.wide") }, wantErr: audio.ErrTooManyChannels},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			log, hook := test.NewNullLogger()
			binder := &fakeBinder{}
			l := New(newStubRegistry(), binder, log)
			notified := false
			l.Loaded().Subscribe(func(*audio.Buffer) { notified = true })

			target := audio.NewBuffer(1, 1000)
			require.NoError(t, target.Replace([][]float32{make([]float32, 1000)}, 1000))
			target.SetCursor(321)
			before := target.Snapshot()

			err := l.Load(context.Background(), target, tt.path(t))
			var le *audio.LoadError
			require.ErrorAs(t, err, &le)
			assert.ErrorIs(t, err, tt.wantErr)

			assert.Same(t, before, target.Snapshot())
			assert.Equal(t, 321, target.Cursor())
			assert.Empty(t, binder.Calls())
			assert.False(t, notified)

			entry := hook.LastEntry()
			require.NotNil(t, entry)
			assert.Equal(t, logrus.ErrorLevel, entry.Level)
		})
	}
}

func TestLoad_BindErrorAfterSwap(t *testing.T) {
	t.Parallel()

	log, _ := test.NewNullLogger()
	errBind := errors.New("no device")
	l := New(newStubRegistry(), &fakeBinder{bindErr: errBind}, log)
	notified := 0
	l.Loaded().Subscribe(func(*audio.Buffer) { notified++ })

	target := audio.NewBuffer(1, 44100)
	err := l.Load(context.Background(), target, writeTemp(t, "a.short"))
	assert.ErrorIs(t, err, errBind)
	assert.Equal(t, 160, target.SampleCount())
	assert.Equal(t, 1, notified)
}

func TestLoad_NewerRequestWins(t *testing.T) {
	t.Parallel()

	gate := &gatedSource{
		Source:  audiotest.NewSineSource(8000, 2, 8000, 440),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	reg := newStubRegistry()
	reg.Register("slow", stubDecoder{newSource: func() audio.Source { return gate }})

	log, _ := test.NewNullLogger()
	binder := &fakeBinder{}
	l := New(reg, binder, log)
	target := audio.NewBuffer(1, 44100)

	slowErr := make(chan error, 1)
	go func() { slowErr <- l.Load(context.Background(), target, writeTemp(t, "a.slow")) }()
	<-gate.started

	require.NoError(t, l.Load(context.Background(), target, writeTemp(t, "b.short")))
	close(gate.release)

	assert.ErrorIs(t, <-slowErr, ErrSuperseded)
	assert.Equal(t, 160, target.SampleCount())
	assert.Equal(t, 16000, target.SampleRate())
	assert.Equal(t, []string{"pause", "bind"}, binder.Calls())
}

func TestLoad_DifferentTargetsDoNotSupersede(t *testing.T) {
	t.Parallel()

	gate := &gatedSource{
		Source:  audiotest.NewSineSource(8000, 2, 8000, 440),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	reg := newStubRegistry()
	reg.Register("slow", stubDecoder{newSource: func() audio.Source { return gate }})

	log, _ := test.NewNullLogger()
	l := New(reg, nil, log)
	first := audio.NewBuffer(1, 44100)
	second := audio.NewBuffer(1, 44100)

	slowErr := make(chan error, 1)
	go func() { slowErr <- l.Load(context.Background(), first, writeTemp(t, "a.slow")) }()
	<-gate.started

	require.NoError(t, l.Load(context.Background(), second, writeTemp(t, "b.short")))
	close(gate.release)

	require.NoError(t, <-slowErr)
	assert.Equal(t, 8000, first.SampleCount())
	assert.Equal(t, 2, first.Channels())
	assert.Equal(t, 160, second.SampleCount())
}

func TestLoad_Cancel(t *testing.T) {
	t.Parallel()

	gate := &gatedSource{
		Source:  audiotest.NewSilentSource(8000, 1, 100),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	reg := audio.NewRegistry()
	reg.Register("slow", stubDecoder{newSource: func() audio.Source { return gate }})

	log, _ := test.NewNullLogger()
	l := New(reg, nil, log)
	target := audio.NewBuffer(1, 44100)

	l.LoadAudioFile(target, writeTemp(t, "a.slow"))
	<-gate.started
	l.Cancel()
	close(gate.release)
	l.Wait()

	assert.Zero(t, target.SampleCount())
}

func TestLoadAudioFile_FireAndForget(t *testing.T) {
	t.Parallel()

	log, _ := test.NewNullLogger()
	l := New(newStubRegistry(), nil, log)
	done := make(chan *audio.Buffer, 1)
	l.Loaded().Subscribe(func(b *audio.Buffer) { done <- b })

	target := audio.NewBuffer(1, 44100)
	l.LoadAudioFile(target, writeTemp(t, "a.tone"))

	select {
	case b := <-done:
		assert.Same(t, target, b)
	case <-time.After(5 * time.Second):
		t.Fatal("load did not complete")
	}
	l.Wait()
	assert.Equal(t, 8000, target.SampleCount())
}

func TestLoad_WAVIntoEngine(t *testing.T) {
	t.Parallel()

	snap, err := audio.NewSnapshot(audiotest.ToneChannels(22050, 2, 22050, audiotest.Tone{Freq: 440, Magnitude: 0.5}), 22050)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "tone.wav")
	require.NoError(t, wav.WriteFile(path, snap, 16))

	log, _ := test.NewNullLogger()
	backend := playback.NewNullBackend()
	eng := playback.NewEngine(backend, playback.WithLogger(log), playback.WithFramesPerBuffer(1024))
	defer eng.Close()

	target := audio.NewBuffer(1, 44100)
	l := New(formats.NewRegistry(), eng, log)
	require.NoError(t, l.Load(context.Background(), target, path))

	assert.Same(t, target, eng.Buffer())
	assert.InDelta(t, 1.0, eng.Length(), 1e-9)
	require.NotNil(t, backend.Last())
	assert.Equal(t, playback.StreamConfig{Channels: 2, SampleRate: 22050, FramesPerBuffer: 1024}, backend.Last().Config())

	require.NoError(t, eng.Play())
	assert.Equal(t, 1, backend.Last().Pump(1))
	assert.Equal(t, 1024, target.Cursor())

	// Loading again while playing pauses, swaps and rebinds.
	require.NoError(t, l.Load(context.Background(), target, path))
	assert.Equal(t, playback.Idle, eng.State())
	assert.Zero(t, target.Cursor())
	assert.Equal(t, 2, backend.Opened())
	assert.False(t, backend.Last().Closed())
}
