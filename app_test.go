// SPDX-License-Identifier: EPL-2.0

package hpaslt

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/hpaslt/audio"
	"github.com/ik5/hpaslt/formats/wav"
	"github.com/ik5/hpaslt/internal/audiotest"
	"github.com/ik5/hpaslt/playback"
	"github.com/ik5/hpaslt/spectral"
)

func newTestApp(t *testing.T, backend *playback.NullBackend) *App {
	t.Helper()

	log, _ := test.NewNullLogger()
	cfg := DefaultConfig()
	cfg.Backend = "null"
	cfg.FramesPerBuffer = 1024
	app, err := New(cfg, WithLogger(log), WithBackend(backend))
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func writeToneWAV(t *testing.T, seconds float64, tones ...audiotest.Tone) string {
	t.Helper()

	const rate = 44100
	snap, err := audio.NewSnapshot(audiotest.ToneChannels(rate, 2, int(seconds*rate), tones...), rate)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "tone.wav")
	require.NoError(t, wav.WriteFile(path, snap, 16))
	return path
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "frames per buffer", mutate: func(c *Config) { c.FramesPerBuffer = 0 }},
		{name: "nfft", mutate: func(c *Config) { c.Nfft = 500 }},
		{name: "threshold", mutate: func(c *Config) { c.WaveformThreshold = -1 }},
		{name: "workspace", mutate: func(c *Config) { c.Workspace = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

			_, err := New(cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	cfg := DefaultConfig()
	cfg.Nfft = 12
	var ce *spectral.ConfigError
	assert.ErrorAs(t, cfg.Validate(), &ce)
}

func TestNew_UnknownComponents(t *testing.T) {
	t.Parallel()

	log, _ := test.NewNullLogger()

	cfg := DefaultConfig()
	cfg.Backend = "jack"
	_, err := New(cfg, WithLogger(log))
	assert.ErrorIs(t, err, playback.ErrUnknownBackend)

	cfg = DefaultConfig()
	cfg.FFT = "fftw"
	_, err = New(cfg, WithLogger(log), WithBackend(playback.NewNullBackend()))
	assert.ErrorIs(t, err, spectral.ErrUnknownFFT)
}

func TestApp_Workspaces(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, playback.NewNullBackend())
	assert.Equal(t, DefaultWorkspace, app.Current().Name())

	require.NoError(t, app.CreateWorkspace("mix"))
	assert.ErrorIs(t, app.CreateWorkspace("mix"), ErrDuplicateWorkspace)
	assert.ErrorIs(t, app.CreateWorkspace(""), ErrInvalidConfig)
	assert.Equal(t, []string{DefaultWorkspace, "mix"}, app.Workspaces())

	require.NoError(t, app.SwitchWorkspace("mix"))
	assert.Equal(t, "mix", app.Current().Name())
	assert.ErrorIs(t, app.SwitchWorkspace("nope"), ErrWorkspaceNotFound)
	assert.Equal(t, "mix", app.Current().Name())

	ws, ok := app.Workspace(DefaultWorkspace)
	require.True(t, ok)
	assert.NotSame(t, ws.Buffer(), app.Current().Buffer())
}

func TestApp_LoadPlayAndAnalyze(t *testing.T) {
	t.Parallel()

	backend := playback.NewNullBackend()
	app := newTestApp(t, backend)
	path := writeToneWAV(t, 1,
		audiotest.Tone{Freq: 512, Magnitude: 1.0 / 3},
		audiotest.Tone{Freq: 1024, Magnitude: 1.0 / 3},
		audiotest.Tone{Freq: 2048, Magnitude: 1.0 / 3},
	)

	require.NoError(t, app.Load(context.Background(), path))
	buf := app.Current().Buffer()
	assert.Equal(t, 44100, buf.SampleCount())
	assert.Same(t, buf, app.Engine().Buffer())

	app.Play()
	assert.Equal(t, playback.Playing, app.Engine().State())
	backend.Last().Pump(2)
	assert.Equal(t, 2048, buf.Cursor())
	app.Pause()
	assert.Equal(t, playback.Paused, app.Engine().State())
	app.Seek(0.5)
	assert.Equal(t, 22050, buf.Cursor())
	app.Stop()
	assert.Zero(t, buf.Cursor())

	grid, err := app.Spectrogram(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 512, grid.Nfft())
	assert.Equal(t, 86, grid.FrameCount())
	assert.ElementsMatch(t, []int{6, 12, 24}, grid.PeakBins(0, 43, 3))
	assert.Same(t, grid, app.Current().Spectrogram())
	assert.Same(t, grid, app.Analyzer().Spectrogram())

	pyramids, err := app.Waveform(context.Background())
	require.NoError(t, err)
	require.Len(t, pyramids, 2)
	assert.Equal(t, 3, pyramids[0].Depth())
	again, err := app.Waveform(context.Background())
	require.NoError(t, err)
	assert.Same(t, pyramids[0], again[0], "pyramids are cached")

	// Reloading invalidates the cached views.
	require.NoError(t, app.Load(context.Background(), writeToneWAV(t, 0.5, audiotest.Tone{Freq: 440, Magnitude: 0.5})))
	assert.Nil(t, app.Current().Spectrogram())
	assert.Nil(t, app.Analyzer().Spectrogram())
	fresh, err := app.Waveform(context.Background())
	require.NoError(t, err)
	assert.NotSame(t, pyramids[0], fresh[0])
	assert.Equal(t, 2, fresh[0].Depth())
}

func TestApp_LoadMissingFileKeepsState(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, playback.NewNullBackend())
	require.NoError(t, app.Load(context.Background(), writeToneWAV(t, 0.1)))
	buf := app.Current().Buffer()
	buf.SetCursor(100)
	before := buf.Snapshot()

	err := app.Load(context.Background(), filepath.Join(t.TempDir(), "missing.wav"))
	var le *audio.LoadError
	require.ErrorAs(t, err, &le)
	assert.Same(t, before, buf.Snapshot())
	assert.Equal(t, 100, buf.Cursor())
}

func TestApp_EmptyWorkspace(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, playback.NewNullBackend())

	_, err := app.Spectrogram(context.Background(), 0)
	assert.ErrorIs(t, err, ErrEmptyWorkspace)
	_, err = app.Waveform(context.Background())
	assert.ErrorIs(t, err, ErrEmptyWorkspace)
	assert.ErrorIs(t, app.Export(filepath.Join(t.TempDir(), "out.wav"), 16), ErrEmptyWorkspace)

	// Unbound playback operations only log.
	app.Play()
	app.Pause()
	app.Replay()
	app.Stop()
	assert.Equal(t, playback.Idle, app.Engine().State())
}

func TestApp_SwitchWorkspaceRebinds(t *testing.T) {
	t.Parallel()

	backend := playback.NewNullBackend()
	app := newTestApp(t, backend)
	require.NoError(t, app.Load(context.Background(), writeToneWAV(t, 0.2)))
	first := app.Current().Buffer()

	app.Play()
	require.Equal(t, playback.Playing, app.Engine().State())

	require.NoError(t, app.CreateWorkspace("second"))
	require.NoError(t, app.SwitchWorkspace("second"))
	assert.Nil(t, app.Engine().Buffer(), "empty workspace detaches playback")
	assert.Equal(t, playback.Idle, app.Engine().State())
	assert.True(t, backend.Last().Closed())
	assert.ErrorIs(t, app.Engine().Play(), playback.ErrNotBound)

	require.NoError(t, app.Load(context.Background(), writeToneWAV(t, 0.1)))
	second := app.Current().Buffer()
	assert.Same(t, second, app.Engine().Buffer())

	app.Play()
	require.NoError(t, app.SwitchWorkspace(DefaultWorkspace))
	assert.Same(t, first, app.Engine().Buffer())
	assert.Equal(t, playback.Idle, app.Engine().State())
}

func TestApp_ExportRoundTrip(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, playback.NewNullBackend())
	require.NoError(t, app.Load(context.Background(), writeToneWAV(t, 0.25, audiotest.Tone{Freq: 440, Magnitude: 0.5})))
	want := app.Current().Buffer().Snapshot()

	out := filepath.Join(t.TempDir(), "export.wav")
	require.NoError(t, app.Export(out, 24))
	require.NoError(t, app.Load(context.Background(), out))

	got := app.Current().Buffer().Snapshot()
	require.Equal(t, want.SampleCount(), got.SampleCount())
	assert.InDeltaSlice(t, want.Channel(1)[:500], got.Channel(1)[:500], 1e-4)
}
