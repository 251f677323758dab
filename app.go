// SPDX-License-Identifier: EPL-2.0

package hpaslt

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ik5/hpaslt/audio"
	"github.com/ik5/hpaslt/formats"
	"github.com/ik5/hpaslt/formats/wav"
	"github.com/ik5/hpaslt/loader"
	"github.com/ik5/hpaslt/playback"
	"github.com/ik5/hpaslt/spectral"
	"github.com/ik5/hpaslt/waveform"
)

var (
	// ErrDuplicateWorkspace is returned when creating a workspace whose
	// name is taken.
	ErrDuplicateWorkspace = errors.New("duplicate workspace name")

	// ErrWorkspaceNotFound is returned for an unknown workspace name.
	ErrWorkspaceNotFound = errors.New("workspace not found")

	// ErrEmptyWorkspace is returned when an operation needs loaded audio.
	ErrEmptyWorkspace = errors.New("no audio loaded in workspace")
)

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger shared by every component.
func WithLogger(log logrus.FieldLogger) Option {
	return func(a *App) {
		if log != nil {
			a.log = log
		}
	}
}

// WithBackend uses backend instead of the one named by Config.Backend.
func WithBackend(backend playback.Backend) Option {
	return func(a *App) { a.backend = backend }
}

// WithRegistry replaces the decoder registry.
func WithRegistry(reg *audio.Registry) Option {
	return func(a *App) { a.registry = reg }
}

// App is the application context. It owns every component; nothing is
// process-global.
type App struct {
	cfg      Config
	log      logrus.FieldLogger
	registry *audio.Registry
	backend  playback.Backend
	engine   *playback.Engine
	loader   *loader.Loader
	analyzer *spectral.Analyzer
	commands *Commands

	mu         sync.RWMutex
	workspaces map[string]*Workspace
	current    *Workspace
}

// New builds an App from cfg.
func New(cfg Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		cfg:        cfg,
		log:        logrus.StandardLogger(),
		workspaces: make(map[string]*Workspace),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.registry == nil {
		a.registry = formats.NewRegistry()
	}
	if a.backend == nil {
		backend, err := playback.NewBackend(cfg.Backend, a.log)
		if err != nil {
			return nil, err
		}
		a.backend = backend
	}

	impl, err := spectral.NewFFT(cfg.FFT)
	if err != nil {
		return nil, err
	}

	a.engine = playback.NewEngine(a.backend,
		playback.WithFramesPerBuffer(cfg.FramesPerBuffer),
		playback.WithDevice(cfg.Device),
		playback.WithLogger(a.log),
	)
	a.loader = loader.New(a.registry, a.engine, a.log)
	a.analyzer = spectral.NewAnalyzer(impl, a.log)
	a.loader.Loaded().Subscribe(a.onLoaded)

	ws := newWorkspace(cfg.Workspace)
	a.workspaces[ws.name] = ws
	a.current = ws

	a.commands = newCommands(a)

	a.log.WithFields(logrus.Fields{
		"function":  "New",
		"backend":   a.backend.Name(),
		"fft":       impl.Name(),
		"workspace": ws.name,
	}).Info("Application created")
	return a, nil
}

func (a *App) Config() Config               { return a.cfg }
func (a *App) Registry() *audio.Registry    { return a.registry }
func (a *App) Engine() *playback.Engine     { return a.engine }
func (a *App) Loader() *loader.Loader       { return a.loader }
func (a *App) Analyzer() *spectral.Analyzer { return a.analyzer }
func (a *App) Commands() *Commands          { return a.commands }
func (a *App) Logger() logrus.FieldLogger   { return a.log }

// Current returns the active workspace.
func (a *App) Current() *Workspace {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.current
}

// Workspace returns the workspace called name.
func (a *App) Workspace(name string) (*Workspace, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	ws, ok := a.workspaces[name]
	return ws, ok
}

// Workspaces returns the workspace names in order.
func (a *App) Workspaces() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	names := make([]string, 0, len(a.workspaces))
	for name := range a.workspaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CreateWorkspace adds an empty workspace.
func (a *App) CreateWorkspace(name string) error {
	log := a.log.WithFields(logrus.Fields{"function": "CreateWorkspace", "workspace": name})

	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidConfig)
	}

	a.mu.Lock()
	if _, ok := a.workspaces[name]; ok {
		a.mu.Unlock()
		log.Error("Duplicate workspace name")
		return fmt.Errorf("%w: %q", ErrDuplicateWorkspace, name)
	}
	a.workspaces[name] = newWorkspace(name)
	a.mu.Unlock()

	log.Info("Workspace created")
	return nil
}

// SwitchWorkspace makes name the active workspace. Playback is paused and
// rebound to the workspace's buffer, or detached when the workspace holds
// no audio.
func (a *App) SwitchWorkspace(name string) error {
	log := a.log.WithFields(logrus.Fields{"function": "SwitchWorkspace", "workspace": name})

	a.mu.Lock()
	ws, ok := a.workspaces[name]
	if !ok {
		a.mu.Unlock()
		log.Error("Workspace not found")
		return fmt.Errorf("%w: %q", ErrWorkspaceNotFound, name)
	}
	prev := a.current
	a.current = ws
	a.mu.Unlock()

	if prev != ws {
		if ws.Empty() {
			if err := a.engine.Unbind(); err != nil {
				log.WithError(err).Error("Failed to detach playback")
				return err
			}
		} else if err := a.engine.Bind(ws.buffer); err != nil {
			log.WithError(err).Error("Failed to bind workspace audio")
			return err
		}
	}

	log.Info("Switched workspace")
	return nil
}

// LoadAudioFile decodes path into the current workspace in the
// background. Failures are logged.
func (a *App) LoadAudioFile(path string) {
	a.loader.LoadAudioFile(a.Current().buffer, path)
}

// Load is the synchronous form of LoadAudioFile.
func (a *App) Load(ctx context.Context, path string) error {
	return a.loader.Load(ctx, a.Current().buffer, path)
}

func (a *App) onLoaded(buf *audio.Buffer) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	for _, ws := range a.workspaces {
		if ws.buffer == buf {
			ws.Invalidate()
		}
	}
	a.analyzer.Reset()
}

// Play starts playback. Errors are logged.
func (a *App) Play() { a.logErr("Play", a.engine.Play()) }

// Pause pauses playback. Errors are logged.
func (a *App) Pause() { a.logErr("Pause", a.engine.Pause()) }

// Replay plays from the beginning. Errors are logged.
func (a *App) Replay() { a.logErr("Replay", a.engine.Replay()) }

// Stop stops playback and rewinds. Errors are logged.
func (a *App) Stop() { a.logErr("Stop", a.engine.Stop()) }

// Seek moves playback to t seconds.
func (a *App) Seek(t float64) {
	a.engine.SetTime(t)
	a.log.WithFields(logrus.Fields{"function": "Seek", "time": t}).Debug("Seek")
}

func (a *App) logErr(fn string, err error) {
	if err != nil {
		a.log.WithFields(logrus.Fields{"function": fn}).WithError(err).Error("Playback operation failed")
	}
}

// Spectrogram generates the spectrogram of the current workspace with
// frames of nfft samples, or Config.Nfft when nfft is 0.
func (a *App) Spectrogram(ctx context.Context, nfft int) (*spectral.Grid, error) {
	if nfft == 0 {
		nfft = a.cfg.Nfft
	}
	ws := a.Current()
	if ws.Empty() {
		return nil, ErrEmptyWorkspace
	}

	snap := ws.buffer.Snapshot()
	grid, err := a.analyzer.Generate(ctx, snap, nfft)
	if err != nil {
		return nil, err
	}
	ws.setSpectrogram(snap, grid)
	return grid, nil
}

// Waveform returns the waveform pyramids of the current workspace.
func (a *App) Waveform(ctx context.Context) ([]*waveform.Pyramid, error) {
	ws := a.Current()
	if ws.Empty() {
		return nil, ErrEmptyWorkspace
	}
	return ws.Waveform(ctx, a.cfg.WaveformThreshold)
}

// Export writes the current workspace as a PCM WAV file.
func (a *App) Export(path string, bitDepth int) error {
	ws := a.Current()
	if ws.Empty() {
		return ErrEmptyWorkspace
	}

	log := a.log.WithFields(logrus.Fields{"function": "Export", "path": path, "bit_depth": bitDepth})
	if err := wav.WriteFile(path, ws.buffer.Snapshot(), bitDepth); err != nil {
		log.WithError(err).Error("Failed to export audio")
		return err
	}
	log.Info("Audio exported")
	return nil
}

// Close cancels loads in flight and releases the audio device.
func (a *App) Close() error {
	a.loader.Cancel()
	a.loader.Wait()
	return a.engine.Close()
}
