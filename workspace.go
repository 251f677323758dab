// SPDX-License-Identifier: EPL-2.0

package hpaslt

import (
	"context"
	"sync"

	"github.com/ik5/hpaslt/audio"
	"github.com/ik5/hpaslt/spectral"
	"github.com/ik5/hpaslt/waveform"
)

// Workspace is a named buffer together with the views derived from it.
// Derived views are cached until the buffer is reloaded.
type Workspace struct {
	name   string
	buffer *audio.Buffer

	mu          sync.Mutex
	snap        *audio.Snapshot // snapshot the cache was built from
	pyramids    []*waveform.Pyramid
	spectrogram *spectral.Grid
}

func newWorkspace(name string) *Workspace {
	return &Workspace{name: name, buffer: newBuffer()}
}

func (w *Workspace) Name() string          { return w.name }
func (w *Workspace) Buffer() *audio.Buffer { return w.buffer }

// Empty reports whether nothing has been loaded.
func (w *Workspace) Empty() bool { return w.buffer.SampleCount() == 0 }

// syncLocked drops cached views that belong to an older snapshot.
func (w *Workspace) syncLocked() *audio.Snapshot {
	snap := w.buffer.Snapshot()
	if snap != w.snap {
		w.snap = snap
		w.pyramids = nil
		w.spectrogram = nil
	}
	return snap
}

// Invalidate drops the cached views.
func (w *Workspace) Invalidate() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.snap = nil
	w.pyramids = nil
	w.spectrogram = nil
}

// Waveform returns one pyramid per channel, building them on first use.
func (w *Workspace) Waveform(ctx context.Context, threshold int) ([]*waveform.Pyramid, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := w.syncLocked()
	if w.pyramids != nil {
		return w.pyramids, nil
	}
	pyramids, err := waveform.BuildAll(ctx, snap, threshold)
	if err != nil {
		return nil, err
	}
	w.pyramids = pyramids
	return pyramids, nil
}

// Spectrogram returns the last spectrogram generated for the current
// buffer contents, or nil.
func (w *Workspace) Spectrogram() *spectral.Grid {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.syncLocked()
	return w.spectrogram
}

func (w *Workspace) setSpectrogram(snap *audio.Snapshot, g *spectral.Grid) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.syncLocked() == snap {
		w.spectrogram = g
	}
}
