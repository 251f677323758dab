// SPDX-License-Identifier: EPL-2.0

// Package loader decodes audio files in the background and swaps the
// result into a buffer.
//
// A load decodes the whole file before touching the target. Only then is
// playback paused, the buffer swapped and the engine rebound, after which
// Loaded subscribers receive the buffer. A failed load leaves the target
// and playback untouched and emits nothing.
//
// Starting a load cancels the one in flight for the same target buffer;
// loads into different buffers run independently. A superseded load that
// still finishes decoding is discarded with ErrSuperseded, so the last file
// requested for a buffer always wins.
package loader

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ik5/hpaslt/audio"
	"github.com/ik5/hpaslt/event"
)

// ErrSuperseded is returned by a load that was replaced by a newer one.
var ErrSuperseded = errors.New("load superseded by a newer request")

// Binder is the playback side of a load. playback.Engine implements it.
type Binder interface {
	Pause() error
	Bind(buf *audio.Buffer) error
}

// Loader runs loads against a decoder registry.
type Loader struct {
	reg    *audio.Registry
	binder Binder
	log    logrus.FieldLogger

	mu    sync.Mutex
	gen   uint64
	slots map[*audio.Buffer]*slot

	// swap serializes the pause, swap and rebind of finished loads.
	swap sync.Mutex
	wg   sync.WaitGroup

	loaded event.Registry[*audio.Buffer]
}

// New returns a Loader. binder may be nil when nothing plays the target.
func New(reg *audio.Registry, binder Binder, log logrus.FieldLogger) *Loader {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Loader{reg: reg, binder: binder, log: log, slots: make(map[*audio.Buffer]*slot)}
}

// slot is the load in flight for one target buffer.
type slot struct {
	gen    uint64
	cancel context.CancelFunc
}

// Loaded is emitted with the target buffer after every successful load,
// on the goroutine that ran it.
func (l *Loader) Loaded() *event.Registry[*audio.Buffer] { return &l.loaded }

// LoadAudioFile loads path into target on a new goroutine. Errors are
// logged.
func (l *Loader) LoadAudioFile(target *audio.Buffer, path string) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		_ = l.Load(context.Background(), target, path)
	}()
}

// Wait blocks until every load started with LoadAudioFile has returned.
func (l *Loader) Wait() { l.wg.Wait() }

// Cancel cancels every load in flight.
func (l *Loader) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for target, s := range l.slots {
		s.cancel()
		delete(l.slots, target)
	}
}

func (l *Loader) begin(parent context.Context, target *audio.Buffer) (context.Context, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if s, ok := l.slots[target]; ok {
		s.cancel()
	}
	l.gen++
	ctx, cancel := context.WithCancel(parent)
	l.slots[target] = &slot{gen: l.gen, cancel: cancel}
	return ctx, l.gen
}

// finish releases the slot of target if gen still owns it.
func (l *Loader) finish(target *audio.Buffer, gen uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if s, ok := l.slots[target]; ok && s.gen == gen {
		s.cancel()
		delete(l.slots, target)
	}
}

func (l *Loader) current(target *audio.Buffer, gen uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.slots[target]
	return ok && s.gen == gen
}

// Load decodes path and, unless a newer load started meanwhile, swaps it
// into target and rebinds playback. Decode failures are *audio.LoadError.
// A rebind failure is returned after the swap and the Loaded event.
func (l *Loader) Load(ctx context.Context, target *audio.Buffer, path string) error {
	log := l.log.WithFields(logrus.Fields{
		"function": "Load",
		"path":     path,
	})

	ctx, gen := l.begin(ctx, target)
	defer l.finish(target, gen)

	log.Debug("Decoding audio file")
	snap, err := audio.DecodeFile(ctx, path, l.reg)
	if !l.current(target, gen) {
		log.Debug("Discarding superseded load")
		return ErrSuperseded
	}
	if err != nil {
		log.WithError(err).Error("Failed to load audio file")
		return err
	}

	l.swap.Lock()
	if !l.current(target, gen) {
		l.swap.Unlock()
		log.Debug("Discarding superseded load")
		return ErrSuperseded
	}

	var bindErr error
	if l.binder != nil {
		if err := l.binder.Pause(); err != nil {
			log.WithError(err).Warn("Failed to pause before swap")
		}
	}
	target.Swap(snap)
	if l.binder != nil {
		bindErr = l.binder.Bind(target)
	}
	l.swap.Unlock()

	log.WithFields(logrus.Fields{
		"channels":    snap.Channels(),
		"sample_rate": snap.SampleRate(),
		"frames":      snap.SampleCount(),
	}).Info("Audio file loaded")

	l.loaded.Emit(target)

	if bindErr != nil {
		log.WithError(bindErr).Error("Failed to bind loaded audio")
		return bindErr
	}
	return nil
}
