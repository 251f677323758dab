// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"math"
	"sync"
	"sync/atomic"
)

// DefaultSampleRate is the rate of a freshly created, empty Buffer.
const DefaultSampleRate = 44100

// Snapshot is an immutable view of decoded audio: per-channel samples of
// equal length and their sample rate. Samples must not be modified once a
// Snapshot is published.
type Snapshot struct {
	channels   [][]float32
	sampleRate int
	frames     int
}

// NewSnapshot validates channels and wraps them without copying.
func NewSnapshot(channels [][]float32, sampleRate int) (*Snapshot, error) {
	if sampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	if len(channels) == 0 {
		return nil, ErrNoChannels
	}
	if len(channels) > MaxChannels {
		return nil, ErrTooManyChannels
	}
	frames := len(channels[0])
	for _, ch := range channels[1:] {
		if len(ch) != frames {
			return nil, ErrChannelLengthMismatch
		}
	}
	return &Snapshot{channels: channels, sampleRate: sampleRate, frames: frames}, nil
}

func emptySnapshot(channels, sampleRate int) *Snapshot {
	chans := make([][]float32, channels)
	for i := range chans {
		chans[i] = []float32{}
	}
	return &Snapshot{channels: chans, sampleRate: sampleRate}
}

func (s *Snapshot) Channels() int    { return len(s.channels) }
func (s *Snapshot) SampleRate() int  { return s.sampleRate }
func (s *Snapshot) SampleCount() int { return s.frames }

// Channel returns the samples of channel i. The slice is shared and must
// be treated as read-only.
func (s *Snapshot) Channel(i int) []float32 { return s.channels[i] }

// Length is the duration in seconds.
func (s *Snapshot) Length() float64 {
	return float64(s.frames) / float64(s.sampleRate)
}

// retired marks the cursor of a state that update has replaced.
const retired = -1

// bufferState pairs a snapshot with the cursor that indexes it, so a
// cursor can never point past the end of the samples it belongs to.
type bufferState struct {
	snap   *Snapshot
	cursor atomic.Int64
}

func newState(snap *Snapshot, cursor int) *bufferState {
	st := &bufferState{snap: snap}
	st.cursor.Store(int64(min(max(cursor, 0), snap.frames)))
	return st
}

// Buffer owns the samples being played and analyzed along with the
// playback cursor.
//
// Writers (Swap, Replace, ChangeLength, the signal generator) serialize on
// a mutex and publish a new immutable state. Readers, including the
// real-time ReadFrames path, work on atomics and never take the mutex.
type Buffer struct {
	mu    sync.Mutex
	state atomic.Pointer[bufferState]
}

// NewBuffer creates an empty buffer with the given layout. Non-positive
// arguments fall back to one channel at DefaultSampleRate.
func NewBuffer(channels, sampleRate int) *Buffer {
	if channels <= 0 || channels > MaxChannels {
		channels = 1
	}
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	b := &Buffer{}
	b.state.Store(newState(emptySnapshot(channels, sampleRate), 0))
	return b
}

// Snapshot returns the currently published samples.
func (b *Buffer) Snapshot() *Snapshot { return b.state.Load().snap }

// Swap publishes snap and resets the cursor to 0.
func (b *Buffer) Swap(snap *Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state.Store(newState(snap, 0))
}

// Replace validates channels and swaps them in.
func (b *Buffer) Replace(channels [][]float32, sampleRate int) error {
	snap, err := NewSnapshot(channels, sampleRate)
	if err != nil {
		return err
	}
	b.Swap(snap)
	return nil
}

// update derives a new snapshot from the current one and publishes it,
// keeping the cursor (clamped to the new length). The old state's cursor
// is retired before its value is carried over, so a seek or an advance
// racing with the update is retried on the new state instead of lost.
func (b *Buffer) update(fn func(cur *Snapshot) *Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cur := b.state.Load()
	snap := fn(cur.snap)
	pos := cur.cursor.Swap(retired)
	b.state.Store(newState(snap, int(pos)))
}

// live returns the published state and its cursor. It spins only for the
// few instructions between update retiring a state and publishing the
// next one.
func (b *Buffer) live() (*bufferState, int64) {
	for {
		st := b.state.Load()
		if cur := st.cursor.Load(); cur != retired {
			return st, cur
		}
	}
}

// seek stores the frame chosen by frameAt, clamped to the snapshot it
// was computed for.
func (b *Buffer) seek(frameAt func(snap *Snapshot) int) int {
	for {
		st, cur := b.live()
		frame := min(max(frameAt(st.snap), 0), st.snap.frames)
		if st.cursor.CompareAndSwap(cur, int64(frame)) {
			return frame
		}
	}
}

// ChangeLength resizes every channel to n frames, zero-extending or
// truncating.
func (b *Buffer) ChangeLength(n int) error {
	if n < 0 {
		return ErrNegativeLength
	}
	b.update(func(cur *Snapshot) *Snapshot {
		chans := make([][]float32, len(cur.channels))
		for i, ch := range cur.channels {
			chans[i] = make([]float32, n)
			copy(chans[i], ch)
		}
		return &Snapshot{channels: chans, sampleRate: cur.sampleRate, frames: n}
	})
	return nil
}

func (b *Buffer) Channels() int    { return b.Snapshot().Channels() }
func (b *Buffer) SampleRate() int  { return b.Snapshot().SampleRate() }
func (b *Buffer) SampleCount() int { return b.Snapshot().SampleCount() }

// Length is the duration in seconds.
func (b *Buffer) Length() float64 { return b.Snapshot().Length() }

// Cursor returns the playback position as a frame index.
func (b *Buffer) Cursor() int {
	_, cur := b.live()
	return int(cur)
}

// Time returns the playback position in seconds.
func (b *Buffer) Time() float64 {
	st, cur := b.live()
	return float64(cur) / float64(st.snap.sampleRate)
}

// SetCursor moves the playback position, clamped to [0, SampleCount].
// It returns the stored frame index.
func (b *Buffer) SetCursor(frame int) int {
	return b.seek(func(*Snapshot) int { return frame })
}

// SetTime moves the playback position to t seconds, clamped to
// [0, Length].
func (b *Buffer) SetTime(t float64) int {
	return b.seek(func(snap *Snapshot) int {
		if math.IsNaN(t) || t < 0 {
			return 0
		}
		if f := t * float64(snap.sampleRate); f < float64(snap.frames) {
			return int(f)
		}
		return snap.frames
	})
}

// ReadFrames copies up to len(dst)/Channels() interleaved frames starting
// at the cursor and advances the cursor by the number of frames copied.
// end reports that no frames remained; the cursor is then at SampleCount.
//
// ReadFrames is safe to call from a real-time audio thread: it does not
// allocate and never takes the writers' mutex. A concurrent SetCursor wins
// over the advance.
func (b *Buffer) ReadFrames(dst []float32) (frames int, end bool) {
	frames, _, end = b.read(dst)
	return frames, end
}

// ReadInterleaved is ReadFrames reporting the number of samples written to
// dst instead of frames. The count always matches the layout the samples
// were copied with, even when a Swap changes the channel count meanwhile.
func (b *Buffer) ReadInterleaved(dst []float32) (n int, end bool) {
	frames, ch, end := b.read(dst)
	return frames * ch, end
}

func (b *Buffer) read(dst []float32) (frames, channels int, end bool) {
	for {
		st, cur := b.live()
		snap := st.snap
		ch := len(snap.channels)
		if ch == 0 {
			return 0, 0, true
		}

		remaining := int64(snap.frames) - cur
		if remaining <= 0 {
			if st.cursor.CompareAndSwap(cur, int64(snap.frames)) || st.cursor.Load() != retired {
				return 0, ch, true
			}
			continue
		}

		n := min(int64(len(dst)/ch), remaining)
		start := int(cur)
		for c, samples := range snap.channels {
			src := samples[start : start+int(n)]
			for i, v := range src {
				dst[i*ch+c] = v
			}
		}
		// A failed CAS means either a seek won or update retired the
		// state; only the latter needs the read repeated.
		if st.cursor.CompareAndSwap(cur, cur+n) || st.cursor.Load() != retired {
			return int(n), ch, false
		}
	}
}
