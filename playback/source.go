// SPDX-License-Identifier: EPL-2.0

package playback

import (
	"encoding/binary"
	"io"
	"math"
	"sync/atomic"

	"github.com/ik5/hpaslt/audio"
	"github.com/ik5/hpaslt/utils"
)

// renderSource pulls periods from a RenderFunc and exposes them as an
// audio.Source, so the audio adapters can convert the engine's format.
type renderSource struct {
	render     RenderFunc
	channels   int
	sampleRate int
	period     []float32
	pos, n     int
	done       bool
}

func newRenderSource(cfg StreamConfig, render RenderFunc) *renderSource {
	return &renderSource{
		render:     render,
		channels:   cfg.Channels,
		sampleRate: cfg.SampleRate,
		period:     make([]float32, cfg.FramesPerBuffer*cfg.Channels),
	}
}

func (s *renderSource) SampleRate() int { return s.sampleRate }
func (s *renderSource) Channels() int   { return s.channels }
func (s *renderSource) BufSize() int    { return len(s.period) }
func (s *renderSource) Close() error    { return nil }

func (s *renderSource) ReadSamples(dst []float32) (int, error) {
	written := 0
	for written < len(dst) {
		if s.pos == s.n {
			if s.done {
				break
			}
			if s.render(s.period) == Complete {
				s.done = true
				s.pos, s.n = 0, 0
				break
			}
			s.pos, s.n = 0, len(s.period)
		}
		c := copy(dst[written:], s.period[s.pos:s.n])
		s.pos += c
		written += c
	}

	if written == 0 && s.done {
		return 0, io.EOF
	}
	return written, nil
}

// pcmReader encodes an audio.Source as little-endian float32 bytes.
type pcmReader struct {
	src     audio.Source
	scratch []float32
	done    atomic.Bool
}

func newPCMReader(src audio.Source) *pcmReader {
	return &pcmReader{src: src}
}

func (r *pcmReader) Read(p []byte) (int, error) {
	if r.done.Load() {
		return 0, io.EOF
	}

	// Keep reads frame aligned for the adapters.
	samples := len(p) / 4
	if ch := r.src.Channels(); ch > 1 {
		samples -= samples % ch
	}
	if samples == 0 {
		return 0, nil
	}
	if cap(r.scratch) < samples {
		r.scratch = make([]float32, samples)
	}
	buf := r.scratch[:samples]

	n, err := r.src.ReadSamples(buf)
	for i, v := range buf[:n] {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(utils.Clamp(v)))
	}

	if err != nil {
		r.done.Store(true)
		if n == 0 {
			return 0, io.EOF
		}
	}
	return n * 4, nil
}

// Finished reports whether the source reached its end.
func (r *pcmReader) Finished() bool { return r.done.Load() }
