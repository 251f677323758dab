// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
	"io"
)

// Resampler converts src to another sample rate with Catmull-Rom cubic
// interpolation. It works on interleaved samples and preserves the channel
// count. When downsampling, input frames pass through a one-pole low-pass
// filter first.
//
// The source is read in blocks of BufSize samples; after construction
// ReadSamples does not allocate.
type Resampler struct {
	src      Source
	dstRate  int
	ratio    float64 // source frames per output frame
	channels int

	// window holds four consecutive input frames: t-1, t0, t+1, t+2.
	// Output is interpolated between window[1] and window[2].
	window [4][]float32
	real   [4]bool
	pos    float64
	primed bool

	block    []float32
	blockPos int
	blockLen int
	srcDone  bool
	err      error

	filter bool
	seeded bool
	alpha  float32
	state  []float32
}

func NewResampler(src Source, dstRate int) *Resampler {
	channels := max(src.Channels(), 1)
	ratio := float64(src.SampleRate()) / float64(dstRate)

	size := src.BufSize()
	if size < channels {
		size = 4096
	}
	size -= size % channels

	r := &Resampler{
		src:      src,
		dstRate:  dstRate,
		ratio:    ratio,
		channels: channels,
		block:    make([]float32, size),
		filter:   ratio > 1.0,
		alpha:    0.5,
		state:    make([]float32, channels),
	}
	for i := range r.window {
		r.window[i] = make([]float32, channels)
	}
	return r
}

func (r *Resampler) SampleRate() int { return r.dstRate }
func (r *Resampler) Channels() int   { return r.channels }
func (r *Resampler) BufSize() int    { return r.src.BufSize() }

func (r *Resampler) Close() error {
	if err := r.src.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// nextFrame copies the next input frame into dst. It returns false once
// the source is exhausted or has failed.
func (r *Resampler) nextFrame(dst []float32) bool {
	for r.blockLen-r.blockPos < r.channels {
		if r.srcDone {
			return false
		}
		n, err := r.src.ReadSamples(r.block)
		r.blockPos, r.blockLen = 0, n-n%r.channels
		if errors.Is(err, io.EOF) || (err == nil && n == 0) {
			r.srcDone = true
		} else if err != nil {
			r.srcDone = true
			r.err = err
		}
	}

	copy(dst, r.block[r.blockPos:r.blockPos+r.channels])
	r.blockPos += r.channels

	if r.filter && !r.seeded {
		// Start the filter from the first frame to avoid a fade-in.
		copy(r.state, dst)
		r.seeded = true
	}
	if r.filter {
		for c := range dst {
			dst[c] = r.alpha*dst[c] + (1-r.alpha)*r.state[c]
			r.state[c] = dst[c]
		}
	}
	return true
}

// advance shifts the window by one input frame. Past the end of the
// source the last frame is repeated and marked as padding.
func (r *Resampler) advance() {
	first := r.window[0]
	copy(r.window[:], r.window[1:])
	copy(r.real[:], r.real[1:])
	r.window[3] = first

	if r.nextFrame(r.window[3]) {
		r.real[3] = true
		return
	}
	copy(r.window[3], r.window[2])
	r.real[3] = false
}

func (r *Resampler) prime() {
	r.primed = true
	if !r.nextFrame(r.window[1]) {
		return
	}
	r.real[1] = true
	copy(r.window[0], r.window[1])
	r.real[0] = true

	for i := 2; i < 4; i++ {
		if r.nextFrame(r.window[i]) {
			r.real[i] = true
			continue
		}
		copy(r.window[i], r.window[i-1])
	}
}

// ReadSamples produces interleaved samples at the destination rate.
// len(dst) must be a multiple of Channels().
func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}
	if !r.primed {
		r.prime()
	}

	frames := len(dst) / r.channels
	written := 0
	done := false
	for written < frames {
		for r.pos >= 1.0 {
			r.pos -= 1.0
			r.advance()
		}
		if !r.real[1] || !r.real[2] {
			done = true
			break
		}

		x := float32(r.pos)
		out := dst[written*r.channels : (written+1)*r.channels]
		for c := range out {
			out[c] = cubic(r.window[0][c], r.window[1][c], r.window[2][c], r.window[3][c], x)
		}
		written++
		r.pos += r.ratio
	}

	n := written * r.channels
	if done {
		if r.err != nil {
			return n, fmt.Errorf("%w", r.err)
		}
		return n, io.EOF
	}
	return n, nil
}

// cubic is Catmull-Rom interpolation between y1 and y2 at 0 <= x <= 1.
func cubic(y0, y1, y2, y3, x float32) float32 {
	a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
	a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	a2 := -0.5*y0 + 0.5*y2
	a3 := y1

	return a0*x*x*x + a1*x*x + a2*x + a3
}
