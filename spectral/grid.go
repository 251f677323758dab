// SPDX-License-Identifier: EPL-2.0

package spectral

import (
	"math/cmplx"
	"sort"
)

// Grid is a spectrogram: for every channel, FrameCount frames of Nfft
// complex bins. A Grid is immutable once returned.
type Grid struct {
	nfft       int
	sampleRate int
	frames     int
	// bins[c] holds frames*nfft values, frame after frame.
	bins [][]complex64
}

func newGrid(channels, frames, nfft, sampleRate int) *Grid {
	g := &Grid{
		nfft:       nfft,
		sampleRate: sampleRate,
		frames:     frames,
		bins:       make([][]complex64, channels),
	}
	for c := range g.bins {
		g.bins[c] = make([]complex64, frames*nfft)
	}
	return g
}

func (g *Grid) Nfft() int       { return g.nfft }
func (g *Grid) FrameCount() int { return g.frames }
func (g *Grid) Channels() int   { return len(g.bins) }
func (g *Grid) SampleRate() int { return g.sampleRate }

// SpectrogramSampleRate is the number of spectrogram frames per second.
func (g *Grid) SpectrogramSampleRate() float64 {
	return float64(g.sampleRate) / float64(g.nfft)
}

// FrequencyResolution is the width of one bin in Hz.
func (g *Grid) FrequencyResolution() float64 {
	return float64(g.sampleRate) / float64(g.nfft)
}

// SamplePeriod is the duration of one input sample in seconds.
func (g *Grid) SamplePeriod() float64 {
	return 1 / float64(g.sampleRate)
}

// BinFrequency returns the frequency of bin k in Hz. It is meaningful for
// k < Nfft/2.
func (g *Grid) BinFrequency(k int) float64 {
	return float64(k) * float64(g.sampleRate) / float64(g.nfft)
}

// FrameTime returns the start of frame f in seconds.
func (g *Grid) FrameTime(f int) float64 {
	return float64(f*g.nfft) / float64(g.sampleRate)
}

// Frame returns the bins of frame f of channel c. The slice aliases the
// grid and must not be modified.
func (g *Grid) Frame(c, f int) []complex64 {
	return g.bins[c][f*g.nfft : (f+1)*g.nfft]
}

// Magnitudes writes |bin| for the first Nfft/2 bins of a frame into dst,
// growing it as needed, and returns it.
func (g *Grid) Magnitudes(c, f int, dst []float64) []float64 {
	frame := g.Frame(c, f)[:g.nfft/2]
	if cap(dst) < len(frame) {
		dst = make([]float64, len(frame))
	}
	dst = dst[:len(frame)]
	for k, v := range frame {
		dst[k] = cmplx.Abs(complex128(v))
	}
	return dst
}

// PeakBins returns the indices of the n strongest bins among the first
// Nfft/2 of a frame, strongest first.
func (g *Grid) PeakBins(c, f, n int) []int {
	mags := g.Magnitudes(c, f, nil)
	idx := make([]int, len(mags))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return mags[idx[a]] > mags[idx[b]] })
	return idx[:min(n, len(idx))]
}
