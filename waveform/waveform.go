// SPDX-License-Identifier: EPL-2.0

// Package waveform builds level-of-detail pyramids of a channel's samples
// so that a view of any span draws about the same number of points.
//
// Layer 0 holds every sample. Each further layer keeps the odd-indexed
// points of the one before, halving both its length and its rate, until a
// layer holds no more than the threshold. The decimation is not filtered,
// so coarse layers alias high frequencies.
package waveform

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/ik5/hpaslt/audio"
)

// DefaultThreshold is the number of points a view aims to draw.
const DefaultThreshold = 8192

// Layer is one level of a pyramid: X holds times in seconds and Y the
// amplitudes.
type Layer struct {
	SampleRate int
	X          []float32
	Y          []float32
}

// Len returns the number of points.
func (l *Layer) Len() int { return len(l.Y) }

// Pyramid holds the layers of one channel, finest first.
type Pyramid struct {
	threshold int
	layers    []Layer
}

// Build creates the pyramid of samples. A non-positive threshold selects
// DefaultThreshold.
func Build(samples []float32, sampleRate, threshold int) *Pyramid {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	base := Layer{
		SampleRate: sampleRate,
		X:          make([]float32, len(samples)),
		Y:          append([]float32(nil), samples...),
	}
	for i := range base.X {
		base.X[i] = float32(i) / float32(sampleRate)
	}

	p := &Pyramid{threshold: threshold, layers: []Layer{base}}
	for last := base; last.Len() > threshold; {
		last = decimate(last)
		p.layers = append(p.layers, last)
	}
	return p
}

// decimate keeps the odd indices of l.
func decimate(l Layer) Layer {
	n := l.Len() / 2
	next := Layer{
		SampleRate: l.SampleRate / 2,
		X:          make([]float32, n),
		Y:          make([]float32, n),
	}
	for i := range n {
		next.X[i] = l.X[2*i+1]
		next.Y[i] = l.Y[2*i+1]
	}
	return next
}

// BuildAll builds a pyramid per channel of snap concurrently.
func BuildAll(ctx context.Context, snap *audio.Snapshot, threshold int) ([]*Pyramid, error) {
	out := make([]*Pyramid, snap.Channels())

	g, ctx := errgroup.WithContext(ctx)
	for c := range out {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[c] = Build(snap.Channel(c), snap.SampleRate(), threshold)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Threshold returns the target point count.
func (p *Pyramid) Threshold() int { return p.threshold }

// Depth returns the number of layers after layer 0.
func (p *Pyramid) Depth() int { return len(p.layers) - 1 }

// Layers returns the number of layers including layer 0.
func (p *Pyramid) Layers() int { return len(p.layers) }

// Layer returns layer i, finest first.
func (p *Pyramid) Layer(i int) *Layer { return &p.layers[i] }

// Length returns the duration covered in seconds.
func (p *Pyramid) Length() float64 {
	base := p.layers[0]
	if base.SampleRate <= 0 {
		return 0
	}
	return float64(base.Len()) / float64(base.SampleRate)
}

// View is a window of one layer ready to draw. X and Y alias the pyramid.
type View struct {
	Layer int
	X     []float32
	Y     []float32
}

// Select returns the points of the visible span [t0, t1] from the coarsest
// layer that still has at least Threshold points in view. Times outside
// the signal are clamped.
func (p *Pyramid) Select(t0, t1 float64) View {
	base := p.layers[0]
	if base.SampleRate <= 0 {
		return View{}
	}
	if t1 < t0 {
		t0, t1 = t1, t0
	}

	start := clampFrame(t0, base)
	end := clampFrame(t1, base)
	span := end - start

	i := len(p.layers) - 1
	for i > 0 && span*p.layers[i].SampleRate/base.SampleRate < p.threshold {
		i--
	}

	layer := p.layers[i]
	from := min(start*layer.SampleRate/base.SampleRate, layer.Len())
	to := min(from+span*layer.SampleRate/base.SampleRate, layer.Len())
	return View{Layer: i, X: layer.X[from:to], Y: layer.Y[from:to]}
}

func clampFrame(t float64, base Layer) int {
	f := t * float64(base.SampleRate)
	switch {
	case math.IsNaN(f) || f <= 0:
		return 0
	case f >= float64(base.Len()):
		return base.Len()
	default:
		return int(f)
	}
}
