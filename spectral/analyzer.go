// SPDX-License-Identifier: EPL-2.0

package spectral

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ik5/hpaslt/audio"
)

// Generate computes the spectrogram of snap with frames of nfft samples.
// Channels are transformed concurrently, each with its own Plan.
func Generate(ctx context.Context, impl FFT, snap *audio.Snapshot, nfft int) (*Grid, error) {
	if err := checkNfft(nfft); err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, ErrNoSamples
	}

	grid := newGrid(snap.Channels(), snap.SampleCount()/nfft, nfft, snap.SampleRate())

	g, ctx := errgroup.WithContext(ctx)
	for c := range snap.Channels() {
		g.Go(func() error {
			plan, err := impl.Plan(nfft)
			if err != nil {
				return err
			}
			return transformChannel(ctx, plan, snap.Channel(c), grid.bins[c], grid.frames)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return grid, nil
}

func transformChannel(ctx context.Context, plan Plan, samples []float32, out []complex64, frames int) error {
	nfft := plan.Len()
	src := make([]complex128, nfft)
	dst := make([]complex128, nfft)

	for f := range frames {
		if f%64 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		for i, v := range samples[f*nfft : (f+1)*nfft] {
			src[i] = complex(float64(v), 0)
		}
		plan.Forward(dst, src)
		bins := out[f*nfft : (f+1)*nfft]
		for k, v := range dst {
			bins[k] = complex64(v)
		}
	}
	return nil
}

// Analyzer generates spectrograms and keeps the latest one.
type Analyzer struct {
	fft FFT
	log logrus.FieldLogger

	mu   sync.Mutex
	last *Grid
}

// NewAnalyzer returns an Analyzer using impl, or GonumFFT when impl is nil.
func NewAnalyzer(impl FFT, log logrus.FieldLogger) *Analyzer {
	if impl == nil {
		impl = GonumFFT{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Analyzer{fft: impl, log: log}
}

// FFT returns the transform implementation in use.
func (a *Analyzer) FFT() FFT { return a.fft }

// Generate computes the spectrogram of snap and replaces the retained one.
// On error the retained spectrogram is kept.
func (a *Analyzer) Generate(ctx context.Context, snap *audio.Snapshot, nfft int) (*Grid, error) {
	log := a.log.WithFields(logrus.Fields{
		"function": "Generate",
		"nfft":     nfft,
		"fft":      a.fft.Name(),
	})

	grid, err := Generate(ctx, a.fft, snap, nfft)
	if err != nil {
		log.WithError(err).Error("Failed to generate spectrogram")
		return nil, err
	}

	a.mu.Lock()
	a.last = grid
	a.mu.Unlock()

	log.WithFields(logrus.Fields{
		"channels": grid.Channels(),
		"frames":   grid.FrameCount(),
	}).Debug("Spectrogram generated")
	return grid, nil
}

// Spectrogram returns the last generated grid, or nil.
func (a *Analyzer) Spectrogram() *Grid {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.last
}

// Reset drops the retained spectrogram.
func (a *Analyzer) Reset() {
	a.mu.Lock()
	a.last = nil
	a.mu.Unlock()
}
