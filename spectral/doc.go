// SPDX-License-Identifier: EPL-2.0

// Package spectral computes spectrograms of audio snapshots.
//
// A spectrogram splits each channel into non-overlapping frames of nfft
// samples and stores the forward DFT of every frame. No window function is
// applied and samples after the last full frame are dropped, so a signal of
// n frames yields n/nfft spectrogram frames:
//
//	a := spectral.NewAnalyzer(spectral.GonumFFT{}, log)
//	grid, err := a.Generate(ctx, buf.Snapshot(), 512)
//	for _, k := range grid.PeakBins(0, grid.FrameCount()/2, 3) {
//	    fmt.Println(grid.BinFrequency(k))
//	}
//
// The transform is provided by an FFT implementation. GonumFFT wraps
// gonum's dsp/fourier and DSPFFT wraps mjibson/go-dsp; both produce the
// same unnormalized coefficients.
package spectral
