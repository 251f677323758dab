// SPDX-License-Identifier: EPL-2.0

package spectral

import (
	"context"
	"math"
	"math/cmplx"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/hpaslt/audio"
	"github.com/ik5/hpaslt/internal/audiotest"
)

var implementations = []FFT{GonumFFT{}, DSPFFT{}}

func toneSnapshot(t *testing.T, rate, channels, frames int, tones ...audiotest.Tone) *audio.Snapshot {
	t.Helper()

	snap, err := audio.NewSnapshot(audiotest.ToneChannels(rate, channels, frames, tones...), rate)
	require.NoError(t, err)
	return snap
}

func TestGenerate_Dimensions(t *testing.T) {
	t.Parallel()

	snap := toneSnapshot(t, 44100, 2, 10_000, audiotest.Tone{Freq: 440, Magnitude: 1})

	for _, impl := range implementations {
		t.Run(impl.Name(), func(t *testing.T) {
			t.Parallel()

			grid, err := Generate(context.Background(), impl, snap, 1024)
			require.NoError(t, err)

			assert.Equal(t, 1024, grid.Nfft())
			assert.Equal(t, 9, grid.FrameCount(), "tail samples are dropped")
			assert.Equal(t, 2, grid.Channels())
			assert.Equal(t, 44100, grid.SampleRate())
			assert.InDelta(t, 44100.0/1024, grid.SpectrogramSampleRate(), 1e-9)
			assert.InDelta(t, 44100.0/1024, grid.FrequencyResolution(), 1e-9)
			assert.InDelta(t, 1.0/44100, grid.SamplePeriod(), 1e-12)
			assert.InDelta(t, 3*44100.0/1024, grid.BinFrequency(3), 1e-9)
			assert.InDelta(t, 2048.0/44100, grid.FrameTime(2), 1e-12)
			assert.Len(t, grid.Frame(1, 8), 1024)
		})
	}
}

func TestGenerate_PeakRecovery(t *testing.T) {
	t.Parallel()

	const (
		rate = 44100
		nfft = 512
	)
	want := []float64{512, 1024, 2048}
	snap := toneSnapshot(t, rate, 2, rate,
		audiotest.Tone{Freq: want[0], Magnitude: 1.0 / 3},
		audiotest.Tone{Freq: want[1], Magnitude: 1.0 / 3},
		audiotest.Tone{Freq: want[2], Magnitude: 1.0 / 3},
	)

	for _, impl := range implementations {
		t.Run(impl.Name(), func(t *testing.T) {
			t.Parallel()

			grid, err := Generate(context.Background(), impl, snap, nfft)
			require.NoError(t, err)
			require.Equal(t, rate/nfft, grid.FrameCount())

			mid := grid.FrameCount() / 2
			for c := range grid.Channels() {
				peaks := grid.PeakBins(c, mid, 3)
				require.Len(t, peaks, 3)
				assert.ElementsMatch(t, []int{6, 12, 24}, peaks, "channel %d", c)

				matched := map[float64]bool{}
				for _, k := range peaks {
					f := grid.BinFrequency(k)
					for _, w := range want {
						if math.Abs(f-w) <= grid.FrequencyResolution() {
							matched[w] = true
						}
					}
				}
				assert.Len(t, matched, 3, "channel %d", c)
			}
		})
	}
}

func TestGenerate_DCBin(t *testing.T) {
	t.Parallel()

	snap, err := audio.NewSnapshot([][]float32{{0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5}}, 8000)
	require.NoError(t, err)

	for _, impl := range implementations {
		grid, err := Generate(context.Background(), impl, snap, 4)
		require.NoError(t, err)
		require.Equal(t, 2, grid.FrameCount())

		frame := grid.Frame(0, 1)
		assert.InDelta(t, 2.0, real(frame[0]), 1e-6, impl.Name())
		for _, v := range frame[1:] {
			assert.InDelta(t, 0, cmplx.Abs(complex128(v)), 1e-6, impl.Name())
		}
		assert.InDeltaSlice(t, []float64{2, 0}, grid.Magnitudes(0, 0, nil), 1e-6)
	}
}

func TestGenerate_ImplementationsAgree(t *testing.T) {
	t.Parallel()

	snap := toneSnapshot(t, 22050, 1, 4096,
		audiotest.Tone{Freq: 300, Magnitude: 0.4},
		audiotest.Tone{Freq: 5000, Magnitude: 0.2},
	)

	a, err := Generate(context.Background(), GonumFFT{}, snap, 256)
	require.NoError(t, err)
	b, err := Generate(context.Background(), DSPFFT{}, snap, 256)
	require.NoError(t, err)

	for f := range a.FrameCount() {
		fa, fb := a.Frame(0, f), b.Frame(0, f)
		for k := range fa {
			require.InDelta(t, real(fa[k]), real(fb[k]), 1e-3, "frame %d bin %d", f, k)
			require.InDelta(t, imag(fa[k]), imag(fb[k]), 1e-3, "frame %d bin %d", f, k)
		}
	}
}

func TestGenerate_InvalidNfft(t *testing.T) {
	t.Parallel()

	snap := toneSnapshot(t, 8000, 1, 100)

	for _, nfft := range []int{0, -512, 3, 100, 513} {
		grid, err := Generate(context.Background(), GonumFFT{}, snap, nfft)
		assert.Nil(t, grid)

		var ce *ConfigError
		require.ErrorAs(t, err, &ce, "nfft %d", nfft)
		assert.Equal(t, nfft, ce.Nfft)
		assert.ErrorIs(t, err, ErrInvalidNfft)
	}
}

func TestGenerate_ShortInput(t *testing.T) {
	t.Parallel()

	grid, err := Generate(context.Background(), GonumFFT{}, toneSnapshot(t, 8000, 2, 100), 512)
	require.NoError(t, err)
	assert.Zero(t, grid.FrameCount())
	assert.Equal(t, 2, grid.Channels())

	_, err = Generate(context.Background(), GonumFFT{}, nil, 512)
	assert.ErrorIs(t, err, ErrNoSamples)
}

func TestGenerate_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Generate(ctx, GonumFFT{}, toneSnapshot(t, 8000, 1, 8000), 64)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzer_RetainsLastGrid(t *testing.T) {
	t.Parallel()

	log, hook := test.NewNullLogger()
	a := NewAnalyzer(nil, log)
	assert.Equal(t, "gonum", a.FFT().Name())
	assert.Nil(t, a.Spectrogram())

	snap := toneSnapshot(t, 8000, 1, 8000)
	first, err := a.Generate(context.Background(), snap, 256)
	require.NoError(t, err)
	assert.Same(t, first, a.Spectrogram())

	_, err = a.Generate(context.Background(), snap, 300)
	require.Error(t, err)
	assert.Same(t, first, a.Spectrogram(), "failed call keeps previous grid")
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "Generate", hook.LastEntry().Data["function"])

	second, err := a.Generate(context.Background(), snap, 512)
	require.NoError(t, err)
	assert.Same(t, second, a.Spectrogram())
	assert.Equal(t, 15, second.FrameCount())

	a.Reset()
	assert.Nil(t, a.Spectrogram())
}

func TestNewFFT(t *testing.T) {
	t.Parallel()

	for name, want := range map[string]string{"": "gonum", "gonum": "gonum", "DSP": "dsp", "go-dsp": "dsp"} {
		impl, err := NewFFT(name)
		require.NoError(t, err)
		assert.Equal(t, want, impl.Name())
	}

	_, err := NewFFT("fftw")
	assert.ErrorIs(t, err, ErrUnknownFFT)

	_, err = DSPFFT{}.Plan(12)
	assert.ErrorIs(t, err, ErrInvalidNfft)
}

func TestIsPowerOfTwo(t *testing.T) {
	t.Parallel()

	for _, n := range []int{1, 2, 4, 512, 1 << 20} {
		assert.True(t, IsPowerOfTwo(n), n)
	}
	for _, n := range []int{0, -2, 3, 6, 1000} {
		assert.False(t, IsPowerOfTwo(n), n)
	}
}

func BenchmarkGenerate(b *testing.B) {
	snap, _ := audio.NewSnapshot(audiotest.ToneChannels(44100, 2, 44100*10, audiotest.Tone{Freq: 440, Magnitude: 1}), 44100)

	for _, impl := range implementations {
		b.Run(impl.Name(), func(b *testing.B) {
			for b.Loop() {
				if _, err := Generate(context.Background(), impl, snap, 1024); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
