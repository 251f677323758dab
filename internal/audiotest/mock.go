// SPDX-License-Identifier: EPL-2.0

// Package audiotest holds fixtures shared by the package tests: synthetic
// sources and tone generators that do not depend on any decoder.
package audiotest

import (
	"errors"
	"io"
	"math"
)

// ErrMockRead is returned by sources created with NewFailingSource.
var ErrMockRead = errors.New("mock read failure")

// Tone is one sinusoidal component of a synthetic signal.
type Tone struct {
	Freq      float64
	Magnitude float64
}

// ToneValue evaluates the sum of tones at sample index i, using the same
// formula as audio.SignalGenerator.
func ToneValue(i, sampleRate int, tones ...Tone) float64 {
	v := 0.0
	for _, t := range tones {
		v += math.Sin(2*math.Pi*float64(i)*t.Freq/float64(sampleRate)) * t.Magnitude
	}
	return v
}

// ToneChannels returns channels identical channels of frames samples of
// the summed tones.
func ToneChannels(sampleRate, channels, frames int, tones ...Tone) [][]float32 {
	ch := make([]float32, frames)
	for i := range ch {
		ch[i] = float32(ToneValue(i, sampleRate, tones...))
	}
	out := make([][]float32, channels)
	for c := range out {
		out[c] = append([]float32(nil), ch...)
	}
	return out
}

// MockSource is a test helper that generates audio data for testing.
// It implements the audio.Source interface (without importing it to avoid cycles).
type MockSource struct {
	sampleRate   int
	channels     int
	totalSamples int // Total samples to generate (per channel)
	generated    int // Samples generated so far (per channel)
	bufSize      int
	failAfter    int // frames before ReadSamples fails; -1 never
	closed       bool
	waveform     func(sample int, channel int) float32
}

// NewMockSource creates a new mock audio source.
// totalSamples is the total number of samples per channel to generate.
// waveform is a function that generates sample values given sample index and channel.
func NewMockSource(sampleRate, channels, totalSamples int, waveform func(sample int, channel int) float32) *MockSource {
	return &MockSource{
		sampleRate:   sampleRate,
		channels:     channels,
		totalSamples: totalSamples,
		bufSize:      4096,
		failAfter:    -1,
		waveform:     waveform,
	}
}

// NewSilentSource creates a mock source that generates silence (all zeros).
func NewSilentSource(sampleRate, channels, totalSamples int) *MockSource {
	return NewMockSource(sampleRate, channels, totalSamples, func(int, int) float32 {
		return 0.0
	})
}

// NewSineSource creates a mock source that generates a sine wave.
func NewSineSource(sampleRate, channels, totalSamples int, frequency float64) *MockSource {
	return NewMockSource(sampleRate, channels, totalSamples, func(sample int, _ int) float32 {
		return float32(ToneValue(sample, sampleRate, Tone{Freq: frequency, Magnitude: 1}))
	})
}

// NewConstantSource creates a mock source with constant value.
func NewConstantSource(sampleRate, channels, totalSamples int, value float32) *MockSource {
	return NewMockSource(sampleRate, channels, totalSamples, func(int, int) float32 {
		return value
	})
}

// NewRampSource emits sample index + channel*0.5 scaled by scale, which makes
// de-interleaving mistakes easy to spot.
func NewRampSource(sampleRate, channels, totalSamples int, scale float32) *MockSource {
	return NewMockSource(sampleRate, channels, totalSamples, func(sample int, channel int) float32 {
		return (float32(sample) + float32(channel)*0.5) * scale
	})
}

// NewFailingSource returns ErrMockRead once failAfter frames were produced.
func NewFailingSource(sampleRate, channels, failAfter int) *MockSource {
	m := NewSilentSource(sampleRate, channels, failAfter*2+1)
	m.failAfter = failAfter
	return m
}

// WithBufSize changes the preferred read size reported by BufSize.
func (m *MockSource) WithBufSize(n int) *MockSource {
	m.bufSize = n
	return m
}

func (m *MockSource) SampleRate() int { return m.sampleRate }
func (m *MockSource) Channels() int   { return m.channels }
func (m *MockSource) BufSize() int    { return m.bufSize }
func (m *MockSource) Frames() int     { return m.totalSamples }

func (m *MockSource) Close() error {
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MockSource) Closed() bool { return m.closed }

// Reset resets the generated sample counter to allow re-reading
func (m *MockSource) Reset() {
	m.generated = 0
}

func (m *MockSource) ReadSamples(dst []float32) (int, error) {
	if m.failAfter >= 0 && m.generated >= m.failAfter {
		return 0, ErrMockRead
	}
	if m.generated >= m.totalSamples {
		return 0, io.EOF
	}

	// Calculate how many frames we can write
	framesToWrite := min(len(dst)/m.channels, m.totalSamples-m.generated)
	if m.failAfter >= 0 {
		framesToWrite = min(framesToWrite, m.failAfter-m.generated)
	}

	for frame := range framesToWrite {
		sampleIndex := m.generated + frame
		for ch := range m.channels {
			dst[frame*m.channels+ch] = m.waveform(sampleIndex, ch)
		}
	}

	m.generated += framesToWrite
	samplesWritten := framesToWrite * m.channels

	if m.generated >= m.totalSamples {
		return samplesWritten, io.EOF
	}

	return samplesWritten, nil
}
