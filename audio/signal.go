// SPDX-License-Identifier: EPL-2.0

package audio

import "math"

// SignalGenerator synthesizes test tones into a bound Buffer. Every
// operation publishes a new snapshot, so playback reading the previous
// samples is never disturbed.
type SignalGenerator struct {
	buf *Buffer
}

func NewSignalGenerator(b *Buffer) *SignalGenerator {
	return &SignalGenerator{buf: b}
}

// Bind switches the generator to another buffer.
func (g *SignalGenerator) Bind(b *Buffer) { g.buf = b }

// ChangeLength resizes the bound buffer to n frames per channel.
func (g *SignalGenerator) ChangeLength(n int) error {
	return g.buf.ChangeLength(n)
}

// GenerateSignal overwrites every channel with sin(2πi·freq/rate)·magnitude.
func (g *SignalGenerator) GenerateSignal(freq, magnitude float64) {
	g.apply(freq, magnitude, false)
}

// OverlaySignal adds sin(2πi·freq/rate)·magnitude to the existing samples.
func (g *SignalGenerator) OverlaySignal(freq, magnitude float64) {
	g.apply(freq, magnitude, true)
}

func (g *SignalGenerator) apply(freq, magnitude float64, add bool) {
	g.buf.update(func(cur *Snapshot) *Snapshot {
		tone := make([]float32, cur.frames)
		step := 2 * math.Pi * freq / float64(cur.sampleRate)
		for i := range tone {
			tone[i] = float32(math.Sin(step*float64(i)) * magnitude)
		}

		chans := make([][]float32, len(cur.channels))
		for c, old := range cur.channels {
			ch := make([]float32, cur.frames)
			if add {
				for i, v := range old {
					ch[i] = v + tone[i]
				}
			} else {
				copy(ch, tone)
			}
			chans[c] = ch
		}
		return &Snapshot{channels: chans, sampleRate: cur.sampleRate, frames: cur.frames}
	})
}
