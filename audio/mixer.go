// SPDX-License-Identifier: EPL-2.0

package audio

import "fmt"

// ChannelMixer adapts a source to a different channel count: many to
// mono by averaging, mono to many by duplication. Any other combination
// maps channel c of the output to channel c%in of the input.
type ChannelMixer struct {
	src Source
	out int
	tmp []float32
}

func NewChannelMixer(src Source, channels int) *ChannelMixer {
	return &ChannelMixer{
		src: src,
		out: max(channels, 1),
		tmp: make([]float32, 4096),
	}
}

func (m *ChannelMixer) SampleRate() int { return m.src.SampleRate() }
func (m *ChannelMixer) Channels() int   { return m.out }
func (m *ChannelMixer) BufSize() int    { return m.src.BufSize() }
func (m *ChannelMixer) Close() error {
	if err := m.src.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

func (m *ChannelMixer) ReadSamples(dst []float32) (int, error) {
	in := m.src.Channels()
	if in == m.out {
		return m.src.ReadSamples(dst)
	}
	if len(dst)%m.out != 0 {
		return 0, ErrInvalidDstSize
	}

	frames := len(dst) / m.out
	need := frames * in
	if cap(m.tmp) < need {
		m.tmp = make([]float32, need)
	}
	tmp := m.tmp[:need]

	n, err := m.src.ReadSamples(tmp)
	got := n / in

	switch {
	case m.out == 1:
		inv := 1 / float32(in)
		for f := range got {
			sum := float32(0)
			for _, v := range tmp[f*in : f*in+in] {
				sum += v
			}
			dst[f] = sum * inv
		}
	case in == 1:
		for f := range got {
			for c := range m.out {
				dst[f*m.out+c] = tmp[f]
			}
		}
	default:
		for f := range got {
			for c := range m.out {
				dst[f*m.out+c] = tmp[f*in+c%in]
			}
		}
	}

	return got * m.out, err
}
