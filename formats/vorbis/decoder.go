// SPDX-License-Identifier: EPL-2.0

package vorbis

import (
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"

	"github.com/ik5/hpaslt/audio"
)

// oggReader is an interface for oggvorbis.Reader to allow testing
type oggReader interface {
	SampleRate() int
	Channels() int
	Length() int64
	Read([]float32) (int, error)
}

type source struct {
	dec        oggReader
	sampleRate int
	channels   int
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return s.channels }
func (s *source) Close() error    { return nil }
func (s *source) BufSize() int    { return 4096 - 4096%max(s.channels, 1) }

// Frames is the stream length when the input was seekable, otherwise -1.
func (s *source) Frames() int {
	if n := s.dec.Length(); n > 0 {
		return int(n)
	}
	return -1
}

func (s *source) ReadSamples(dst []float32) (int, error) {
	// The decoder only hands out whole frames.
	usable := len(dst) - len(dst)%s.channels
	if usable == 0 {
		return 0, nil
	}

	// Read returns the number of values written, always a multiple of
	// the channel count.
	n, err := s.dec.Read(dst[:usable])
	if n == 0 && err == nil {
		return 0, io.EOF
	}
	return n, err
}

// Decoder reads Ogg Vorbis streams through jfreymuth/oggvorbis.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	return &source{
		dec:        dec,
		sampleRate: dec.SampleRate(),
		channels:   dec.Channels(),
	}, nil
}
