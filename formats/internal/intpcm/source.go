// SPDX-License-Identifier: EPL-2.0

// Package intpcm adapts go-audio integer PCM decoders to audio.Source.
package intpcm

import (
	"io"

	goaudio "github.com/go-audio/audio"

	"github.com/ik5/hpaslt/utils"
)

// Reader is the part of the go-audio wav and aiff decoders a Source uses.
type Reader interface {
	Format() *goaudio.Format
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// Source converts integer PCM read from a go-audio decoder to float32.
type Source struct {
	dec        Reader
	sampleRate int
	channels   int
	bitDepth   int
	frames     int
	intBuf     *goaudio.IntBuffer
}

// New wraps dec. frames is the stream length in frames, or -1 if unknown.
func New(dec Reader, bitDepth, frames int) *Source {
	s := &Source{dec: dec, bitDepth: bitDepth, frames: frames}
	if f := dec.Format(); f != nil {
		s.sampleRate = f.SampleRate
		s.channels = f.NumChannels
	}
	return s
}

func (s *Source) SampleRate() int { return s.sampleRate }
func (s *Source) Channels() int   { return s.channels }
func (s *Source) BitDepth() int   { return s.bitDepth }
func (s *Source) Frames() int     { return s.frames }
func (s *Source) Close() error    { return nil }
func (s *Source) BufSize() int {
	if s.intBuf != nil {
		return cap(s.intBuf.Data)
	}
	return 4096
}

func (s *Source) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	if s.intBuf == nil || cap(s.intBuf.Data) < len(dst) {
		s.intBuf = &goaudio.IntBuffer{
			Data:           make([]int, len(dst)),
			Format:         s.dec.Format(),
			SourceBitDepth: s.bitDepth,
		}
	} else {
		s.intBuf.Data = s.intBuf.Data[:len(dst)]
	}

	n, err := s.dec.PCMBuffer(s.intBuf)
	if n == 0 {
		if err != nil {
			return 0, err
		}
		return 0, io.EOF
	}

	for i, v := range s.intBuf.Data[:n] {
		dst[i] = utils.PCMToFloat(v, s.bitDepth)
	}

	// A short read without an error means the decoder ran dry.
	if n < len(dst) && err == nil {
		return n, io.EOF
	}
	return n, err
}
