// SPDX-License-Identifier: EPL-2.0

package flac

import (
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"

	"github.com/ik5/hpaslt/audio"
	"github.com/ik5/hpaslt/utils"
)

// ErrUnsupportedBitDepth indicates a sample size outside 4 to 32 bits.
var ErrUnsupportedBitDepth = errors.New("unsupported FLAC bit depth")

// frameParser is the part of flac.Stream a source reads from.
type frameParser interface {
	ParseNext() (*frame.Frame, error)
	Close() error
}

// source interleaves the subframes of each decoded FLAC frame.
type source struct {
	stream     frameParser
	sampleRate int
	channels   int
	bitDepth   int
	frames     int

	// pending holds the current frame; pos is the next frame index in it.
	pending *frame.Frame
	pos     int
	done    bool
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return s.channels }
func (s *source) BufSize() int    { return 4096 * s.channels }
func (s *source) Frames() int     { return s.frames }

func (s *source) Close() error {
	if err := s.stream.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

func (s *source) ReadSamples(dst []float32) (int, error) {
	written := 0
	for written+s.channels <= len(dst) {
		if s.pending == nil || s.pos >= int(s.pending.BlockSize) {
			if s.done {
				break
			}
			f, err := s.stream.ParseNext()
			if errors.Is(err, io.EOF) {
				s.done = true
				break
			}
			if err != nil {
				return written, fmt.Errorf("parse flac frame: %w", err)
			}
			s.pending, s.pos = f, 0
			continue
		}

		for c := range s.channels {
			dst[written+c] = utils.PCMToFloat(int(s.pending.Subframes[c].Samples[s.pos]), s.bitDepth)
		}
		s.pos++
		written += s.channels
	}

	if written == 0 && s.done {
		return 0, io.EOF
	}
	return written, nil
}

// Decoder reads FLAC streams through mewkiz/flac.
type Decoder struct{}

func (Decoder) Decode(r io.Reader) (audio.Source, error) {
	stream, err := flac.New(r)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	info := stream.Info
	bitDepth := int(info.BitsPerSample)
	if bitDepth < 4 || bitDepth > 32 {
		_ = stream.Close()
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)
	}

	frames := -1
	if info.NSamples > 0 {
		frames = int(info.NSamples)
	}

	return &source{
		stream:     stream,
		sampleRate: int(info.SampleRate),
		channels:   int(info.NChannels),
		bitDepth:   bitDepth,
		frames:     frames,
	}, nil
}
