// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// readChunk is the number of samples ReadAll requests per call when the
// source has no preference.
const readChunk = 8192

// ReadAll drains src and de-interleaves it into one slice per channel.
// A trailing partial frame is dropped. ctx is checked between reads.
func ReadAll(ctx context.Context, src Source) ([][]float32, error) {
	channels := src.Channels()
	if channels <= 0 {
		return nil, ErrNoChannels
	}

	size := src.BufSize()
	if size <= 0 {
		size = readChunk
	}
	// Keep reads frame-aligned.
	size = max(size-size%channels, channels)
	buf := make([]float32, size)

	out := make([][]float32, channels)
	if s, ok := src.(Sized); ok && s.Frames() > 0 {
		for c := range out {
			out[c] = make([]float32, 0, s.Frames())
		}
	}

	// pos counts samples across reads so partial frames returned by a
	// decoder keep their channel assignment.
	pos := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, err := src.ReadSamples(buf)
		for _, v := range buf[:n] {
			c := pos % channels
			out[c] = append(out[c], v)
			pos++
		}

		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read samples: %w", err)
		}
		if n == 0 {
			// (0, nil) is treated as end of stream.
			break
		}
	}

	frames := pos / channels
	for c := range out {
		out[c] = out[c][:frames]
	}
	return out, nil
}

// DecodeFile decodes the file at path with the decoder registered for its
// extension. Every failure is reported as a *LoadError.
func DecodeFile(ctx context.Context, path string, reg *Registry) (*Snapshot, error) {
	if path == "" {
		return nil, &LoadError{Path: path, Err: ErrEmptyPath}
	}

	dec, ok := reg.ForPath(path)
	if !ok {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	defer f.Close()

	src, err := dec.Decode(f)
	if err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("decode: %w", err)}
	}
	defer src.Close()

	// Reject wide layouts before spending time decoding the body.
	if src.Channels() > MaxChannels {
		return nil, &LoadError{Path: path, Err: ErrTooManyChannels}
	}

	channels, err := ReadAll(ctx, src)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	snap, err := NewSnapshot(channels, src.SampleRate())
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return snap, nil
}

// Load decodes path and swaps the result in. On failure the buffer,
// including its cursor, is unchanged.
func (b *Buffer) Load(path string, reg *Registry) error {
	snap, err := DecodeFile(context.Background(), path, reg)
	if err != nil {
		return err
	}
	b.Swap(snap)
	return nil
}
