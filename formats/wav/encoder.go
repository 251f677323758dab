// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/ik5/hpaslt/audio"
	"github.com/ik5/hpaslt/utils"
)

// encodeChunk is the number of frames converted per encoder write.
const encodeChunk = 8192

// Encode writes snap to w as an integer PCM WAV of the given bit depth.
func Encode(w io.WriteSeeker, snap *audio.Snapshot, bitDepth int) error {
	switch bitDepth {
	case 16, 24, 32:
	default:
		return fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)
	}

	channels := snap.Channels()
	enc := wav.NewEncoder(w, snap.SampleRate(), bitDepth, channels, formatPCM)

	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: snap.SampleRate()},
		Data:           make([]int, 0, encodeChunk*channels),
		SourceBitDepth: bitDepth,
	}

	total := snap.SampleCount()
	for start := 0; start < total; start += encodeChunk {
		end := min(start+encodeChunk, total)
		buf.Data = buf.Data[:0]
		for i := start; i < end; i++ {
			for c := range channels {
				buf.Data = append(buf.Data, utils.FloatToPCM(snap.Channel(c)[i], bitDepth))
			}
		}
		if err := enc.Write(buf); err != nil {
			return fmt.Errorf("write wav samples: %w", err)
		}
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}

// WriteFile encodes snap into a new file at path.
func WriteFile(path string, snap *audio.Snapshot, bitDepth int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w", err)
	}

	if err := Encode(f, snap, bitDepth); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
