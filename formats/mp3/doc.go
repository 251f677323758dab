// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MP3 files through github.com/hajimehoshi/go-mp3.
//
// The decoder always yields two interleaved channels at the stream's own
// sample rate; mono files are duplicated by go-mp3. When the input is an
// io.Seeker the source also reports its length in frames:
//
//	f, _ := os.Open("audio.mp3")
//	src, err := mp3.Decoder{}.Decode(f)
//
// Samples are float32 values in [-1.0, 1.0].
package mp3
