// SPDX-License-Identifier: EPL-2.0

// Package wav reads and writes integer PCM WAV files through
// github.com/go-audio/wav.
//
// # Decoding
//
// Decoder accepts 16, 24 and 32-bit integer PCM with any channel count and
// sample rate. The returned source reports its length, so audio.ReadAll
// allocates the channel slices once:
//
//	f, _ := os.Open("audio.wav")
//	src, err := wav.Decoder{}.Decode(f)
//
// Inputs that are not an io.ReadSeeker are read into memory first.
//
// # Encoding
//
// Encode and WriteFile export an audio.Snapshot, which is how the current
// buffer is saved after signal generation:
//
//	err := wav.WriteFile("out.wav", buf.Snapshot(), 16)
//
// # Errors
//
//   - ErrNotWavFile: the input has no RIFF/WAVE header
//   - ErrUnsupportedEncoding: the format tag is not integer PCM
//   - ErrUnsupportedBitDepth: the sample size is not 16, 24 or 32 bits
//   - ErrNoPCMData: no data chunk was found
package wav
