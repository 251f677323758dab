// SPDX-License-Identifier: EPL-2.0

// Package audio holds decoded audio and the primitives that move it around.
//
// # Buffer
//
// A Buffer owns the samples of the loaded file (one float32 slice per
// channel, at most MaxChannels) and the playback cursor. Samples are
// published as immutable Snapshots; writers build a new Snapshot and swap it
// in, so readers never observe a half-written buffer:
//
//	buf := audio.NewBuffer(2, 44100)
//	if err := buf.Load("song.wav", registry); err != nil {
//	    var le *audio.LoadError
//	    errors.As(err, &le) // buf is unchanged
//	}
//
// ReadFrames is the real-time read path used by playback. It copies
// interleaved frames from the cursor and advances it without locking or
// allocating. SetCursor and SetTime clamp to [0, SampleCount], so the
// cursor never points past the samples it belongs to.
//
// # Source interface
//
// Decoders produce a pull-based Source of interleaved samples:
//
//	type Source interface {
//	    SampleRate() int
//	    Channels() int
//	    ReadSamples(dst []float32) (int, error)
//	    BufSize() int
//	    Close() error
//	}
//
// ReadAll drains a Source into per-channel slices. DecodeFile combines a
// Registry lookup by file extension, the decoder and ReadAll.
//
// # Adapters
//
// Resampler changes the sample rate with Catmull-Rom interpolation and
// ChannelMixer changes the channel count. Playback backends use them to
// feed a device that cannot run at the buffer's own format.
//
// # Sample format
//
// Samples are float32 in [-1.0, 1.0]. Values outside that range are kept
// as-is in the Buffer; output stages clamp.
//
// # Errors
//
// ReadSamples returns io.EOF when no more data is available. Loading
// failures are reported as *LoadError, which unwraps to one of the sentinel
// errors of this package or to the underlying I/O or decoder error.
package audio
