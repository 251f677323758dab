// SPDX-License-Identifier: EPL-2.0

// Package playback drives an output device from an audio.Buffer.
//
// An Engine is bound to one Buffer at a time. Binding opens a Stream on the
// configured Backend with the buffer's channel count and sample rate; the
// device then pulls periods through Engine.Render:
//
//	eng := playback.NewEngine(backend, playback.WithLogger(log))
//	eng.TimeChanged().Subscribe(func(ev playback.TimeEvent) { ... })
//	if err := eng.Bind(buf); err != nil {
//	    var se *playback.StreamError
//	    errors.As(err, &se)
//	}
//	_ = eng.Play()
//
// # Real-time thread
//
// Render runs on the device thread. It copies frames from the buffer and
// never locks, allocates, logs or emits events. Time updates and completion
// are posted as notices and delivered to subscribers by Dispatch (or Run),
// which the UI calls from its own goroutine. Events caused directly by a
// user action, such as Play or Pause, are emitted synchronously by that
// call.
//
// # Backends
//
// Three backends are provided:
//
//   - "oto": ebitengine/oto. One process-wide context; the engine's
//     format is adapted to it with audio.ChannelMixer and audio.Resampler.
//   - "malgo": miniaudio through gen2brain/malgo. One device per stream
//     with device selection.
//   - "null": no device. Streams render on a clock, or on demand with
//     NullStream.Pump in tests.
package playback
