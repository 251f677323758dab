// SPDX-License-Identifier: EPL-2.0

// Package hpaslt is the core of an audio analysis and playback tool.
//
// An App ties the pieces together: named workspaces that each own an
// audio.Buffer, a loader that decodes files into the current workspace, a
// playback engine bound to the loaded buffer, and the analyzers that turn
// a buffer into waveform pyramids and spectrograms for display.
//
// # Quick Start
//
//	app, err := hpaslt.New(hpaslt.DefaultConfig(), hpaslt.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	defer app.Close()
//
//	app.Loader().Loaded().Subscribe(func(*audio.Buffer) { app.Play() })
//	app.LoadAudioFile("song.flac")
//
// The UI goroutine calls app.Engine().Dispatch regularly (or runs
// Engine().Run) to receive time and completion events from the audio
// thread.
//
// # Console Commands
//
// Operations are also reachable by name through Commands, which is what
// the console surface uses:
//
//	app.Commands().Execute("loadAudioCurr", "song.wav")
//	app.Commands().Execute("seek", "12.5")
//
// # Supported Formats
//
// WAV, AIFF, MP3, Ogg Vorbis and FLAC are decoded through the formats
// subpackages; see formats.Register. Buffers hold at most two channels.
//
// # Subpackages
//
//   - audio: buffers, sources and format adapters
//   - playback: the real-time engine and output backends
//   - loader: background decoding with cancel-and-replace
//   - spectral: FFT spectrograms
//   - waveform: level-of-detail waveform pyramids
//   - event: typed observer registries
package hpaslt
