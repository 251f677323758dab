// SPDX-License-Identifier: EPL-2.0

package hpaslt

import (
	"errors"
	"fmt"

	"github.com/ik5/hpaslt/audio"
	"github.com/ik5/hpaslt/playback"
	"github.com/ik5/hpaslt/spectral"
	"github.com/ik5/hpaslt/waveform"
)

// DefaultWorkspace is the name of the workspace every App starts with.
const DefaultWorkspace = "default"

// ErrInvalidConfig is wrapped by Config.Validate failures.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds the settings of an App.
type Config struct {
	// Backend names the playback backend: "oto", "malgo" or "null".
	Backend string
	// Device selects an output device by ID or name; empty is the default.
	Device string
	// FramesPerBuffer is the period size of the output stream.
	FramesPerBuffer int

	// FFT names the transform implementation: "gonum" or "dsp".
	FFT string
	// Nfft is the spectrogram frame size. It must be a power of two.
	Nfft int

	// WaveformThreshold is the point count waveform views aim for.
	WaveformThreshold int

	// Workspace is the name of the initial workspace.
	Workspace string
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Backend:           "oto",
		FramesPerBuffer:   playback.DefaultFramesPerBuffer,
		FFT:               "gonum",
		Nfft:              512,
		WaveformThreshold: waveform.DefaultThreshold,
		Workspace:         DefaultWorkspace,
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.FramesPerBuffer <= 0:
		return fmt.Errorf("%w: frames per buffer %d", ErrInvalidConfig, c.FramesPerBuffer)
	case !spectral.IsPowerOfTwo(c.Nfft):
		return fmt.Errorf("%w: %w", ErrInvalidConfig, &spectral.ConfigError{Nfft: c.Nfft, Err: spectral.ErrInvalidNfft})
	case c.WaveformThreshold <= 0:
		return fmt.Errorf("%w: waveform threshold %d", ErrInvalidConfig, c.WaveformThreshold)
	case c.Workspace == "":
		return fmt.Errorf("%w: empty workspace name", ErrInvalidConfig)
	}
	return nil
}

// newBuffer is the empty buffer a workspace starts with.
func newBuffer() *audio.Buffer {
	return audio.NewBuffer(audio.MaxChannels, audio.DefaultSampleRate)
}
