// SPDX-License-Identifier: EPL-2.0

package playback

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// RenderStatus tells a stream whether to keep pulling periods.
type RenderStatus int

const (
	// Continue asks for the next period.
	Continue RenderStatus = iota
	// Complete ends the stream; the period that returned it is silence.
	Complete
)

func (s RenderStatus) String() string {
	if s == Complete {
		return "complete"
	}
	return "continue"
}

// RenderFunc fills out with interleaved float32 samples. It is called on
// the device thread.
type RenderFunc func(out []float32) RenderStatus

// StreamConfig is the format of an output stream.
type StreamConfig struct {
	Channels        int
	SampleRate      int
	FramesPerBuffer int
	// Device is a Device.ID; empty selects the default output.
	Device string
}

func (c StreamConfig) validate() error {
	if c.Channels <= 0 || c.SampleRate <= 0 || c.FramesPerBuffer <= 0 {
		return fmt.Errorf("%w: %d channels, %d Hz, %d frames per buffer",
			ErrInvalidConfig, c.Channels, c.SampleRate, c.FramesPerBuffer)
	}
	return nil
}

// Device describes an output device.
type Device struct {
	ID      string
	Name    string
	Default bool
}

// Backend opens output streams on an audio API.
type Backend interface {
	Name() string
	Devices() ([]Device, error)
	Open(cfg StreamConfig, render RenderFunc) (Stream, error)
	Close() error
}

// Stream is an open output stream. Start after a completed render restarts
// pulling from the render function.
type Stream interface {
	Start() error
	Stop() error
	Close() error
}

// Backends lists the names accepted by NewBackend.
func Backends() []string { return []string{"oto", "malgo", "null"} }

// NewBackend returns the backend registered under name.
func NewBackend(name string, log logrus.FieldLogger) (Backend, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	switch strings.ToLower(name) {
	case "oto", "":
		return NewOtoBackend(log), nil
	case "malgo", "miniaudio":
		return NewMalgoBackend(log)
	case "null":
		return NewNullBackend(WithRealtime()), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
}

func findDevice(devices []Device, id string) (Device, bool) {
	for _, d := range devices {
		if id == "" && d.Default {
			return d, true
		}
		if id != "" && (d.ID == id || d.Name == id) {
			return d, true
		}
	}
	if id == "" && len(devices) > 0 {
		return devices[0], true
	}
	return Device{}, false
}
