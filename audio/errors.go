// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"fmt"
)

// MaxChannels is the widest channel layout a Buffer accepts.
const MaxChannels = 2

var (
	ErrInvalidDstSize        = errors.New("dst size must be multiple of channels")
	ErrEmptyPath             = errors.New("empty file path")
	ErrUnsupportedFormat     = errors.New("unsupported audio format")
	ErrNoChannels            = errors.New("audio has no channels")
	ErrTooManyChannels       = fmt.Errorf("audio has more than %d channels", MaxChannels)
	ErrChannelLengthMismatch = errors.New("channels differ in length")
	ErrInvalidSampleRate     = errors.New("sample rate must be positive")
	ErrNegativeLength        = errors.New("length must not be negative")
)

// LoadError reports a file that could not be decoded into a Buffer.
// The buffer it was meant for is left untouched.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %q: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
