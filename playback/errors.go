// SPDX-License-Identifier: EPL-2.0

package playback

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDevice indicates that the backend has no output device.
	ErrNoDevice = errors.New("no output device available")

	// ErrNotBound indicates an operation that needs a buffer before Bind.
	ErrNotBound = errors.New("no buffer bound")

	// ErrStreamClosed is returned when starting a closed stream.
	ErrStreamClosed = errors.New("stream closed")

	// ErrUnknownBackend is returned by NewBackend for an unknown name.
	ErrUnknownBackend = errors.New("unknown playback backend")

	// ErrInvalidConfig indicates a StreamConfig with no channels or rate.
	ErrInvalidConfig = errors.New("invalid stream configuration")
)

// StreamError reports a failure of the output stream. Op is one of
// "open", "start", "stop" or "close".
type StreamError struct {
	Op  string
	Err error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("playback: %s stream: %v", e.Op, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }
