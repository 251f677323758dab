// SPDX-License-Identifier: EPL-2.0

package spectral

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidNfft indicates a frame size that is not a positive power
	// of two.
	ErrInvalidNfft = errors.New("nfft must be a positive power of two")

	// ErrUnknownFFT is returned by NewFFT for an unknown name.
	ErrUnknownFFT = errors.New("unknown fft implementation")

	// ErrNoSamples indicates a Generate call without a snapshot.
	ErrNoSamples = errors.New("no samples to analyze")
)

// ConfigError reports an invalid analysis parameter.
type ConfigError struct {
	Nfft int
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("spectral: nfft %d: %v", e.Nfft, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IsPowerOfTwo reports whether n is a positive power of two.
func IsPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

func checkNfft(nfft int) error {
	if !IsPowerOfTwo(nfft) {
		return &ConfigError{Nfft: nfft, Err: ErrInvalidNfft}
	}
	return nil
}
