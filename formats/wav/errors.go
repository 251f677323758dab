// SPDX-License-Identifier: EPL-2.0

package wav

import "errors"

var (
	// ErrNotWavFile indicates the input has no RIFF/WAVE header.
	ErrNotWavFile = errors.New("not a WAV file")

	// ErrUnsupportedEncoding indicates a WAV that does not hold integer PCM.
	ErrUnsupportedEncoding = errors.New("only integer PCM WAV is supported")

	// ErrUnsupportedBitDepth indicates a sample size other than 16, 24 or 32 bits.
	ErrUnsupportedBitDepth = errors.New("unsupported WAV bit depth")

	// ErrNoPCMData indicates a WAV without a data chunk.
	ErrNoPCMData = errors.New("WAV has no PCM data")
)
