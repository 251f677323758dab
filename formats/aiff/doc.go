// SPDX-License-Identifier: EPL-2.0

// Package aiff decodes AIFF and AIFF-C files through
// github.com/go-audio/aiff.
//
// Samples of 8, 16, 24 and 32 bits are converted from big-endian integer
// PCM to float32 in [-1.0, 1.0]:
//
//	f, _ := os.Open("input.aiff")
//	src, err := aiff.Decoder{}.Decode(f)
//	if errors.Is(err, aiff.ErrNotAiffFile) {
//	    // not an AIFF file
//	}
//
// Inputs that are not an io.ReadSeeker are read into memory first.
package aiff
