// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis files through
// github.com/jfreymuth/oggvorbis.
//
// Vorbis decodes straight to float32, so samples are passed through
// without conversion. Channel count and sample rate come from the
// identification header:
//
//	f, _ := os.Open("audio.ogg")
//	src, err := vorbis.Decoder{}.Decode(f)
package vorbis
