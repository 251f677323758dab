// SPDX-License-Identifier: EPL-2.0

// Package flac decodes FLAC files through github.com/mewkiz/flac.
//
// Each FLAC frame carries one subframe per channel; the source interleaves
// them and scales samples by the stream's bit depth to float32 in
// [-1.0, 1.0]. The total length comes from the STREAMINFO block, when the
// encoder recorded it.
//
//	f, _ := os.Open("audio.flac")
//	src, err := flac.Decoder{}.Decode(f)
package flac
