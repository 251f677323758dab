// SPDX-License-Identifier: EPL-2.0

// Package formats wires every bundled decoder into an audio.Registry.
package formats

import (
	"github.com/ik5/hpaslt/audio"
	"github.com/ik5/hpaslt/formats/aiff"
	"github.com/ik5/hpaslt/formats/flac"
	"github.com/ik5/hpaslt/formats/mp3"
	"github.com/ik5/hpaslt/formats/vorbis"
	"github.com/ik5/hpaslt/formats/wav"
)

// Register adds the bundled decoders and their file extensions to reg.
func Register(reg *audio.Registry) {
	reg.Register("wav", wav.Decoder{}, "wave")
	reg.Register("aiff", aiff.Decoder{}, "aif", "aifc")
	reg.Register("mp3", mp3.Decoder{})
	reg.Register("ogg", vorbis.Decoder{}, "oga", "vorbis")
	reg.Register("flac", flac.Decoder{})
}

// NewRegistry returns a registry holding every bundled decoder.
func NewRegistry() *audio.Registry {
	reg := audio.NewRegistry()
	Register(reg)
	return reg
}
