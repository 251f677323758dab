// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Source is a pull-based stream of interleaved float32 samples.
type Source interface {
	// SampleRate of the PCM stream in Hz.
	SampleRate() int
	// Channels count (e.g., 1=mono, 2=stereo).
	Channels() int
	// ReadSamples fills dst with interleaved float32 samples in [-1,1].
	// Returns number of float32 values written (not frames). When n == 0 with err == io.EOF, the stream is finished.
	ReadSamples(dst []float32) (n int, err error)

	// BufSize is the preferred read size in samples.
	BufSize() int

	// Close releases any resources.
	Close() error
}

// Sized is implemented by sources that know their length up front, so
// ReadAll can allocate the channel slices once.
type Sized interface {
	// Frames returns the number of frames in the stream, or -1 if unknown.
	Frames() int
}

// Decoder constructs a Source from an input reader.
type Decoder interface {
	Decode(r io.Reader) (Source, error)
}

// Registry maps format keys (e.g. "wav", "mp3", "ogg") to decoders.
// File extensions are registered as aliases of a format.
type Registry struct {
	codecs  map[string]Decoder
	aliases map[string]string

	mtx *sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		codecs:  make(map[string]Decoder),
		aliases: make(map[string]string),
		mtx:     &sync.RWMutex{},
	}
}

// Register adds d under format and under every extension in exts
// (with or without the leading dot). Registering an existing format
// replaces it.
func (r *Registry) Register(format string, d Decoder, exts ...string) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	format = strings.ToLower(format)
	r.codecs[format] = d
	r.aliases[format] = format
	for _, ext := range exts {
		r.aliases[normalizeExt(ext)] = format
	}
}

func (r *Registry) Get(format string) (Decoder, bool) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	name, ok := r.aliases[normalizeExt(format)]
	if !ok {
		return nil, false
	}
	d, ok := r.codecs[name]
	return d, ok
}

// ForPath resolves a decoder from the file extension of path.
func (r *Registry) ForPath(path string) (Decoder, bool) {
	ext := filepath.Ext(path)
	if ext == "" {
		return nil, false
	}
	return r.Get(ext)
}

// Formats lists the registered format keys in sorted order.
func (r *Registry) Formats() []string {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	out := make([]string, 0, len(r.codecs))
	for k := range r.codecs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
