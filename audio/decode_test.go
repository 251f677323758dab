// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/hpaslt/internal/audiotest"
)

func TestReadAll_Deinterleaves(t *testing.T) {
	t.Parallel()

	// A read size of 7 samples is not frame aligned for stereo.
	src := audiotest.NewRampSource(8000, 2, 1000, 0.001).WithBufSize(7)

	chans, err := ReadAll(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, chans, 2)
	require.Len(t, chans[0], 1000)
	require.Len(t, chans[1], 1000)

	for i := range 1000 {
		assert.InDelta(t, float32(i)*0.001, chans[0][i], 1e-6)
		assert.InDelta(t, (float32(i)+0.5)*0.001, chans[1][i], 1e-6)
	}
}

func TestReadAll_SourceError(t *testing.T) {
	t.Parallel()

	_, err := ReadAll(context.Background(), audiotest.NewFailingSource(8000, 1, 10))
	assert.ErrorIs(t, err, audiotest.ErrMockRead)
}

func TestReadAll_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReadAll(ctx, audiotest.NewSilentSource(8000, 1, 100_000))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadAll_NoChannels(t *testing.T) {
	t.Parallel()

	_, err := ReadAll(context.Background(), audiotest.NewSilentSource(8000, 0, 10))
	assert.ErrorIs(t, err, ErrNoChannels)
}

func writeTemp(t *testing.T, name string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("stub"), 0o600))
	return path
}

func TestDecodeFile(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register("stub", &stubDecoder{src: audiotest.NewSineSource(22050, 2, 2205, 440)})
	reg.Register("wide", &stubDecoder{src: audiotest.NewSilentSource(48000, 6, 10)})
	reg.Register("broken", &stubDecoder{src: audiotest.NewFailingSource(48000, 1, 5)})

	t.Run("ok", func(t *testing.T) {
		snap, err := DecodeFile(context.Background(), writeTemp(t, "a.stub"), reg)
		require.NoError(t, err)
		assert.Equal(t, 2, snap.Channels())
		assert.Equal(t, 22050, snap.SampleRate())
		assert.Equal(t, 2205, snap.SampleCount())
		assert.InDelta(t, 0.1, snap.Length(), 1e-9)
	})

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{name: "empty path", path: "", wantErr: ErrEmptyPath},
		{name: "unknown extension", path: writeTemp(t, "a.xyz"), wantErr: ErrUnsupportedFormat},
		{name: "missing file", path: filepath.Join(t.TempDir(), "missing.stub"), wantErr: fs.ErrNotExist},
		{name: "too many channels", path: writeTemp(t, "a.wide"), wantErr: ErrTooManyChannels},
		{name: "read failure", path: writeTemp(t, "a.broken"), wantErr: audiotest.ErrMockRead},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := DecodeFile(context.Background(), tt.path, reg)
			assert.Nil(t, snap)

			var le *LoadError
			require.ErrorAs(t, err, &le)
			assert.Equal(t, tt.path, le.Path)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestBuffer_LoadFailureLeavesBufferUnchanged(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	b := NewBuffer(1, 1000)
	require.NoError(t, b.Replace([][]float32{make([]float32, 1000)}, 1000))
	b.SetCursor(123)
	before := b.Snapshot()

	err := b.Load(filepath.Join(t.TempDir(), "does-not-exist.wav"), reg)
	var le *LoadError
	require.ErrorAs(t, err, &le)

	assert.Same(t, before, b.Snapshot())
	assert.Equal(t, 123, b.Cursor())
}

func TestBuffer_Load(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register("stub", &stubDecoder{src: audiotest.NewConstantSource(16000, 1, 1600, 0.25)})

	b := NewBuffer(2, 44100)
	b.SetCursor(10)
	require.NoError(t, b.Load(writeTemp(t, "tone.stub"), reg))

	assert.Equal(t, 1, b.Channels())
	assert.Equal(t, 16000, b.SampleRate())
	assert.Equal(t, 1600, b.SampleCount())
	assert.Zero(t, b.Cursor())
	assert.InDelta(t, 0.25, b.Snapshot().Channel(0)[1599], 1e-7)
}
