package frame

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ensemble-tools/ben/codec"
)

func TestHeaderRoundTrip(t *testing.T) {
	for _, variant := range []Variant{VariantStandard, VariantMkvChain} {
		t.Run(variant.String(), func(t *testing.T) {
			in := Header{Variant: variant, VectorLen: 42, FrameCount: 7}
			b := in.Marshal()

			out, err := ReadHeader(bytes.NewReader(b[:]))
			require.NoError(t, err)
			require.Equal(t, in, out)
		})
	}
}

func TestHeaderCountSentinel(t *testing.T) {
	h := Header{Variant: VariantStandard, FrameCount: CountUnknown}
	require.False(t, h.CountKnown())

	h.FrameCount = 0
	require.True(t, h.CountKnown())
}

func TestReadHeaderRejects(t *testing.T) {
	valid := Header{Variant: VariantStandard}.Marshal()

	badMagic := valid
	copy(badMagic[0:4], []byte("NOPE"))

	badVersion := valid
	badVersion[4] = 0xFF

	badVariant := valid
	badVariant[6] = 99

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"truncated", valid[:10], ErrInvalidMagic},
		{"empty", nil, ErrInvalidMagic},
		{"bad magic", badMagic[:], ErrInvalidMagic},
		{"bad version", badVersion[:], ErrInvalidVersion},
		{"bad variant", badVariant[:], ErrUnknownVariant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadHeader(bytes.NewReader(tt.data))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestWriterBackPatchesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.ben")

	w, err := Create(path, VariantStandard, false)
	require.NoError(t, err)
	w.SetVectorLen(6)
	require.NoError(t, w.Append(codec.KindFull, []byte{1, 2, 3, 4}))
	require.NoError(t, w.Append(codec.KindFull, []byte{5, 6, 7, 8}))
	require.Equal(t, uint64(2), w.Count())
	require.NoError(t, w.Close())
	require.NoError(t, w.Close()) // idempotent

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	r, err := NewReader(f)
	require.NoError(t, err)
	require.Equal(t, Header{Variant: VariantStandard, VectorLen: 6, FrameCount: 2}, r.Header())
}

func TestWriterRefusesExistingDestination(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.ben")
	require.NoError(t, os.WriteFile(path, []byte("precious"), 0o644))

	_, err := Create(path, VariantStandard, false)
	require.ErrorIs(t, err, fs.ErrExist)

	// The refused create must not have touched the file.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, []byte("precious"), data)

	w, err := Create(path, VariantStandard, true)
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func TestStreamWriterKeepsSentinel(t *testing.T) {
	var buf bytes.Buffer

	w, err := NewWriter(&buf, VariantMkvChain)
	require.NoError(t, err)
	w.SetVectorLen(4)
	require.NoError(t, w.Append(codec.KindFull, []byte{1, 2, 3, 4, 5, 6, 7, 8}))
	require.NoError(t, w.Close())

	r, err := NewReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.False(t, r.Header().CountKnown())
	require.Equal(t, VariantMkvChain, r.Header().Variant)
}

func TestWriterClosedAppend(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, VariantStandard)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.ErrorIs(t, w.Append(codec.KindFull, nil), ErrWriterClosed)
}

func TestReaderTraversal(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, VariantStandard)
	require.NoError(t, err)
	require.NoError(t, w.Append(codec.KindFull, []byte{0xAA, 0xBB}))
	require.NoError(t, w.Append(codec.KindDelta, []byte{0xCC}))
	require.NoError(t, w.Append(codec.KindFull, nil))
	require.NoError(t, w.Close())

	r, err := NewReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	length, kind, err := r.NextHeader()
	require.NoError(t, err)
	require.Equal(t, uint32(2), length)
	require.Equal(t, codec.KindFull, kind)
	require.NoError(t, r.Skip(length))

	length, kind, err = r.NextHeader()
	require.NoError(t, err)
	require.Equal(t, codec.KindDelta, kind)
	payload, err := r.Payload(length)
	require.NoError(t, err)
	require.Equal(t, []byte{0xCC}, payload)

	length, _, err = r.NextHeader()
	require.NoError(t, err)
	require.Zero(t, length)
	payload, err = r.Payload(0)
	require.NoError(t, err)
	require.Empty(t, payload)

	_, _, err = r.NextHeader()
	require.ErrorIs(t, err, io.EOF)
}

func TestReaderCorruptFrames(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, VariantStandard)
	require.NoError(t, err)
	require.NoError(t, w.Append(codec.KindFull, []byte{1, 2, 3, 4}))
	require.NoError(t, w.Close())

	data := buf.Bytes()

	t.Run("truncated payload", func(t *testing.T) {
		r, err := NewReader(bytes.NewReader(data[:len(data)-2]))
		require.NoError(t, err)
		length, _, err := r.NextHeader()
		require.NoError(t, err)
		_, err = r.Payload(length)
		require.ErrorIs(t, err, ErrCorruptFrame)
	})

	t.Run("truncated prefix", func(t *testing.T) {
		r, err := NewReader(bytes.NewReader(data[:HeaderSize+2]))
		require.NoError(t, err)
		_, _, err = r.NextHeader()
		require.ErrorIs(t, err, ErrCorruptFrame)
	})

	t.Run("unknown kind", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[HeaderSize+4] = 42 // kind byte of the first frame
		r, err := NewReader(bytes.NewReader(bad))
		require.NoError(t, err)
		_, _, err = r.NextHeader()
		require.ErrorIs(t, err, ErrCorruptFrame)
	})
}
