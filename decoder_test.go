package ben

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ensemble-tools/ben/frame"
	"github.com/ensemble-tools/ben/xben"
)

// writeXBen wraps a fresh BEN fixture in the given envelope.
func writeXBen(t *testing.T, dir string, variant Variant, interval int, vectors [][]uint32, env xben.Compressor) string {
	t.Helper()
	src := writeBen(t, dir, variant, interval, vectors)
	dst := filepath.Join(dir, "fixture.xben")
	require.NoError(t, CompressBenToXBen(src, dst, func(o *TransformOptions) {
		o.Envelope = env
		o.Overwrite = true
	}))
	return dst
}

// collect drains a decoder and fails on iteration errors.
func collect(t *testing.T, d *Decoder) [][]uint32 {
	t.Helper()
	var got [][]uint32
	for d.Scan() {
		got = append(got, d.Vector())
	}
	require.NoError(t, d.Err())
	return got
}

func TestDecoderSequential(t *testing.T) {
	vectors := testVectors(10, 5)
	for _, variant := range []Variant{Standard, MkvChain} {
		t.Run(variant.String(), func(t *testing.T) {
			path := writeBen(t, t.TempDir(), variant, 3, vectors)

			d, err := NewDecoder(path)
			require.NoError(t, err)
			defer d.Close()

			require.Equal(t, variant, d.Variant())
			require.Equal(t, vectors, collect(t, d))
		})
	}
}

func TestDecoderXBenAutoSniff(t *testing.T) {
	vectors := testVectors(6, 4)
	for _, env := range []xben.Compressor{xben.Zstd{}, xben.LZ4{}} {
		t.Run(env.Name(), func(t *testing.T) {
			path := writeXBen(t, t.TempDir(), MkvChain, 2, vectors, env)

			// No format or envelope configured: both come from the magic.
			d, err := NewDecoder(path)
			require.NoError(t, err)
			defer d.Close()

			require.Equal(t, vectors, collect(t, d))
		})
	}
}

func TestDecoderRejectsUnknownSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noise.bin")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a container"), 0o644))

	_, err := NewDecoder(path)
	require.ErrorIs(t, err, frame.ErrInvalidMagic)
}

func TestDecoderRange(t *testing.T) {
	vectors := testVectors(10, 4)
	for _, variant := range []Variant{Standard, MkvChain} {
		t.Run(variant.String(), func(t *testing.T) {
			path := writeBen(t, t.TempDir(), variant, 3, vectors)

			d, err := NewDecoder(path)
			require.NoError(t, err)
			defer d.Close()

			got := collect(t, d.Range(3, 7))
			require.Equal(t, vectors[3:7], got)
		})
	}
}

func TestDecoderRangeBeyondEnd(t *testing.T) {
	vectors := testVectors(5, 4)
	path := writeBen(t, t.TempDir(), Standard, 3, vectors)

	d, err := NewDecoder(path)
	require.NoError(t, err)
	defer d.Close()

	got := collect(t, d.Range(3, 100))
	require.Equal(t, vectors[3:], got)
}

func TestDecoderEmptyRange(t *testing.T) {
	path := writeBen(t, t.TempDir(), Standard, 3, testVectors(5, 4))

	d, err := NewDecoder(path)
	require.NoError(t, err)
	defer d.Close()

	require.Empty(t, collect(t, d.Range(2, 2)))
}

func TestDecoderStride(t *testing.T) {
	vectors := testVectors(10, 4)
	for _, variant := range []Variant{Standard, MkvChain} {
		t.Run(variant.String(), func(t *testing.T) {
			path := writeBen(t, t.TempDir(), variant, 4, vectors)

			d, err := NewDecoder(path)
			require.NoError(t, err)
			defer d.Close()

			got := collect(t, d.Stride(3, 1))
			require.Equal(t, [][]uint32{vectors[1], vectors[4], vectors[7]}, got)
		})
	}
}

func TestDecoderIndices(t *testing.T) {
	vectors := testVectors(8, 4)
	for _, variant := range []Variant{Standard, MkvChain} {
		t.Run(variant.String(), func(t *testing.T) {
			path := writeBen(t, t.TempDir(), variant, 3, vectors)

			d, err := NewDecoder(path)
			require.NoError(t, err)
			defer d.Close()

			// Duplicates and backwards jumps are honored in request order;
			// ordinals beyond the last sample yield nothing.
			got := collect(t, d.Indices(5, 2, 2, 7, 99, 0))
			want := [][]uint32{vectors[5], vectors[2], vectors[2], vectors[7], vectors[0]}
			require.Equal(t, want, got)
		})
	}
}

func TestDecoderIndicesOnXBen(t *testing.T) {
	vectors := testVectors(6, 4)
	path := writeXBen(t, t.TempDir(), MkvChain, 2, vectors, nil)

	d, err := NewDecoder(path)
	require.NoError(t, err)
	defer d.Close()

	// Envelope sources cannot seek; backwards jumps force a rewind and a
	// full re-decompression, but the results are the same.
	got := collect(t, d.Indices(4, 1))
	require.Equal(t, [][]uint32{vectors[4], vectors[1]}, got)
}

func TestDecoderConfigureAfterScan(t *testing.T) {
	path := writeBen(t, t.TempDir(), Standard, 3, testVectors(4, 3))

	d, err := NewDecoder(path)
	require.NoError(t, err)
	defer d.Close()

	require.True(t, d.Scan())
	d.Range(0, 2)
	require.False(t, d.Scan())
	require.ErrorIs(t, d.Err(), ErrAlreadyIterating)
}

func TestDecoderInvalidSelections(t *testing.T) {
	path := writeBen(t, t.TempDir(), Standard, 3, testVectors(4, 3))

	tests := []struct {
		name      string
		configure func(d *Decoder)
	}{
		{"negative index", func(d *Decoder) { d.Indices(1, -2) }},
		{"negative range start", func(d *Decoder) { d.Range(-1, 4) }},
		{"inverted range", func(d *Decoder) { d.Range(5, 2) }},
		{"zero stride step", func(d *Decoder) { d.Stride(0, 0) }},
		{"negative stride offset", func(d *Decoder) { d.Stride(2, -1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewDecoder(path)
			require.NoError(t, err)
			defer d.Close()

			tt.configure(d)
			require.False(t, d.Scan())

			var sel *InvalidSelectionError
			require.ErrorAs(t, d.Err(), &sel)
		})
	}
}

func TestDecoderExhaustedStaysExhausted(t *testing.T) {
	path := writeBen(t, t.TempDir(), Standard, 3, testVectors(2, 3))

	d, err := NewDecoder(path)
	require.NoError(t, err)
	defer d.Close()

	require.True(t, d.Scan())
	require.True(t, d.Scan())
	require.False(t, d.Scan())
	require.False(t, d.Scan())
	require.NoError(t, d.Err())
}

func TestDecoderScanAfterClose(t *testing.T) {
	path := writeBen(t, t.TempDir(), Standard, 3, testVectors(2, 3))

	d, err := NewDecoder(path)
	require.NoError(t, err)
	require.NoError(t, d.Close())
	require.NoError(t, d.Close()) // idempotent
	require.False(t, d.Scan())
}

func TestDecoderForcedFormat(t *testing.T) {
	vectors := testVectors(3, 4)
	dir := t.TempDir()
	xbenPath := writeXBen(t, dir, Standard, 1, vectors, xben.Zstd{})

	d, err := NewDecoder(xbenPath, func(o *DecoderOptions) {
		o.Format = FormatXBen
		o.Envelope = xben.Zstd{}
	})
	require.NoError(t, err)
	defer d.Close()

	require.Equal(t, vectors, collect(t, d))
}
