// Package xben implements the XBEN compression envelope.
//
// The envelope treats a complete BEN byte stream as opaque and applies a
// general-purpose lossless compressor in one bulk pass; the BEN codecs
// have already removed most cross-sample redundancy, so per-frame
// compression buys little. Any compressor whose output round-trips exactly
// is substitutable. Zstd is the default; lz4 is available where
// compression speed matters more than ratio. Both formats are
// self-identifying, so decoders sniff the leading magic instead of
// trusting file extensions.
package xben

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compressor produces and consumes one envelope format.
type Compressor interface {
	// Name is the stable identifier used in options and CLIs.
	Name() string
	// NewWriter wraps w with the compressing side of the envelope. The
	// returned writer must be closed to flush the final block.
	NewWriter(w io.Writer) (io.WriteCloser, error)
	// NewReader wraps r with the decompressing side of the envelope.
	NewReader(r io.Reader) (io.ReadCloser, error)
}

// Zstd is the default envelope.
type Zstd struct {
	// Level selects the encoder speed/ratio trade-off; zero means
	// zstd.SpeedBetterCompression, which suits write-once archives.
	Level zstd.EncoderLevel
}

// Name implements Compressor.
func (Zstd) Name() string { return "zstd" }

// NewWriter implements Compressor.
func (c Zstd) NewWriter(w io.Writer) (io.WriteCloser, error) {
	level := c.Level
	if level == 0 {
		level = zstd.SpeedBetterCompression
	}
	return zstd.NewWriter(w, zstd.WithEncoderLevel(level))
}

// NewReader implements Compressor.
func (Zstd) NewReader(r io.Reader) (io.ReadCloser, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, err
	}
	return zr.IOReadCloser(), nil
}

// LZ4 is the speed-biased envelope, using the lz4 frame format.
type LZ4 struct{}

// Name implements Compressor.
func (LZ4) Name() string { return "lz4" }

// NewWriter implements Compressor.
func (LZ4) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return lz4.NewWriter(w), nil
}

// NewReader implements Compressor.
func (LZ4) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(lz4.NewReader(r)), nil
}

// Default is the envelope used when none is configured.
var Default Compressor = Zstd{}

// ErrUnknownEnvelope indicates bytes that match no supported envelope magic.
var ErrUnknownEnvelope = errors.New("unknown envelope format")

var (
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
	lz4Magic  = []byte{0x04, 0x22, 0x4D, 0x18}
)

// ByName returns a built-in compressor by its stable name.
func ByName(name string) (Compressor, bool) {
	switch name {
	case "zstd":
		return Zstd{}, true
	case "lz4":
		return LZ4{}, true
	default:
		return nil, false
	}
}

// Detect identifies the envelope from the leading bytes of a stream.
func Detect(head []byte) (Compressor, bool) {
	if len(head) < 4 {
		return nil, false
	}
	switch {
	case bytes.Equal(head[:4], zstdMagic):
		return Zstd{}, true
	case bytes.Equal(head[:4], lz4Magic):
		return LZ4{}, true
	default:
		return nil, false
	}
}

// Compress copies src through c into dst in one bulk pass.
func Compress(dst io.Writer, src io.Reader, c Compressor) error {
	if c == nil {
		c = Default
	}
	w, err := c.NewWriter(dst)
	if err != nil {
		return fmt.Errorf("xben: create %s writer: %w", c.Name(), err)
	}
	if _, err := io.Copy(w, src); err != nil {
		_ = w.Close()
		return fmt.Errorf("xben: compress: %w", err)
	}
	return w.Close()
}

// Decompress restores the original bytes of src into dst. The output is
// byte-for-byte identical to what Compress consumed.
func Decompress(dst io.Writer, src io.Reader, c Compressor) error {
	if c == nil {
		c = Default
	}
	r, err := c.NewReader(src)
	if err != nil {
		return fmt.Errorf("xben: create %s reader: %w", c.Name(), err)
	}
	defer func() { _ = r.Close() }()
	if _, err := io.Copy(dst, r); err != nil {
		return fmt.Errorf("xben: decompress: %w", err)
	}
	return nil
}
