// Package frame implements the BEN container: a fixed file header followed
// by length-prefixed, kind-tagged frames, one frame per assignment vector.
package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// HeaderSize is the fixed byte length of the file header.
	HeaderSize = 32
	// Version is the current container format version.
	Version uint16 = 1
	// CountUnknown is the frame-count sentinel meaning "scan to EOF".
	// It is left in place when the destination cannot be seeked for the
	// close-time back-patch.
	CountUnknown = ^uint64(0)
)

var magic = [4]byte{'B', 'E', 'N', '0'}

// Variant selects the encoding strategy for a whole file.
type Variant uint8

const (
	// VariantStandard stores every vector as an independent full frame.
	VariantStandard Variant = 1
	// VariantMkvChain stores sparse deltas between consecutive vectors,
	// with periodic full snapshot frames as recovery points.
	VariantMkvChain Variant = 2
)

func (v Variant) String() string {
	switch v {
	case VariantStandard:
		return "standard"
	case VariantMkvChain:
		return "mkv-chain"
	default:
		return fmt.Sprintf("variant(%d)", uint8(v))
	}
}

// Valid reports whether v is a known variant tag.
func (v Variant) Valid() bool {
	return v == VariantStandard || v == VariantMkvChain
}

var (
	ErrInvalidMagic   = errors.New("invalid ben magic")
	ErrInvalidVersion = errors.New("unsupported ben version")
	ErrUnknownVariant = errors.New("unknown ben variant")
	ErrCorruptFrame   = errors.New("corrupt frame")
	ErrWriterClosed   = errors.New("frame writer is closed")
)

// Header is the fixed-size descriptor at the start of every BEN file.
//
// VectorLen and FrameCount are zero/sentinel on freshly created files and
// back-patched on close when the destination supports seeking.
type Header struct {
	Variant    Variant
	VectorLen  uint32
	FrameCount uint64
}

// CountKnown reports whether the header declares a final frame count.
func (h Header) CountKnown() bool { return h.FrameCount != CountUnknown }

// Marshal encodes the header into its fixed 32-byte layout.
func (h Header) Marshal() [HeaderSize]byte {
	var b [HeaderSize]byte
	copy(b[0:4], magic[:])
	binary.LittleEndian.PutUint16(b[4:6], Version)
	b[6] = uint8(h.Variant)
	binary.LittleEndian.PutUint32(b[8:12], h.VectorLen)
	binary.LittleEndian.PutUint64(b[12:20], h.FrameCount)
	// b[20:32] reserved
	return b
}

// ReadHeader reads and validates a file header from r.
func ReadHeader(r io.Reader) (Header, error) {
	var b [HeaderSize]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Header{}, fmt.Errorf("%w: truncated header", ErrInvalidMagic)
		}
		return Header{}, err
	}
	if !bytes.Equal(b[0:4], magic[:]) {
		return Header{}, ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint16(b[4:6]); v != Version {
		return Header{}, fmt.Errorf("%w: %d", ErrInvalidVersion, v)
	}
	h := Header{
		Variant:    Variant(b[6]),
		VectorLen:  binary.LittleEndian.Uint32(b[8:12]),
		FrameCount: binary.LittleEndian.Uint64(b[12:20]),
	}
	if !h.Variant.Valid() {
		return Header{}, fmt.Errorf("%w: %d", ErrUnknownVariant, b[6])
	}
	return h, nil
}

// IsMagic reports whether b begins with the BEN file magic.
func IsMagic(b []byte) bool {
	return len(b) >= 4 && bytes.Equal(b[:4], magic[:])
}
