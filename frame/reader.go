package frame

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ensemble-tools/ben/codec"
)

const readBufferSize = 256 * 1024

// Reader traverses the frames of a BEN stream sequentially.
//
// The length prefix of each frame lets callers skip payloads they do not
// need to decode; NextHeader/Payload/Skip expose exactly that contract.
type Reader struct {
	br  *bufio.Reader
	hdr Header
}

// NewReader validates the stream header and positions the reader at the
// first frame.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReaderSize(r, readBufferSize)
	hdr, err := ReadHeader(br)
	if err != nil {
		return nil, err
	}
	return &Reader{br: br, hdr: hdr}, nil
}

// ResumeReader wraps a stream already positioned at a frame boundary,
// reusing a previously validated header. Random-access readers use this
// after seeking back to a snapshot frame.
func ResumeReader(r io.Reader, hdr Header) *Reader {
	return &Reader{br: bufio.NewReaderSize(r, readBufferSize), hdr: hdr}
}

// Header returns the validated file header.
func (r *Reader) Header() Header { return r.hdr }

// NextHeader reads the next frame's length prefix and kind tag. It returns
// io.EOF at a clean end of stream; a partial prefix is a corrupt frame.
func (r *Reader) NextHeader() (length uint32, kind codec.Kind, err error) {
	var pfx [PrefixSize]byte
	if _, err := io.ReadFull(r.br, pfx[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, 0, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, 0, fmt.Errorf("%w: truncated frame header", ErrCorruptFrame)
		}
		return 0, 0, err
	}
	length = binary.LittleEndian.Uint32(pfx[0:4])
	kind = codec.Kind(pfx[4])
	if _, ok := codec.ByKind(kind); !ok {
		return 0, 0, fmt.Errorf("%w: unknown frame kind %d", ErrCorruptFrame, pfx[4])
	}
	return length, kind, nil
}

// Payload reads exactly length payload bytes for the current frame.
func (r *Reader) Payload(length uint32) ([]byte, error) {
	buf := make([]byte, length)
	if _, err := io.ReadFull(r.br, buf); err != nil {
		return nil, fmt.Errorf("%w: truncated frame payload", ErrCorruptFrame)
	}
	return buf, nil
}

// Skip discards the current frame's payload without decoding it.
func (r *Reader) Skip(length uint32) error {
	if _, err := r.br.Discard(int(length)); err != nil {
		return fmt.Errorf("%w: truncated frame payload", ErrCorruptFrame)
	}
	return nil
}
