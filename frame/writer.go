package frame

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/ensemble-tools/ben/codec"
)

const writeBufferSize = 256 * 1024

// PrefixSize is the per-frame overhead: u32 payload length plus the kind tag.
const PrefixSize = 5

// Writer appends length-prefixed frames to a BEN destination.
//
// The header is written on creation with the frame count unknown. Close
// back-patches the count and vector length when the destination is a file;
// for arbitrary writers the count-unknown sentinel stays in place and
// readers scan to EOF.
type Writer struct {
	f       *os.File // nil when wrapping a plain io.Writer
	bw      *bufio.Writer
	hdr     Header
	written uint64
	closed  bool
}

// Create opens path as a new BEN destination and writes the file header.
// Unless overwrite is set, an existing path is refused with an error that
// matches errors.Is(err, fs.ErrExist).
func Create(path string, variant Variant, overwrite bool) (*Writer, error) {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, err
	}
	w := &Writer{f: f, bw: bufio.NewWriterSize(f, writeBufferSize)}
	if err := w.init(variant); err != nil {
		_ = f.Close()
		return nil, err
	}
	return w, nil
}

// NewWriter writes frames to an arbitrary destination, typically a
// compression envelope. The destination cannot be seeked, so the header
// keeps the count-unknown sentinel. The caller owns dst and closes it
// after Close returns.
func NewWriter(dst io.Writer, variant Variant) (*Writer, error) {
	w := &Writer{bw: bufio.NewWriterSize(dst, writeBufferSize)}
	if err := w.init(variant); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) init(variant Variant) error {
	w.hdr = Header{Variant: variant, FrameCount: CountUnknown}
	b := w.hdr.Marshal()
	_, err := w.bw.Write(b[:])
	return err
}

// SetVectorLen records the fixed vector length for the close-time header
// back-patch. The first recorded value wins.
func (w *Writer) SetVectorLen(n uint32) {
	if w.hdr.VectorLen == 0 {
		w.hdr.VectorLen = n
	}
}

// Append writes one kind-tagged, length-prefixed frame.
func (w *Writer) Append(kind codec.Kind, payload []byte) error {
	if w.closed {
		return ErrWriterClosed
	}
	var pfx [PrefixSize]byte
	binary.LittleEndian.PutUint32(pfx[0:4], uint32(len(payload)))
	pfx[4] = uint8(kind)
	if _, err := w.bw.Write(pfx[:]); err != nil {
		return err
	}
	if _, err := w.bw.Write(payload); err != nil {
		return err
	}
	w.written++
	return nil
}

// Count returns the number of frames appended so far.
func (w *Writer) Count() uint64 { return w.written }

// Close flushes buffered frames and, for file destinations, back-patches
// the header with the final frame count and vector length before syncing.
// Closing twice is a no-op.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.bw.Flush(); err != nil {
		if w.f != nil {
			_ = w.f.Close()
		}
		return err
	}
	if w.f == nil {
		return nil
	}
	w.hdr.FrameCount = w.written
	b := w.hdr.Marshal()
	if _, err := w.f.WriteAt(b[:], 0); err != nil {
		_ = w.f.Close()
		return err
	}
	if err := w.f.Sync(); err != nil {
		_ = w.f.Close()
		return err
	}
	return w.f.Close()
}
