package ben

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ensemble-tools/ben/codec"
	"github.com/ensemble-tools/ben/frame"
	"github.com/ensemble-tools/ben/xben"
)

type decoderState uint8

const (
	stateConfiguring decoderState = iota
	stateIterating
	stateExhausted
)

type selectMode uint8

const (
	selectAll selectMode = iota
	selectIndices
	selectRange
	selectStride
)

// Decoder reads assignment vectors out of a BEN or XBEN source.
//
// A decoder is a forward-only, non-restartable iterator with an optional
// subsample selection. Selections may only be configured before the first
// Scan; afterwards the configuration calls record ErrAlreadyIterating:
//
//	dec, err := ben.NewDecoder(path)
//	if err != nil { ... }
//	defer dec.Close()
//	for dec.Range(100, 200).Scan() {
//	    use(dec.Vector())
//	}
//	if err := dec.Err(); err != nil { ... }
//
// With no selection the decoder yields every sample in order. The slice
// returned by Vector is owned by the caller but must not be modified while
// iteration continues over an mkv-chain source.
type Decoder struct {
	f        *os.File
	envelope xben.Compressor // nil for raw BEN sources
	env      io.ReadCloser   // live decompressor, if any
	fr       *frame.Reader
	logger   *Logger

	state decoderState
	mode  selectMode

	indices   []int
	idxCursor int
	start     int
	end       int
	step      int
	offset    int
	nth       int

	pos    int // ordinal of the next frame in the stream
	vecLen int // -1 until known
	prev   []uint32
	cur    []uint32
	err    error
	closed bool
}

// NewDecoder opens a BEN or XBEN source for iteration. With FormatAuto
// (the default) the source format and envelope are sniffed from the
// leading magic bytes.
func NewDecoder(path string, optFns ...func(*DecoderOptions)) (*Decoder, error) {
	opts := applyDecoderOptions(optFns)

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	d := &Decoder{f: f, logger: opts.Logger.WithPath(path), vecLen: -1}
	if err := d.resolveFormat(opts); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := d.rewind(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return d, nil
}

func (d *Decoder) resolveFormat(opts DecoderOptions) error {
	var head [4]byte
	n, err := d.f.ReadAt(head[:], 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	switch opts.Format {
	case FormatBen:
		return nil
	case FormatXBen:
		if opts.Envelope != nil {
			d.envelope = opts.Envelope
			return nil
		}
		env, ok := xben.Detect(head[:n])
		if !ok {
			return xben.ErrUnknownEnvelope
		}
		d.envelope = env
		return nil
	default:
		if frame.IsMagic(head[:n]) {
			return nil
		}
		if env, ok := xben.Detect(head[:n]); ok {
			d.envelope = env
			return nil
		}
		return fmt.Errorf("%w: source is neither BEN nor a known envelope", frame.ErrInvalidMagic)
	}
}

// rewind repositions the stream at the first frame, recreating the
// decompressor for envelope sources.
func (d *Decoder) rewind() error {
	if d.env != nil {
		_ = d.env.Close()
		d.env = nil
	}
	if _, err := d.f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	var src io.Reader = d.f
	if d.envelope != nil {
		r, err := d.envelope.NewReader(d.f)
		if err != nil {
			return err
		}
		d.env = r
		src = r
	}
	fr, err := frame.NewReader(src)
	if err != nil {
		return err
	}
	d.fr = fr
	d.pos = 0
	d.prev = nil
	return nil
}

// Variant reports the encoding strategy declared by the file header.
func (d *Decoder) Variant() Variant { return d.fr.Header().Variant }

// FrameCount reports the frame count declared by the file header; known
// is false when the file was finalized on a non-seekable destination and
// the reader must scan to EOF.
func (d *Decoder) FrameCount() (count uint64, known bool) {
	h := d.fr.Header()
	return h.FrameCount, h.CountKnown()
}

func (d *Decoder) configure() bool {
	if d.err != nil {
		return false
	}
	if d.closed {
		d.err = ErrClosed
		return false
	}
	if d.state != stateConfiguring {
		d.err = ErrAlreadyIterating
		return false
	}
	return true
}

// Indices restricts iteration to the given sample ordinals, in the order
// given. Duplicates and non-monotonic order are honored; each request is
// resolved as an independent single-sample read, and requests beyond the
// last sample produce nothing.
func (d *Decoder) Indices(indices ...int) *Decoder {
	if !d.configure() {
		return d
	}
	for _, idx := range indices {
		if idx < 0 {
			d.err = &InvalidSelectionError{Reason: fmt.Sprintf("negative sample index %d", idx)}
			return d
		}
	}
	d.mode = selectIndices
	d.indices = append([]int(nil), indices...)
	return d
}

// Range restricts iteration to the samples in [start, end).
func (d *Decoder) Range(start, end int) *Decoder {
	if !d.configure() {
		return d
	}
	if start < 0 || end < start {
		d.err = &InvalidSelectionError{Reason: fmt.Sprintf("range [%d, %d)", start, end)}
		return d
	}
	d.mode = selectRange
	d.start, d.end = start, end
	return d
}

// Stride restricts iteration to samples offset, offset+step, offset+2*step,
// and so on until the source is exhausted.
func (d *Decoder) Stride(step, offset int) *Decoder {
	if !d.configure() {
		return d
	}
	if step <= 0 || offset < 0 {
		d.err = &InvalidSelectionError{Reason: fmt.Sprintf("stride step %d offset %d", step, offset)}
		return d
	}
	d.mode = selectStride
	d.step, d.offset = step, offset
	return d
}

// Scan advances to the next selected vector. It returns false when the
// selection is exhausted or an error occurred; Err distinguishes the two.
// Once exhausted, further calls keep returning false.
func (d *Decoder) Scan() bool {
	if d.err != nil || d.closed {
		return false
	}
	switch d.state {
	case stateConfiguring:
		d.state = stateIterating
	case stateExhausted:
		return false
	}

	var (
		v   []uint32
		ok  bool
		err error
	)
	switch d.mode {
	case selectIndices:
		v, ok, err = d.scanIndices()
	case selectRange:
		v, ok, err = d.scanRange()
	case selectStride:
		v, ok, err = d.scanStride()
	default:
		v, ok, err = d.nextVector()
	}
	if err != nil {
		d.err = err
		d.state = stateExhausted
		return false
	}
	if !ok {
		d.state = stateExhausted
		return false
	}
	d.cur = v
	return true
}

// Vector returns the vector produced by the last successful Scan.
func (d *Decoder) Vector() []uint32 { return d.cur }

// Err returns the first error encountered during configuration or
// iteration. Plain exhaustion is not an error.
func (d *Decoder) Err() error { return d.err }

// Close releases the underlying file. Further Scans return false. Closing
// twice is a no-op.
func (d *Decoder) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.state = stateExhausted
	if d.env != nil {
		_ = d.env.Close()
		d.env = nil
	}
	return d.f.Close()
}

// nextVector decodes the next frame in stream order.
func (d *Decoder) nextVector() ([]uint32, bool, error) {
	length, kind, err := d.fr.NextHeader()
	if errors.Is(err, io.EOF) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	payload, err := d.fr.Payload(length)
	if err != nil {
		return nil, false, err
	}
	v, err := d.decodeFrame(kind, payload)
	if err != nil {
		return nil, false, err
	}
	d.pos++
	d.prev = v
	return v, true, nil
}

func (d *Decoder) decodeFrame(kind codec.Kind, payload []byte) ([]uint32, error) {
	if d.fr.Header().Variant == Standard && kind != codec.KindFull {
		return nil, fmt.Errorf("%w: delta frame in standard-variant file", frame.ErrCorruptFrame)
	}
	c, ok := codec.ByKind(kind)
	if !ok {
		return nil, fmt.Errorf("%w: unknown frame kind %d", frame.ErrCorruptFrame, uint8(kind))
	}
	length, err := d.frameLen(kind, payload)
	if err != nil {
		return nil, err
	}
	return c.Decode(d.prev, length, payload)
}

// frameLen resolves the fixed vector length, inferring it from the first
// full frame when the header was finalized without one.
func (d *Decoder) frameLen(kind codec.Kind, payload []byte) (int, error) {
	if d.vecLen >= 0 {
		return d.vecLen, nil
	}
	if n := d.fr.Header().VectorLen; n > 0 {
		d.vecLen = int(n)
		return d.vecLen, nil
	}
	if kind != codec.KindFull {
		return 0, fmt.Errorf("%w: delta frame before any full frame", frame.ErrCorruptFrame)
	}
	n, err := codec.RunTotal(payload)
	if err != nil {
		return 0, err
	}
	d.vecLen = n
	return n, nil
}

// seekable reports whether frame-boundary seeks on the underlying file are
// meaningful. Envelope sources are opaque byte streams until decompressed.
func (d *Decoder) seekable() bool { return d.envelope == nil }

// position arranges for the next sequential decode to produce frame
// target. It returns false when target is beyond the last frame.
func (d *Decoder) position(target int) (bool, error) {
	if target == d.pos {
		return true, nil
	}
	if d.seekable() && d.fr.Header().Variant == MkvChain {
		return d.seekChain(target)
	}
	if target < d.pos {
		if err := d.rewind(); err != nil {
			return false, err
		}
	}
	for d.pos < target {
		ok, err := d.skipOne()
		if err != nil || !ok {
			return ok, err
		}
	}
	return true, nil
}

// skipOne advances past one frame as cheaply as the variant allows:
// standard frames are independent so their payloads are discarded
// undecoded, while chain frames must be applied to keep the running
// reference vector correct.
func (d *Decoder) skipOne() (bool, error) {
	if d.fr.Header().Variant == MkvChain {
		_, ok, err := d.nextVector()
		return ok, err
	}
	length, _, err := d.fr.NextHeader()
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := d.fr.Skip(length); err != nil {
		return false, err
	}
	d.pos++
	return true, nil
}

// seekChain positions a seekable mkv-chain source at frame target by
// scanning frame headers to locate the nearest snapshot at or before
// target, then replaying deltas from that snapshot. Intermediate vectors
// are reconstructed but never retained.
func (d *Decoder) seekChain(target int) (bool, error) {
	if err := d.rewind(); err != nil {
		return false, err
	}

	// First pass: headers only. Track byte offsets so the second pass can
	// seek straight back to the chosen snapshot.
	off := int64(frame.HeaderSize)
	snapOff := int64(-1)
	snapPos := 0
	for pos := 0; ; pos++ {
		length, kind, err := d.fr.NextHeader()
		if errors.Is(err, io.EOF) {
			// Keep pos in step with the exhausted reader so a later
			// position call does not mistake EOF for frame zero.
			d.pos = pos
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if kind == codec.KindFull {
			snapOff, snapPos = off, pos
		}
		if pos == target {
			break
		}
		if err := d.fr.Skip(length); err != nil {
			return false, err
		}
		off += frame.PrefixSize + int64(length)
	}
	if snapOff < 0 {
		return false, fmt.Errorf("%w: no snapshot frame at or before sample %d", frame.ErrCorruptFrame, target)
	}

	// Second pass: decode from the snapshot up to (but not including)
	// target.
	if _, err := d.f.Seek(snapOff, io.SeekStart); err != nil {
		return false, err
	}
	d.fr = frame.ResumeReader(d.f, d.fr.Header())
	d.pos = snapPos
	d.prev = nil
	for d.pos < target {
		_, ok, err := d.nextVector()
		if err != nil || !ok {
			return ok, err
		}
	}
	return true, nil
}

func (d *Decoder) scanIndices() ([]uint32, bool, error) {
	for d.idxCursor < len(d.indices) {
		target := d.indices[d.idxCursor]
		d.idxCursor++
		ok, err := d.position(target)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			// Beyond the last sample: absent, not an error.
			continue
		}
		v, ok, err := d.nextVector()
		if err != nil {
			return nil, false, err
		}
		if !ok {
			continue
		}
		return v, true, nil
	}
	return nil, false, nil
}

func (d *Decoder) scanRange() ([]uint32, bool, error) {
	if d.pos < d.start {
		ok, err := d.position(d.start)
		if err != nil || !ok {
			return nil, false, err
		}
	}
	if d.pos >= d.end {
		return nil, false, nil
	}
	return d.nextVector()
}

func (d *Decoder) scanStride() ([]uint32, bool, error) {
	target := d.offset + d.nth*d.step
	d.nth++
	ok, err := d.position(target)
	if err != nil || !ok {
		return nil, false, err
	}
	return d.nextVector()
}
