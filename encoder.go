package ben

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/ensemble-tools/ben/codec"
	"github.com/ensemble-tools/ben/frame"
)

const progressEvery = 10000

// Run is one (value, length) pair of a run-length encoded vector.
type Run struct {
	Value  uint32
	Length uint32
}

// Encoder writes assignment vectors to a BEN destination frame by frame.
//
// An encoder exclusively owns its destination from NewEncoder to Close.
// All vectors appended to one encoder must share the same length; the
// first Append fixes it.
type Encoder struct {
	w        *frame.Writer
	variant  Variant
	interval uint64
	logger   *Logger

	prev    []uint32
	vecLen  int
	started bool
	closed  bool
}

// NewEncoder opens path for writing and emits the file header.
//
// Unless Overwrite is set, an existing destination is refused with
// ErrDestinationExists. Close finalizes the header and must be called on
// every exit path; it is safe to defer immediately.
func NewEncoder(path string, optFns ...func(*EncoderOptions)) (*Encoder, error) {
	opts := applyEncoderOptions(optFns)
	if !opts.Variant.Valid() {
		return nil, fmt.Errorf("%w: %d", frame.ErrUnknownVariant, uint8(opts.Variant))
	}
	w, err := frame.Create(path, opts.Variant, opts.Overwrite)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrDestinationExists, path)
		}
		return nil, err
	}
	return newEncoder(w, opts), nil
}

// newStreamEncoder writes BEN frames into an arbitrary destination, such
// as a compression envelope. The header keeps the count-unknown sentinel
// since the destination cannot be seeked for the back-patch.
func newStreamEncoder(dst io.Writer, opts EncoderOptions) (*Encoder, error) {
	if !opts.Variant.Valid() {
		return nil, fmt.Errorf("%w: %d", frame.ErrUnknownVariant, uint8(opts.Variant))
	}
	w, err := frame.NewWriter(dst, opts.Variant)
	if err != nil {
		return nil, err
	}
	return newEncoder(w, opts), nil
}

func newEncoder(w *frame.Writer, opts EncoderOptions) *Encoder {
	return &Encoder{
		w:        w,
		variant:  opts.Variant,
		interval: uint64(opts.SnapshotInterval),
		logger:   opts.Logger,
	}
}

// Append encodes one vector as the next frame.
func (e *Encoder) Append(v []uint32) error {
	if e.closed {
		return ErrClosed
	}
	if !e.started {
		e.started = true
		e.vecLen = len(v)
		e.w.SetVectorLen(uint32(len(v)))
	} else if len(v) != e.vecLen {
		return &LengthMismatchError{Expected: e.vecLen, Actual: len(v)}
	}

	c := e.frameCodec()
	payload, err := c.Encode(e.prev, v)
	if err != nil {
		return err
	}
	if err := e.w.Append(c.Kind(), payload); err != nil {
		return err
	}
	e.prev = append(e.prev[:0], v...)
	if n := e.w.Count(); n%progressEvery == 0 {
		e.logger.LogProgress(n)
	}
	return nil
}

// AppendRuns appends a vector given as pre-computed (value, length) runs,
// avoiding the expansion when the caller already holds run-length form.
func (e *Encoder) AppendRuns(runs []Run) error {
	total := 0
	for _, r := range runs {
		total += int(r.Length)
	}
	v := make([]uint32, 0, total)
	for _, r := range runs {
		for i := uint32(0); i < r.Length; i++ {
			v = append(v, r.Value)
		}
	}
	return e.Append(v)
}

// frameCodec picks the codec for the next frame. Mkv-chain files start
// with a full frame and snapshot every interval frames thereafter.
func (e *Encoder) frameCodec() codec.Codec {
	if e.variant == MkvChain && e.w.Count()%e.interval != 0 {
		return codec.Delta{}
	}
	return codec.RunLength{}
}

// Count returns the number of frames appended so far.
func (e *Encoder) Count() uint64 { return e.w.Count() }

// Close flushes pending frames and finalizes the header. Closing twice is
// a no-op.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	return e.w.Close()
}
