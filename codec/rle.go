package codec

import (
	"encoding/binary"
	"fmt"
)

// RunLength encodes a complete vector as (value, runLength) pairs.
//
// Every frame of a standard-variant file and every snapshot frame of an
// mkv-chain file uses this codec. It never assumes the encoding shrinks:
// a vector with no repeated values encodes to one pair per element.
type RunLength struct{}

// Kind implements Codec.
func (RunLength) Kind() Kind { return KindFull }

// Encode merges maximal runs of equal consecutive values into
// (value, count) pairs. An empty vector encodes to an empty payload.
func (RunLength) Encode(_, curr []uint32) ([]byte, error) {
	if len(curr) == 0 {
		return nil, nil
	}
	buf := make([]byte, 0, 4*pairSize)
	val := curr[0]
	run := uint32(1)
	for _, v := range curr[1:] {
		if v == val {
			run++
			continue
		}
		buf = appendPair(buf, val, run)
		val = v
		run = 1
	}
	return appendPair(buf, val, run), nil
}

// Decode expands each (value, count) pair. The expansion must cover
// exactly length elements or the frame is corrupt.
func (RunLength) Decode(_ []uint32, length int, payload []byte) ([]uint32, error) {
	if len(payload)%pairSize != 0 {
		return nil, fmt.Errorf("%w: run-length payload of %d bytes", ErrCorruptPayload, len(payload))
	}
	out := make([]uint32, 0, length)
	for off := 0; off < len(payload); off += pairSize {
		val := binary.LittleEndian.Uint32(payload[off:])
		run := binary.LittleEndian.Uint32(payload[off+4:])
		if run == 0 {
			return nil, fmt.Errorf("%w: zero-length run", ErrCorruptPayload)
		}
		if uint64(len(out))+uint64(run) > uint64(length) {
			return nil, fmt.Errorf("%w: runs exceed vector length %d", ErrCorruptPayload, length)
		}
		for i := uint32(0); i < run; i++ {
			out = append(out, val)
		}
	}
	if len(out) != length {
		return nil, fmt.Errorf("%w: runs cover %d of %d elements", ErrCorruptPayload, len(out), length)
	}
	return out, nil
}

// RunTotal sums the run lengths of a full-frame payload without expanding
// it. Readers use this to infer the vector length when the file header
// carries no length (count-unknown encodes to non-seekable destinations).
func RunTotal(payload []byte) (int, error) {
	if len(payload)%pairSize != 0 {
		return 0, fmt.Errorf("%w: run-length payload of %d bytes", ErrCorruptPayload, len(payload))
	}
	var total uint64
	for off := 0; off < len(payload); off += pairSize {
		run := binary.LittleEndian.Uint32(payload[off+4:])
		if run == 0 {
			return 0, fmt.Errorf("%w: zero-length run", ErrCorruptPayload)
		}
		total += uint64(run)
	}
	if total > uint64(^uint32(0)) {
		return 0, fmt.Errorf("%w: run total overflows vector length", ErrCorruptPayload)
	}
	return int(total), nil
}
