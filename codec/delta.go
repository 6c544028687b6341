package codec

import (
	"encoding/binary"
	"fmt"
)

// Delta encodes a vector as the positions where it differs from the
// previous reconstructed vector.
//
// The codec is inherently sequential: decoding frame k requires the fully
// reconstructed vector of frame k-1. Files using this codec bound the cost
// of random access by interleaving periodic full snapshot frames.
type Delta struct{}

// Kind implements Codec.
func (Delta) Kind() Kind { return KindDelta }

// Encode emits one (position, value) pair for every index where prev and
// curr differ, positions strictly increasing. Identical vectors encode to
// an empty payload.
func (Delta) Encode(prev, curr []uint32) ([]byte, error) {
	if len(prev) != len(curr) {
		return nil, fmt.Errorf("%w: have %d, want %d", ErrLengthMismatch, len(curr), len(prev))
	}
	var buf []byte
	for i := range curr {
		if curr[i] != prev[i] {
			buf = appendPair(buf, uint32(i), curr[i])
		}
	}
	return buf, nil
}

// Decode overwrites a copy of prev at each listed position. Out-of-range
// or non-increasing positions are a corrupt-frame error.
func (Delta) Decode(prev []uint32, length int, payload []byte) ([]uint32, error) {
	if len(prev) != length {
		return nil, fmt.Errorf("%w: delta frame without a reference vector of length %d", ErrCorruptPayload, length)
	}
	if len(payload)%pairSize != 0 {
		return nil, fmt.Errorf("%w: delta payload of %d bytes", ErrCorruptPayload, len(payload))
	}
	out := make([]uint32, length)
	copy(out, prev)
	last := -1
	for off := 0; off < len(payload); off += pairSize {
		pos := binary.LittleEndian.Uint32(payload[off:])
		val := binary.LittleEndian.Uint32(payload[off+4:])
		if uint64(pos) >= uint64(length) {
			return nil, fmt.Errorf("%w: delta position %d out of range [0, %d)", ErrCorruptPayload, pos, length)
		}
		if int(pos) <= last {
			return nil, fmt.Errorf("%w: delta positions not strictly increasing at %d", ErrCorruptPayload, pos)
		}
		last = int(pos)
		out[pos] = val
	}
	return out, nil
}
