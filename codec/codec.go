// Package codec implements the payload codecs for BEN frames.
//
// The tag set is closed: full frames carry a run-length encoding of the
// complete vector, delta frames carry the sparse set of positions that
// changed relative to the previous reconstructed vector. The file header
// pins the variant for the whole file; the per-frame kind tag tells a
// reader which codec decodes a given frame, since delta-variant files
// interleave full snapshot frames with delta frames.
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Kind discriminates the payload encoding of a single frame.
type Kind uint8

const (
	// KindFull marks a frame holding a complete run-length encoded vector.
	KindFull Kind = 1
	// KindDelta marks a frame holding sparse changes against the previous
	// reconstructed vector.
	KindDelta Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindFull:
		return "full"
	case KindDelta:
		return "delta"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

var (
	// ErrCorruptPayload indicates a payload that cannot decode into a
	// vector of the expected length.
	ErrCorruptPayload = errors.New("corrupt frame payload")

	// ErrLengthMismatch indicates vectors of different lengths where equal
	// lengths are required.
	ErrLengthMismatch = errors.New("vector length mismatch")
)

// Codec encodes one assignment vector into a frame payload and back.
//
// Implementations are stateless and safe for concurrent use. The previous
// reconstructed vector is threaded through explicitly by the caller; it is
// never shared state inside the codec.
type Codec interface {
	// Kind reports the frame kind this codec produces.
	Kind() Kind
	// Encode produces the payload for curr. prev is the previous
	// reconstructed vector; codecs that do not need it ignore it.
	Encode(prev, curr []uint32) ([]byte, error)
	// Decode reconstructs a vector of the given length from payload.
	// prev is required by sequential codecs and ignored otherwise.
	Decode(prev []uint32, length int, payload []byte) ([]uint32, error)
}

// ByKind returns the built-in codec for a frame kind.
func ByKind(k Kind) (Codec, bool) {
	switch k {
	case KindFull:
		return RunLength{}, true
	case KindDelta:
		return Delta{}, true
	default:
		return nil, false
	}
}

// pairSize is the encoded size of one (u32, u32) payload pair.
const pairSize = 8

func appendPair(buf []byte, a, b uint32) []byte {
	var p [pairSize]byte
	binary.LittleEndian.PutUint32(p[0:4], a)
	binary.LittleEndian.PutUint32(p[4:8], b)
	return append(buf, p[:]...)
}
