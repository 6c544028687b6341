package ben

import "fmt"

// ReadSingle extracts sample n (0-based) from a BEN or XBEN file without
// materializing the rest of the sequence. Only the running reconstructed
// vector and one frame payload are held in memory.
//
// ok is false when n is beyond the last sample; that is an absent result,
// not an error. For raw mkv-chain files the read seeks to the nearest
// snapshot frame at or before n and replays deltas from there; XBEN
// sources are opaque until decompressed and are replayed sequentially.
func ReadSingle(path string, n int, optFns ...func(*DecoderOptions)) (vector []uint32, ok bool, err error) {
	if n < 0 {
		return nil, false, &InvalidSelectionError{Reason: fmt.Sprintf("negative sample index %d", n)}
	}
	d, err := NewDecoder(path, optFns...)
	if err != nil {
		return nil, false, err
	}
	defer func() {
		if cerr := d.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	found, err := d.position(n)
	if err != nil || !found {
		return nil, false, err
	}
	v, found, err := d.nextVector()
	if err != nil || !found {
		return nil, false, err
	}
	return v, true, nil
}
