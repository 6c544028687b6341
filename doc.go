// Package ben encodes and decodes ensembles of integer assignment vectors
// (one vector per sampled districting plan) between a line-delimited JSON
// text form, the compact BEN binary container, and the further-compressed
// XBEN archive form.
//
// Consecutive samples in an ensemble are typically produced by a
// local-move chain, so most entries are unchanged between neighbors. The
// standard variant run-length encodes each vector independently; the
// mkv-chain variant stores only the positions that changed since the
// previous sample, with periodic full snapshot frames so that random
// access does not require replaying the whole chain.
//
// Writing:
//
//	enc, err := ben.NewEncoder("plans.ben", func(o *ben.EncoderOptions) {
//	    o.Variant = ben.MkvChain
//	})
//	if err != nil { ... }
//	defer enc.Close()
//	for _, plan := range plans {
//	    if err := enc.Append(plan); err != nil { ... }
//	}
//
// Reading with subsampling:
//
//	dec, err := ben.NewDecoder("plans.ben")
//	if err != nil { ... }
//	defer dec.Close()
//	for dec.Stride(10, 0).Scan() {
//	    use(dec.Vector())
//	}
//	if err := dec.Err(); err != nil { ... }
//
// Path-level transformations between the three forms are exposed as
// CompressJSONLToBen, CompressBenToXBen, CompressJSONLToXBen,
// DecompressBenToJSONL, DecompressXBenToJSONL and DecompressXBenToBen.
package ben
