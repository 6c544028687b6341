package ben

import (
	"github.com/ensemble-tools/ben/frame"
	"github.com/ensemble-tools/ben/xben"
)

// Variant selects the whole-file encoding strategy.
type Variant = frame.Variant

const (
	// Standard stores every sample as an independent full frame.
	Standard = frame.VariantStandard
	// MkvChain stores sparse deltas between consecutive samples, with a
	// full snapshot frame every SnapshotInterval frames.
	MkvChain = frame.VariantMkvChain
)

// DefaultSnapshotInterval is the default spacing of full snapshot frames
// in mkv-chain files. It bounds random access to decoding one snapshot
// plus at most DefaultSnapshotInterval-1 deltas.
const DefaultSnapshotInterval = 100

// Format identifies the on-disk representation of a decoder source.
type Format uint8

const (
	// FormatAuto sniffs BEN vs XBEN from the leading magic bytes.
	FormatAuto Format = iota
	// FormatBen reads the source as a raw BEN container.
	FormatBen
	// FormatXBen decompresses the source before reading frames.
	FormatXBen
)

// EncoderOptions configures NewEncoder.
type EncoderOptions struct {
	// Variant selects full-frame or delta encoding. Default Standard.
	Variant Variant
	// Overwrite allows replacing an existing destination.
	Overwrite bool
	// SnapshotInterval is the spacing of full snapshot frames in
	// mkv-chain files. Values below 1 fall back to the default.
	SnapshotInterval int
	// Logger receives progress and lifecycle events. Default is a noop.
	Logger *Logger
}

// DecoderOptions configures NewDecoder and ReadSingle.
type DecoderOptions struct {
	// Format forces the source format instead of sniffing the magic.
	Format Format
	// Envelope decompresses XBEN sources. Nil means sniff the envelope
	// from the stream magic.
	Envelope xben.Compressor
	// Logger receives progress and lifecycle events. Default is a noop.
	Logger *Logger
}

// TransformOptions configures the path-level transform operations.
type TransformOptions struct {
	// Overwrite allows replacing an existing destination.
	Overwrite bool
	// Variant selects the encoding strategy for operations that produce
	// BEN or XBEN output. Default Standard.
	Variant Variant
	// SnapshotInterval is the mkv-chain snapshot spacing.
	SnapshotInterval int
	// Envelope selects the XBEN compressor. Nil means the default (zstd)
	// when writing, magic sniffing when reading.
	Envelope xben.Compressor
	// Logger receives progress and lifecycle events. Default is a noop.
	Logger *Logger
}

func applyEncoderOptions(optFns []func(*EncoderOptions)) EncoderOptions {
	opts := EncoderOptions{
		Variant:          Standard,
		SnapshotInterval: DefaultSnapshotInterval,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&opts)
		}
	}
	if opts.SnapshotInterval < 1 {
		opts.SnapshotInterval = DefaultSnapshotInterval
	}
	if opts.Logger == nil {
		opts.Logger = NoopLogger()
	}
	return opts
}

func applyDecoderOptions(optFns []func(*DecoderOptions)) DecoderOptions {
	var opts DecoderOptions
	for _, fn := range optFns {
		if fn != nil {
			fn(&opts)
		}
	}
	if opts.Logger == nil {
		opts.Logger = NoopLogger()
	}
	return opts
}

func applyTransformOptions(optFns []func(*TransformOptions)) TransformOptions {
	opts := TransformOptions{
		Variant:          Standard,
		SnapshotInterval: DefaultSnapshotInterval,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&opts)
		}
	}
	if opts.SnapshotInterval < 1 {
		opts.SnapshotInterval = DefaultSnapshotInterval
	}
	if opts.Logger == nil {
		opts.Logger = NoopLogger()
	}
	return opts
}
