package ben

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/ensemble-tools/ben/frame"
	"github.com/ensemble-tools/ben/jsonl"
	"github.com/ensemble-tools/ben/xben"
)

// createDestination opens path for writing, honoring the overwrite flag.
func createDestination(path string, overwrite bool) (*os.File, error) {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrDestinationExists, path)
		}
		return nil, err
	}
	return f, nil
}

// removeOnError deletes a partially written destination so a failed
// transform does not leave a truncated file behind. created guards against
// deleting a pre-existing file the transform never touched.
func removeOnError(err error, created bool, path string) {
	if err != nil && created {
		_ = os.Remove(path)
	}
}

// CompressJSONLToBen encodes a JSONL ensemble into a BEN file.
func CompressJSONLToBen(src, dst string, optFns ...func(*TransformOptions)) (err error) {
	opts := applyTransformOptions(optFns)
	created := false
	defer func() {
		removeOnError(err, created, dst)
		opts.Logger.LogTransform("jsonl-to-ben", src, dst, 0, err)
	}()

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	enc, err := NewEncoder(dst, func(o *EncoderOptions) {
		o.Variant = opts.Variant
		o.Overwrite = opts.Overwrite
		o.SnapshotInterval = opts.SnapshotInterval
		o.Logger = opts.Logger
	})
	if err != nil {
		return err
	}
	created = true
	if err := appendAll(enc, jsonl.NewReader(in)); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

// CompressJSONLToXBen encodes a JSONL ensemble straight into an XBEN file,
// streaming the BEN byte stream through the compression envelope without
// an intermediate file. The envelope cannot be seeked, so the embedded
// header keeps the count-unknown sentinel and readers scan to EOF.
func CompressJSONLToXBen(src, dst string, optFns ...func(*TransformOptions)) (err error) {
	opts := applyTransformOptions(optFns)
	created := false
	defer func() {
		removeOnError(err, created, dst)
		opts.Logger.LogTransform("jsonl-to-xben", src, dst, 0, err)
	}()

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := createDestination(dst, opts.Overwrite)
	if err != nil {
		return err
	}
	created = true
	defer func() { _ = out.Close() }()

	env := opts.Envelope
	if env == nil {
		env = xben.Default
	}
	cw, err := env.NewWriter(out)
	if err != nil {
		return err
	}

	enc, err := newStreamEncoder(cw, EncoderOptions{
		Variant:          opts.Variant,
		SnapshotInterval: opts.SnapshotInterval,
		Logger:           opts.Logger,
	})
	if err != nil {
		_ = cw.Close()
		return err
	}
	if err := appendAll(enc, jsonl.NewReader(in)); err != nil {
		_ = enc.Close()
		_ = cw.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		_ = cw.Close()
		return err
	}
	if err := cw.Close(); err != nil {
		return err
	}
	if err := out.Sync(); err != nil {
		return err
	}
	return out.Close()
}

// CompressBenToXBen applies the compression envelope to a complete BEN
// file in one bulk pass.
func CompressBenToXBen(src, dst string, optFns ...func(*TransformOptions)) (err error) {
	opts := applyTransformOptions(optFns)
	created := false
	defer func() {
		removeOnError(err, created, dst)
		opts.Logger.LogTransform("ben-to-xben", src, dst, 0, err)
	}()

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()
	if err := requireBenSource(in); err != nil {
		return err
	}

	out, err := createDestination(dst, opts.Overwrite)
	if err != nil {
		return err
	}
	created = true
	defer func() { _ = out.Close() }()

	if err := xben.Compress(out, in, opts.Envelope); err != nil {
		return err
	}
	if err := out.Sync(); err != nil {
		return err
	}
	return out.Close()
}

// DecompressXBenToBen restores the exact BEN bytes from an XBEN file.
func DecompressXBenToBen(src, dst string, optFns ...func(*TransformOptions)) (err error) {
	opts := applyTransformOptions(optFns)
	created := false
	defer func() {
		removeOnError(err, created, dst)
		opts.Logger.LogTransform("xben-to-ben", src, dst, 0, err)
	}()

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	env := opts.Envelope
	if env == nil {
		var head [4]byte
		n, rerr := in.ReadAt(head[:], 0)
		if rerr != nil && !errors.Is(rerr, io.EOF) {
			return rerr
		}
		detected, ok := xben.Detect(head[:n])
		if !ok {
			return xben.ErrUnknownEnvelope
		}
		env = detected
	}

	out, err := createDestination(dst, opts.Overwrite)
	if err != nil {
		return err
	}
	created = true
	defer func() { _ = out.Close() }()

	if err := xben.Decompress(out, in, env); err != nil {
		return err
	}
	if err := out.Sync(); err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	// The envelope is content-agnostic; make sure what came out actually
	// is a BEN container before reporting success.
	restored, err := os.Open(dst)
	if err != nil {
		return err
	}
	defer func() { _ = restored.Close() }()
	if _, err := frame.ReadHeader(restored); err != nil {
		return err
	}
	return nil
}

// DecompressBenToJSONL decodes a BEN file back into JSONL text.
func DecompressBenToJSONL(src, dst string, optFns ...func(*TransformOptions)) error {
	return decodeToJSONL(src, dst, FormatBen, "ben-to-jsonl", optFns)
}

// DecompressXBenToJSONL decodes an XBEN file back into JSONL text.
func DecompressXBenToJSONL(src, dst string, optFns ...func(*TransformOptions)) error {
	return decodeToJSONL(src, dst, FormatXBen, "xben-to-jsonl", optFns)
}

func decodeToJSONL(src, dst string, format Format, op string, optFns []func(*TransformOptions)) (err error) {
	opts := applyTransformOptions(optFns)
	var samples uint64
	created := false
	defer func() {
		removeOnError(err, created, dst)
		opts.Logger.LogTransform(op, src, dst, samples, err)
	}()

	d, err := NewDecoder(src, func(o *DecoderOptions) {
		o.Format = format
		o.Envelope = opts.Envelope
		o.Logger = opts.Logger
	})
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	out, err := createDestination(dst, opts.Overwrite)
	if err != nil {
		return err
	}
	created = true
	defer func() { _ = out.Close() }()

	w := jsonl.NewWriter(out)
	for d.Scan() {
		if err := w.Write(d.Vector()); err != nil {
			return err
		}
		samples++
		if samples%progressEvery == 0 {
			opts.Logger.LogProgress(samples)
		}
	}
	if err := d.Err(); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if err := out.Sync(); err != nil {
		return err
	}
	return out.Close()
}

// appendAll drains a JSONL reader into an encoder.
func appendAll(enc *Encoder, r *jsonl.Reader) error {
	for {
		v, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := enc.Append(v); err != nil {
			return err
		}
	}
}

// requireBenSource validates the leading header of an already-open source
// and rewinds it for the bulk copy.
func requireBenSource(f *os.File) error {
	if _, err := frame.ReadHeader(f); err != nil {
		return err
	}
	_, err := f.Seek(0, io.SeekStart)
	return err
}
