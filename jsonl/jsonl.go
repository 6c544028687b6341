// Package jsonl adapts the line-delimited JSON assignment format.
//
// Each line is an object of the form {"assignment": [...], "sample": n}.
// The sample field is written 1-based for compatibility with existing
// tooling; on read it is ignored and line order is authoritative.
package jsonl

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

const (
	initialLineBuffer = 64 * 1024
	// maxLineBuffer bounds a single JSONL line; block-level plans with
	// millions of units stay well under this.
	maxLineBuffer = 256 * 1024 * 1024
)

type line struct {
	Assignment []uint32 `json:"assignment"`
	Sample     uint64   `json:"sample"`
}

// Reader yields one assignment vector per input line.
type Reader struct {
	sc  *bufio.Scanner
	num int
}

// NewReader wraps r for line-by-line reading.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, initialLineBuffer), maxLineBuffer)
	return &Reader{sc: sc}
}

// Next returns the next assignment vector. Blank lines are skipped. It
// returns io.EOF at end of input.
func (r *Reader) Next() ([]uint32, error) {
	for r.sc.Scan() {
		r.num++
		text := bytes.TrimSpace(r.sc.Bytes())
		if len(text) == 0 {
			continue
		}
		var l line
		if err := json.Unmarshal(text, &l); err != nil {
			return nil, fmt.Errorf("jsonl: line %d: %w", r.num, err)
		}
		return l.Assignment, nil
	}
	if err := r.sc.Err(); err != nil {
		return nil, fmt.Errorf("jsonl: line %d: %w", r.num+1, err)
	}
	return nil, io.EOF
}

// Writer emits one assignment object per line with 1-based sample numbers.
type Writer struct {
	bw     *bufio.Writer
	sample uint64
}

// NewWriter wraps w for buffered line output.
func NewWriter(w io.Writer) *Writer {
	return &Writer{bw: bufio.NewWriterSize(w, initialLineBuffer)}
}

// Write appends one vector as a JSONL line.
func (w *Writer) Write(v []uint32) error {
	if v == nil {
		v = []uint32{}
	}
	w.sample++
	b, err := json.Marshal(line{Assignment: v, Sample: w.sample})
	if err != nil {
		return err
	}
	if _, err := w.bw.Write(b); err != nil {
		return err
	}
	return w.bw.WriteByte('\n')
}

// Flush writes any buffered lines to the underlying writer.
func (w *Writer) Flush() error {
	return w.bw.Flush()
}
