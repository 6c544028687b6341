package jsonl

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	vectors := [][]uint32{
		{1, 1, 2, 2},
		{1, 1, 2, 3},
		{3, 3, 3, 3},
	}

	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, v := range vectors {
		require.NoError(t, w.Write(v))
	}
	require.NoError(t, w.Flush())

	r := NewReader(&buf)
	for _, want := range vectors {
		got, err := r.Next()
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := r.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestWriterNumbersSamplesFromOne(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.Write([]uint32{7}))
	require.NoError(t, w.Write([]uint32{8}))
	require.NoError(t, w.Flush())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.JSONEq(t, `{"assignment":[7],"sample":1}`, lines[0])
	require.JSONEq(t, `{"assignment":[8],"sample":2}`, lines[1])
}

func TestWriterNilVectorBecomesEmptyArray(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.Write(nil))
	require.NoError(t, w.Flush())
	require.JSONEq(t, `{"assignment":[],"sample":1}`, strings.TrimSpace(buf.String()))
}

func TestReaderSkipsBlankLines(t *testing.T) {
	in := "\n{\"assignment\":[1,2],\"sample\":1}\n\n   \n{\"assignment\":[3],\"sample\":2}\n\n"
	r := NewReader(strings.NewReader(in))

	v, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, []uint32{1, 2}, v)

	v, err = r.Next()
	require.NoError(t, err)
	require.Equal(t, []uint32{3}, v)

	_, err = r.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestReaderReportsLineNumberOnBadJSON(t *testing.T) {
	in := "{\"assignment\":[1],\"sample\":1}\nnot json\n"
	r := NewReader(strings.NewReader(in))

	_, err := r.Next()
	require.NoError(t, err)

	_, err = r.Next()
	require.Error(t, err)
	require.Contains(t, err.Error(), "line 2")
}

func TestReaderIgnoresSampleField(t *testing.T) {
	// Line order is authoritative even when sample numbers disagree.
	in := "{\"assignment\":[9],\"sample\":42}\n{\"assignment\":[5]}\n"
	r := NewReader(strings.NewReader(in))

	v, err := r.Next()
	require.NoError(t, err)
	require.Equal(t, []uint32{9}, v)

	v, err = r.Next()
	require.NoError(t, err)
	require.Equal(t, []uint32{5}, v)
}
