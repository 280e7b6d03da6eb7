package protocol

import (
	"bytes"
	"errors"
	"io"
	"math"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/require"
)

// chunkedReader delivers its chunks one Read at a time, then EOF.
type chunkedReader struct {
	chunks [][]byte
}

func (r *chunkedReader) Read(b []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(b, r.chunks[0])
	if n == len(r.chunks[0]) {
		r.chunks = r.chunks[1:]
	} else {
		r.chunks[0] = r.chunks[0][n:]
	}
	return n, nil
}

func TestReadLine(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte("STORED\r\nEND\r\n")))

	line, err := r.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "STORED", string(line))

	line, err = r.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "END", string(line))
}

func TestReadLineKeepsExcessBytes(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte("VALUE k 0 5\r\nhello\r\nEND\r\n")))

	line, err := r.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "VALUE k 0 5", string(line))
	require.Equal(t, len("hello\r\nEND\r\n"), r.Buffered())

	value, err := r.ReadValue(5)
	require.NoError(t, err)
	require.Equal(t, "hello", string(value))

	line, err = r.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "END", string(line))
	require.Zero(t, r.Buffered())
}

func TestReadLineOneByteAtATime(t *testing.T) {
	r := NewReader(iotest.OneByteReader(bytes.NewReader([]byte("NOT_FOUND\r\n"))))

	line, err := r.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "NOT_FOUND", string(line))
}

func TestReadLineTerminatorAcrossChunks(t *testing.T) {
	r := NewReader(&chunkedReader{chunks: [][]byte{
		[]byte("DELETED\r"),
		[]byte("\nEND\r\n"),
	}})

	line, err := r.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "DELETED", string(line))

	line, err = r.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "END", string(line))
}

func TestReadValueTerminatorAcrossChunks(t *testing.T) {
	r := NewReader(&chunkedReader{chunks: [][]byte{
		[]byte("abcde\r"),
		[]byte("\nrest\r\n"),
	}})

	value, err := r.ReadValue(5)
	require.NoError(t, err)
	require.Equal(t, "abcde", string(value))

	line, err := r.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "rest", string(line))
}

func TestReadValueEmbeddedCRLF(t *testing.T) {
	// A data block may contain the terminator sequence; only its length
	// delimits it.
	r := NewReader(bytes.NewReader([]byte("a\r\nb\r\nEND\r\n")))

	value, err := r.ReadValue(4)
	require.NoError(t, err)
	require.Equal(t, "a\r\nb", string(value))

	line, err := r.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "END", string(line))
}

func TestReadValueBadTerminator(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte("abcdeXXEND\r\n")))

	_, err := r.ReadValue(5)
	require.Error(t, err)
	require.True(t, IsKind(err, KindUnknownResponse))
}

func TestReadValueHostileSize(t *testing.T) {
	// A size near MaxInt must not overflow the terminator arithmetic and
	// panic; it is classified like any other impossible data block.
	for _, size := range []int{-1, math.MaxInt, math.MaxInt - 1} {
		r := NewReader(bytes.NewReader([]byte("whatever\r\n")))

		_, err := r.ReadValue(size)
		require.Error(t, err, "size %d", size)
		require.True(t, IsKind(err, KindUnknownResponse), "size %d: got %v", size, err)
	}
}

func TestReadLineUnexpectedClose(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte("STOR")))

	_, err := r.ReadLine()
	require.Error(t, err)
	require.True(t, IsKind(err, KindUnexpectedClose))
}

func TestReadValueUnexpectedClose(t *testing.T) {
	r := NewReader(bytes.NewReader([]byte("abc")))

	_, err := r.ReadValue(5)
	require.Error(t, err)
	require.True(t, IsKind(err, KindUnexpectedClose))
}

func TestReadLineTransportError(t *testing.T) {
	cause := errors.New("boom")
	r := NewReader(iotest.ErrReader(cause))

	_, err := r.ReadLine()
	require.True(t, IsKind(err, KindTransport))
	require.ErrorIs(t, err, cause)
}

// TestFramingSplitInvariance exercises every split point of a full
// response: framing results must not depend on chunk boundaries.
func TestFramingSplitInvariance(t *testing.T) {
	stream := []byte("VALUE key 42 6\r\nv\r\nlue\r\nEND\r\n")

	for split := 0; split <= len(stream); split++ {
		r := NewReader(&chunkedReader{chunks: [][]byte{
			stream[:split],
			stream[split:],
		}})

		line, err := r.ReadLine()
		require.NoError(t, err, "split at %d", split)
		require.Equal(t, "VALUE key 42 6", string(line), "split at %d", split)

		value, err := r.ReadValue(6)
		require.NoError(t, err, "split at %d", split)
		require.Equal(t, "v\r\nlue", string(value), "split at %d", split)

		line, err = r.ReadLine()
		require.NoError(t, err, "split at %d", split)
		require.Equal(t, "END", string(line), "split at %d", split)
	}
}
