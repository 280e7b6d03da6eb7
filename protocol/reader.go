package protocol

import (
	"bytes"
	"io"
	"math"
	"strconv"
)

// readChunkSize is how much is requested from the stream per read.
const readChunkSize = 4096

var crlf = []byte(CRLF)

// Reader incrementally decodes CRLF-delimited lines and fixed-size data
// blocks from a byte stream. Bytes read past the token being returned are
// kept in a pending buffer and consumed by the next call, so the reader
// never over-reads into the next logical message regardless of how the
// stream chunks its data. A CRLF split across two reads is handled.
//
// A Reader owns its source for the lifetime of a connection and must be
// discarded together with it.
type Reader struct {
	src     io.Reader
	pending []byte
	chunk   []byte
}

// NewReader returns a Reader framing the given stream.
func NewReader(src io.Reader) *Reader {
	return &Reader{src: src}
}

// Buffered returns how many bytes are held in the pending buffer.
func (r *Reader) Buffered() int {
	return len(r.pending)
}

// ReadLine consumes bytes up to and including the next CRLF and returns the
// line with the terminator stripped. The returned slice is owned by the
// caller. An EOF before the terminator is reported as an unexpected-close
// error; other stream failures are reported as transport errors.
func (r *Reader) ReadLine() ([]byte, error) {
	for {
		if idx := bytes.Index(r.pending, crlf); idx >= 0 {
			line := make([]byte, idx)
			copy(line, r.pending)
			r.pending = r.pending[idx+2:]
			return line, nil
		}
		if err := r.fill(); err != nil {
			return nil, err
		}
	}
}

// ReadValue consumes exactly size bytes followed by CRLF and returns the
// size bytes; the terminator is discarded. A data block not ending in CRLF
// means the declared size and the stream disagree, which is reported as an
// unknown-response error, as is a size that cannot name a real block.
func (r *Reader) ReadValue(size int) ([]byte, error) {
	if size < 0 || size > math.MaxInt-len(crlf) {
		return nil, NewError(KindUnknownResponse, "invalid data block size "+strconv.Itoa(size))
	}
	need := size + len(crlf)
	for len(r.pending) < need {
		if err := r.fill(); err != nil {
			return nil, err
		}
	}
	if !bytes.Equal(r.pending[size:need], crlf) {
		return nil, NewError(KindUnknownResponse, "data block not terminated by CRLF")
	}
	value := make([]byte, size)
	copy(value, r.pending)
	r.pending = r.pending[need:]
	return value, nil
}

// fill reads one chunk from the stream into the pending buffer.
func (r *Reader) fill() error {
	if r.chunk == nil {
		r.chunk = make([]byte, readChunkSize)
	}
	for {
		n, err := r.src.Read(r.chunk)
		if n > 0 {
			r.pending = append(r.pending, r.chunk[:n]...)
			return nil
		}
		if err == nil {
			continue
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return NewError(KindUnexpectedClose, "connection closed mid-response")
		}
		return WrapTransport(err)
	}
}
