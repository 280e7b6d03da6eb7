// Package testutils provides a scriptable net.Conn for tests that need
// exact control over how the server's bytes are delivered.
package testutils

import (
	"bytes"
	"io"
	"net"
	"strings"
	"time"
)

// ConnectionMock is a mock net.Conn preloaded with response data. The
// response can be delivered in chunks of a fixed size to exercise framing
// across read boundaries.
type ConnectionMock struct {
	readBuf   *bytes.Buffer
	writeBuf  *bytes.Buffer
	chunkSize int // 0 delivers everything the buffer has
	closed    bool
}

// NewConnectionMock creates a mock connection that replies with the given
// data, concatenated.
func NewConnectionMock(responseData ...string) *ConnectionMock {
	return &ConnectionMock{
		readBuf:  bytes.NewBufferString(strings.Join(responseData, "")),
		writeBuf: &bytes.Buffer{},
	}
}

// Chunked limits every Read to n bytes, so CRLF terminators can be forced
// to straddle read boundaries.
func (m *ConnectionMock) Chunked(n int) *ConnectionMock {
	m.chunkSize = n
	return m
}

func (m *ConnectionMock) Read(b []byte) (int, error) {
	if m.closed {
		return 0, io.EOF
	}
	if m.chunkSize > 0 && len(b) > m.chunkSize {
		b = b[:m.chunkSize]
	}
	return m.readBuf.Read(b)
}

func (m *ConnectionMock) Write(b []byte) (int, error) {
	return m.writeBuf.Write(b)
}

func (m *ConnectionMock) Close() error {
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *ConnectionMock) Closed() bool {
	return m.closed
}

// WrittenRequest returns the raw bytes written to the connection so far.
func (m *ConnectionMock) WrittenRequest() string {
	return m.writeBuf.String()
}

func (m *ConnectionMock) LocalAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 0}
}

func (m *ConnectionMock) RemoteAddr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 11211}
}

func (m *ConnectionMock) SetDeadline(t time.Time) error      { return nil }
func (m *ConnectionMock) SetReadDeadline(t time.Time) error  { return nil }
func (m *ConnectionMock) SetWriteDeadline(t time.Time) error { return nil }
