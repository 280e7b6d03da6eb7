package memcache

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/mcproto/memcache/internal/testutils"
)

// newMockClient returns a client whose dials hand out the given
// connections in order. Dialing past the end fails, which doubles as an
// assertion that no unexpected reconnect happened.
func newMockClient(cfg Config, conns ...net.Conn) *Client {
	client := NewClient(cfg)
	next := 0
	client.dialFunc = func(ctx context.Context) (net.Conn, error) {
		if next >= len(conns) {
			return nil, errors.New("no connection scripted for this dial")
		}
		conn := conns[next]
		next++
		return conn, nil
	}
	return client
}

func newTestClient(conns ...net.Conn) *Client {
	return newMockClient(Config{}, conns...)
}

func mockConn(responseData ...string) *testutils.ConnectionMock {
	return testutils.NewConnectionMock(responseData...)
}

// createListener starts an in-process server that runs handler for each
// connection, and returns its address.
func createListener(t testing.TB, handler func(conn net.Conn)) string {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to start test server: %v", err)
	}

	t.Cleanup(func() {
		listener.Close()
	})

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}

			go func(c net.Conn) {
				defer c.Close()

				if handler != nil {
					handler(c)
				}
			}(conn)
		}
	}()

	return listener.Addr().String()
}

// miniServer emulates just enough of memcached for integration-style
// tests: set and get over an in-memory map.
func miniServer(conn net.Conn) {
	store := map[string]string{}
	reader := bufio.NewReader(conn)

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		fields := strings.Fields(strings.TrimRight(line, "\r\n"))
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "set":
			size, _ := strconv.Atoi(fields[4])
			payload := make([]byte, size+2)
			if _, err := io.ReadFull(reader, payload); err != nil {
				return
			}
			store[fields[1]] = string(payload[:size])
			conn.Write([]byte("STORED\r\n"))
		case "get":
			for _, key := range fields[1:] {
				if value, ok := store[key]; ok {
					header := fmt.Sprintf("VALUE %s 0 %d\r\n", key, len(value))
					conn.Write([]byte(header + value + "\r\n"))
				}
			}
			conn.Write([]byte("END\r\n"))
		case "quit":
			return
		default:
			conn.Write([]byte("ERROR\r\n"))
		}
	}
}

func testContext(t testing.TB) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}
