package memcache

import (
	"context"
	"net"
	"time"

	"github.com/mcproto/memcache/protocol"
)

// connection is the exclusively-owned byte stream of a Client, paired with
// the protocol reader that holds its pending buffer. The two live and die
// together: closing the connection discards the buffer, and neither is ever
// reused across a reconnect.
type connection struct {
	netConn net.Conn
	reader  *protocol.Reader
}

func (c *Client) dial(ctx context.Context) (*connection, error) {
	if c.dialFunc != nil {
		netConn, err := c.dialFunc(ctx)
		if err != nil {
			return nil, protocol.WrapTransport(err)
		}
		return &connection{netConn: netConn, reader: protocol.NewReader(netConn)}, nil
	}

	var dialer net.Dialer
	if c.cfg.Dialer != nil {
		dialer = *c.cfg.Dialer
	}
	if dialer.Timeout == 0 {
		dialer.Timeout = c.cfg.ConnectTimeout
	}

	network := c.cfg.Network
	if network == "" {
		network = "tcp"
	}

	netConn, err := dialer.DialContext(ctx, network, c.cfg.Addr)
	if err != nil {
		return nil, protocol.WrapTransport(err)
	}

	if tcp, ok := netConn.(*net.TCPConn); ok && c.cfg.NoDelay {
		_ = tcp.SetNoDelay(true)
	}

	return &connection{netConn: netConn, reader: protocol.NewReader(netConn)}, nil
}

// setDeadline arms the per-operation I/O deadline. A context deadline wins
// over the configured timeout; with neither, the deadline is cleared.
func (cn *connection) setDeadline(ctx context.Context, timeout time.Duration) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		if timeout > 0 {
			deadline = time.Now().Add(timeout)
		} else {
			deadline = time.Time{}
		}
	}
	if err := cn.netConn.SetDeadline(deadline); err != nil {
		return protocol.WrapTransport(err)
	}
	return nil
}

func (cn *connection) write(data []byte) error {
	if _, err := cn.netConn.Write(data); err != nil {
		return protocol.WrapTransport(err)
	}
	return nil
}

func (cn *connection) close() {
	_ = cn.netConn.Close()
}
