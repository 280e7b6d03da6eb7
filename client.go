// Package memcache is a memcached client for the classic text protocol,
// speaking over a single persistent connection with strict request/response
// ordering. The connection is established lazily, torn down on any failure
// mid-command, and re-established transparently by the next call.
package memcache

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/mcproto/memcache/protocol"
)

// NoExpire stores items without an expiry.
const NoExpire int32 = 0

// Item is a single cache entry as seen by the caller. Value carries
// whatever the configured deserializer produced ([]byte by default).
type Item struct {
	Key   string
	Value any
	Flags uint16
	Cas   string // populated by Gets/GetsMany only
	Found bool
}

// Config holds the client configuration. The zero value of every field is
// a usable default except Addr, which is required.
type Config struct {
	// Addr is the server address, "host:port" for tcp.
	Addr string

	// Network is the dial network, "tcp" by default. Set "unix" with a
	// socket path in Addr to reach a local server.
	Network string

	// ConnectTimeout bounds connection establishment. Zero means the
	// operating system default.
	ConnectTimeout time.Duration

	// Timeout bounds each send/receive on the connection. A context
	// deadline, when present, takes precedence. Zero means no limit.
	Timeout time.Duration

	// NoDelay sets TCP_NODELAY on new connections.
	NoDelay bool

	// IgnoreFetchErrors makes the fetch family (Get, GetMany, Gets,
	// GetsMany) report any failure as an empty result instead of an
	// error. The connection is still torn down. All other operations
	// always propagate failures.
	IgnoreFetchErrors bool

	// Serializer and Deserializer convert caller values to and from wire
	// bytes plus the 16-bit flags field. When nil, values must be []byte
	// or string and come back as []byte.
	Serializer   SerializeFunc
	Deserializer DeserializeFunc

	// Dialer overrides the net.Dialer used to create connections.
	Dialer *net.Dialer

	// NewCircuitBreaker, when set, is called once with the server address
	// and the returned breaker guards every operation. See
	// NewCircuitBreakerConfig. Nil disables circuit breaking.
	NewCircuitBreaker func(addr string) CircuitBreaker
}

// Client talks to one memcached server over one connection.
//
// A Client is not safe for concurrent use: the protocol allows a single
// request in flight, so callers must serialize operations externally.
type Client struct {
	cfg         Config
	serialize   SerializeFunc
	deserialize DeserializeFunc
	breaker     CircuitBreaker

	conn  *connection
	stats clientStatsCollector

	// test hook replacing the dialer
	dialFunc func(ctx context.Context) (net.Conn, error)
}

// NewClient creates a client for the given server. No connection is made
// until the first operation.
func NewClient(cfg Config) *Client {
	c := &Client{
		cfg:         cfg,
		serialize:   cfg.Serializer,
		deserialize: cfg.Deserializer,
	}
	if c.serialize == nil {
		c.serialize = defaultSerialize
	}
	if c.deserialize == nil {
		c.deserialize = defaultDeserialize
	}
	if cfg.NewCircuitBreaker != nil {
		c.breaker = cfg.NewCircuitBreaker(cfg.Addr)
	}
	return c
}

// acquire returns the live connection, dialing if there is none, and arms
// the per-operation deadline.
func (c *Client) acquire(ctx context.Context) (*connection, error) {
	if c.conn == nil {
		conn, err := c.dial(ctx)
		if err != nil {
			return nil, err
		}
		c.conn = conn
		c.stats.recordReconnect()
	}
	if err := c.conn.setDeadline(ctx, c.cfg.Timeout); err != nil {
		c.teardown()
		return nil, err
	}
	return c.conn, nil
}

// teardown closes the connection and discards its pending buffer. The next
// operation reconnects.
func (c *Client) teardown() {
	if c.conn != nil {
		c.conn.close()
		c.conn = nil
	}
}

// roundTrip runs one send/receive sequence. Any failure inside fn tears
// the connection down before the error is returned, so the client never
// appears connected after a fault.
func (c *Client) roundTrip(ctx context.Context, fn func(cn *connection) (any, error)) (any, error) {
	if c.breaker != nil {
		return c.breaker.Execute(func() (any, error) {
			return c.roundTripDirect(ctx, fn)
		})
	}
	return c.roundTripDirect(ctx, fn)
}

func (c *Client) roundTripDirect(ctx context.Context, fn func(cn *connection) (any, error)) (any, error) {
	cn, err := c.acquire(ctx)
	if err != nil {
		c.stats.recordError()
		return nil, err
	}
	result, err := fn(cn)
	if err != nil {
		c.teardown()
		c.stats.recordError()
		return nil, err
	}
	return result, nil
}

// store runs one store-family command and returns the outcome token, or ""
// under noreply.
func (c *Client) store(ctx context.Context, name, key string, value any, expire int32, noreply bool, cas string) (string, error) {
	data, flags, err := c.serialize(key, value)
	if err != nil {
		return "", err
	}
	cmd := protocol.Command{
		Name:    name,
		Key:     key,
		Flags:   flags,
		Expire:  expire,
		Cas:     cas,
		Value:   data,
		NoReply: noreply,
	}
	wire, err := cmd.Encode()
	if err != nil {
		return "", err
	}

	result, err := c.roundTrip(ctx, func(cn *connection) (any, error) {
		if err := cn.write(wire); err != nil {
			return nil, err
		}
		if noreply {
			return "", nil
		}
		line, err := cn.reader.ReadLine()
		if err != nil {
			return nil, err
		}
		return protocol.ClassifyStoreReply(name, line)
	})
	if err != nil {
		return "", err
	}
	c.stats.recordStore()
	return result.(string), nil
}

// Set unconditionally stores value under key. Returns "STORED", or "" under
// noreply.
func (c *Client) Set(ctx context.Context, key string, value any, expire int32, noreply bool) (string, error) {
	return c.store(ctx, protocol.CmdSet, key, value, expire, noreply, "")
}

// Add stores value only if key does not exist. Returns "STORED" or
// "NOT_STORED".
func (c *Client) Add(ctx context.Context, key string, value any, expire int32, noreply bool) (string, error) {
	return c.store(ctx, protocol.CmdAdd, key, value, expire, noreply, "")
}

// Replace stores value only if key already exists. Returns "STORED" or
// "NOT_STORED".
func (c *Client) Replace(ctx context.Context, key string, value any, expire int32, noreply bool) (string, error) {
	return c.store(ctx, protocol.CmdReplace, key, value, expire, noreply, "")
}

// Append concatenates value after the existing value of key.
func (c *Client) Append(ctx context.Context, key string, value any, expire int32, noreply bool) (string, error) {
	return c.store(ctx, protocol.CmdAppend, key, value, expire, noreply, "")
}

// Prepend concatenates value before the existing value of key.
func (c *Client) Prepend(ctx context.Context, key string, value any, expire int32, noreply bool) (string, error) {
	return c.store(ctx, protocol.CmdPrepend, key, value, expire, noreply, "")
}

// Cas stores value only if the entry's version still matches cas, a token
// previously obtained from Gets. Returns "STORED", "EXISTS" when the token
// is stale, or "NOT_FOUND" when the key is gone.
func (c *Client) Cas(ctx context.Context, key string, value any, cas string, expire int32, noreply bool) (string, error) {
	return c.store(ctx, protocol.CmdCas, key, value, expire, noreply, cas)
}

// SetMany stores the given items in order, one set command per item. The
// helper is best-effort: it stops at the first failure and the outcome of
// items not yet sent is undefined.
func (c *Client) SetMany(ctx context.Context, items []Item, expire int32, noreply bool) error {
	for _, item := range items {
		if _, err := c.Set(ctx, item.Key, item.Value, expire, noreply); err != nil {
			return err
		}
	}
	return nil
}

// fetch runs one fetch-family command over all keys in a single round trip.
func (c *Client) fetch(ctx context.Context, name string, keys []string, withCas bool) (map[string]Item, error) {
	if len(keys) == 0 {
		return map[string]Item{}, nil
	}
	cmd := protocol.Command{Name: name, Keys: keys}
	wire, err := cmd.Encode()
	if err != nil {
		return nil, err
	}

	result, err := c.roundTrip(ctx, func(cn *connection) (any, error) {
		if err := cn.write(wire); err != nil {
			return nil, err
		}
		values, err := protocol.ReadValues(cn.reader, name, withCas)
		if err != nil {
			return nil, err
		}
		items := make(map[string]Item, len(values))
		for _, v := range values {
			decoded, err := c.deserialize(v.Key, v.Data, v.Flags)
			if err != nil {
				return nil, err
			}
			items[v.Key] = Item{
				Key:   v.Key,
				Value: decoded,
				Flags: v.Flags,
				Cas:   v.Cas,
				Found: true,
			}
		}
		return items, nil
	})
	if err != nil {
		if c.cfg.IgnoreFetchErrors {
			return map[string]Item{}, nil
		}
		return nil, err
	}

	items := result.(map[string]Item)
	c.stats.recordGet(len(items))
	return items, nil
}

// Get fetches one key. A miss is not an error: Item.Found is false.
func (c *Client) Get(ctx context.Context, key string) (Item, error) {
	items, err := c.fetch(ctx, protocol.CmdGet, []string{key}, false)
	if err != nil {
		return Item{}, err
	}
	item, ok := items[key]
	if !ok {
		return Item{Key: key}, nil
	}
	return item, nil
}

// GetMany fetches several keys in one round trip. Keys the server did not
// return are absent from the map. An empty keys slice returns an empty map
// without touching the connection.
func (c *Client) GetMany(ctx context.Context, keys []string) (map[string]Item, error) {
	return c.fetch(ctx, protocol.CmdGet, keys, false)
}

// Gets is Get with the entry's cas token populated.
func (c *Client) Gets(ctx context.Context, key string) (Item, error) {
	items, err := c.fetch(ctx, protocol.CmdGets, []string{key}, true)
	if err != nil {
		return Item{}, err
	}
	item, ok := items[key]
	if !ok {
		return Item{Key: key}, nil
	}
	return item, nil
}

// GetsMany is GetMany with cas tokens populated.
func (c *Client) GetsMany(ctx context.Context, keys []string) (map[string]Item, error) {
	return c.fetch(ctx, protocol.CmdGets, keys, true)
}

// misc runs a single-line command and returns the reply line verbatim
// after error classification, or "" under noreply.
func (c *Client) misc(ctx context.Context, cmd protocol.Command) (string, error) {
	wire, err := cmd.Encode()
	if err != nil {
		return "", err
	}
	result, err := c.roundTrip(ctx, func(cn *connection) (any, error) {
		if err := cn.write(wire); err != nil {
			return nil, err
		}
		if cmd.NoReply {
			return "", nil
		}
		line, err := cn.reader.ReadLine()
		if err != nil {
			return nil, err
		}
		if err := protocol.ClassifyErrorLine(line, cmd.Name); err != nil {
			return nil, err
		}
		return string(line), nil
	})
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

// Delete removes key. Returns "DELETED" or "NOT_FOUND", or "" under
// noreply.
func (c *Client) Delete(ctx context.Context, key string, noreply bool) (string, error) {
	reply, err := c.misc(ctx, protocol.Command{Name: protocol.CmdDelete, Key: key, NoReply: noreply})
	if err != nil {
		return "", err
	}
	c.stats.recordDelete()
	return reply, nil
}

// DeleteMany deletes the given keys, one command per key, sequentially.
// Best-effort like SetMany: the first failure aborts the loop.
func (c *Client) DeleteMany(ctx context.Context, keys []string, noreply bool) error {
	for _, key := range keys {
		if _, err := c.Delete(ctx, key, noreply); err != nil {
			return err
		}
	}
	return nil
}

// arith runs incr or decr. found is false when the server answered
// NOT_FOUND, and value is the new counter value otherwise. Under noreply
// both are zero values.
func (c *Client) arith(ctx context.Context, name, key string, delta uint64, noreply bool) (value uint64, found bool, err error) {
	cmd := protocol.Command{Name: name, Key: key, Delta: delta, NoReply: noreply}
	wire, err := cmd.Encode()
	if err != nil {
		return 0, false, err
	}

	type reply struct {
		value uint64
		found bool
	}
	result, err := c.roundTrip(ctx, func(cn *connection) (any, error) {
		if err := cn.write(wire); err != nil {
			return nil, err
		}
		if noreply {
			return reply{}, nil
		}
		line, err := cn.reader.ReadLine()
		if err != nil {
			return nil, err
		}
		if err := protocol.ClassifyErrorLine(line, name); err != nil {
			return nil, err
		}
		if string(line) == protocol.TokenNotFound {
			return reply{}, nil
		}
		n, err := strconv.ParseUint(string(line), 10, 64)
		if err != nil {
			return nil, protocol.NewError(protocol.KindUnknownResponse, protocol.Excerpt(line))
		}
		return reply{value: n, found: true}, nil
	})
	if err != nil {
		return 0, false, err
	}
	c.stats.recordArithmetic()
	r := result.(reply)
	return r.value, r.found, nil
}

// Incr adds delta to the counter at key. found is false when the key does
// not exist; the counter is not created.
func (c *Client) Incr(ctx context.Context, key string, delta uint64, noreply bool) (value uint64, found bool, err error) {
	return c.arith(ctx, protocol.CmdIncr, key, delta, noreply)
}

// Decr subtracts delta from the counter at key, stopping at zero.
func (c *Client) Decr(ctx context.Context, key string, delta uint64, noreply bool) (value uint64, found bool, err error) {
	return c.arith(ctx, protocol.CmdDecr, key, delta, noreply)
}

// Touch updates the expiry of key without fetching it. Returns "OK" or
// "NOT_FOUND".
func (c *Client) Touch(ctx context.Context, key string, expire int32, noreply bool) (string, error) {
	return c.misc(ctx, protocol.Command{Name: protocol.CmdTouch, Key: key, Expire: expire, NoReply: noreply})
}

// FlushAll invalidates every item on the server, after delay seconds when
// given. Returns "OK".
func (c *Client) FlushAll(ctx context.Context, delay int32, noreply bool) (string, error) {
	return c.misc(ctx, protocol.Command{Name: protocol.CmdFlushAll, Expire: delay, NoReply: noreply})
}

// Stats fetches server statistics, optionally scoped by args ("items",
// "slabs", ...).
func (c *Client) Stats(ctx context.Context, args ...string) (map[string]string, error) {
	cmd := protocol.Command{Name: protocol.CmdStats, Keys: args}
	wire, err := cmd.Encode()
	if err != nil {
		return nil, err
	}
	result, err := c.roundTrip(ctx, func(cn *connection) (any, error) {
		if err := cn.write(wire); err != nil {
			return nil, err
		}
		return protocol.ReadStats(cn.reader, protocol.CmdStats)
	})
	if err != nil {
		return nil, err
	}
	return result.(map[string]string), nil
}

// Version returns the server version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	reply, err := c.misc(ctx, protocol.Command{Name: protocol.CmdVersion})
	if err != nil {
		return "", err
	}
	version, ok := cutVersion(reply)
	if !ok {
		c.teardown()
		c.stats.recordError()
		return "", protocol.NewError(protocol.KindUnknownResponse, protocol.Excerpt([]byte(reply)))
	}
	return version, nil
}

// Quit tells the server to close the connection and tears it down without
// awaiting a reply. The client stays usable and reconnects on the next
// operation. Quit on a disconnected client is a no-op.
func (c *Client) Quit(ctx context.Context) error {
	if c.conn == nil {
		return nil
	}
	wire, err := (&protocol.Command{Name: protocol.CmdQuit}).Encode()
	if err == nil {
		if err := c.conn.setDeadline(ctx, c.cfg.Timeout); err == nil {
			_ = c.conn.write(wire)
		}
	}
	c.teardown()
	return nil
}

// Close closes the connection, if any. The client stays usable.
func (c *Client) Close() error {
	c.teardown()
	return nil
}

// OpStats returns a snapshot of the client's operation counters.
func (c *Client) OpStats() ClientStats {
	return c.stats.snapshot()
}

func cutVersion(line string) (string, bool) {
	const prefix = protocol.TokenVersion + " "
	if len(line) < len(prefix) || line[:len(prefix)] != prefix {
		return "", false
	}
	return line[len(prefix):], true
}
