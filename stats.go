package memcache

import "sync/atomic"

// ClientStats is a snapshot of per-client operation counters.
// All fields are plain totals since the client was created.
//
// For Prometheus integration, expose these as counters: Gets, GetHits,
// Stores, Deletes, Arithmetic, Errors, Reconnects.
type ClientStats struct {
	Gets       uint64 // fetch-family operations
	GetHits    uint64 // keys actually returned by the server
	Stores     uint64 // store-family operations that completed
	Deletes    uint64 // delete operations that completed
	Arithmetic uint64 // incr/decr operations that completed
	Errors     uint64 // operations that failed
	Reconnects uint64 // connections established, including the first
}

// clientStatsCollector updates counters with atomics so a snapshot can be
// taken while an operation is in flight on another goroutine.
type clientStatsCollector struct {
	gets       atomic.Uint64
	getHits    atomic.Uint64
	stores     atomic.Uint64
	deletes    atomic.Uint64
	arithmetic atomic.Uint64
	errors     atomic.Uint64
	reconnects atomic.Uint64
}

func (c *clientStatsCollector) recordGet(hits int) {
	c.gets.Add(1)
	c.getHits.Add(uint64(hits))
}

func (c *clientStatsCollector) recordStore()      { c.stores.Add(1) }
func (c *clientStatsCollector) recordDelete()     { c.deletes.Add(1) }
func (c *clientStatsCollector) recordArithmetic() { c.arithmetic.Add(1) }
func (c *clientStatsCollector) recordError()      { c.errors.Add(1) }
func (c *clientStatsCollector) recordReconnect()  { c.reconnects.Add(1) }

func (c *clientStatsCollector) snapshot() ClientStats {
	return ClientStats{
		Gets:       c.gets.Load(),
		GetHits:    c.getHits.Load(),
		Stores:     c.stores.Load(),
		Deletes:    c.deletes.Load(),
		Arithmetic: c.arithmetic.Load(),
		Errors:     c.errors.Load(),
		Reconnects: c.reconnects.Load(),
	}
}
