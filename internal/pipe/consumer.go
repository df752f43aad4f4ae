package pipe

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"signalpipe/internal/ringbuf"
	"signalpipe/internal/sem"
)

// Consumer blocks on the signal and, once woken, drains every byte currently
// buffered before blocking again. Draining everything per wake is what lets a
// single give release a whole batch written since the last wake.
type Consumer struct {
	ring    *ringbuf.Ring
	signal  *sem.Binary
	timeout time.Duration
	sink    Sink

	wakes      atomic.Uint64
	emptyWakes atomic.Uint64
	timeouts   atomic.Uint64
	bytes      atomic.Uint64
	batches    atomic.Uint64
	lastDrain  atomic.Int64 // unix nanos of the last non-empty drain

	// OnWake is called after each drain with the number of bytes retrieved
	// (possibly zero).
	OnWake func(drained int)
	// OnTimeout is called when a bounded wait elapses with no signal.
	OnTimeout func()
}

func newConsumer(ring *ringbuf.Ring, signal *sem.Binary, cfg Config, sink Sink) *Consumer {
	return &Consumer{
		ring:    ring,
		signal:  signal,
		timeout: cfg.WaitTimeout,
		sink:    sink,
	}
}

// Run waits and drains until ctx is cancelled. With the default unbounded
// wait the only way out of a wait is a give or cancellation; with a bounded
// wait, timeouts are counted and the loop keeps going.
func (c *Consumer) Run(ctx context.Context) {
	for {
		if c.timeout > 0 {
			waitCtx, cancel := context.WithTimeout(ctx, c.timeout)
			err := c.signal.Take(waitCtx)
			cancel()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				n := c.timeouts.Add(1)
				if c.OnTimeout != nil {
					c.OnTimeout()
				}
				log.Printf("[consumer] wait timed out (%d total)", n)
				continue
			}
		} else if err := c.signal.Take(ctx); err != nil {
			return
		}

		c.drain()
	}
}

// drain empties the ring and emits the retrieved bytes as one batch.
func (c *Consumer) drain() {
	c.wakes.Add(1)

	var batch []byte
	for {
		b, ok := c.ring.Get()
		if !ok {
			break
		}
		batch = append(batch, b)
	}

	n := len(batch)
	if n == 0 {
		// Woken with nothing buffered: the producer signals per attempt, so
		// an earlier wake may already have drained this give's bytes.
		c.emptyWakes.Add(1)
	} else {
		seq := c.batches.Add(1)
		c.bytes.Add(uint64(n))
		c.lastDrain.Store(time.Now().UnixNano())
		c.sink.Emit(batch, seq)
	}

	if c.OnWake != nil {
		c.OnWake(n)
	}
}

// ConsumerStats is a point-in-time snapshot of the consumer counters.
type ConsumerStats struct {
	Wakes      uint64 `json:"wakes"`
	EmptyWakes uint64 `json:"empty_wakes"`
	Timeouts   uint64 `json:"timeouts"`
	Bytes      uint64 `json:"bytes"`
	Batches    uint64 `json:"batches"`
}

// Stats snapshots the consumer counters.
func (c *Consumer) Stats() ConsumerStats {
	return ConsumerStats{
		Wakes:      c.wakes.Load(),
		EmptyWakes: c.emptyWakes.Load(),
		Timeouts:   c.timeouts.Load(),
		Bytes:      c.bytes.Load(),
		Batches:    c.batches.Load(),
	}
}

// LastDrain returns the time of the most recent non-empty drain, or the zero
// time if nothing has been drained yet.
func (c *Consumer) LastDrain() time.Time {
	ns := c.lastDrain.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}
