// Package ringbuf provides a lock-free, single-producer single-consumer (SPSC)
// circular byte buffer. The write index is mutated only by the producer and the
// read index only by the consumer, so no lock is needed under that discipline;
// atomic index loads/stores give cross-goroutine visibility.
package ringbuf

import "sync/atomic"

// cacheLine is the typical x86-64 cache line size used for padding.
const cacheLine = 64

// Ring is an SPSC circular byte buffer. Storage size is a power of two so the
// index advance is a bitwise and; one slot stays permanently unused to
// disambiguate full from empty, so usable capacity is size−1.
type Ring struct {
	buf  []byte
	mask uint32

	// Separate cache lines to prevent false sharing between producer and consumer.
	_pad0 [cacheLine]byte
	w     atomic.Uint32 // written by producer
	_pad1 [cacheLine]byte
	r     atomic.Uint32 // written by consumer
	_pad2 [cacheLine]byte

	// Dropped puts (atomic, for metrics)
	dropped atomic.Uint64
}

// New creates a ring buffer. size is rounded up to the next power of two.
// Minimum size is 4, which leaves 3 usable slots.
func New(size int) *Ring {
	n := nextPow2(size)
	if n < 4 {
		n = 4
	}
	return &Ring{
		buf:  make([]byte, n),
		mask: uint32(n - 1),
	}
}

// Put stores one byte and advances the write index. Returns false if the
// buffer is full (the byte is NOT written and no index moves in that case).
// Non-blocking. Must be called only from the producer side.
func (q *Ring) Put(b byte) bool {
	w := q.w.Load()
	next := (w + 1) & q.mask
	if next == q.r.Load() {
		// Buffer full
		q.dropped.Add(1)
		return false
	}
	q.buf[w] = b
	q.w.Store(next)
	return true
}

// Get reads one byte and advances the read index. Returns false if the buffer
// is empty (no index moves). Non-blocking. Must be called only from the
// consumer side.
func (q *Ring) Get() (byte, bool) {
	r := q.r.Load()
	if r == q.w.Load() {
		// Buffer empty
		return 0, false
	}
	b := q.buf[r]
	q.r.Store((r + 1) & q.mask)
	return b, true
}

// Empty reports whether the buffer holds no data (read index == write index).
func (q *Ring) Empty() bool {
	return q.r.Load() == q.w.Load()
}

// Full reports whether advancing the write index by one would reach the read
// index.
func (q *Ring) Full() bool {
	return (q.w.Load()+1)&q.mask == q.r.Load()
}

// Len returns the current number of buffered bytes.
func (q *Ring) Len() int {
	return int((q.w.Load() - q.r.Load()) & q.mask)
}

// Cap returns the usable capacity (storage size minus the reserved slot).
func (q *Ring) Cap() int {
	return len(q.buf) - 1
}

// Dropped returns the total number of puts rejected because the buffer was full.
func (q *Ring) Dropped() uint64 {
	return q.dropped.Load()
}

// nextPow2 returns the smallest power of 2 >= n.
func nextPow2(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}
