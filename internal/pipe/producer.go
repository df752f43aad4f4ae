package pipe

import (
	"context"
	"sync/atomic"
	"time"

	"signalpipe/internal/ringbuf"
	"signalpipe/internal/sem"
)

// Producer writes fixed-size batches of sequential alphabet bytes into the
// ring, one byte at a time, and gives the signal after every individual write
// attempt — success or failure. A spurious wake is harmless because the
// consumer drains whatever is buffered, and a give that finds the signal
// already pending is counted but loses nothing: the ring holds the data.
type Producer struct {
	ring     *ringbuf.Ring
	signal   *sem.Binary
	batch    int
	delay    time.Duration
	alphabet []byte

	attempts     atomic.Uint64 // put attempts, including dropped ones
	dropped      atomic.Uint64
	givesOK      atomic.Uint64
	givesPending atomic.Uint64

	// OnPut is called after every put attempt with its outcome.
	OnPut func(ok bool)
	// OnGive is called after every give with its outcome.
	OnGive func(ok bool)
}

func newProducer(ring *ringbuf.Ring, signal *sem.Binary, cfg Config) *Producer {
	return &Producer{
		ring:     ring,
		signal:   signal,
		batch:    cfg.BatchSize,
		delay:    cfg.Delay,
		alphabet: []byte(cfg.Alphabet),
	}
}

// Run writes batches until ctx is cancelled. Per-byte failures (ring full,
// signal already pending) are counted and never stop the loop.
func (p *Producer) Run(ctx context.Context) {
	for {
		p.runBatch()
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.delay):
		}
	}
}

// runBatch performs one write cycle: batch puts, each followed by a give.
func (p *Producer) runBatch() {
	for i := 0; i < p.batch; i++ {
		// The byte value is derived from the attempt counter, so a dropped
		// byte leaves a visible gap in the delivered sequence.
		n := p.attempts.Add(1) - 1
		b := p.alphabet[n%uint64(len(p.alphabet))]

		ok := p.ring.Put(b)
		if !ok {
			p.dropped.Add(1)
		}
		if p.OnPut != nil {
			p.OnPut(ok)
		}

		// Wake the consumer after every attempt, even when the byte was
		// dropped. The consumer tolerates wakes with nothing to drain.
		gave := p.signal.Give()
		if gave {
			p.givesOK.Add(1)
		} else {
			p.givesPending.Add(1)
		}
		if p.OnGive != nil {
			p.OnGive(gave)
		}
	}
}

// ProducerStats is a point-in-time snapshot of the producer counters.
type ProducerStats struct {
	Attempts     uint64 `json:"attempts"`
	Dropped      uint64 `json:"dropped"`
	GivesOK      uint64 `json:"gives_ok"`
	GivesPending uint64 `json:"gives_pending"`
}

// Stats snapshots the producer counters.
func (p *Producer) Stats() ProducerStats {
	return ProducerStats{
		Attempts:     p.attempts.Load(),
		Dropped:      p.dropped.Load(),
		GivesOK:      p.givesOK.Load(),
		GivesPending: p.givesPending.Load(),
	}
}
