// Package pipe wires one producer task and one consumer task to a shared SPSC
// ring buffer and a binary wake-up signal. The producer writes batches of
// bytes and signals after every write attempt; the consumer blocks on the
// signal and drains everything buffered per wake, handing each drained batch
// to a diagnostic sink.
package pipe

import (
	"fmt"
	"time"

	"signalpipe/internal/ringbuf"
	"signalpipe/internal/sem"
)

const (
	// DefaultRingCapacity mirrors the classic 32-slot demo buffer (31 usable).
	DefaultRingCapacity = 32
	DefaultBatchSize    = 3
	DefaultDelay        = 10 * time.Millisecond
	DefaultAlphabet     = "abcdefghijklmnopqrstuvwxyz"
)

// Config controls the producer/consumer pair.
type Config struct {
	// RingCapacity is the ring storage size; rounded up to a power of two,
	// one slot of which stays reserved.
	RingCapacity int
	// BatchSize is the number of bytes the producer writes per cycle.
	BatchSize int
	// Delay is the producer's pause between batches. It bounds producer
	// throughput independent of scheduling.
	Delay time.Duration
	// WaitTimeout bounds each consumer wait. Zero means wait indefinitely.
	WaitTimeout time.Duration
	// Alphabet supplies the byte values the producer cycles through.
	Alphabet string
}

func (c *Config) setDefaults() {
	if c.RingCapacity == 0 {
		c.RingCapacity = DefaultRingCapacity
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Delay == 0 {
		c.Delay = DefaultDelay
	}
	if c.Alphabet == "" {
		c.Alphabet = DefaultAlphabet
	}
}

// validate rejects configurations the tasks cannot run with. A failure here is
// fatal at startup: the caller must not launch the tasks.
func (c *Config) validate() error {
	if c.RingCapacity < 2 {
		return fmt.Errorf("ring capacity must be at least 2, got %d", c.RingCapacity)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch size must be at least 1, got %d", c.BatchSize)
	}
	if c.Delay < 0 {
		return fmt.Errorf("producer delay must not be negative, got %v", c.Delay)
	}
	if c.WaitTimeout < 0 {
		return fmt.Errorf("consumer wait timeout must not be negative, got %v", c.WaitTimeout)
	}
	if len(c.Alphabet) == 0 {
		return fmt.Errorf("alphabet must not be empty")
	}
	return nil
}

// Pipe owns the shared ring, the signal, and the two tasks operating on them.
// Exactly one producer and one consumer per Pipe; that one-to-one discipline
// is what lets the ring run without locks.
type Pipe struct {
	Ring     *ringbuf.Ring
	Signal   *sem.Binary
	Producer *Producer
	Consumer *Consumer
}

// New validates cfg and builds the pipe. On error nothing is started and the
// caller must halt instead of running partially.
func New(cfg Config, sink Sink) (*Pipe, error) {
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("pipe config: %w", err)
	}
	if sink == nil {
		sink = MultiSink(nil)
	}

	ring := ringbuf.New(cfg.RingCapacity)
	signal := sem.NewBinary()

	return &Pipe{
		Ring:     ring,
		Signal:   signal,
		Producer: newProducer(ring, signal, cfg),
		Consumer: newConsumer(ring, signal, cfg, sink),
	}, nil
}
