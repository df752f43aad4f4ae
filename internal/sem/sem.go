// Package sem provides a binary wake-up signal for one producer and one
// consumer. A give marks the signal pending and wakes at most one waiter; the
// signal carries at most one pending notification, so gives issued while one
// is already pending are reported but not accumulated.
package sem

import (
	"context"
	"time"
)

// Binary is a two-state (pending / not pending) signal backed by a capacity-1
// channel. Give never blocks; Take blocks until a notification is pending and
// consumes it.
type Binary struct {
	ch chan struct{}
}

// NewBinary creates a Binary signal in the not-pending state.
func NewBinary() *Binary {
	return &Binary{ch: make(chan struct{}, 1)}
}

// Give marks the signal pending and wakes one waiter if present. Never blocks.
// Returns false if a notification was already pending and not yet consumed;
// that is diagnostic only and does not mean data was lost, since the buffer
// tracks data independently of the signal.
func (b *Binary) Give() bool {
	select {
	case b.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

// Take blocks until a notification is pending, consumes it, and returns nil.
// Returns ctx.Err() if the context is cancelled first. A context without a
// deadline waits indefinitely. Exactly one Take is released per Give.
func (b *Binary) Take(ctx context.Context) error {
	select {
	case <-b.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TakeTimeout waits up to d for a notification. Returns false if the timeout
// elapses first.
func (b *Binary) TakeTimeout(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-b.ch:
		return true
	case <-t.C:
		return false
	}
}

// TryTake consumes a pending notification without blocking. Returns false if
// none is pending.
func (b *Binary) TryTake() bool {
	select {
	case <-b.ch:
		return true
	default:
		return false
	}
}

// Pending reports whether a notification is waiting to be consumed.
func (b *Binary) Pending() bool {
	return len(b.ch) == 1
}
