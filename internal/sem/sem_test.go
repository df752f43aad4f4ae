package sem

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestBinary_GiveTake(t *testing.T) {
	b := NewBinary()

	if b.Pending() {
		t.Fatal("new signal should not be pending")
	}
	if !b.Give() {
		t.Fatal("give on fresh signal should succeed")
	}
	if !b.Pending() {
		t.Fatal("signal should be pending after give")
	}
	if err := b.Take(context.Background()); err != nil {
		t.Fatalf("take after give should succeed: %v", err)
	}
	if b.Pending() {
		t.Fatal("take should consume the pending state")
	}
}

func TestBinary_GiveWhilePendingNotAccumulated(t *testing.T) {
	b := NewBinary()

	if !b.Give() {
		t.Fatal("first give should succeed")
	}
	// Second and third gives find the notification still pending.
	if b.Give() {
		t.Fatal("give while pending should return false")
	}
	if b.Give() {
		t.Fatal("give while pending should return false")
	}

	// Only ONE take is released, no matter how many gives were attempted.
	if !b.TryTake() {
		t.Fatal("first take should succeed")
	}
	if b.TryTake() {
		t.Fatal("second take should find nothing pending")
	}
}

func TestBinary_TakeBlocksUntilGive(t *testing.T) {
	b := NewBinary()

	took := make(chan error, 1)
	started := make(chan struct{})
	go func() {
		close(started)
		took <- b.Take(context.Background())
	}()
	<-started

	// The taker must still be blocked: nothing was given yet.
	select {
	case err := <-took:
		t.Fatalf("take returned before give: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	b.Give()

	select {
	case err := <-took:
		if err != nil {
			t.Fatalf("take should succeed after give: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("take did not wake after give")
	}
}

func TestBinary_OneWakePerGive(t *testing.T) {
	b := NewBinary()

	const waiters = 4
	results := make(chan struct{}, waiters)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.Take(ctx) == nil {
				results <- struct{}{}
			}
		}()
	}

	b.Give()

	select {
	case <-results:
	case <-time.After(2 * time.Second):
		t.Fatal("give woke no waiter")
	}

	// Give released exactly one waiter; the rest must still be blocked.
	time.Sleep(50 * time.Millisecond)
	if got := len(results); got != 0 {
		t.Fatalf("expected exactly 1 wake per give, got %d extra", got)
	}

	cancel()
	wg.Wait()
}

func TestBinary_TakeTimeout(t *testing.T) {
	b := NewBinary()

	start := time.Now()
	if b.TakeTimeout(20 * time.Millisecond) {
		t.Fatal("take with no give should time out")
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Fatal("timeout returned early")
	}

	b.Give()
	if !b.TakeTimeout(time.Second) {
		t.Fatal("take after give should succeed within timeout")
	}
}

func TestBinary_TakeCancelled(t *testing.T) {
	b := NewBinary()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- b.Take(ctx) }()

	cancel()

	select {
	case err := <-errCh:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("take did not observe cancellation")
	}
}
