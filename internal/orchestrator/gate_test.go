package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestGateBoundsConcurrency(t *testing.T) {
	const limit = 3
	const runners = 20

	gate := NewGate(limit)
	var current, peak int64
	var wg sync.WaitGroup

	for i := 0; i < runners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := gate.Run(context.Background(), func() {
				n := atomic.AddInt64(&current, 1)
				for {
					p := atomic.LoadInt64(&peak)
					if n <= p || atomic.CompareAndSwapInt64(&peak, p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt64(&current, -1)
			})
			if err != nil {
				t.Errorf("Run: %v", err)
			}
		}()
	}
	wg.Wait()

	if peak > limit {
		t.Errorf("peak concurrency = %d, want at most %d", peak, limit)
	}
	if peak == 0 {
		t.Error("no runner executed")
	}
}

func TestGateReleasesOnPanicFreePath(t *testing.T) {
	gate := NewGate(1)
	for i := 0; i < 5; i++ {
		if err := gate.Run(context.Background(), func() {}); err != nil {
			t.Fatalf("Run %d: %v", i, err)
		}
	}
}

func TestGateHonorsContext(t *testing.T) {
	gate := NewGate(1)
	block := make(chan struct{})
	go gate.Run(context.Background(), func() { <-block })
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := gate.Run(ctx, func() {}); err == nil {
		t.Error("Run should fail when the context expires while waiting")
	}
	close(block)
}

func TestGateZeroLimit(t *testing.T) {
	gate := NewGate(0)
	if err := gate.Run(context.Background(), func() {}); err != nil {
		t.Errorf("Run with clamped limit: %v", err)
	}
}
