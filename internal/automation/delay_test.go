package automation

import (
	"context"
	"testing"
	"time"

	"github.com/redmi6provk-cell/tira-order-auto/internal/config"
)

func TestNextStaysWithinJitterBounds(t *testing.T) {
	d := NewDelays(config.DelayConfig{PageLoad: 2.0})
	base := 2 * time.Second
	lo := time.Duration(float64(base) * 0.8)
	hi := time.Duration(float64(base) * 1.2)

	for i := 0; i < 200; i++ {
		wait := d.Next(DelayPageLoad)
		if wait < lo || wait > hi {
			t.Fatalf("Next() = %v, want within [%v, %v]", wait, lo, hi)
		}
	}
}

func TestNextClampsToFloor(t *testing.T) {
	d := NewDelays(config.DelayConfig{Click: 0.001})
	for i := 0; i < 50; i++ {
		if wait := d.Next(DelayClick); wait < minDelay {
			t.Fatalf("Next() = %v, want at least %v", wait, minDelay)
		}
	}
}

func TestNextUnknownCategory(t *testing.T) {
	d := NewDelays(config.DelayConfig{})
	wait := d.Next(DelayCategory("mystery"))
	if wait < 800*time.Millisecond || wait > 1200*time.Millisecond {
		t.Errorf("Next(unknown) = %v, want near one second", wait)
	}
}

func TestWaitHonorsCancellation(t *testing.T) {
	d := NewDelays(config.DelayConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := d.Wait(ctx, 5*time.Second)
	if err == nil {
		t.Fatal("Wait() = nil on cancelled context, want error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Wait took %v after cancellation", elapsed)
	}
}
