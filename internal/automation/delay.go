package automation

import (
	"context"
	"math/rand"
	"time"

	"github.com/redmi6provk-cell/tira-order-auto/internal/config"
)

// DelayCategory names one pacing bucket.
type DelayCategory string

const (
	DelayPageLoad        DelayCategory = "page_load"
	DelayClick           DelayCategory = "click"
	DelayInput           DelayCategory = "input"
	DelayBetweenProducts DelayCategory = "between_products"
	DelayBeforeCheckout  DelayCategory = "before_checkout"
)

// minDelay is the floor any computed wait is clamped to.
const minDelay = 100 * time.Millisecond

// Delays produces randomized pacing waits between automation actions.
// Base delay per category comes from config; the actual wait is jittered
// by +/-20% and clamped to a positive floor. Safe for concurrent use.
type Delays struct {
	base map[DelayCategory]time.Duration
}

// NewDelays builds a scheduler from the configured base delays.
func NewDelays(cfg config.DelayConfig) *Delays {
	secs := func(s float64) time.Duration {
		return time.Duration(s * float64(time.Second))
	}
	return &Delays{
		base: map[DelayCategory]time.Duration{
			DelayPageLoad:        secs(cfg.PageLoad),
			DelayClick:           secs(cfg.Click),
			DelayInput:           secs(cfg.Input),
			DelayBetweenProducts: secs(cfg.BetweenProducts),
			DelayBeforeCheckout:  secs(cfg.BeforeCheckout),
		},
	}
}

// Next returns the jittered wait for a category without sleeping.
// Unknown categories use a one second base.
func (d *Delays) Next(category DelayCategory) time.Duration {
	base, ok := d.base[category]
	if !ok {
		base = time.Second
	}

	jitter := time.Duration((rand.Float64()*0.4 - 0.2) * float64(base))
	wait := base + jitter
	if wait < minDelay {
		wait = minDelay
	}
	return wait
}

// Sleep waits for the category's jittered delay, or until the context is
// done, whichever comes first.
func (d *Delays) Sleep(ctx context.Context, category DelayCategory) error {
	return d.Wait(ctx, d.Next(category))
}

// Wait sleeps for an explicit duration, honoring context cancellation.
func (d *Delays) Wait(ctx context.Context, wait time.Duration) error {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
