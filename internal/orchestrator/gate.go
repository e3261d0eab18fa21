// Package orchestrator drives bulk workflows across account ranges: it
// resolves ranges, gates concurrency, runs the per-account pipelines and
// aggregates their outcomes into task-level statistics.
package orchestrator

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Gate bounds how many session runners execute at once for one bulk task.
// Admission is FIFO per the underlying semaphore; a slot is released
// unconditionally on exit, so one runner's failure never starves the rest.
type Gate struct {
	sem *semaphore.Weighted
}

// NewGate creates a gate admitting at most limit concurrent runners.
func NewGate(limit int) *Gate {
	if limit < 1 {
		limit = 1
	}
	return &Gate{sem: semaphore.NewWeighted(int64(limit))}
}

// Run waits for a slot, invokes fn, and frees the slot when fn returns.
// The only error it returns is the context's, while waiting for admission.
func (g *Gate) Run(ctx context.Context, fn func()) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer g.sem.Release(1)
	fn()
	return nil
}
