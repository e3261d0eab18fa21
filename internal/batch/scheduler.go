// Package batch runs configured checkpoint sweeps on cron schedules. A
// sweep that is still running when its schedule fires again is skipped,
// never stacked.
package batch

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/redmi6provk-cell/tira-order-auto/internal/config"
	"github.com/redmi6provk-cell/tira-order-auto/internal/domain"
)

// RunFunc executes one sweep to completion. The batch scheduler calls it
// with the checkpoint config derived from the sweep definition.
type RunFunc func(ctx context.Context, name string, cfg domain.CheckpointConfig) error

// Scheduler fires checkpoint sweeps on their cron schedules.
type Scheduler struct {
	sweeps    map[string]config.SweepConfig
	schedules map[string]cron.Schedule

	mu      sync.RWMutex
	lastRun map[string]time.Time
	running map[string]bool

	stopChan chan struct{}
	stopOnce sync.Once
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// NewScheduler validates the sweep definitions and builds a scheduler.
// Cron expressions are parsed once, up front, so a typo fails at startup
// instead of at fire time.
func NewScheduler(sweeps []config.SweepConfig) (*Scheduler, error) {
	s := &Scheduler{
		sweeps:    make(map[string]config.SweepConfig),
		schedules: make(map[string]cron.Schedule),
		lastRun:   make(map[string]time.Time),
		running:   make(map[string]bool),
		stopChan:  make(chan struct{}),
	}

	for _, sw := range sweeps {
		if sw.Name == "" {
			return nil, fmt.Errorf("sweep without a name")
		}
		if _, dup := s.sweeps[sw.Name]; dup {
			return nil, fmt.Errorf("duplicate sweep %q", sw.Name)
		}
		if sw.RangeStart < 1 || sw.RangeEnd < sw.RangeStart {
			return nil, fmt.Errorf("sweep %q: invalid account range %d-%d", sw.Name, sw.RangeStart, sw.RangeEnd)
		}
		sched, err := cronParser.Parse(sw.Cron)
		if err != nil {
			return nil, fmt.Errorf("sweep %q: parsing cron %q: %w", sw.Name, sw.Cron, err)
		}
		s.sweeps[sw.Name] = sw
		s.schedules[sw.Name] = sched
	}

	return s, nil
}

// NextRun returns when the named sweep fires next, or the zero time for an
// unknown sweep.
func (s *Scheduler) NextRun(name string) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sched, ok := s.schedules[name]
	if !ok {
		return time.Time{}
	}
	return sched.Next(time.Now())
}

// Sweeps returns the names of all configured sweeps.
func (s *Scheduler) Sweeps() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.sweeps))
	for name := range s.sweeps {
		names = append(names, name)
	}
	return names
}

// shouldFire reports whether the sweep's schedule has passed since its
// last run. A sweep currently running never fires again in parallel.
func (s *Scheduler) shouldFire(name string, now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.running[name] {
		return false
	}

	last := s.lastRun[name]
	if last.IsZero() {
		last = now.Add(-24 * time.Hour)
	}
	return now.After(s.schedules[name].Next(last))
}

func (s *Scheduler) markRunning(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[name] = true
}

func (s *Scheduler) markComplete(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running[name] = false
	s.lastRun[name] = time.Now()
}

// Run drives the scheduler loop until Stop is called or the context ends.
// Fired sweeps run in their own goroutines so a slow sweep never blocks
// the other schedules.
func (s *Scheduler) Run(ctx context.Context, run RunFunc) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case now := <-ticker.C:
			for name, sw := range s.sweeps {
				if !s.shouldFire(name, now) {
					continue
				}
				s.markRunning(name)
				go func(name string, sw config.SweepConfig) {
					defer s.markComplete(name)
					cfg := domain.CheckpointConfig{
						RangeStart:  sw.RangeStart,
						RangeEnd:    sw.RangeEnd,
						Concurrency: sw.Concurrency,
						Headless:    true,
					}
					log.Printf("batch: sweep %q firing for accounts %d-%d", name, sw.RangeStart, sw.RangeEnd)
					if err := run(ctx, name, cfg); err != nil {
						log.Printf("batch: sweep %q failed: %v", name, err)
					}
				}(name, sw)
			}
		}
	}
}

// Stop terminates the scheduler loop. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}
