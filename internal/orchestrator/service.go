package orchestrator

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/redmi6provk-cell/tira-order-auto/internal/automation"
	"github.com/redmi6provk-cell/tira-order-auto/internal/config"
	"github.com/redmi6provk-cell/tira-order-auto/internal/domain"
	"github.com/redmi6provk-cell/tira-order-auto/internal/notify"
)

// Storage is the persistence surface the orchestrator consumes.
type Storage interface {
	GetAccountsByRange(start, end int) ([]*domain.Account, error)
	GetAccount(id int64) (*domain.Account, error)
	UpdateAccountPoints(id int64, points string) error
	UpdateAccountStatus(id int64, status domain.AccountStatus) error
	GetAddress(id string) (*domain.Address, error)
	GetCard(id string) (*domain.Card, error)
	CreateOrder(o *domain.Order) error
	UpdateOrder(id string, u domain.OrderUpdate) error
	AppendLog(ev domain.StepEvent) error
}

// NamePicker supplies randomized display names for address snapshots.
type NamePicker interface {
	Pick(suffix string) (string, bool)
}

// Service is the bulk session orchestrator: it resolves account ranges,
// spawns gated session runners and folds their outcomes into the registry.
type Service struct {
	store    Storage
	launcher automation.Launcher
	delays   *automation.Delays
	registry *Registry
	site     config.SiteConfig
	bc       Broadcaster
	names    NamePicker
	notifier notify.Notifier
}

// Options carries the optional collaborators of a Service.
type Options struct {
	Site        config.SiteConfig
	Broadcaster Broadcaster
	Names       NamePicker
	Notifier    notify.Notifier
}

// New creates a Service. Broadcaster and notifier default to no-ops.
func New(store Storage, launcher automation.Launcher, delays *automation.Delays, registry *Registry, opts Options) *Service {
	bc := opts.Broadcaster
	if bc == nil {
		bc = NopBroadcaster{}
	}
	var notifier notify.Notifier = notify.NoopNotifier{}
	if opts.Notifier != nil {
		notifier = opts.Notifier
	}
	site := opts.Site
	if site.BaseURL == "" {
		site = config.Default().Site
	}
	return &Service{
		store:    store,
		launcher: launcher,
		delays:   delays,
		registry: registry,
		site:     site,
		bc:       bc,
		names:    opts.Names,
		notifier: notifier,
	}
}

// Registry exposes the task registry for status queries.
func (s *Service) Registry() *Registry {
	return s.registry
}

// StartBulkOrder validates the config, creates the bulk task and runs the
// order workflow in the background. Dependency validation happens before
// the task exists, so a bad reference fails the dispatch outright.
func (s *Service) StartBulkOrder(ctx context.Context, cfg domain.BulkOrderConfig) (domain.BulkTask, error) {
	if err := cfg.Validate(); err != nil {
		return domain.BulkTask{}, err
	}

	if cfg.Mode == domain.ModeFullAutomation {
		if _, err := s.store.GetAddress(cfg.AddressID); err != nil {
			return domain.BulkTask{}, domain.ErrDependency(fmt.Sprintf("address not found: %s", cfg.AddressID), err)
		}
		if cfg.PaymentMethod == domain.PaymentCard && cfg.CardID != "" {
			if _, err := s.store.GetCard(cfg.CardID); err != nil {
				return domain.BulkTask{}, domain.ErrDependency(fmt.Sprintf("card not found: %s", cfg.CardID), err)
			}
		}
	}

	task := s.registry.CreateTask(domain.KindOrderRun, cfg.RangeStart, cfg.RangeEnd, cfg.Concurrency)
	go func() {
		if err := s.RunBulkOrder(context.WithoutCancel(ctx), task, cfg); err != nil {
			log.Printf("bulk order task %s: %v", task.ID, err)
		}
	}()
	return task, nil
}

// RunBulkOrder executes a bulk order task to completion. It is exposed so
// callers that need a synchronous run (CLI one-shots, tests) can block on
// it directly.
func (s *Service) RunBulkOrder(ctx context.Context, task domain.BulkTask, cfg domain.BulkOrderConfig) error {
	accounts, err := s.store.GetAccountsByRange(cfg.RangeStart, cfg.RangeEnd)
	if err != nil {
		s.registry.Finalize(task.ID, "resolving account range: "+err.Error())
		return err
	}
	if len(accounts) == 0 {
		msg := fmt.Sprintf("no active accounts in range %d-%d", cfg.RangeStart, cfg.RangeEnd)
		s.registry.Finalize(task.ID, msg)
		s.bc.EmitStep(domain.StepEvent{
			Level: "ERROR", Step: "BULK_START", Message: msg,
			Metadata: map[string]any{"task_id": task.ID},
		})
		return domain.ErrDependency(msg, nil)
	}

	reps := cfg.RepetitionCount
	if cfg.Mode == domain.ModeTestLogin {
		reps = 1
	}
	s.registry.Begin(task.ID, len(accounts)*reps)

	s.bc.EmitStep(domain.StepEvent{
		Level: "INFO", Step: "BULK_START",
		Message: fmt.Sprintf("starting bulk order run for %d accounts", len(accounts)),
		Metadata: map[string]any{
			"task_id":     task.ID,
			"range":       []int{cfg.RangeStart, cfg.RangeEnd},
			"concurrency": cfg.Concurrency,
			"products":    len(cfg.Products),
		},
	})

	gate := NewGate(cfg.Concurrency)
	g, gctx := errgroup.WithContext(ctx)

	for _, acct := range accounts {
		g.Go(func() error {
			return gate.Run(gctx, func() {
				res := s.runOrderAccount(gctx, task.ID, cfg, acct, reps)
				s.foldAccount(task.ID, res, reps)
			})
		})
	}

	err = g.Wait()
	if err != nil {
		s.registry.Finalize(task.ID, "bulk run interrupted: "+err.Error())
	} else {
		s.registry.Finalize(task.ID, "")
	}

	s.announceCompletion(task.ID, "bulk order run")
	return err
}

// StartBulkCheckpoint validates the config, creates the bulk task and runs
// the checkpoint workflow in the background.
func (s *Service) StartBulkCheckpoint(ctx context.Context, cfg domain.CheckpointConfig) (domain.BulkTask, error) {
	if err := cfg.Validate(); err != nil {
		return domain.BulkTask{}, err
	}

	task := s.registry.CreateTask(domain.KindCheckpointRun, cfg.RangeStart, cfg.RangeEnd, cfg.Concurrency)
	go func() {
		if err := s.RunBulkCheckpoint(context.WithoutCancel(ctx), task, cfg); err != nil {
			log.Printf("bulk checkpoint task %s: %v", task.ID, err)
		}
	}()
	return task, nil
}

// RunBulkCheckpoint executes a bulk checkpoint task to completion.
func (s *Service) RunBulkCheckpoint(ctx context.Context, task domain.BulkTask, cfg domain.CheckpointConfig) error {
	accounts, err := s.store.GetAccountsByRange(cfg.RangeStart, cfg.RangeEnd)
	if err != nil {
		s.registry.Finalize(task.ID, "resolving account range: "+err.Error())
		return err
	}
	if len(accounts) == 0 {
		msg := fmt.Sprintf("no active accounts in range %d-%d", cfg.RangeStart, cfg.RangeEnd)
		s.registry.Finalize(task.ID, msg)
		return domain.ErrDependency(msg, nil)
	}

	s.registry.Begin(task.ID, len(accounts))

	gate := NewGate(cfg.Concurrency)
	g, gctx := errgroup.WithContext(ctx)

	for _, acct := range accounts {
		g.Go(func() error {
			return gate.Run(gctx, func() {
				oc := s.runCheckpointAccount(gctx, task.ID, cfg, acct)
				s.registry.Fold(task.ID, oc, 1)
			})
		})
	}

	err = g.Wait()
	if err != nil {
		s.registry.Finalize(task.ID, "bulk run interrupted: "+err.Error())
	} else {
		s.registry.Finalize(task.ID, "")
	}

	s.announceCompletion(task.ID, "checkpoint run")
	return err
}

// foldAccount folds one account's outcomes, each at weight 1. Repetitions
// the session never attempted (setup failure, dead channel, interrupted
// wait) are folded as a single failed outcome carrying the remaining
// weight, so succeeded+failed always equals the task total.
func (s *Service) foldAccount(taskID string, res accountResult, reps int) {
	for _, oc := range res.outcomes {
		s.registry.Fold(taskID, oc, 1)
	}

	remaining := reps - len(res.outcomes)
	if remaining <= 0 || len(res.outcomes) == 0 {
		return
	}
	last := res.outcomes[len(res.outcomes)-1]
	s.registry.Fold(taskID, domain.Outcome{
		AccountID:    last.AccountID,
		AccountName:  last.AccountName,
		SessionToken: last.SessionToken,
		Status:       string(domain.RunFailed),
		Error:        "session ended before the repetition was attempted",
		FinishedAt:   time.Now(),
	}, remaining)
}

func (s *Service) announceCompletion(taskID, what string) {
	task, ok := s.registry.Status(taskID)
	if !ok {
		return
	}

	msg := fmt.Sprintf("%s finished: %d succeeded, %d failed of %d",
		what, task.Succeeded, task.Failed, task.Total)
	s.bc.EmitStep(domain.StepEvent{
		Level: "INFO", Step: "BULK_COMPLETE", Message: msg,
		Metadata: map[string]any{
			"task_id":   task.ID,
			"succeeded": task.Succeeded,
			"failed":    task.Failed,
			"total":     task.Total,
			"status":    string(task.Status),
		},
	})

	kind := notify.NotifySuccess
	if task.Failed > 0 || task.Status == domain.TaskFailed {
		kind = notify.NotifyWarning
	}
	if err := s.notifier.Send(notify.Notification{
		Title:   "Bulk task finished",
		Message: msg,
		Type:    kind,
		TaskID:  task.ID,
	}); err != nil {
		log.Printf("notify: %v", err)
	}
}
