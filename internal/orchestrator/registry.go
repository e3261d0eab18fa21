package orchestrator

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redmi6provk-cell/tira-order-auto/internal/domain"
)

// Registry tracks bulk task lifecycle, folds per-account outcomes into
// task-level counters, and serves status/result queries. All mutation is
// serialized behind one mutex; reads return copies, so repeated polling
// with no new completions yields identical values.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*taskState
}

type taskState struct {
	task     domain.BulkTask
	outcomes []domain.Outcome
	active   map[string]domain.SessionRun
}

// NewRegistry creates an empty task registry. Tasks live until process
// restart; there is no eviction.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*taskState)}
}

// CreateTask registers a new bulk task in processing state.
func (r *Registry) CreateTask(kind domain.TaskKind, rangeStart, rangeEnd, concurrency int) domain.BulkTask {
	task := domain.BulkTask{
		ID:          uuid.NewString(),
		Kind:        kind,
		RangeStart:  rangeStart,
		RangeEnd:    rangeEnd,
		Concurrency: concurrency,
		Status:      domain.TaskProcessing,
		CreatedAt:   time.Now(),
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.ID] = &taskState{
		task:   task,
		active: make(map[string]domain.SessionRun),
	}
	return task
}

// Begin records that range resolution finished and the task now covers
// total repetitions.
func (r *Registry) Begin(taskID string, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.tasks[taskID]
	if !ok {
		return
	}
	now := time.Now()
	st.task.Total = total
	st.task.StartedAt = &now
}

// SessionStarted marks a session run as in flight.
func (r *Registry) SessionStarted(taskID string, run domain.SessionRun) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.tasks[taskID]; ok {
		run.Status = domain.RunProcessing
		st.active[run.SessionToken] = run
	}
}

// SessionFinished removes a session run from the in-flight set.
func (r *Registry) SessionFinished(taskID, sessionToken string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.tasks[taskID]; ok {
		delete(st.active, sessionToken)
	}
}

// Fold accumulates one outcome into the task. Weight is the number of
// repetitions the outcome accounts for: 1 normally, more when a synthetic
// account-level failure covers repetitions that never started. Processed
// never exceeds Total.
func (r *Registry) Fold(taskID string, oc domain.Outcome, weight int) {
	if weight < 1 {
		weight = 1
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.tasks[taskID]
	if !ok {
		return
	}

	st.outcomes = append(st.outcomes, oc)
	if st.task.Processed+weight > st.task.Total {
		weight = st.task.Total - st.task.Processed
	}
	st.task.Processed += weight

	if oc.Succeeded() {
		st.task.Succeeded++
		if pts, err := strconv.ParseFloat(oc.Points, 64); err == nil {
			st.task.PointsSum += pts
		}
	} else {
		st.task.Failed += weight
	}
}

// Finalize transitions the task to a terminal status. With a non-empty
// errMsg the task fails regardless of counters; otherwise it completes
// only once every repetition is accounted for.
func (r *Registry) Finalize(taskID, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.tasks[taskID]
	if !ok {
		return
	}

	now := time.Now()
	st.task.CompletedAt = &now
	if errMsg != "" {
		st.task.Status = domain.TaskFailed
		st.task.Err = errMsg
		return
	}
	if st.task.Processed >= st.task.Total {
		st.task.Status = domain.TaskCompleted
	} else {
		st.task.Status = domain.TaskFailed
		st.task.Err = "task finalized before all sessions completed"
	}
}

// Status returns a snapshot of the task's counters. The second return is
// false for unknown task ids.
func (r *Registry) Status(taskID string) (domain.BulkTask, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.tasks[taskID]
	if !ok {
		return domain.BulkTask{}, false
	}
	return st.task, true
}

// Results returns the task's outcomes in fold order.
func (r *Registry) Results(taskID string) ([]domain.Outcome, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.tasks[taskID]
	if !ok {
		return nil, false
	}
	out := make([]domain.Outcome, len(st.outcomes))
	copy(out, st.outcomes)
	return out, true
}

// ActiveSessions returns every in-flight session run across all tasks,
// ordered by session token for stable output.
func (r *Registry) ActiveSessions() []domain.SessionRun {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var runs []domain.SessionRun
	for _, st := range r.tasks {
		for _, run := range st.active {
			runs = append(runs, run)
		}
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].SessionToken < runs[j].SessionToken
	})
	return runs
}

// ActiveCount returns how many session runs are currently in flight.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, st := range r.tasks {
		n += len(st.active)
	}
	return n
}

// Tasks returns snapshots of every known task, newest first.
func (r *Registry) Tasks() []domain.BulkTask {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tasks := make([]domain.BulkTask, 0, len(r.tasks))
	for _, st := range r.tasks {
		tasks = append(tasks, st.task)
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
	return tasks
}
