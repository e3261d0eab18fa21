package domain

import "time"

// RunStatus is the lifecycle state of one session run. Transitions are
// forward-only: pending -> processing -> completed|failed.
type RunStatus string

const (
	RunPending    RunStatus = "pending"
	RunProcessing RunStatus = "processing"
	RunCompleted  RunStatus = "completed"
	RunFailed     RunStatus = "failed"
)

// SessionRun is the execution instance of a workflow for one account.
type SessionRun struct {
	AccountID    int64
	SessionToken string
	Kind         TaskKind
	Repetition   int
	Status       RunStatus
}

// StepEvent is one append-only log entry emitted during a session run.
// Ordering within a session is emission order.
type StepEvent struct {
	Timestamp    time.Time      `json:"timestamp"`
	SessionToken string         `json:"session_id,omitempty"`
	OrderID      string         `json:"order_id,omitempty"`
	Step         string         `json:"step,omitempty"`
	Level        string         `json:"level"`
	Message      string         `json:"message"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Outcome is the terminal result of one repetition or checkpoint for one
// account, folded into the bulk task by the aggregator.
type Outcome struct {
	AccountID    int64     `json:"account_id"`
	AccountName  string    `json:"account_name,omitempty"`
	SessionToken string    `json:"session_id"`
	OrderID      string    `json:"order_id,omitempty"`
	Number       int       `json:"order_number,omitempty"`
	Status       string    `json:"status"`
	Confirmation string    `json:"confirmation,omitempty"`
	Total        float64   `json:"total,omitempty"`
	Points       string    `json:"points,omitempty"`
	Tier         string    `json:"tier,omitempty"`
	Error        string    `json:"error,omitempty"`
	FinishedAt   time.Time `json:"finished_at"`
}

// Succeeded reports whether the outcome ended well.
func (o Outcome) Succeeded() bool {
	return o.Status == string(RunCompleted) || o.Status == "success"
}
