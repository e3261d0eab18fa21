package domain

import (
	"time"
)

// TaskKind distinguishes the two bulk workflows.
type TaskKind string

const (
	KindOrderRun      TaskKind = "order-run"
	KindCheckpointRun TaskKind = "checkpoint-run"
)

// TaskStatus is the lifecycle state of a bulk task.
type TaskStatus string

const (
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// BulkTask tracks one dispatched request to run a workflow across an
// account range. Counters are maintained by the task registry; processed
// never exceeds Total, and the task only reaches a terminal status once
// processed == Total (or it aborted before starting any session).
type BulkTask struct {
	ID          string
	Kind        TaskKind
	RangeStart  int
	RangeEnd    int
	Concurrency int
	Status      TaskStatus
	Total       int
	Processed   int
	Succeeded   int
	Failed      int
	PointsSum   float64
	Err         string
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// Mode selects how far the order pipeline runs.
type Mode string

const (
	ModeFullAutomation Mode = "full_automation"
	ModeTestLogin      Mode = "test_login"
)

// BulkOrderConfig configures a bulk order run.
type BulkOrderConfig struct {
	RangeStart      int           `json:"range_start"`
	RangeEnd        int           `json:"range_end"`
	Products        []Product     `json:"products"`
	AddressID       string        `json:"address_id"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
	CardID          string        `json:"card_id,omitempty"`
	CardDetails     *Card         `json:"card_details,omitempty"`
	MaxCartValue    float64       `json:"max_cart_value,omitempty"`
	NameSuffix      string        `json:"name_suffix,omitempty"`
	Concurrency     int           `json:"concurrency_limit"`
	RepetitionCount int           `json:"repetition_count"`
	Headless        bool          `json:"headless"`
	Mode            Mode          `json:"mode,omitempty"`
}

// Validate checks the config for the mistakes a caller can make before any
// account is touched.
func (c *BulkOrderConfig) Validate() error {
	if c.RangeStart < 1 || c.RangeEnd < c.RangeStart {
		return ErrDependency("invalid account range", nil)
	}
	if c.Mode == "" {
		c.Mode = ModeFullAutomation
	}
	if c.Mode == ModeFullAutomation && len(c.Products) == 0 {
		return ErrDependency("no products configured", nil)
	}
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.RepetitionCount < 1 {
		c.RepetitionCount = 1
	}
	if c.PaymentMethod == "" {
		c.PaymentMethod = PaymentCOD
	}
	if !c.PaymentMethod.Valid() {
		return ErrDependency("unknown payment method: "+string(c.PaymentMethod), nil)
	}
	if c.PaymentMethod == PaymentCard && c.CardID == "" && c.CardDetails == nil {
		return ErrDependency("card payment requires card_id or card_details", nil)
	}
	return nil
}

// CheckpointConfig configures a bulk checkpoint run.
type CheckpointConfig struct {
	RangeStart  int  `json:"range_start"`
	RangeEnd    int  `json:"range_end"`
	Concurrency int  `json:"concurrency_limit"`
	Headless    bool `json:"headless"`
}

// Validate normalizes and checks the config.
func (c *CheckpointConfig) Validate() error {
	if c.RangeStart < 1 || c.RangeEnd < c.RangeStart {
		return ErrDependency("invalid account range", nil)
	}
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	return nil
}
