package orchestrator

import (
	"fmt"
	"log"
	"time"

	"github.com/redmi6provk-cell/tira-order-auto/internal/domain"
)

// LogSink is the append-only store the reporter writes step events to.
type LogSink interface {
	AppendLog(ev domain.StepEvent) error
}

// Reporter is a logging facade scoped to one session (and optionally one
// order). Every event goes to the store's append-only log and to the
// broadcaster. Begin/End bracket a scope: End always emits a completion or
// failure event, whatever path the scope took.
type Reporter struct {
	sink    LogSink
	bc      Broadcaster
	session string
	orderID string
}

// NewReporter creates a reporter bound to a session token.
func NewReporter(sink LogSink, bc Broadcaster, session string) *Reporter {
	if bc == nil {
		bc = NopBroadcaster{}
	}
	return &Reporter{sink: sink, bc: bc, session: session}
}

// WithOrder returns a reporter additionally scoped to an order.
func (r *Reporter) WithOrder(orderID string) *Reporter {
	clone := *r
	clone.orderID = orderID
	return &clone
}

// Session returns the session token the reporter is bound to.
func (r *Reporter) Session() string {
	return r.session
}

// Step records an informational step event.
func (r *Reporter) Step(step, format string, args ...any) {
	r.emit("INFO", step, fmt.Sprintf(format, args...), nil)
}

// Warn records a warning.
func (r *Reporter) Warn(step, format string, args ...any) {
	r.emit("WARN", step, fmt.Sprintf(format, args...), nil)
}

// Error records an error-level event.
func (r *Reporter) Error(step, format string, args ...any) {
	r.emit("ERROR", step, fmt.Sprintf(format, args...), nil)
}

// Meta records an event carrying structured metadata.
func (r *Reporter) Meta(level, step, message string, metadata map[string]any) {
	r.emit(level, step, message, metadata)
}

// Begin emits the scope's start event.
func (r *Reporter) Begin(step, message string) {
	r.emit("INFO", step, message, nil)
}

// End emits the scope's terminal event. Call it deferred so the guarantee
// holds on every exit path.
func (r *Reporter) End(step string, err *error) {
	if err != nil && *err != nil {
		r.emit("ERROR", step, fmt.Sprintf("failed: %v", *err), map[string]any{
			"error_code": domain.ErrorCode(*err),
		})
		return
	}
	r.emit("INFO", step, "completed", nil)
}

func (r *Reporter) emit(level, step, message string, metadata map[string]any) {
	ev := domain.StepEvent{
		Timestamp:    time.Now(),
		SessionToken: r.session,
		OrderID:      r.orderID,
		Step:         step,
		Level:        level,
		Message:      message,
		Metadata:     metadata,
	}

	if r.sink != nil {
		if err := r.sink.AppendLog(ev); err != nil {
			log.Printf("reporter: append log failed: %v", err)
		}
	}
	r.bc.EmitStep(ev)
}
