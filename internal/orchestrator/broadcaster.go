package orchestrator

import (
	"github.com/redmi6provk-cell/tira-order-auto/internal/domain"
)

// Broadcaster delivers real-time events to observers. Implementations are
// fire-and-forget: delivery failure must never affect orchestration.
type Broadcaster interface {
	EmitStep(ev domain.StepEvent)
	EmitOrderUpdate(orderID, status, sessionToken string, fields map[string]any)
}

// NopBroadcaster drops all events. It is the default when no observer is
// attached.
type NopBroadcaster struct{}

func (NopBroadcaster) EmitStep(domain.StepEvent)                              {}
func (NopBroadcaster) EmitOrderUpdate(string, string, string, map[string]any) {}
