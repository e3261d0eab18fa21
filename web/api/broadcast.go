package api

import (
	"encoding/json"

	"github.com/redmi6provk-cell/tira-order-auto/internal/domain"
)

// HubBroadcaster adapts the SSE and websocket hubs to the orchestrator's
// broadcast interface. Step events reach both surfaces; order updates are
// SSE only.
type HubBroadcaster struct {
	sse *SSEHub
	ws  *WSHub
}

// NewHubBroadcaster wires the hubs together.
func NewHubBroadcaster(sse *SSEHub, ws *WSHub) *HubBroadcaster {
	return &HubBroadcaster{sse: sse, ws: ws}
}

// EmitStep publishes one session log line.
func (b *HubBroadcaster) EmitStep(ev domain.StepEvent) {
	b.sse.Broadcast(SSEEvent{Type: "step_log", Data: ev})
	if payload, err := json.Marshal(ev); err == nil {
		b.ws.Broadcast(payload)
	}
}

// EmitOrderUpdate publishes an order lifecycle change.
func (b *HubBroadcaster) EmitOrderUpdate(orderID, status, sessionToken string, fields map[string]any) {
	data := map[string]any{
		"order_id":   orderID,
		"status":     status,
		"session_id": sessionToken,
	}
	for k, v := range fields {
		data[k] = v
	}
	b.sse.Broadcast(SSEEvent{Type: "order_update", Data: data})
}
