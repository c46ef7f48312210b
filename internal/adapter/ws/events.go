package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Event type constants for WebSocket messages.
const (
	EventValidationCreated  = "validation.created"
	EventValidationResolved = "validation.resolved"
	EventValidationExpired  = "validation.expired"
	EventRoutingCompleted   = "routing.completed"
)

// ValidationEvent is broadcast on every validation lifecycle transition.
type ValidationEvent struct {
	ValidationID string  `json:"validation_id"`
	Keyword      string  `json:"keyword"`
	SiteName     string  `json:"site_name,omitempty"`
	TargetAgent  string  `json:"target_agent,omitempty"`
	Confidence   float64 `json:"confidence_score,omitempty"`
	State        string  `json:"state"`
	Response     string  `json:"response,omitempty"`
}

// RoutingEvent is broadcast when a routing request reaches a terminal state.
type RoutingEvent struct {
	Keyword     string `json:"keyword"`
	TargetAgent string `json:"target_agent"`
	State       string `json:"state"`
	AbortReason string `json:"abort_reason,omitempty"`
}

// BroadcastEvent is a convenience method that marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
