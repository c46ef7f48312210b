// Package broadcast defines the port for pushing events to connected clients.
package broadcast

import "context"

// Broadcaster fans an event out to all connected dashboard clients.
type Broadcaster interface {
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}

// Noop is a Broadcaster that drops everything.
type Noop struct{}

// BroadcastEvent implements Broadcaster.
func (Noop) BroadcastEvent(context.Context, string, any) {}
