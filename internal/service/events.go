package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/contentpipe/routerd/internal/port/broadcast"
	"github.com/contentpipe/routerd/internal/port/messagequeue"
)

// StartEventBridge subscribes to the validation and routing audit subjects
// and re-broadcasts each event to connected dashboard clients. Returns the
// subscription cancel function.
func StartEventBridge(ctx context.Context, queue messagequeue.Queue, bc broadcast.Broadcaster) (func(), error) {
	handler := func(ctx context.Context, subject string, data []byte) error {
		var payload map[string]any
		if err := json.Unmarshal(data, &payload); err != nil {
			slog.Warn("dropping malformed audit event", "subject", subject, "error", err)
			return nil
		}
		bc.BroadcastEvent(ctx, eventType(subject), payload)
		return nil
	}

	cancelValidations, err := queue.Subscribe(ctx, messagequeue.SubjectValidationAll, handler)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", messagequeue.SubjectValidationAll, err)
	}
	cancelRouting, err := queue.Subscribe(ctx, messagequeue.SubjectRoutingCompleted, handler)
	if err != nil {
		cancelValidations()
		return nil, fmt.Errorf("subscribe %s: %w", messagequeue.SubjectRoutingCompleted, err)
	}

	return func() {
		cancelValidations()
		cancelRouting()
	}, nil
}

// eventType maps a bus subject to its dashboard event type.
func eventType(subject string) string {
	switch subject {
	case messagequeue.SubjectValidationCreated:
		return "validation.created"
	case messagequeue.SubjectValidationResolved:
		return "validation.resolved"
	case messagequeue.SubjectValidationExpired:
		return "validation.expired"
	default:
		return subject
	}
}
