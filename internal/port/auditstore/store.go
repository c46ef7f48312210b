// Package auditstore defines the port for durable audit persistence.
// The backing store is an external collaborator; all writes are best-effort
// and must never fail a routing request.
package auditstore

import (
	"context"

	"github.com/contentpipe/routerd/internal/domain/routing"
	"github.com/contentpipe/routerd/internal/domain/validation"
)

// Store records terminal validation and routing transitions for audit.
type Store interface {
	// RecordValidation persists a validation request after a terminal
	// transition (resolved or expired). outcome is nil for expiry.
	RecordValidation(ctx context.Context, req validation.Request, outcome *validation.Outcome) error

	// RecordRouting persists a terminal routing result.
	RecordRouting(ctx context.Context, res *routing.Result) error
}

// Noop is a Store that discards everything. Used when no DSN is configured.
type Noop struct{}

// RecordValidation implements Store.
func (Noop) RecordValidation(context.Context, validation.Request, *validation.Outcome) error {
	return nil
}

// RecordRouting implements Store.
func (Noop) RecordRouting(context.Context, *routing.Result) error {
	return nil
}
