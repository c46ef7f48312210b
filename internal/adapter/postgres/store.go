package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/contentpipe/routerd/internal/domain/routing"
	"github.com/contentpipe/routerd/internal/domain/validation"
)

// Store implements auditstore.Store on top of a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store using the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// RecordValidation inserts an audit row for a terminal validation transition.
func (s *Store) RecordValidation(ctx context.Context, req validation.Request, outcome *validation.Outcome) error {
	const q = `
		INSERT INTO validation_audit (validation_id, kind, keyword, site_id, target_agent, confidence, state, response, enqueued_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	var response *string
	if outcome != nil {
		r := string(outcome.Response)
		response = &r
	}

	_, err := s.pool.Exec(ctx, q,
		req.ID, string(req.Kind), req.Decision.Request.Keyword, req.Decision.Site.SiteID,
		string(req.Decision.TargetAgent), req.Decision.Confidence, string(req.State),
		response, req.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert validation audit: %w", err)
	}
	return nil
}

// RecordRouting inserts an audit row for a terminal routing result.
func (s *Store) RecordRouting(ctx context.Context, res *routing.Result) error {
	const q = `
		INSERT INTO routing_audit (keyword, target_agent, site_id, confidence, state, abort_reason, human_validated, degraded, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	var reason *string
	if res.AbortReason != "" {
		r := string(res.AbortReason)
		reason = &r
	}

	d := res.Decision
	_, err := s.pool.Exec(ctx, q,
		d.Request.Keyword, string(d.TargetAgent), d.Site.SiteID, d.Confidence,
		string(res.State), reason, res.HumanValidated, d.Duplication.Degraded, res.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert routing audit: %w", err)
	}
	return nil
}
