package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/contentpipe/routerd/internal/config"
	"github.com/contentpipe/routerd/internal/domain"
	"github.com/contentpipe/routerd/internal/domain/routing"
	"github.com/contentpipe/routerd/internal/domain/validation"
	"github.com/contentpipe/routerd/internal/port/auditstore"
	"github.com/contentpipe/routerd/internal/port/messagequeue"
)

// validationEvent is the audit event published on every lifecycle transition.
type validationEvent struct {
	ValidationID string  `json:"validation_id"`
	Keyword      string  `json:"keyword"`
	SiteName     string  `json:"site_name,omitempty"`
	TargetAgent  string  `json:"target_agent,omitempty"`
	Confidence   float64 `json:"confidence_score,omitempty"`
	State        string  `json:"state"`
	Response     string  `json:"response,omitempty"`
}

// gateEntry is one tracked validation request. All fields are guarded by the
// gate mutex except done, which is closed exactly once on the terminal
// transition and safe to receive on without the lock.
type gateEntry struct {
	req       validation.Request
	outcome   *validation.Outcome
	done      chan struct{}
	expiresAt time.Time
	evictAt   time.Time
}

// Gate holds routing decisions pending human approval. A single mutex
// serializes every mutation of the keyed table; waiters block on per-entry
// channels so unrelated requests never block each other.
type Gate struct {
	mu      sync.Mutex
	entries map[string]*gateEntry
	order   []string // insertion order for stable ListPending snapshots

	ttl       time.Duration
	retention time.Duration
	sweep     time.Duration

	queue messagequeue.Queue
	audit auditstore.Store
}

// NewGate creates a validation gate with the given lifecycle configuration.
func NewGate(cfg config.Gate, queue messagequeue.Queue, audit auditstore.Store) *Gate {
	return &Gate{
		entries:   make(map[string]*gateEntry),
		ttl:       cfg.TTL,
		retention: cfg.Retention,
		sweep:     cfg.SweepInterval,
		queue:     queue,
		audit:     audit,
	}
}

// Enqueue stores a decision snapshot as a new pending validation and returns
// the generated request. Safe under concurrent calls; IDs never collide.
func (g *Gate) Enqueue(ctx context.Context, d routing.Decision) (validation.Request, error) {
	now := time.Now()
	req := validation.Request{
		ID:        uuid.NewString(),
		Kind:      validation.KindRoutingApproval,
		Decision:  d,
		CreatedAt: now,
		State:     validation.StatePending,
	}

	e := &gateEntry{
		req:       req,
		done:      make(chan struct{}),
		expiresAt: now.Add(g.ttl),
	}

	g.mu.Lock()
	g.entries[req.ID] = e
	g.order = append(g.order, req.ID)
	g.mu.Unlock()

	slog.Info("validation enqueued",
		"validation_id", req.ID,
		"keyword", d.Request.Keyword,
		"target_agent", d.TargetAgent,
		"confidence", d.Confidence,
	)
	g.publish(ctx, messagequeue.SubjectValidationCreated, req, nil)

	return req, nil
}

// ListPending returns a consistent snapshot of pending validations in
// insertion order. Overdue entries are expired before the snapshot is taken,
// so resolved or expired requests never appear.
func (g *Gate) ListPending() []validation.Request {
	now := time.Now()

	g.mu.Lock()
	expired := g.expireOverdueLocked(now)
	out := make([]validation.Request, 0, len(g.order))
	for _, id := range g.order {
		e, ok := g.entries[id]
		if !ok || e.req.State != validation.StatePending {
			continue
		}
		out = append(out, e.req)
	}
	g.mu.Unlock()

	g.emitExpired(context.Background(), expired)
	return out
}

// PendingCount returns the number of pending validations.
func (g *Gate) PendingCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	n := 0
	for _, e := range g.entries {
		if e.req.State == validation.StatePending {
			n++
		}
	}
	return n
}

// Resolve transitions exactly one pending request to Resolved. The first
// resolver wins; later calls fail with ErrAlreadyResolved and leave the
// stored outcome untouched. Unknown ids fail with ErrUnknownValidation and
// overdue entries with ErrValidationExpired.
func (g *Gate) Resolve(ctx context.Context, id string, resp validation.Response) (validation.Outcome, error) {
	now := time.Now()

	g.mu.Lock()
	e, ok := g.entries[id]
	if !ok {
		g.mu.Unlock()
		return validation.Outcome{}, domain.ErrUnknownValidation
	}

	if e.req.State == validation.StatePending && now.After(e.expiresAt) {
		g.expireLocked(e, now)
		snapshot := e.req
		g.mu.Unlock()
		g.emitExpired(ctx, []validation.Request{snapshot})
		return validation.Outcome{}, domain.ErrValidationExpired
	}

	switch e.req.State {
	case validation.StateResolved:
		g.mu.Unlock()
		return validation.Outcome{}, domain.ErrAlreadyResolved
	case validation.StateExpired:
		g.mu.Unlock()
		return validation.Outcome{}, domain.ErrValidationExpired
	}

	outcome := &validation.Outcome{ID: id, Response: resp, ResolvedAt: now}
	e.req.State = validation.StateResolved
	e.outcome = outcome
	e.evictAt = now.Add(g.retention)
	close(e.done)
	snapshot := e.req
	g.mu.Unlock()

	slog.Info("validation resolved",
		"validation_id", id,
		"response", resp,
		"keyword", snapshot.Decision.Request.Keyword,
	)
	g.publish(ctx, messagequeue.SubjectValidationResolved, snapshot, outcome)
	if err := g.audit.RecordValidation(ctx, snapshot, outcome); err != nil {
		slog.Error("validation audit write failed", "validation_id", id, "error", err)
	}

	return *outcome, nil
}

// Await blocks until the validation resolves, its TTL elapses, or ctx is
// cancelled. On TTL it returns ErrValidationTimeout; a cancelled context
// leaves the entry pending so a human can still act on it.
func (g *Gate) Await(ctx context.Context, id string) (validation.Outcome, error) {
	g.mu.Lock()
	e, ok := g.entries[id]
	if !ok {
		g.mu.Unlock()
		return validation.Outcome{}, domain.ErrUnknownValidation
	}
	done := e.done
	expiresAt := e.expiresAt
	g.mu.Unlock()

	timer := time.NewTimer(time.Until(expiresAt))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return validation.Outcome{}, ctx.Err()
	case <-done:
		return g.outcomeOf(id)
	case <-timer.C:
		g.expire(ctx, id)
		// A resolve may have raced the timer; prefer its outcome.
		return g.outcomeOf(id)
	}
}

// outcomeOf reads the terminal result of an entry.
func (g *Gate) outcomeOf(id string) (validation.Outcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.entries[id]
	if !ok {
		return validation.Outcome{}, domain.ErrUnknownValidation
	}
	if e.req.State == validation.StateResolved && e.outcome != nil {
		return *e.outcome, nil
	}
	return validation.Outcome{}, domain.ErrValidationTimeout
}

// Start launches the background sweep that expires overdue validations and
// evicts terminal entries past their retention window. It returns when ctx
// is cancelled.
func (g *Gate) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(g.sweep)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				now := time.Now()

				g.mu.Lock()
				expired := g.expireOverdueLocked(now)
				g.evictLocked(now)
				g.mu.Unlock()

				g.emitExpired(ctx, expired)
			}
		}
	}()
}

// expire transitions a single entry to Expired if it is still pending.
func (g *Gate) expire(ctx context.Context, id string) {
	now := time.Now()

	g.mu.Lock()
	e, ok := g.entries[id]
	if !ok || e.req.State != validation.StatePending {
		g.mu.Unlock()
		return
	}
	g.expireLocked(e, now)
	snapshot := e.req
	g.mu.Unlock()

	g.emitExpired(ctx, []validation.Request{snapshot})
}

// expireLocked marks a pending entry expired and wakes its waiter.
// Caller holds the lock.
func (g *Gate) expireLocked(e *gateEntry, now time.Time) {
	e.req.State = validation.StateExpired
	e.evictAt = now.Add(g.retention)
	close(e.done)
}

// expireOverdueLocked expires every pending entry past its deadline and
// returns snapshots for event emission. Caller holds the lock.
func (g *Gate) expireOverdueLocked(now time.Time) []validation.Request {
	var expired []validation.Request
	for _, id := range g.order {
		e, ok := g.entries[id]
		if !ok || e.req.State != validation.StatePending {
			continue
		}
		if now.After(e.expiresAt) {
			g.expireLocked(e, now)
			expired = append(expired, e.req)
		}
	}
	return expired
}

// evictLocked removes terminal entries past their retention window.
// Caller holds the lock.
func (g *Gate) evictLocked(now time.Time) {
	kept := g.order[:0]
	for _, id := range g.order {
		e, ok := g.entries[id]
		if !ok {
			continue
		}
		if e.req.State != validation.StatePending && now.After(e.evictAt) {
			delete(g.entries, id)
			continue
		}
		kept = append(kept, id)
	}
	g.order = kept
}

// emitExpired logs, publishes and audits expiry transitions.
func (g *Gate) emitExpired(ctx context.Context, expired []validation.Request) {
	for _, req := range expired {
		slog.Info("validation expired",
			"validation_id", req.ID,
			"keyword", req.Decision.Request.Keyword,
		)
		g.publish(ctx, messagequeue.SubjectValidationExpired, req, nil)
		if err := g.audit.RecordValidation(ctx, req, nil); err != nil {
			slog.Error("validation audit write failed", "validation_id", req.ID, "error", err)
		}
	}
}

// publish sends a lifecycle event to the audit bus. Best-effort: a publish
// failure never fails the gate operation.
func (g *Gate) publish(ctx context.Context, subject string, req validation.Request, outcome *validation.Outcome) {
	ev := validationEvent{
		ValidationID: req.ID,
		Keyword:      req.Decision.Request.Keyword,
		SiteName:     req.Decision.Site.Name,
		TargetAgent:  string(req.Decision.TargetAgent),
		Confidence:   req.Decision.Confidence,
		State:        string(req.State),
	}
	if outcome != nil {
		ev.Response = string(outcome.Response)
	}

	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("marshal validation event", "validation_id", req.ID, "error", err)
		return
	}
	if err := g.queue.Publish(ctx, subject, data); err != nil {
		slog.Error("publish validation event", "subject", subject, "validation_id", req.ID, "error", err)
	}
}
