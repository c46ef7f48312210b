package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	oteladapter "github.com/contentpipe/routerd/internal/adapter/otel"
	"github.com/contentpipe/routerd/internal/config"
	"github.com/contentpipe/routerd/internal/domain"
	"github.com/contentpipe/routerd/internal/domain/routing"
	"github.com/contentpipe/routerd/internal/domain/site"
	"github.com/contentpipe/routerd/internal/port/auditstore"
	"github.com/contentpipe/routerd/internal/port/messagequeue"
)

// Forwarder dispatches an approved payload to its downstream agent.
type Forwarder interface {
	Forward(ctx context.Context, p *routing.Payload) routing.AgentResponse
}

// ApprovalPolicy decides whether a routing decision needs a human in the loop.
type ApprovalPolicy struct {
	Threshold       float64 // decisions below this confidence require approval
	GateRewrites    bool    // rewriter decisions always require approval
	DegradedPenalty float64 // confidence multiplier when the duplication check degraded
}

// PolicyFromConfig builds the approval policy from routing configuration.
func PolicyFromConfig(cfg config.Routing) ApprovalPolicy {
	return ApprovalPolicy{
		Threshold:       cfg.ApprovalThreshold,
		GateRewrites:    cfg.GateRewrites,
		DegradedPenalty: cfg.DegradedPenalty,
	}
}

// Requires reports whether the decision must pass the validation gate.
// The rewriter gate wins regardless of confidence.
func (p ApprovalPolicy) Requires(d *routing.Decision) bool {
	if p.GateRewrites && d.TargetAgent == routing.AgentRewriter {
		return true
	}
	return d.Confidence < p.Threshold
}

// Engine composes site selection and duplication checking into routing
// decisions, gates them through human validation where the policy demands
// it, and forwards approved payloads downstream.
type Engine struct {
	catalog  *site.Catalog
	selector SiteSelector
	dup      *DupChecker
	gate     *Gate
	fwd      Forwarder
	policy   ApprovalPolicy
	queue    messagequeue.Queue
	audit    auditstore.Store
}

// SiteSelector scores a keyword against the catalog. Pure; safe for
// concurrent use.
type SiteSelector interface {
	Select(keyword string, related []routing.SimilarKeyword) (site.Profile, float64, error)
}

// NewEngine wires the routing engine from its collaborators.
func NewEngine(
	catalog *site.Catalog,
	sel SiteSelector,
	dup *DupChecker,
	gate *Gate,
	fwd Forwarder,
	policy ApprovalPolicy,
	queue messagequeue.Queue,
	audit auditstore.Store,
) *Engine {
	return &Engine{
		catalog:  catalog,
		selector: sel,
		dup:      dup,
		gate:     gate,
		fwd:      fwd,
		policy:   policy,
		queue:    queue,
		audit:    audit,
	}
}

// Route scores a request into a decision without acting on it. Site
// selection and per-site duplication checks run concurrently; the decision
// uses the duplication result of the selected site.
func (e *Engine) Route(ctx context.Context, req *routing.Request) (*routing.Decision, error) {
	if strings.TrimSpace(req.Keyword) == "" {
		return nil, fmt.Errorf("%w: keyword is required", domain.ErrInvalidInput)
	}

	ctx, span := oteladapter.StartRouteSpan(ctx, req.Keyword)
	defer span.End()

	slog.Info("routing started", "keyword", req.Keyword, "state", routing.StateStarted)

	profiles := e.catalog.Profiles()
	dupResults := make([]routing.DuplicationResult, len(profiles))

	var (
		selected   site.Profile
		confidence float64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		selected, confidence, err = e.selector.Select(req.Keyword, req.SimilarKeywords)
		return err
	})
	for i, p := range profiles {
		i, p := i, p
		g.Go(func() error {
			dupResults[i] = e.dup.Check(gctx, req.Keyword, p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var dup routing.DuplicationResult
	for i, p := range profiles {
		if p.SiteID == selected.SiteID {
			dup = dupResults[i]
			break
		}
	}

	target := routing.AgentCopywriter
	if dup.Found {
		target = routing.AgentRewriter
	}
	if dup.Degraded {
		confidence *= e.policy.DegradedPenalty
	}

	d := &routing.Decision{
		TargetAgent: target,
		Site:        selected,
		Confidence:  confidence,
		Rationale:   rationale(selected, confidence, dup),
		Duplication: dup,
		Request:     *req,
	}
	d.RequiresApproval = e.policy.Requires(d)

	slog.Info("routing decision scored",
		"keyword", req.Keyword,
		"state", routing.StateScored,
		"site", selected.Name,
		"target_agent", target,
		"confidence", confidence,
		"duplicate_found", dup.Found,
		"degraded", dup.Degraded,
		"requires_approval", d.RequiresApproval,
	)

	return d, nil
}

// Process runs a routing request end to end: score, gate when required,
// forward or abort, then record the terminal result.
func (e *Engine) Process(ctx context.Context, req *routing.Request) (*routing.Result, error) {
	d, err := e.Route(ctx, req)
	if err != nil {
		return nil, err
	}

	payload := e.buildPayload(ctx, d)
	result := &routing.Result{Decision: d}

	if !d.RequiresApproval {
		slog.Info("routing auto-approved",
			"keyword", req.Keyword,
			"state", routing.StateAutoApproved,
			"confidence", d.Confidence,
		)
		resp := e.forward(ctx, payload)
		result.State = routing.StateForwarded
		result.Payload = payload
		result.AgentResponse = &resp
	} else {
		vreq, err := e.gate.Enqueue(ctx, *d)
		if err != nil {
			return nil, err
		}
		slog.Info("routing pending validation",
			"keyword", req.Keyword,
			"state", routing.StatePendingValidation,
			"validation_id", vreq.ID,
		)

		wctx, span := oteladapter.StartValidationSpan(ctx, vreq.ID)
		outcome, err := e.gate.Await(wctx, vreq.ID)
		span.End()

		switch {
		case err == nil && outcome.Response.Approved():
			resp := e.forward(ctx, payload)
			result.State = routing.StateForwarded
			result.Payload = payload
			result.AgentResponse = &resp
			result.HumanValidated = true

		case err == nil:
			result.State = routing.StateAborted
			result.AbortReason = routing.ReasonRejected
			result.HumanValidated = true

		case errors.Is(err, domain.ErrValidationTimeout):
			result.State = routing.StateAborted
			result.AbortReason = routing.ReasonValidationTimedOut

		default:
			// Caller went away; the validation stays pending for the dashboard.
			return nil, err
		}
	}

	result.CompletedAt = time.Now()
	e.record(ctx, result)
	return result, nil
}

// forward dispatches the payload under its own span.
func (e *Engine) forward(ctx context.Context, p *routing.Payload) routing.AgentResponse {
	fctx, span := oteladapter.StartForwardSpan(ctx, string(p.AgentTarget))
	defer span.End()
	return e.fwd.Forward(fctx, p)
}

// buildPayload assembles the forwarding envelope for the decision. The
// copywriter receives SERP context, the rewriter the matched duplicate plus
// a briefing condensed from the request's SERP analysis.
func (e *Engine) buildPayload(ctx context.Context, d *routing.Decision) *routing.Payload {
	p := &routing.Payload{
		AgentTarget:                d.TargetAgent,
		Keyword:                    d.Request.Keyword,
		SiteConfig:                 d.Site,
		SimilarKeywords:            d.Request.SimilarKeywords,
		InternalLinkingSuggestions: e.dup.SuggestLinks(ctx, d.Request.Keyword, d.Site),
		RoutingMetadata: routing.Metadata{
			ConfidenceScore: d.Confidence,
			Timestamp:       time.Now().UTC().Format(time.RFC3339),
		},
	}

	switch d.TargetAgent {
	case routing.AgentRewriter:
		p.ExistingContent = &routing.ExistingContent{
			URL:        d.Duplication.MatchedURL,
			Summary:    d.Duplication.MatchedSummary,
			Similarity: d.Duplication.Similarity,
		}
		p.RewriteBriefing = rewriteBriefing(d.Request.SERPAnalysis)
		p.RoutingMetadata.ContentSource = "content_index"
	case routing.AgentCopywriter:
		serp := d.Request.SERPAnalysis
		p.SERPAnalysis = &serp
		p.RoutingMetadata.ContentSource = "serp_analysis"
	}

	return p
}

// record publishes and persists the terminal routing result. Best effort.
func (e *Engine) record(ctx context.Context, r *routing.Result) {
	slog.Info("routing completed",
		"keyword", r.Decision.Request.Keyword,
		"state", r.State,
		"abort_reason", r.AbortReason,
		"site", r.Decision.Site.Name,
		"target_agent", r.Decision.TargetAgent,
		"human_validated", r.HumanValidated,
	)

	ev := routingEvent{
		Keyword:     r.Decision.Request.Keyword,
		SiteName:    r.Decision.Site.Name,
		TargetAgent: string(r.Decision.TargetAgent),
		Confidence:  r.Decision.Confidence,
		State:       string(r.State),
		AbortReason: string(r.AbortReason),
	}
	if data, err := json.Marshal(ev); err == nil {
		if err := e.queue.Publish(ctx, messagequeue.SubjectRoutingCompleted, data); err != nil {
			slog.Error("publish routing event", "error", err)
		}
	}

	if err := e.audit.RecordRouting(ctx, r); err != nil {
		slog.Error("routing audit write failed", "keyword", r.Decision.Request.Keyword, "error", err)
	}
}

// routingEvent is the audit event published for a completed routing request.
type routingEvent struct {
	Keyword     string  `json:"keyword"`
	SiteName    string  `json:"site_name"`
	TargetAgent string  `json:"target_agent"`
	Confidence  float64 `json:"confidence_score"`
	State       string  `json:"state"`
	AbortReason string  `json:"abort_reason,omitempty"`
}

// rewriteBriefing condenses the request's SERP context into briefing text
// the rewriter can fold into the updated article. Empty when the request
// carried no usable SERP data.
func rewriteBriefing(serp routing.SERPAnalysis) string {
	var parts []string
	count := 0
	for _, r := range serp.TopResults {
		if r.Content == "" {
			continue
		}
		count++
		parts = append(parts, fmt.Sprintf("Competitor content %d: %s", count, r.Content))
		if count == 3 {
			break
		}
	}
	if len(serp.PeopleAlsoAsk) > 0 {
		parts = append(parts, "Frequently asked: "+strings.Join(serp.PeopleAlsoAsk, "; "))
	}
	return strings.Join(parts, "\n\n")
}

// rationale composes the human-readable explanation shown on the dashboard.
func rationale(s site.Profile, confidence float64, dup routing.DuplicationResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Selected %s (%s) with %.0f%% indicator confidence.", s.Name, s.Niche, confidence*100)

	switch {
	case dup.Found:
		fmt.Fprintf(&b, " Existing content found at %s (similarity %.0f%%); routing to rewriter.",
			dup.MatchedURL, dup.Similarity*100)
	case dup.Degraded:
		b.WriteString(" Duplication check unavailable; assuming no existing content and routing to copywriter.")
	default:
		b.WriteString(" No existing content found; routing to copywriter.")
	}

	return b.String()
}
