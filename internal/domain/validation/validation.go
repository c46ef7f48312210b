// Package validation defines pending human-approval requests and their outcomes.
package validation

import (
	"fmt"
	"time"

	"github.com/contentpipe/routerd/internal/domain"
	"github.com/contentpipe/routerd/internal/domain/routing"
)

// Kind classifies what a validation request asks the human to approve.
type Kind string

// KindRoutingApproval asks for approval of a routing decision.
const KindRoutingApproval Kind = "routing_approval"

// State is the lifecycle state of a validation request.
// Every request is always exactly one of these; none is silently dropped.
type State string

const (
	StatePending  State = "pending"
	StateResolved State = "resolved"
	StateExpired  State = "expired"
)

// Response is a human validation answer. The dashboard submits "yes"/"no".
type Response string

const (
	ResponseApproved Response = "yes"
	ResponseRejected Response = "no"
)

// ParseResponse validates a raw dashboard submission.
func ParseResponse(s string) (Response, error) {
	switch Response(s) {
	case ResponseApproved, ResponseRejected:
		return Response(s), nil
	default:
		return "", fmt.Errorf("%w: response must be \"yes\" or \"no\", got %q", domain.ErrInvalidInput, s)
	}
}

// Approved reports whether the response accepts the decision.
func (r Response) Approved() bool {
	return r == ResponseApproved
}

// Request is one decision awaiting human approval. The ID is generated at
// enqueue time and never changes; only the gate mutates State.
type Request struct {
	ID        string           `json:"validation_id"`
	Kind      Kind             `json:"type"`
	Decision  routing.Decision `json:"decision"`
	CreatedAt time.Time        `json:"created_at"`
	State     State            `json:"state"`
}

// Outcome is created exactly once by the first successful resolve call.
type Outcome struct {
	ID         string    `json:"validation_id"`
	Response   Response  `json:"response"`
	ResolvedAt time.Time `json:"resolved_at"`
}
