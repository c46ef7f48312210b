// Package routing defines the routing request, decision and outcome entities.
package routing

import (
	"time"

	"github.com/contentpipe/routerd/internal/domain/site"
)

// Agent is the closed set of downstream content-production targets.
type Agent string

const (
	AgentCopywriter Agent = "copywriter" // create new content
	AgentRewriter   Agent = "rewriter"   // rewrite existing content
)

// State represents the lifecycle of a single routing request.
// Started → Scored → {AutoApproved | PendingValidation} → {Forwarded | Aborted}.
type State string

const (
	StateStarted           State = "started"
	StateScored            State = "scored"
	StateAutoApproved      State = "auto_approved"
	StatePendingValidation State = "pending_validation"
	StateForwarded         State = "forwarded"
	StateAborted           State = "aborted"
)

// AbortReason explains why a routing request ended in StateAborted.
type AbortReason string

const (
	ReasonRejected           AbortReason = "rejected_by_human"
	ReasonValidationTimedOut AbortReason = "validation_timed_out"
)

// SimilarKeyword is one related keyword with its search metrics.
type SimilarKeyword struct {
	Keyword         string `json:"keyword"`
	MonthlySearches int    `json:"monthly_searches"`
	Competition     string `json:"competition"`
}

// TopResult is one organic SERP result.
type TopResult struct {
	URL              string   `json:"url"`
	Title            string   `json:"title"`
	MetaDescription  string   `json:"meta_description"`
	Content          string   `json:"content,omitempty"`
	ContentStructure []string `json:"content_structure,omitempty"`
	PublicationDate  string   `json:"publication_date,omitempty"`
}

// SERPAnalysis is the structured SERP summary attached to a request.
type SERPAnalysis struct {
	TopResults    []TopResult `json:"top_results"`
	PeopleAlsoAsk []string    `json:"people_also_ask"`
}

// Request is an incoming keyword/content routing request. Immutable once created.
type Request struct {
	Keyword         string           `json:"keyword"`
	SimilarKeywords []SimilarKeyword `json:"similar_keywords"`
	SERPAnalysis    SERPAnalysis     `json:"serp_analysis"`
}

// DuplicationResult is the outcome of one content duplication check.
type DuplicationResult struct {
	Found          bool    `json:"found"`
	MatchedURL     string  `json:"matched_url,omitempty"`
	MatchedSummary string  `json:"matched_summary,omitempty"`
	Similarity     float64 `json:"similarity,omitempty"`
	Degraded       bool    `json:"degraded,omitempty"` // index unavailable, treated as not found
}

// Decision is the composed routing decision. Immutable after creation; it
// becomes effective only through a validation outcome or auto-approval.
type Decision struct {
	TargetAgent      Agent             `json:"target_agent"`
	Site             site.Profile      `json:"selected_site"`
	Confidence       float64           `json:"confidence_score"`
	Rationale        string            `json:"rationale"`
	RequiresApproval bool              `json:"requires_approval"`
	Duplication      DuplicationResult `json:"duplication"`
	Request          Request           `json:"-"`
}

// Metadata carries routing metadata inside the forwarding payload.
type Metadata struct {
	ConfidenceScore float64 `json:"confidence_score"`
	ContentSource   string  `json:"content_source,omitempty"`
	Timestamp       string  `json:"timestamp"`
}

// ExistingContent describes the duplicate the rewriter should update.
type ExistingContent struct {
	URL        string  `json:"url"`
	Summary    string  `json:"summary,omitempty"`
	Similarity float64 `json:"similarity"`
}

// Payload is the forwarding envelope sent to the target agent.
// SERPAnalysis is populated for the copywriter; ExistingContent and
// RewriteBriefing for the rewriter.
type Payload struct {
	AgentTarget                Agent            `json:"agent_target"`
	Keyword                    string           `json:"keyword"`
	SiteConfig                 site.Profile     `json:"site_config"`
	SERPAnalysis               *SERPAnalysis    `json:"serp_analysis,omitempty"`
	ExistingContent            *ExistingContent `json:"existing_content,omitempty"`
	RewriteBriefing            string           `json:"rewrite_briefing,omitempty"`
	SimilarKeywords            []SimilarKeyword `json:"similar_keywords,omitempty"`
	InternalLinkingSuggestions []string         `json:"internal_linking_suggestions,omitempty"`
	RoutingMetadata            Metadata         `json:"routing_metadata"`
}

// AgentResponse is the downstream agent's reply to a forwarded payload.
type AgentResponse struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"status_code,omitempty"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Result is the terminal outcome of one routing request.
type Result struct {
	Decision       *Decision      `json:"decision"`
	State          State          `json:"state"` // StateForwarded or StateAborted
	AbortReason    AbortReason    `json:"abort_reason,omitempty"`
	Payload        *Payload       `json:"payload,omitempty"`
	AgentResponse  *AgentResponse `json:"agent_response,omitempty"`
	HumanValidated bool           `json:"human_validated"`
	CompletedAt    time.Time      `json:"completed_at"`
}
