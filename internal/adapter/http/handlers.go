package http

import (
	"net/http"
	"time"

	"github.com/contentpipe/routerd/internal/adapter/ws"
	"github.com/contentpipe/routerd/internal/domain/routing"
	"github.com/contentpipe/routerd/internal/domain/site"
	"github.com/contentpipe/routerd/internal/domain/validation"
	"github.com/contentpipe/routerd/internal/port/messagequeue"
	"github.com/contentpipe/routerd/internal/service"
)

// stoppedDecision is reported on /route when a request ends aborted instead
// of forwarded to an agent.
const stoppedDecision = "stopped"

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Engine  *service.Engine
	Gate    *service.Gate
	Catalog *site.Catalog
	Hub     *ws.Hub
	Queue   messagequeue.Queue
}

// routeResponse is the wire format returned by POST /route.
type routeResponse struct {
	Success          bool                   `json:"success"`
	RoutingDecision  string                 `json:"routing_decision"`
	SelectedSite     string                 `json:"selected_site"`
	ConfidenceScore  float64                `json:"confidence_score"`
	Reasoning        string                 `json:"reasoning"`
	IsHumanValidated bool                   `json:"is_human_validated"`
	AbortReason      string                 `json:"abort_reason,omitempty"`
	Payload          *routing.Payload       `json:"payload,omitempty"`
	AgentResponse    *routing.AgentResponse `json:"agent_response,omitempty"`
}

// RouteContent handles POST /route. It blocks until the request is forwarded
// or aborted, which for gated decisions includes the human validation wait.
func (h *Handlers) RouteContent(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[routing.Request](w, r)
	if !ok {
		return
	}

	result, err := h.Engine.Process(r.Context(), &req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := routeResponse{
		SelectedSite:     result.Decision.Site.Name,
		ConfidenceScore:  result.Decision.Confidence,
		Reasoning:        result.Decision.Rationale,
		IsHumanValidated: result.HumanValidated,
		Payload:          result.Payload,
		AgentResponse:    result.AgentResponse,
	}

	if result.State == routing.StateForwarded {
		resp.RoutingDecision = string(result.Decision.TargetAgent)
		resp.Success = result.AgentResponse == nil || result.AgentResponse.Success
	} else {
		resp.RoutingDecision = stoppedDecision
		resp.AbortReason = string(result.AbortReason)
	}

	writeJSON(w, http.StatusOK, resp)
}

// pendingValidation is one entry in the GET /pending-validations response.
type pendingValidation struct {
	ValidationID string         `json:"validation_id"`
	Data         validationData `json:"data"`
	CreatedAt    time.Time      `json:"created_at"`
}

type validationData struct {
	Type                 string  `json:"type"`
	Keyword              string  `json:"keyword"`
	SelectedSite         string  `json:"selected_site"`
	RoutingDecision      string  `json:"routing_decision"`
	ConfidenceScore      float64 `json:"confidence_score"`
	Reasoning            string  `json:"reasoning"`
	ExistingContentFound bool    `json:"existing_content_found"`
	ExistingContentURL   string  `json:"existing_content_url,omitempty"`
}

// ListPendingValidations handles GET /pending-validations.
func (h *Handlers) ListPendingValidations(w http.ResponseWriter, _ *http.Request) {
	pending := h.Gate.ListPending()

	out := make([]pendingValidation, 0, len(pending))
	for _, req := range pending {
		d := req.Decision
		out = append(out, pendingValidation{
			ValidationID: req.ID,
			CreatedAt:    req.CreatedAt,
			Data: validationData{
				Type:                 string(req.Kind),
				Keyword:              d.Request.Keyword,
				SelectedSite:         d.Site.Name,
				RoutingDecision:      string(d.TargetAgent),
				ConfidenceScore:      d.Confidence,
				Reasoning:            d.Rationale,
				ExistingContentFound: d.Duplication.Found,
				ExistingContentURL:   d.Duplication.MatchedURL,
			},
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"pending_validations": out,
		"count":               len(out),
	})
}

// submitValidationRequest is the body for POST /submit-validation.
type submitValidationRequest struct {
	ValidationID string `json:"validation_id"`
	Response     string `json:"response"`
}

// SubmitValidation handles POST /submit-validation from the dashboard.
func (h *Handlers) SubmitValidation(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[submitValidationRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.ValidationID, "validation_id") {
		return
	}

	resp, err := validation.ParseResponse(req.Response)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	outcome, err := h.Gate.Resolve(r.Context(), req.ValidationID, resp)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"validation_id": outcome.ID,
		"response":      outcome.Response,
		"resolved_at":   outcome.ResolvedAt,
	})
}

// ListSites handles GET /sites.
func (h *Handlers) ListSites(w http.ResponseWriter, _ *http.Request) {
	profiles := h.Catalog.Profiles()
	writeJSON(w, http.StatusOK, map[string]any{
		"sites": profiles,
		"count": len(profiles),
	})
}

// Health handles GET /health.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":              "ok",
		"service":             "routerd",
		"timestamp":           time.Now().UTC().Format(time.RFC3339),
		"nats_connected":      h.Queue.IsConnected(),
		"pending_validations": h.Gate.PendingCount(),
		"ws_clients":          h.Hub.ConnectionCount(),
	})
}
