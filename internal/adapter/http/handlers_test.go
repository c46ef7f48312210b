package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	routerhttp "github.com/contentpipe/routerd/internal/adapter/http"
	"github.com/contentpipe/routerd/internal/adapter/ws"
	"github.com/contentpipe/routerd/internal/config"
	"github.com/contentpipe/routerd/internal/domain/routing"
	"github.com/contentpipe/routerd/internal/domain/site"
	"github.com/contentpipe/routerd/internal/middleware"
	"github.com/contentpipe/routerd/internal/port/auditstore"
	"github.com/contentpipe/routerd/internal/port/contentindex"
	"github.com/contentpipe/routerd/internal/port/messagequeue"
	"github.com/contentpipe/routerd/internal/selector"
	"github.com/contentpipe/routerd/internal/service"
)

// fakeQueue accepts everything and reports connected.
type fakeQueue struct{}

func (fakeQueue) Publish(context.Context, string, []byte) error { return nil }
func (fakeQueue) Subscribe(context.Context, string, messagequeue.Handler) (func(), error) {
	return func() {}, nil
}
func (fakeQueue) Drain() error      { return nil }
func (fakeQueue) Close() error      { return nil }
func (fakeQueue) IsConnected() bool { return true }

// fakeIndex serves matches for site 1 when configured.
type fakeIndex struct {
	matches []contentindex.Match
}

func (f fakeIndex) Search(_ context.Context, s site.Profile, _ string) ([]contentindex.Match, error) {
	if s.SiteID == 1 {
		return f.matches, nil
	}
	return nil, nil
}

// fakeForwarder always accepts the payload.
type fakeForwarder struct{}

func (fakeForwarder) Forward(context.Context, *routing.Payload) routing.AgentResponse {
	return routing.AgentResponse{Success: true, StatusCode: http.StatusOK, Message: "accepted"}
}

func newTestRouter(t *testing.T, index contentindex.Index) chi.Router {
	t.Helper()

	catalog, err := site.NewCatalog([]site.Profile{
		{SiteID: 1, Name: "Gaming Hub", Niche: "gaming", NicheIndicators: []string{"gaming", "mouse"}},
		{SiteID: 2, Name: "Motivation Plus", Niche: "motivation", NicheIndicators: []string{"motivation", "mindset"}},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}

	queue := fakeQueue{}
	gate := service.NewGate(config.Gate{
		TTL:           time.Minute,
		SweepInterval: time.Second,
		Retention:     time.Minute,
	}, queue, auditstore.Noop{})

	dup := service.NewDupChecker(index, nil, config.Index{
		Timeout:             time.Second,
		SimilarityThreshold: 0.4,
		MaxLinkSuggestions:  5,
		BreakerThreshold:    5,
		BreakerCooldown:     time.Minute,
	})

	engine := service.NewEngine(
		catalog,
		selector.New(catalog),
		dup,
		gate,
		fakeForwarder{},
		service.ApprovalPolicy{Threshold: 0.7, GateRewrites: true, DegradedPenalty: 0.5},
		queue,
		auditstore.Noop{},
	)

	h := &routerhttp.Handlers{
		Engine:  engine,
		Gate:    gate,
		Catalog: catalog,
		Hub:     ws.NewHub(),
		Queue:   queue,
	}

	r := chi.NewRouter()
	routerhttp.MountRoutes(r, h, middleware.NewRateLimiter(100, 100))
	return r
}

func doJSON(t *testing.T, r chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestRouteContentAutoApproved(t *testing.T) {
	r := newTestRouter(t, fakeIndex{})

	rec := doJSON(t, r, http.MethodPost, "/route", map[string]any{"keyword": "best gaming mouse"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Error("expected success")
	}
	if body["routing_decision"] != "copywriter" {
		t.Errorf("expected copywriter, got %v", body["routing_decision"])
	}
	if body["selected_site"] != "Gaming Hub" {
		t.Errorf("expected Gaming Hub, got %v", body["selected_site"])
	}
	if body["is_human_validated"] != false {
		t.Error("auto-approved route must not claim human validation")
	}
	if body["payload"] == nil {
		t.Error("expected forwarding payload in response")
	}
}

func TestRouteContentEmptyKeyword(t *testing.T) {
	r := newTestRouter(t, fakeIndex{})

	rec := doJSON(t, r, http.MethodPost, "/route", map[string]any{"keyword": ""})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRouteContentInvalidBody(t *testing.T) {
	r := newTestRouter(t, fakeIndex{})

	req := httptest.NewRequest(http.MethodPost, "/route", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestValidationLifecycleOverHTTP(t *testing.T) {
	r := newTestRouter(t, fakeIndex{matches: []contentindex.Match{
		{URL: "https://gaminghub.example/best-gaming-mouse", Title: "Best Gaming Mouse", Similarity: 0.8},
	}})

	// A duplicate routes to the rewriter, which is always gated.
	routeDone := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		routeDone <- doJSON(t, r, http.MethodPost, "/route", map[string]any{"keyword": "best gaming mouse"})
	}()

	var validationID string
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rec := doJSON(t, r, http.MethodGet, "/pending-validations", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("pending-validations: expected 200, got %d", rec.Code)
		}
		body := decodeBody(t, rec)
		if list, ok := body["pending_validations"].([]any); ok && len(list) == 1 {
			entry := list[0].(map[string]any)
			validationID = entry["validation_id"].(string)
			data := entry["data"].(map[string]any)
			if data["routing_decision"] != "rewriter" {
				t.Errorf("expected rewriter decision, got %v", data["routing_decision"])
			}
			if data["existing_content_found"] != true {
				t.Error("expected existing content flag")
			}
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if validationID == "" {
		t.Fatal("no validation became pending")
	}

	rec := doJSON(t, r, http.MethodPost, "/submit-validation", map[string]any{
		"validation_id": validationID,
		"response":      "yes",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("submit-validation: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	routeRec := <-routeDone
	if routeRec.Code != http.StatusOK {
		t.Fatalf("route: expected 200, got %d", routeRec.Code)
	}
	routeBody := decodeBody(t, routeRec)
	if routeBody["routing_decision"] != "rewriter" {
		t.Errorf("expected rewriter, got %v", routeBody["routing_decision"])
	}
	if routeBody["is_human_validated"] != true {
		t.Error("expected human validated result")
	}

	// A second answer for the same validation must conflict.
	rec = doJSON(t, r, http.MethodPost, "/submit-validation", map[string]any{
		"validation_id": validationID,
		"response":      "no",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate submit, got %d", rec.Code)
	}
}

func TestSubmitValidationUnknownID(t *testing.T) {
	r := newTestRouter(t, fakeIndex{})

	rec := doJSON(t, r, http.MethodPost, "/submit-validation", map[string]any{
		"validation_id": "does-not-exist",
		"response":      "yes",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSubmitValidationBadResponse(t *testing.T) {
	r := newTestRouter(t, fakeIndex{})

	rec := doJSON(t, r, http.MethodPost, "/submit-validation", map[string]any{
		"validation_id": "some-id",
		"response":      "maybe",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSubmitValidationMissingID(t *testing.T) {
	r := newTestRouter(t, fakeIndex{})

	rec := doJSON(t, r, http.MethodPost, "/submit-validation", map[string]any{"response": "yes"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t, fakeIndex{})

	rec := doJSON(t, r, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["status"] != "ok" {
		t.Errorf("expected ok status, got %v", body["status"])
	}
	if body["service"] != "routerd" {
		t.Errorf("expected routerd, got %v", body["service"])
	}
}

func TestListSitesEndpoint(t *testing.T) {
	r := newTestRouter(t, fakeIndex{})

	rec := doJSON(t, r, http.MethodGet, "/sites", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["count"] != float64(2) {
		t.Errorf("expected 2 sites, got %v", body["count"])
	}
}
