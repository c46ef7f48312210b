// Package agents implements HTTP dispatch to the downstream content agents.
package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/contentpipe/routerd/internal/config"
	"github.com/contentpipe/routerd/internal/domain/routing"
	"github.com/contentpipe/routerd/internal/domain/site"
)

// Client forwards approved routing payloads to the copywriter or rewriter agent.
type Client struct {
	http          *http.Client
	copywriterURL string
	rewriterURL   string
}

// NewClient creates a Client from agent endpoint configuration.
func NewClient(cfg config.Agents) *Client {
	return &Client{
		http:          &http.Client{Timeout: cfg.Timeout},
		copywriterURL: strings.TrimSuffix(cfg.CopywriterURL, "/"),
		rewriterURL:   strings.TrimSuffix(cfg.RewriterURL, "/"),
	}
}

// copywriterRequest is the body sent to the copywriter's /create endpoint.
type copywriterRequest struct {
	Keyword                    string                    `json:"keyword"`
	SiteInfo                   site.Profile              `json:"site_info"`
	SERPAnalysis               *routing.SERPAnalysis     `json:"serp_analysis,omitempty"`
	SimilarKeywords            []routing.SimilarKeyword  `json:"similar_keywords,omitempty"`
	InternalLinkingSuggestions []string                  `json:"internal_linking_suggestions,omitempty"`
}

// rewriterRequest is the body sent to the rewriter's /update-blog-article endpoint.
type rewriterRequest struct {
	ArticleURL        string `json:"article_url"`
	Subject           string `json:"subject"`
	AdditionalContent string `json:"additional_content,omitempty"`
}

// Forward dispatches the payload to the agent named by its closed target enum.
// Dispatch failures are reported in the response, never as a Go error: the
// routing outcome is already decided by the time forwarding happens.
func (c *Client) Forward(ctx context.Context, p *routing.Payload) routing.AgentResponse {
	switch p.AgentTarget {
	case routing.AgentCopywriter:
		body := copywriterRequest{
			Keyword:                    p.Keyword,
			SiteInfo:                   p.SiteConfig,
			SERPAnalysis:               p.SERPAnalysis,
			SimilarKeywords:            p.SimilarKeywords,
			InternalLinkingSuggestions: p.InternalLinkingSuggestions,
		}
		return c.post(ctx, c.copywriterURL+"/create", body)

	case routing.AgentRewriter:
		body := rewriterRequest{
			Subject:           p.Keyword,
			AdditionalContent: p.RewriteBriefing,
		}
		if p.ExistingContent != nil {
			body.ArticleURL = p.ExistingContent.URL
		}
		return c.post(ctx, c.rewriterURL+"/update-blog-article", body)

	default:
		return routing.AgentResponse{
			Success: false,
			Error:   fmt.Sprintf("unsupported agent target %q", p.AgentTarget),
		}
	}
}

func (c *Client) post(ctx context.Context, url string, body any) routing.AgentResponse {
	data, err := json.Marshal(body)
	if err != nil {
		return routing.AgentResponse{Success: false, Error: fmt.Sprintf("marshal payload: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return routing.AgentResponse{Success: false, Error: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		slog.Error("agent dispatch failed", "url", url, "error", err)
		return routing.AgentResponse{Success: false, Error: err.Error()}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode != http.StatusOK {
		slog.Error("agent dispatch rejected", "url", url, "status", resp.StatusCode)
		return routing.AgentResponse{
			Success:    false,
			StatusCode: resp.StatusCode,
			Error:      fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))),
		}
	}

	var parsed struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(respBody, &parsed)

	slog.Info("agent dispatched",
		"url", url,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return routing.AgentResponse{
		Success:    true,
		StatusCode: resp.StatusCode,
		Message:    parsed.Message,
	}
}
