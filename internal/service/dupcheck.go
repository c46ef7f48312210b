// Package service implements the routing engine, duplication checker and
// validation gate.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/contentpipe/routerd/internal/config"
	"github.com/contentpipe/routerd/internal/domain/routing"
	"github.com/contentpipe/routerd/internal/domain/site"
	"github.com/contentpipe/routerd/internal/port/cache"
	"github.com/contentpipe/routerd/internal/port/contentindex"
	"github.com/contentpipe/routerd/internal/resilience"
)

// DupChecker answers whether a keyword already has content on a site.
// Lookups are bounded by a deadline; an index failure or timeout degrades
// to a not-found answer instead of failing the routing request.
type DupChecker struct {
	index contentindex.Index
	cache cache.Cache // nil disables caching

	timeout   time.Duration
	threshold float64
	cacheTTL  time.Duration
	maxLinks  int

	// One breaker per site, so a flapping index on one site does not
	// reject lookups against the others.
	breakerMu       sync.Mutex
	breakers        map[int]*resilience.Breaker
	breakerFailures int
	breakerCooldown time.Duration
}

// NewDupChecker creates a duplication checker over the given content index.
func NewDupChecker(index contentindex.Index, c cache.Cache, cfg config.Index) *DupChecker {
	return &DupChecker{
		index:           index,
		cache:           c,
		timeout:         cfg.Timeout,
		threshold:       cfg.SimilarityThreshold,
		cacheTTL:        cfg.CacheTTL,
		maxLinks:        cfg.MaxLinkSuggestions,
		breakers:        make(map[int]*resilience.Breaker),
		breakerFailures: cfg.BreakerThreshold,
		breakerCooldown: cfg.BreakerCooldown,
	}
}

// breakerFor returns the circuit breaker guarding lookups against one site.
func (c *DupChecker) breakerFor(siteID int) *resilience.Breaker {
	c.breakerMu.Lock()
	defer c.breakerMu.Unlock()

	b, ok := c.breakers[siteID]
	if !ok {
		b = resilience.NewBreaker(c.breakerFailures, c.breakerCooldown)
		c.breakers[siteID] = b
	}
	return b
}

// Check looks up existing content for the keyword on the given site.
// Never returns an error: a degraded result carries Degraded=true and the
// caller decides how much to trust it.
func (c *DupChecker) Check(ctx context.Context, keyword string, s site.Profile) routing.DuplicationResult {
	key := cacheKey(s.SiteID, keyword)
	if cached, ok := c.cached(ctx, key); ok {
		return cached
	}

	start := time.Now()
	var matches []contentindex.Match
	err := c.breakerFor(s.SiteID).Execute(func() error {
		lctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		var serr error
		matches, serr = c.index.Search(lctx, s, keyword)
		return serr
	})
	if err != nil {
		if errors.Is(err, resilience.ErrCircuitOpen) {
			slog.Warn("duplication check skipped, circuit open",
				"site", s.Name,
				"keyword", keyword,
			)
		} else if errors.Is(err, context.DeadlineExceeded) {
			slog.Warn("duplication check timed out",
				"site", s.Name,
				"keyword", keyword,
				"timeout", c.timeout,
			)
		} else {
			slog.Error("duplication check failed",
				"site", s.Name,
				"keyword", keyword,
				"error", err,
			)
		}
		return routing.DuplicationResult{Degraded: true}
	}

	result := routing.DuplicationResult{}
	if len(matches) > 0 && matches[0].Similarity >= c.threshold {
		best := matches[0]
		result = routing.DuplicationResult{
			Found:          true,
			MatchedURL:     best.URL,
			MatchedSummary: best.Summary,
			Similarity:     best.Similarity,
		}
	}

	slog.Debug("duplication check completed",
		"site", s.Name,
		"keyword", keyword,
		"found", result.Found,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	c.store(ctx, key, result)
	return result
}

// SuggestLinks returns internal linking candidates for the keyword on the
// site, formatted as "Title - URL". Best effort: any failure yields nil.
func (c *DupChecker) SuggestLinks(ctx context.Context, keyword string, s site.Profile) []string {
	var matches []contentindex.Match
	err := c.breakerFor(s.SiteID).Execute(func() error {
		lctx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		var serr error
		matches, serr = c.index.Search(lctx, s, keyword)
		return serr
	})
	if err != nil {
		slog.Debug("link suggestion lookup failed", "site", s.Name, "keyword", keyword, "error", err)
		return nil
	}

	var links []string
	for _, m := range matches {
		if m.URL == "" {
			continue
		}
		if m.Title != "" {
			links = append(links, m.Title+" - "+m.URL)
		} else {
			links = append(links, m.URL)
		}
		if len(links) == c.maxLinks {
			break
		}
	}
	return links
}

// cached returns a previously stored result for the key, if any.
// Degraded results are never cached, so cache hits are always trustworthy.
func (c *DupChecker) cached(ctx context.Context, key string) (routing.DuplicationResult, bool) {
	if c.cache == nil {
		return routing.DuplicationResult{}, false
	}
	data, ok, err := c.cache.Get(ctx, key)
	if err != nil || !ok {
		return routing.DuplicationResult{}, false
	}
	var result routing.DuplicationResult
	if err := json.Unmarshal(data, &result); err != nil {
		return routing.DuplicationResult{}, false
	}
	return result, true
}

func (c *DupChecker) store(ctx context.Context, key string, result routing.DuplicationResult) {
	if c.cache == nil || result.Degraded {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, data, c.cacheTTL); err != nil {
		slog.Debug("cache duplication result", "key", key, "error", err)
	}
}

func cacheKey(siteID int, keyword string) string {
	return fmt.Sprintf("dup:%d:%s", siteID, strings.ToLower(strings.TrimSpace(keyword)))
}
