package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/contentpipe/routerd/internal/config"
	"github.com/contentpipe/routerd/internal/domain/site"
	"github.com/contentpipe/routerd/internal/port/contentindex"
)

var testSite = site.Profile{SiteID: 1, Name: "Gaming Hub", Domain: "gaminghub.example"}

func testIndexConfig() config.Index {
	return config.Index{
		Timeout:             50 * time.Millisecond,
		SimilarityThreshold: 0.4,
		CacheTTL:            time.Minute,
		MaxLinkSuggestions:  3,
		BreakerThreshold:    5,
		BreakerCooldown:     time.Minute,
	}
}

func TestDupCheckFindsDuplicateAboveThreshold(t *testing.T) {
	index := &mockIndex{searchFn: func(context.Context, site.Profile, string) ([]contentindex.Match, error) {
		return []contentindex.Match{
			{URL: "https://gaminghub.example/best-gaming-mouse", Title: "Best Gaming Mouse", Summary: "Our picks", Similarity: 0.8},
		}, nil
	}}
	c := NewDupChecker(index, nil, testIndexConfig())

	result := c.Check(context.Background(), "best gaming mouse", testSite)
	if !result.Found {
		t.Fatal("expected duplicate to be found")
	}
	if result.MatchedURL != "https://gaminghub.example/best-gaming-mouse" {
		t.Errorf("unexpected matched URL %q", result.MatchedURL)
	}
	if result.Degraded {
		t.Error("successful lookup must not be degraded")
	}
}

func TestDupCheckBelowThresholdNotFound(t *testing.T) {
	index := &mockIndex{searchFn: func(context.Context, site.Profile, string) ([]contentindex.Match, error) {
		return []contentindex.Match{{URL: "https://gaminghub.example/other", Similarity: 0.2}}, nil
	}}
	c := NewDupChecker(index, nil, testIndexConfig())

	result := c.Check(context.Background(), "best gaming mouse", testSite)
	if result.Found {
		t.Error("weak match must not count as a duplicate")
	}
	if result.Degraded {
		t.Error("successful lookup must not be degraded")
	}
}

func TestDupCheckTimeoutDegrades(t *testing.T) {
	index := &mockIndex{searchFn: func(ctx context.Context, _ site.Profile, _ string) ([]contentindex.Match, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	c := NewDupChecker(index, nil, testIndexConfig())

	start := time.Now()
	result := c.Check(context.Background(), "best gaming mouse", testSite)
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("check did not honor the lookup deadline, took %v", elapsed)
	}
	if !result.Degraded {
		t.Error("timed-out lookup must degrade")
	}
	if result.Found {
		t.Error("degraded result must report not found")
	}
}

func TestDupCheckIndexFaultDegrades(t *testing.T) {
	index := &mockIndex{searchFn: func(context.Context, site.Profile, string) ([]contentindex.Match, error) {
		return nil, errors.New("connection refused")
	}}
	c := NewDupChecker(index, nil, testIndexConfig())

	result := c.Check(context.Background(), "best gaming mouse", testSite)
	if !result.Degraded {
		t.Error("index fault must degrade")
	}
}

func TestDupCheckCachesResults(t *testing.T) {
	index := &mockIndex{searchFn: func(context.Context, site.Profile, string) ([]contentindex.Match, error) {
		return []contentindex.Match{{URL: "https://gaminghub.example/a", Similarity: 0.9}}, nil
	}}
	c := NewDupChecker(index, newMapCache(), testIndexConfig())
	ctx := context.Background()

	first := c.Check(ctx, "best gaming mouse", testSite)
	second := c.Check(ctx, "Best Gaming Mouse", testSite) // key is case-insensitive

	if index.callCount() != 1 {
		t.Errorf("expected 1 index call, got %d", index.callCount())
	}
	if first != second {
		t.Errorf("cached result differs: %+v vs %+v", first, second)
	}
}

func TestDupCheckNeverCachesDegraded(t *testing.T) {
	fail := true
	index := &mockIndex{searchFn: func(context.Context, site.Profile, string) ([]contentindex.Match, error) {
		if fail {
			return nil, errors.New("index down")
		}
		return []contentindex.Match{{URL: "https://gaminghub.example/a", Similarity: 0.9}}, nil
	}}
	c := NewDupChecker(index, newMapCache(), testIndexConfig())
	ctx := context.Background()

	if result := c.Check(ctx, "best gaming mouse", testSite); !result.Degraded {
		t.Fatal("expected first check to degrade")
	}

	fail = false
	if result := c.Check(ctx, "best gaming mouse", testSite); result.Degraded || !result.Found {
		t.Errorf("expected a fresh lookup after degraded result, got %+v", result)
	}
}

func TestDupCheckCircuitOpensAfterRepeatedFaults(t *testing.T) {
	index := &mockIndex{searchFn: func(context.Context, site.Profile, string) ([]contentindex.Match, error) {
		return nil, errors.New("connection refused")
	}}
	cfg := testIndexConfig()
	cfg.BreakerThreshold = 3
	c := NewDupChecker(index, nil, cfg)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if result := c.Check(ctx, "best gaming mouse", testSite); !result.Degraded {
			t.Fatalf("check %d: expected degraded result", i)
		}
	}
	calls := index.callCount()

	result := c.Check(ctx, "best gaming mouse", testSite)
	if !result.Degraded {
		t.Error("expected degraded result while circuit is open")
	}
	if index.callCount() != calls {
		t.Errorf("expected no index call while circuit is open, got %d extra", index.callCount()-calls)
	}
}

func TestDupCheckCircuitIsPerSite(t *testing.T) {
	other := site.Profile{SiteID: 2, Name: "Motivation Plus", Domain: "motivationplus.example"}
	index := &mockIndex{searchFn: func(_ context.Context, s site.Profile, _ string) ([]contentindex.Match, error) {
		if s.SiteID == testSite.SiteID {
			return nil, errors.New("connection refused")
		}
		return []contentindex.Match{{URL: "https://motivationplus.example/habits", Similarity: 0.9}}, nil
	}}
	cfg := testIndexConfig()
	cfg.BreakerThreshold = 2
	c := NewDupChecker(index, nil, cfg)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		c.Check(ctx, "morning habits", testSite)
	}

	if result := c.Check(ctx, "morning habits", other); !result.Found || result.Degraded {
		t.Errorf("open circuit on one site must not affect another, got %+v", result)
	}
}

func TestSuggestLinksFormatsAndCaps(t *testing.T) {
	index := &mockIndex{searchFn: func(context.Context, site.Profile, string) ([]contentindex.Match, error) {
		return []contentindex.Match{
			{URL: "https://gaminghub.example/a", Title: "Article A", Similarity: 0.9},
			{URL: "https://gaminghub.example/b", Similarity: 0.8},
			{URL: "https://gaminghub.example/c", Title: "Article C", Similarity: 0.7},
			{URL: "https://gaminghub.example/d", Title: "Article D", Similarity: 0.6},
		}, nil
	}}
	c := NewDupChecker(index, nil, testIndexConfig())

	links := c.SuggestLinks(context.Background(), "gaming", testSite)
	if len(links) != 3 {
		t.Fatalf("expected suggestions capped at 3, got %d", len(links))
	}
	if links[0] != "Article A - https://gaminghub.example/a" {
		t.Errorf("unexpected first suggestion %q", links[0])
	}
	if links[1] != "https://gaminghub.example/b" {
		t.Errorf("untitled match should fall back to its URL, got %q", links[1])
	}
}

func TestSuggestLinksFailureYieldsNil(t *testing.T) {
	index := &mockIndex{searchFn: func(context.Context, site.Profile, string) ([]contentindex.Match, error) {
		return nil, errors.New("index down")
	}}
	c := NewDupChecker(index, nil, testIndexConfig())

	if links := c.SuggestLinks(context.Background(), "gaming", testSite); links != nil {
		t.Errorf("expected nil suggestions on failure, got %v", links)
	}
}
