package wordpress

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/contentpipe/routerd/internal/domain/site"
)

func TestSearchPostsScoresByOverlap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/wp-json/wp/v2/posts" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("search"); got != "gaming mouse" {
			t.Errorf("expected search=gaming mouse, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"link":"https://s.example/best-gaming-mouse","title":{"rendered":"Best <b>Gaming</b> Mouse 2025"},"excerpt":{"rendered":"<p>Our gaming mouse picks.</p>"}},
			{"link":"https://s.example/office-chairs","title":{"rendered":"Office Chairs"},"excerpt":{"rendered":"<p>Sitting well.</p>"}}
		]`))
	}))
	defer srv.Close()

	ix := NewIndex(srv.Client(), 200)
	s := site.Profile{SiteID: 1, Domain: "s.example", WordPressAPIURL: srv.URL + "/wp-json/wp/v2/"}

	matches, err := ix.Search(context.Background(), s, "gaming mouse")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].URL != "https://s.example/best-gaming-mouse" {
		t.Errorf("unexpected match url %s", matches[0].URL)
	}
	if matches[0].Similarity != 1.0 {
		t.Errorf("expected similarity 1.0, got %v", matches[0].Similarity)
	}
	if matches[0].Title != "Best Gaming Mouse 2025" {
		t.Errorf("expected HTML-stripped title, got %q", matches[0].Title)
	}
}

func TestSearchFallsBackToSitemap(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/wp-json/wp/v2/posts", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(`<?xml version="1.0"?>
<urlset>
  <url><loc>https://s.example/wp-content/uploads/x.png</loc></url>
  <url><loc>https://s.example/guide-gaming-mouse/</loc></url>
  <url><loc>https://s.example/about/</loc></url>
</urlset>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ix := NewIndex(srv.Client(), 200)
	s := site.Profile{
		SiteID:          1,
		Domain:          "s.example",
		WordPressAPIURL: srv.URL + "/wp-json/wp/v2/",
		SitemapURL:      srv.URL + "/sitemap.xml",
	}

	matches, err := ix.Search(context.Background(), s, "gaming mouse")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 sitemap match, got %d", len(matches))
	}
	if matches[0].URL != "https://s.example/guide-gaming-mouse/" {
		t.Errorf("unexpected match url %s", matches[0].URL)
	}
	if matches[0].Similarity != 1.0 {
		t.Errorf("expected slug similarity 1.0, got %v", matches[0].Similarity)
	}
}

func TestSearchPropagatesFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ix := NewIndex(srv.Client(), 200)
	s := site.Profile{SiteID: 1, Domain: "s.example", WordPressAPIURL: srv.URL + "/wp-json/wp/v2/"}

	if _, err := ix.Search(context.Background(), s, "gaming mouse"); err == nil {
		t.Error("expected error on upstream 502")
	}
}

func TestSearchHonorsContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ix := NewIndex(srv.Client(), 200)
	s := site.Profile{SiteID: 1, Domain: "s.example", WordPressAPIURL: srv.URL + "/wp-json/wp/v2/"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := ix.Search(ctx, s, "gaming mouse"); err == nil {
		t.Error("expected error on cancelled context")
	}
}
