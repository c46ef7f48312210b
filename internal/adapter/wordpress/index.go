// Package wordpress implements the content index port against WordPress sites,
// combining the WP REST API with sitemap slug matching.
package wordpress

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/contentpipe/routerd/internal/domain/site"
	"github.com/contentpipe/routerd/internal/port/contentindex"
)

// Path fragments excluded from sitemap scanning (non-content WordPress URLs).
var excludedFragments = []string{
	"/wp-content/", "/wp-admin/", "/feed/", "/xmlrpc.php",
	"/wp-json/", "/trackback/", "/comment-page-",
}

// Index looks up existing content over the WP REST API, falling back to
// sitemap slug matching when the API yields nothing.
type Index struct {
	client  *http.Client
	maxURLs int
}

// NewIndex creates a WordPress content index. The per-lookup deadline comes
// from the caller's context; maxURLs caps sitemap entries scanned per site.
func NewIndex(client *http.Client, maxURLs int) *Index {
	if client == nil {
		client = http.DefaultClient
	}
	return &Index{client: client, maxURLs: maxURLs}
}

// Search implements contentindex.Index.
func (ix *Index) Search(ctx context.Context, s site.Profile, keyword string) ([]contentindex.Match, error) {
	parts := keywordParts(keyword)
	if len(parts) == 0 {
		return nil, nil
	}

	if s.WordPressAPIURL != "" {
		matches, err := ix.searchPosts(ctx, s, keyword, parts)
		if err != nil {
			return nil, err
		}
		if len(matches) > 0 {
			return matches, nil
		}
	}

	if s.SitemapURL != "" {
		return ix.searchSitemap(ctx, s, parts)
	}

	return nil, nil
}

type wpRendered struct {
	Rendered string `json:"rendered"`
}

type wpPost struct {
	Link    string     `json:"link"`
	Title   wpRendered `json:"title"`
	Excerpt wpRendered `json:"excerpt"`
}

// searchPosts queries the WP REST posts endpoint and scores results by
// keyword token overlap against the rendered title and excerpt.
func (ix *Index) searchPosts(ctx context.Context, s site.Profile, keyword string, parts []string) ([]contentindex.Match, error) {
	u := strings.TrimSuffix(s.WordPressAPIURL, "/") +
		"/posts?per_page=5&_fields=link,title,excerpt&search=" + url.QueryEscape(keyword)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("wp posts request: %w", err)
	}

	resp, err := ix.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wp posts fetch %s: %w", s.Domain, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wp posts fetch %s: status %d", s.Domain, resp.StatusCode)
	}

	var posts []wpPost
	if err := json.NewDecoder(resp.Body).Decode(&posts); err != nil {
		return nil, fmt.Errorf("wp posts decode: %w", err)
	}

	var matches []contentindex.Match
	for _, p := range posts {
		title := stripHTML(p.Title.Rendered)
		excerpt := stripHTML(p.Excerpt.Rendered)
		sim := overlap(parts, strings.ToLower(title+" "+excerpt))
		if sim == 0 {
			continue
		}
		matches = append(matches, contentindex.Match{
			URL:        p.Link,
			Title:      title,
			Summary:    excerpt,
			Similarity: sim,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })
	return matches, nil
}

type sitemapURL struct {
	Loc string `xml:"loc"`
}

type sitemapIndex struct {
	URLs []sitemapURL `xml:"url"`
}

// searchSitemap fetches the sitemap and scores URL slugs by matched keyword parts.
func (ix *Index) searchSitemap(ctx context.Context, s site.Profile, parts []string) ([]contentindex.Match, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.SitemapURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("sitemap request: %w", err)
	}

	resp, err := ix.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sitemap fetch %s: %w", s.Domain, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sitemap fetch %s: status %d", s.Domain, resp.StatusCode)
	}

	var sm sitemapIndex
	if err := xml.NewDecoder(resp.Body).Decode(&sm); err != nil {
		return nil, fmt.Errorf("sitemap decode: %w", err)
	}

	var matches []contentindex.Match
	scanned := 0
	for _, entry := range sm.URLs {
		loc := strings.TrimSpace(entry.Loc)
		if loc == "" || excluded(loc) {
			continue
		}
		if scanned++; scanned > ix.maxURLs {
			break
		}

		parsed, err := url.Parse(loc)
		if err != nil {
			continue
		}
		path := strings.ToLower(parsed.Path)

		matched := 0
		for _, part := range parts {
			if strings.Contains(path, part) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}

		matches = append(matches, contentindex.Match{
			URL:        loc,
			Title:      slugTitle(path),
			Similarity: float64(matched) / float64(len(parts)),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })
	return matches, nil
}

// keywordParts splits a keyword into lowercase tokens longer than 2 chars.
func keywordParts(keyword string) []string {
	var parts []string
	for _, p := range strings.Fields(strings.ToLower(keyword)) {
		if len(p) > 2 {
			parts = append(parts, p)
		}
	}
	return parts
}

// overlap returns the fraction of parts present in text.
func overlap(parts []string, text string) float64 {
	if len(parts) == 0 {
		return 0
	}
	matched := 0
	for _, p := range parts {
		if strings.Contains(text, p) {
			matched++
		}
	}
	return float64(matched) / float64(len(parts))
}

// excluded reports whether the URL points at non-content WordPress paths.
func excluded(u string) bool {
	for _, frag := range excludedFragments {
		if strings.Contains(u, frag) {
			return true
		}
	}
	return false
}

// slugTitle turns the last path segment into a readable title.
func slugTitle(path string) string {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	if len(segs) == 0 {
		return ""
	}
	return strings.ReplaceAll(segs[len(segs)-1], "-", " ")
}

// stripHTML extracts plain text from rendered WordPress HTML.
func stripHTML(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	return strings.TrimSpace(doc.Text())
}
