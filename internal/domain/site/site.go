// Package site defines the target site catalog consulted by the routing engine.
package site

import (
	"sort"

	"github.com/contentpipe/routerd/internal/domain"
)

// Profile describes one target website. Loaded at startup, read-only afterwards.
type Profile struct {
	SiteID          int      `json:"site_id" yaml:"site_id"`
	Name            string   `json:"name" yaml:"name"`
	Domain          string   `json:"domain" yaml:"domain"`
	Niche           string   `json:"niche" yaml:"niche"`
	Theme           string   `json:"theme,omitempty" yaml:"theme"`
	Language        string   `json:"language,omitempty" yaml:"language"`
	SitemapURL      string   `json:"sitemap_url,omitempty" yaml:"sitemap_url"`
	WordPressAPIURL string   `json:"wordpress_api_url,omitempty" yaml:"wordpress_api_url"`
	NicheIndicators []string `json:"niche_indicators,omitempty" yaml:"niche_indicators"`
}

// Catalog is an immutable, SiteID-ordered collection of site profiles.
type Catalog struct {
	profiles []Profile
	byID     map[int]Profile
}

// NewCatalog builds a catalog from the given profiles, sorted by SiteID.
// Returns ErrNoSitesConfigured when the list is empty.
func NewCatalog(profiles []Profile) (*Catalog, error) {
	if len(profiles) == 0 {
		return nil, domain.ErrNoSitesConfigured
	}

	sorted := make([]Profile, len(profiles))
	copy(sorted, profiles)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].SiteID < sorted[j].SiteID })

	byID := make(map[int]Profile, len(sorted))
	for _, p := range sorted {
		byID[p.SiteID] = p
	}

	return &Catalog{profiles: sorted, byID: byID}, nil
}

// Profiles returns a copy of all profiles in SiteID order.
func (c *Catalog) Profiles() []Profile {
	out := make([]Profile, len(c.profiles))
	copy(out, c.profiles)
	return out
}

// ByID returns the profile with the given SiteID.
func (c *Catalog) ByID(id int) (Profile, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// Len returns the number of profiles.
func (c *Catalog) Len() int {
	return len(c.profiles)
}
