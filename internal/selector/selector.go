// Package selector scores keywords against the site catalog to pick a target site.
package selector

import (
	"strings"

	"github.com/contentpipe/routerd/internal/domain"
	"github.com/contentpipe/routerd/internal/domain/routing"
	"github.com/contentpipe/routerd/internal/domain/site"
)

// Indicator match weights. A hit in the primary keyword counts double a hit
// in a related keyword.
const (
	primaryWeight = 2.0
	relatedWeight = 1.0
)

// minScore is the floor below which a best match is treated as no match.
const minScore = 1.0

// Selector picks the best target site for a keyword. It is a pure function of
// the catalog and its input; no side effects.
type Selector struct {
	catalog *site.Catalog
}

// New creates a Selector over the given catalog.
func New(catalog *site.Catalog) *Selector {
	return &Selector{catalog: catalog}
}

// Select returns the highest-scoring site profile and a confidence in [0,1].
// Ties break toward the lower SiteID. When no profile clears the score floor,
// the lowest-SiteID profile is returned with confidence 0 and the caller must
// treat the result as a low-confidence signal.
func (s *Selector) Select(keyword string, related []routing.SimilarKeyword) (site.Profile, float64, error) {
	profiles := s.catalog.Profiles()
	if len(profiles) == 0 {
		return site.Profile{}, 0, domain.ErrNoSitesConfigured
	}

	primary := strings.ToLower(keyword)
	relatedText := make([]string, 0, len(related))
	for _, kw := range related {
		relatedText = append(relatedText, strings.ToLower(kw.Keyword))
	}

	var (
		best      = profiles[0] // profiles are SiteID-ordered, so first wins ties
		bestScore float64
		total     float64
	)

	for _, p := range profiles {
		score := scoreProfile(p, primary, relatedText)
		total += score
		if score > bestScore {
			best = p
			bestScore = score
		}
	}

	if bestScore < minScore || total == 0 {
		return profiles[0], 0, nil
	}

	return best, bestScore / total, nil
}

// scoreProfile sums indicator weights for one profile.
func scoreProfile(p site.Profile, primary string, related []string) float64 {
	var score float64
	for _, ind := range p.NicheIndicators {
		ind = strings.ToLower(ind)
		if ind == "" {
			continue
		}
		if strings.Contains(primary, ind) {
			score += primaryWeight
			continue
		}
		for _, kw := range related {
			if strings.Contains(kw, ind) {
				score += relatedWeight
				break
			}
		}
	}
	return score
}
