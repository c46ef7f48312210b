// Package contentindex defines the port for the external content index collaborator.
package contentindex

import (
	"context"

	"github.com/contentpipe/routerd/internal/domain/site"
)

// Match is one existing-content candidate returned by the index.
type Match struct {
	URL        string
	Title      string
	Summary    string
	Similarity float64 // [0,1] relative to the queried keyword
}

// Index is the port interface for looking up existing content on a site.
// Implementations must honor the context deadline; the caller treats any
// error as a degraded (not-found) signal.
type Index interface {
	// Search returns candidate matches for the keyword on the given site,
	// best match first.
	Search(ctx context.Context, s site.Profile, keyword string) ([]Match, error)
}
