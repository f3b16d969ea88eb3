package tasks

import (
	"context"
	"strings"

	"github.com/desertthunder/playsync/internal/models"
	"github.com/desertthunder/playsync/internal/services"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

const (
	DefaultCandidates = 5
	DefaultCacheSize  = 512
)

// Match is the outcome of a single lookup. Found is false when the destination returned no candidates.
type Match struct {
	Found bool
	ID    string
	Track models.Track
	Query string
}

// Matcher finds a destination track for a source track by free-text search.
//
// The first candidate returned by the destination catalog is trusted as-is.
// Results are memoized per normalized query; failed searches are not.
type Matcher struct {
	dest       services.Catalog
	candidates int
	cache      *lru.Cache[string, Match]
}

// NewMatcher creates a matcher that searches dest, requesting up to candidates results per query.
// A cacheSize of zero or less disables memoization.
func NewMatcher(dest services.Catalog, candidates, cacheSize int) *Matcher {
	if candidates <= 0 {
		candidates = DefaultCandidates
	}
	m := &Matcher{dest: dest, candidates: candidates}
	if cacheSize > 0 {
		// only errors on a non-positive size
		m.cache, _ = lru.New[string, Match](cacheSize)
	}
	return m
}

// BuildQuery returns "{title} {artist}", or just the title when the artist is empty.
func BuildQuery(t models.Track) string {
	return strings.TrimSpace(strings.TrimSpace(t.Title) + " " + strings.TrimSpace(t.Artist))
}

// Match searches the destination for t.
func (m *Matcher) Match(ctx context.Context, t models.Track) (Match, error) {
	query := BuildQuery(t)
	key := m.cacheKey(query)

	if m.cache != nil {
		if hit, ok := m.cache.Get(key); ok {
			return hit, nil
		}
	}

	results, err := m.dest.SearchTrack(ctx, query, m.candidates)
	if err != nil {
		return Match{Query: query}, err
	}

	match := Match{Query: query}
	if len(results) > 0 {
		match.Found = true
		match.ID = results[0].ID
		match.Track = results[0]
	}

	if m.cache != nil {
		m.cache.Add(key, match)
	}
	return match, nil
}

// cacheKey folds case after NFC normalization. A [cases.Caser] is stateful, so one is built per call.
func (m *Matcher) cacheKey(query string) string {
	return cases.Fold().String(norm.NFC.String(query))
}
