// package services defines interface Catalog for reading and writing playlists on music services
//
// Spotify (Web API), YouTube Music (via proxy)
package services

import (
	"context"

	"github.com/desertthunder/playsync/internal/models"
)

// DefaultBatchSize is the largest AddItems call both services accept.
const DefaultBatchSize = 100

// Catalog defines the operations the sync engine needs from a music service.
//
// Reads (GetPlaylist, ListPlaylistItems, ListLikedTracks, SearchTrack) are retried on transient failures.
// Writes (CreatePlaylist, AddItems) are issued exactly once per call.
type Catalog interface {
	// Name returns the display name of the service (e.g., "Spotify", "YouTube Music")
	Name() string

	// Service returns the tag used in sync directions.
	Service() models.ServiceTag

	// GetPlaylist retrieves playlist metadata without its items.
	GetPlaylist(ctx context.Context, playlistID string) (*models.CatalogPlaylist, error)

	// ListPlaylistItems lazily pages through a playlist in its stored order.
	ListPlaylistItems(ctx context.Context, playlistID string) *TrackIterator

	// ListLikedTracks lazily pages through the user's liked tracks.
	ListLikedTracks(ctx context.Context) *TrackIterator

	// CreatePlaylist creates a new private playlist owned by the authenticated user.
	CreatePlaylist(ctx context.Context, name, description string) (*models.CatalogPlaylist, error)

	// SearchTrack returns up to limit candidates, best first. An empty result is not an error.
	SearchTrack(ctx context.Context, query string, limit int) ([]models.Track, error)

	// AddItems appends item IDs to a playlist. At most BatchSize IDs per call.
	AddItems(ctx context.Context, playlistID string, itemIDs []string) error

	// BatchSize returns the AddItems limit for this service.
	BatchSize() int
}

// Page is one page of a paginated listing.
//
// Next is the cursor for the following page; an empty Next ends the listing.
type Page struct {
	Entries    []models.PlaylistEntry
	Next       string
	Total      int
	TotalKnown bool
}

// PageFetcher fetches the page addressed by cursor. The first call receives an empty cursor.
type PageFetcher func(ctx context.Context, cursor string) (*Page, error)

// TrackIterator pulls entries from a paginated listing one at a time.
//
// Iteration stops at the first failed page; [TrackIterator.Err] then reports the failure and
// entries already yielded must not be treated as a complete listing.
type TrackIterator struct {
	fetch   PageFetcher
	buf     []models.PlaylistEntry
	cursor  string
	current models.PlaylistEntry
	total   int
	known   bool
	started bool
	done    bool
	err     error
}

// NewTrackIterator creates an iterator over the pages returned by fetch.
func NewTrackIterator(fetch PageFetcher) *TrackIterator {
	return &TrackIterator{fetch: fetch}
}

// Next advances to the next entry, fetching another page when the buffer is drained.
func (it *TrackIterator) Next(ctx context.Context) bool {
	for len(it.buf) == 0 {
		if it.done || it.err != nil {
			return false
		}
		if it.started && it.cursor == "" {
			it.done = true
			return false
		}
		if err := ctx.Err(); err != nil {
			it.err = err
			return false
		}

		page, err := it.fetch(ctx, it.cursor)
		it.started = true
		if err != nil {
			it.err = err
			return false
		}

		it.buf = page.Entries
		it.cursor = page.Next
		if page.TotalKnown {
			it.total, it.known = page.Total, true
		}
		if len(page.Entries) == 0 && page.Next == "" {
			it.done = true
			return false
		}
	}

	it.current, it.buf = it.buf[0], it.buf[1:]
	return true
}

// Entry returns the entry at the current position.
func (it *TrackIterator) Entry() models.PlaylistEntry {
	return it.current
}

// Total returns the listing size once a page reporting it has been fetched.
func (it *TrackIterator) Total() (int, bool) {
	return it.total, it.known
}

// Err returns the error that stopped iteration, if any.
func (it *TrackIterator) Err() error {
	return it.err
}

// Collect drains the iterator into a slice.
func (it *TrackIterator) Collect(ctx context.Context) ([]models.PlaylistEntry, error) {
	var entries []models.PlaylistEntry
	for it.Next(ctx) {
		entries = append(entries, it.Entry())
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
