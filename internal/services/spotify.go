// Spotify Web API implementation of [Catalog]
//
// Built on github.com/zmb3/spotify/v2 with a static bearer token.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/desertthunder/playsync/internal/models"
	"github.com/desertthunder/playsync/internal/shared"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

const (
	spotifyPageSize      = 100
	spotifyLikedPageSize = 50
	spotifySearchLimit   = 50 // API maximum for /search
)

// SpotifyCredentials carries the bearer token for one sync job.
type SpotifyCredentials struct {
	AccessToken string
}

// SpotifyCatalog implements [Catalog] against the Spotify Web API.
type SpotifyCatalog struct {
	client    *spotify.Client
	caller    *caller
	batchSize int

	mu     sync.Mutex
	userID string
}

// NewSpotifyCatalog creates a Spotify catalog authenticated with creds.
//
// baseURL overrides the API root (it must end with "/"); empty uses the public endpoint.
func NewSpotifyCatalog(creds SpotifyCredentials, baseURL string, opts Options) (*SpotifyCatalog, error) {
	if creds.AccessToken == "" {
		return nil, fmt.Errorf("%w: spotify access token", shared.ErrMissingCredentials)
	}

	ctx := context.Background()
	if opts.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, opts.HTTPClient)
	}
	token := &oauth2.Token{AccessToken: creds.AccessToken, TokenType: "Bearer"}
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	var clientOpts []spotify.ClientOption
	if baseURL != "" {
		clientOpts = append(clientOpts, spotify.WithBaseURL(baseURL))
	}

	batch := opts.BatchSize
	if batch <= 0 || batch > DefaultBatchSize {
		batch = DefaultBatchSize
	}

	return &SpotifyCatalog{
		client:    spotify.New(httpClient, clientOpts...),
		caller:    newCaller("spotify", opts),
		batchSize: batch,
	}, nil
}

// Name returns the service name.
func (s *SpotifyCatalog) Name() string {
	return "Spotify"
}

// Service returns [models.Spotify].
func (s *SpotifyCatalog) Service() models.ServiceTag {
	return models.Spotify
}

// BatchSize returns the AddItems limit.
func (s *SpotifyCatalog) BatchSize() int {
	return s.batchSize
}

// GetPlaylist retrieves playlist metadata.
func (s *SpotifyCatalog) GetPlaylist(ctx context.Context, playlistID string) (*models.CatalogPlaylist, error) {
	var pl *spotify.FullPlaylist
	err := s.caller.read(ctx, "get_playlist", func(ctx context.Context) error {
		var err error
		pl, err = s.client.GetPlaylist(ctx, spotify.ID(playlistID))
		return s.upstream(err)
	})
	if err != nil {
		return nil, err
	}

	return &models.CatalogPlaylist{
		ID:          string(pl.ID),
		Name:        pl.Name,
		Description: pl.Description,
		TrackCount:  int(pl.Tracks.Total),
		Service:     models.Spotify,
		Role:        models.RoleSource,
	}, nil
}

// ListPlaylistItems pages through playlist items by offset.
//
// Episodes and removed tracks are yielded as empty entries.
func (s *SpotifyCatalog) ListPlaylistItems(ctx context.Context, playlistID string) *TrackIterator {
	return NewTrackIterator(func(ctx context.Context, cursor string) (*Page, error) {
		offset, err := parseOffset(cursor)
		if err != nil {
			return nil, err
		}

		var page *spotify.PlaylistItemPage
		err = s.caller.read(ctx, "list_playlist_items", func(ctx context.Context) error {
			var err error
			page, err = s.client.GetPlaylistItems(ctx, spotify.ID(playlistID),
				spotify.Limit(spotifyPageSize), spotify.Offset(offset))
			return s.upstream(err)
		})
		if err != nil {
			return nil, err
		}

		entries := make([]models.PlaylistEntry, len(page.Items))
		for i := range page.Items {
			if ft := page.Items[i].Track.Track; ft != nil {
				entries[i] = models.PlaylistEntry{Track: spotifyTrack(ft)}
			}
		}

		return &Page{
			Entries:    entries,
			Next:       nextOffset(page.Next, offset, len(page.Items)),
			Total:      int(page.Total),
			TotalKnown: true,
		}, nil
	})
}

// ListLikedTracks pages through the user's saved tracks.
func (s *SpotifyCatalog) ListLikedTracks(ctx context.Context) *TrackIterator {
	return NewTrackIterator(func(ctx context.Context, cursor string) (*Page, error) {
		offset, err := parseOffset(cursor)
		if err != nil {
			return nil, err
		}

		var page *spotify.SavedTrackPage
		err = s.caller.read(ctx, "list_liked_tracks", func(ctx context.Context) error {
			var err error
			page, err = s.client.CurrentUsersTracks(ctx,
				spotify.Limit(spotifyLikedPageSize), spotify.Offset(offset))
			return s.upstream(err)
		})
		if err != nil {
			return nil, err
		}

		entries := make([]models.PlaylistEntry, len(page.Tracks))
		for i := range page.Tracks {
			entries[i] = models.PlaylistEntry{Track: spotifyTrack(&page.Tracks[i].FullTrack)}
		}

		return &Page{
			Entries:    entries,
			Next:       nextOffset(page.Next, offset, len(page.Tracks)),
			Total:      int(page.Total),
			TotalKnown: true,
		}, nil
	})
}

// CreatePlaylist creates a private playlist for the current user.
func (s *SpotifyCatalog) CreatePlaylist(ctx context.Context, name, description string) (*models.CatalogPlaylist, error) {
	userID, err := s.currentUserID(ctx)
	if err != nil {
		return nil, err
	}

	var pl *spotify.FullPlaylist
	err = s.caller.write(ctx, func(ctx context.Context) error {
		var err error
		pl, err = s.client.CreatePlaylistForUser(ctx, userID, name, description, false, false)
		return s.upstream(err)
	})
	if err != nil {
		return nil, err
	}

	return &models.CatalogPlaylist{
		ID:          string(pl.ID),
		Name:        pl.Name,
		Description: description,
		Service:     models.Spotify,
		Role:        models.RoleDestination,
	}, nil
}

// SearchTrack searches the track catalog.
//
// The limit is clamped to 1..50.
func (s *SpotifyCatalog) SearchTrack(ctx context.Context, query string, limit int) ([]models.Track, error) {
	limit = min(max(limit, 1), spotifySearchLimit)

	var res *spotify.SearchResult
	err := s.caller.read(ctx, "search", func(ctx context.Context) error {
		var err error
		res, err = s.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(limit))
		return s.upstream(err)
	})
	if err != nil {
		return nil, err
	}

	if res.Tracks == nil {
		return nil, nil
	}

	tracks := make([]models.Track, 0, len(res.Tracks.Tracks))
	for i := range res.Tracks.Tracks {
		if len(tracks) >= limit {
			break
		}
		tracks = append(tracks, *spotifyTrack(&res.Tracks.Tracks[i]))
	}
	return tracks, nil
}

// AddItems appends track IDs to a playlist.
func (s *SpotifyCatalog) AddItems(ctx context.Context, playlistID string, itemIDs []string) error {
	if len(itemIDs) > s.batchSize {
		return fmt.Errorf("%w: %d items (limit %d)", shared.ErrBatchTooLarge, len(itemIDs), s.batchSize)
	}
	if len(itemIDs) == 0 {
		return nil
	}

	ids := make([]spotify.ID, len(itemIDs))
	for i, id := range itemIDs {
		ids[i] = spotify.ID(id)
	}

	return s.caller.write(ctx, func(ctx context.Context) error {
		_, err := s.client.AddTracksToPlaylist(ctx, spotify.ID(playlistID), ids...)
		return s.upstream(err)
	})
}

// currentUserID resolves and caches the ID of the token's owner.
func (s *SpotifyCatalog) currentUserID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID != "" {
		return s.userID, nil
	}

	var user *spotify.PrivateUser
	err := s.caller.read(ctx, "current_user", func(ctx context.Context) error {
		var err error
		user, err = s.client.CurrentUser(ctx)
		return s.upstream(err)
	})
	if err != nil {
		return "", err
	}

	s.userID = user.ID
	return s.userID, nil
}

// upstream converts API errors into [UpstreamError]. Transport errors pass through.
func (s *SpotifyCatalog) upstream(err error) error {
	if err == nil {
		return nil
	}
	var apiErr spotify.Error
	var apiErrPtr *spotify.Error
	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &apiErrPtr):
		apiErr = *apiErrPtr
	default:
		return err
	}

	status := apiErr.Status
	if status == 0 {
		status = http.StatusBadGateway
	}
	return NewUpstreamError("spotify", status, apiErr.Message)
}

func spotifyTrack(ft *spotify.FullTrack) *models.Track {
	t := &models.Track{
		ID:    string(ft.ID),
		Title: ft.Name,
		Album: ft.Album.Name,
	}
	if len(ft.Artists) > 0 {
		t.Artist = ft.Artists[0].Name
	}
	return t
}

func parseOffset(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	offset, err := strconv.Atoi(cursor)
	if err != nil {
		return 0, fmt.Errorf("%w: bad page cursor %q", shared.ErrInvalidArgument, cursor)
	}
	return offset, nil
}

func nextOffset(next string, offset, n int) string {
	if next == "" || n == 0 {
		return ""
	}
	return strconv.Itoa(offset + n)
}
