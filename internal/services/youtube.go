// YouTube Music [Catalog] implementation
//
// Communicates with the FastAPI proxy server (music/) running on port 8080.
// The proxy wraps ytmusicapi Python library for YouTube Music operations.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/playsync/internal/models"
	"github.com/desertthunder/playsync/internal/shared"
)

const (
	defaultYTBaseURL string = "http://localhost:8080"
	ytPageSize              = 100
)

// YouTubeArtist represents an artist in YouTube Music responses.
type YouTubeArtist struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type youtubeAlbum struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// YouTubeTrack represents a track/video in YouTube Music responses.
type YouTubeTrack struct {
	VideoID    string          `json:"videoId"`
	Title      string          `json:"title"`
	Artists    []YouTubeArtist `json:"artists"`
	Album      *youtubeAlbum   `json:"album"`
	ISRC       string          `json:"isrc,omitempty"`
	SetVideoID string          `json:"setVideoId,omitempty"`
}

// youtubeListing is the shape the proxy uses for playlists and the liked-songs library.
type youtubeListing struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	TrackCount   *int            `json:"trackCount"`
	Tracks       []*YouTubeTrack `json:"tracks"`
	Continuation string          `json:"continuation"`
}

// YouTubeCredentials carries the browser session for one sync job.
type YouTubeCredentials struct {
	Headers  shared.BrowserHeaders
	AuthFile string
}

// YouTubeCatalog implements [Catalog] via the ytmusicapi proxy.
type YouTubeCatalog struct {
	baseURL    string
	creds      YouTubeCredentials
	httpClient *http.Client
	caller     *caller
	batchSize  int
}

// NewYouTubeCatalog creates a YouTube Music catalog talking to the proxy at baseURL.
//
// Either a header set with a cookie or an auth file path is required.
func NewYouTubeCatalog(baseURL string, creds YouTubeCredentials, opts Options) (*YouTubeCatalog, error) {
	if baseURL == "" {
		baseURL = defaultYTBaseURL
	}
	if creds.AuthFile == "" {
		if err := creds.Headers.Validate(); err != nil {
			return nil, err
		}
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	batch := opts.BatchSize
	if batch <= 0 {
		batch = DefaultBatchSize
	}

	return &YouTubeCatalog{
		baseURL:    strings.TrimRight(baseURL, "/"),
		creds:      creds,
		httpClient: httpClient,
		caller:     newCaller("youtube music", opts),
		batchSize:  batch,
	}, nil
}

// Name returns the service name.
func (y *YouTubeCatalog) Name() string {
	return "YouTube Music"
}

// Service returns [models.YouTubeMusic].
func (y *YouTubeCatalog) Service() models.ServiceTag {
	return models.YouTubeMusic
}

// BatchSize returns the AddItems limit.
func (y *YouTubeCatalog) BatchSize() int {
	return y.batchSize
}

func (y *YouTubeCatalog) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, y.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	for k, v := range y.creds.Headers {
		req.Header.Set(k, v)
	}
	if y.creds.AuthFile != "" {
		req.Header.Set("X-Auth-File", y.creds.AuthFile)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var errResp struct {
			Detail string `json:"detail"`
		}
		detail := strings.TrimSpace(string(raw))
		if err := json.Unmarshal(raw, &errResp); err == nil && errResp.Detail != "" {
			detail = errResp.Detail
		}
		return NewUpstreamError("youtube music", resp.StatusCode, detail)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// GetPlaylist retrieves playlist metadata.
//
// Calls GET /api/playlists/{id}?limit=0 on the proxy.
func (y *YouTubeCatalog) GetPlaylist(ctx context.Context, playlistID string) (*models.CatalogPlaylist, error) {
	var listing youtubeListing
	endpoint := fmt.Sprintf("/api/playlists/%s?limit=0", url.PathEscape(playlistID))
	err := y.caller.read(ctx, "get_playlist", func(ctx context.Context) error {
		return y.doRequest(ctx, http.MethodGet, endpoint, nil, &listing)
	})
	if err != nil {
		return nil, err
	}

	pl := &models.CatalogPlaylist{
		ID:          listing.ID,
		Name:        listing.Title,
		Description: listing.Description,
		Service:     models.YouTubeMusic,
		Role:        models.RoleSource,
	}
	if pl.ID == "" {
		pl.ID = playlistID
	}
	if listing.TrackCount != nil {
		pl.TrackCount = *listing.TrackCount
	}
	return pl, nil
}

// ListPlaylistItems pages through a playlist with continuation tokens.
//
// Calls GET /api/playlists/{id}?limit=N&continuation=TOKEN on the proxy.
func (y *YouTubeCatalog) ListPlaylistItems(ctx context.Context, playlistID string) *TrackIterator {
	return y.listing("list_playlist_items", fmt.Sprintf("/api/playlists/%s", url.PathEscape(playlistID)))
}

// ListLikedTracks pages through the liked-songs library.
//
// Calls GET /api/library/liked-songs?limit=N&continuation=TOKEN on the proxy.
func (y *YouTubeCatalog) ListLikedTracks(ctx context.Context) *TrackIterator {
	return y.listing("list_liked_tracks", "/api/library/liked-songs")
}

func (y *YouTubeCatalog) listing(op, path string) *TrackIterator {
	return NewTrackIterator(func(ctx context.Context, cursor string) (*Page, error) {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(ytPageSize))
		if cursor != "" {
			params.Set("continuation", cursor)
		}
		endpoint := path + "?" + params.Encode()

		var listing youtubeListing
		err := y.caller.read(ctx, op, func(ctx context.Context) error {
			listing = youtubeListing{}
			return y.doRequest(ctx, http.MethodGet, endpoint, nil, &listing)
		})
		if err != nil {
			return nil, err
		}

		entries := make([]models.PlaylistEntry, len(listing.Tracks))
		for i, ytt := range listing.Tracks {
			if ytt != nil && (ytt.VideoID != "" || ytt.Title != "") {
				entries[i] = models.PlaylistEntry{Track: youtubeTrack(ytt)}
			}
		}

		page := &Page{Entries: entries, Next: listing.Continuation}
		if listing.TrackCount != nil {
			page.Total, page.TotalKnown = *listing.TrackCount, true
		}
		return page, nil
	})
}

// CreatePlaylist creates a private playlist.
//
// Calls POST /api/playlists on the proxy.
func (y *YouTubeCatalog) CreatePlaylist(ctx context.Context, name, description string) (*models.CatalogPlaylist, error) {
	createReq := struct {
		Title         string `json:"title"`
		Description   string `json:"description"`
		PrivacyStatus string `json:"privacy_status"`
	}{
		Title:         name,
		Description:   description,
		PrivacyStatus: "PRIVATE",
	}

	var createResp struct {
		PlaylistID string `json:"playlist_id"`
	}
	err := y.caller.write(ctx, func(ctx context.Context) error {
		return y.doRequest(ctx, http.MethodPost, "/api/playlists", createReq, &createResp)
	})
	if err != nil {
		return nil, err
	}
	if createResp.PlaylistID == "" {
		return nil, NewUpstreamError("youtube music", http.StatusBadGateway, "create playlist response has no playlist_id")
	}

	return &models.CatalogPlaylist{
		ID:          createResp.PlaylistID,
		Name:        name,
		Description: description,
		Service:     models.YouTubeMusic,
		Role:        models.RoleDestination,
	}, nil
}

// SearchTrack searches songs.
//
// Calls GET /api/search?q={query}&filter=songs&limit={limit} on the proxy.
func (y *YouTubeCatalog) SearchTrack(ctx context.Context, query string, limit int) ([]models.Track, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("filter", "songs")
	params.Set("limit", strconv.Itoa(limit))
	endpoint := "/api/search?" + params.Encode()

	var results []YouTubeTrack
	err := y.caller.read(ctx, "search", func(ctx context.Context) error {
		results = nil
		return y.doRequest(ctx, http.MethodGet, endpoint, nil, &results)
	})
	if err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(results))
	for i := range results {
		if results[i].VideoID == "" {
			continue
		}
		if len(tracks) >= limit {
			break
		}
		tracks = append(tracks, *youtubeTrack(&results[i]))
	}
	return tracks, nil
}

// AddItems appends video IDs to a playlist.
//
// Calls POST /api/playlists/{id}/items on the proxy.
func (y *YouTubeCatalog) AddItems(ctx context.Context, playlistID string, itemIDs []string) error {
	if len(itemIDs) > y.batchSize {
		return fmt.Errorf("%w: %d items (limit %d)", shared.ErrBatchTooLarge, len(itemIDs), y.batchSize)
	}
	if len(itemIDs) == 0 {
		return nil
	}

	addReq := struct {
		VideoIDs []string `json:"video_ids"`
	}{VideoIDs: itemIDs}

	endpoint := fmt.Sprintf("/api/playlists/%s/items", url.PathEscape(playlistID))
	return y.caller.write(ctx, func(ctx context.Context) error {
		return y.doRequest(ctx, http.MethodPost, endpoint, addReq, nil)
	})
}

func youtubeTrack(ytt *YouTubeTrack) *models.Track {
	t := &models.Track{
		ID:    ytt.VideoID,
		Title: ytt.Title,
		ISRC:  ytt.ISRC,
	}
	if len(ytt.Artists) > 0 {
		t.Artist = ytt.Artists[0].Name
	}
	if ytt.Album != nil {
		t.Album = ytt.Album.Name
	}
	return t
}
