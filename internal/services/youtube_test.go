package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/playsync/internal/shared"
)

var testHeaders = shared.BrowserHeaders{"cookie": "SID=abc", "x-goog-authuser": "0"}

func newTestYouTube(t *testing.T, handler http.HandlerFunc) *YouTubeCatalog {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := NewYouTubeCatalog(server.URL, YouTubeCredentials{Headers: testHeaders}, Options{})
	if err != nil {
		t.Fatalf("failed to create catalog: %v", err)
	}
	return svc
}

func TestYouTubeCatalog(t *testing.T) {
	t.Run("NewYouTubeCatalog", func(t *testing.T) {
		t.Run("defaults", func(t *testing.T) {
			svc, err := NewYouTubeCatalog("", YouTubeCredentials{AuthFile: "/path/to/browser.json"}, Options{})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if svc.baseURL != defaultYTBaseURL {
				t.Errorf("expected baseURL to be %s, got %s", defaultYTBaseURL, svc.baseURL)
			}
			if svc.BatchSize() != DefaultBatchSize {
				t.Errorf("expected batch size %d, got %d", DefaultBatchSize, svc.BatchSize())
			}
			if svc.Name() != "YouTube Music" {
				t.Errorf("expected name to be 'YouTube Music', got %s", svc.Name())
			}
		})

		t.Run("requires cookie or auth file", func(t *testing.T) {
			_, err := NewYouTubeCatalog("", YouTubeCredentials{}, Options{})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("custom batch size", func(t *testing.T) {
			svc, err := NewYouTubeCatalog("", YouTubeCredentials{Headers: testHeaders}, Options{BatchSize: 25})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if svc.BatchSize() != 25 {
				t.Errorf("expected batch size 25, got %d", svc.BatchSize())
			}
		})
	})

	t.Run("forwards browser headers", func(t *testing.T) {
		svc := newTestYouTube(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Cookie") != "SID=abc" {
				t.Errorf("expected cookie header, got %q", r.Header.Get("Cookie"))
			}
			if r.Header.Get("X-Goog-Authuser") != "0" {
				t.Errorf("expected x-goog-authuser header, got %q", r.Header.Get("X-Goog-Authuser"))
			}
			json.NewEncoder(w).Encode(map[string]any{"id": "PL1", "title": "Road Trip", "trackCount": 3})
		})

		pl, err := svc.GetPlaylist(context.Background(), "PL1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if pl.Name != "Road Trip" || pl.TrackCount != 3 {
			t.Errorf("unexpected playlist %+v", pl)
		}
	})

	t.Run("ListPlaylistItems follows continuation", func(t *testing.T) {
		var requests []string
		svc := newTestYouTube(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/playlists/PL1" {
				t.Errorf("expected path /api/playlists/PL1, got %s", r.URL.Path)
			}
			requests = append(requests, r.URL.Query().Get("continuation"))

			w.Header().Set("Content-Type", "application/json")
			switch r.URL.Query().Get("continuation") {
			case "":
				w.Write([]byte(`{"id":"PL1","title":"Road Trip","trackCount":3,"continuation":"tok2","tracks":[
					{"videoId":"v1","title":"One","artists":[{"name":"A"}],"album":{"name":"X"}},
					null
				]}`))
			case "tok2":
				w.Write([]byte(`{"tracks":[{"videoId":"v3","title":"Three","artists":[]}]}`))
			default:
				t.Errorf("unexpected continuation %q", r.URL.Query().Get("continuation"))
			}
		})

		it := svc.ListPlaylistItems(context.Background(), "PL1")
		got, err := it.Collect(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(got))
		}
		if got[0].Track.ID != "v1" || got[0].Track.Artist != "A" || got[0].Track.Album != "X" {
			t.Errorf("unexpected first track %+v", got[0].Track)
		}
		if !got[1].Empty() {
			t.Error("expected null item to be an empty entry")
		}
		if got[2].Track.Artist != "" {
			t.Errorf("expected empty artist, got %q", got[2].Track.Artist)
		}
		if total, ok := it.Total(); !ok || total != 3 {
			t.Errorf("expected total 3, got %d (%v)", total, ok)
		}
		if len(requests) != 2 {
			t.Errorf("expected 2 requests, got %v", requests)
		}
	})

	t.Run("ListPlaylistItems surfaces upstream errors", func(t *testing.T) {
		svc := newTestYouTube(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"detail":"Playlist not found"}`))
		})

		_, err := svc.ListPlaylistItems(context.Background(), "missing").Collect(context.Background())
		var upstream *UpstreamError
		if !errors.As(err, &upstream) {
			t.Fatalf("expected UpstreamError, got %v", err)
		}
		if upstream.Status != http.StatusNotFound || upstream.Body != "Playlist not found" {
			t.Errorf("unexpected upstream error %+v", upstream)
		}
	})

	t.Run("ListLikedTracks", func(t *testing.T) {
		svc := newTestYouTube(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/library/liked-songs" {
				t.Errorf("expected path /api/library/liked-songs, got %s", r.URL.Path)
			}
			w.Write([]byte(`{"tracks":[{"videoId":"v1","title":"Liked","artists":[{"name":"B"}]}]}`))
		})

		it := svc.ListLikedTracks(context.Background())
		got, err := it.Collect(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(got) != 1 || got[0].Track.Title != "Liked" {
			t.Errorf("unexpected entries %+v", got)
		}
		if _, ok := it.Total(); ok {
			t.Error("expected total to be unknown")
		}
	})

	t.Run("SearchTrack", func(t *testing.T) {
		svc := newTestYouTube(t, func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("q") != "Song Artist" || q.Get("filter") != "songs" || q.Get("limit") != "5" {
				t.Errorf("unexpected query %s", r.URL.RawQuery)
			}
			w.Write([]byte(`[
				{"videoId":"v1","title":"Song","artists":[{"name":"Artist"}]},
				{"videoId":"","title":"Unavailable"},
				{"videoId":"v2","title":"Song (Live)","artists":[{"name":"Artist"}]}
			]`))
		})

		tracks, err := svc.SearchTrack(context.Background(), "Song Artist", 5)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != 2 {
			t.Fatalf("expected 2 playable results, got %d", len(tracks))
		}
		if tracks[0].ID != "v1" {
			t.Errorf("expected remote ranking to be kept, got %s first", tracks[0].ID)
		}
	})

	t.Run("SearchTrack with no results", func(t *testing.T) {
		svc := newTestYouTube(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[]`))
		})

		tracks, err := svc.SearchTrack(context.Background(), "nothing", 5)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != 0 {
			t.Errorf("expected no results, got %d", len(tracks))
		}
	})

	t.Run("CreatePlaylist", func(t *testing.T) {
		calls := 0
		svc := newTestYouTube(t, func(w http.ResponseWriter, r *http.Request) {
			calls++
			if r.Method != http.MethodPost || r.URL.Path != "/api/playlists" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["title"] != "Mix" || body["description"] != "Synced from Spotify" || body["privacy_status"] != "PRIVATE" {
				t.Errorf("unexpected body %v", body)
			}
			w.Write([]byte(`{"playlist_id":"PLnew"}`))
		})

		pl, err := svc.CreatePlaylist(context.Background(), "Mix", "Synced from Spotify")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if pl.ID != "PLnew" {
			t.Errorf("expected PLnew, got %s", pl.ID)
		}
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})

	t.Run("CreatePlaylist is not retried", func(t *testing.T) {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		svc, err := NewYouTubeCatalog(server.URL, YouTubeCredentials{Headers: testHeaders},
			Options{Retry: RetryPolicy{MaxAttempts: 3}})
		if err != nil {
			t.Fatalf("failed to create catalog: %v", err)
		}

		if _, err := svc.CreatePlaylist(context.Background(), "Mix", ""); err == nil {
			t.Fatal("expected error")
		}
		if calls != 1 {
			t.Errorf("expected exactly 1 call, got %d", calls)
		}
	})

	t.Run("AddItems", func(t *testing.T) {
		svc := newTestYouTube(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/playlists/PL1/items" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			var body struct {
				VideoIDs []string `json:"video_ids"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			if strings.Join(body.VideoIDs, ",") != "v1,v2" {
				t.Errorf("unexpected video ids %v", body.VideoIDs)
			}
			w.Write([]byte(`{"status":"STATUS_SUCCEEDED"}`))
		})

		if err := svc.AddItems(context.Background(), "PL1", []string{"v1", "v2"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("AddItems rejects oversized batches", func(t *testing.T) {
		svc, _ := NewYouTubeCatalog("", YouTubeCredentials{Headers: testHeaders}, Options{BatchSize: 2})
		err := svc.AddItems(context.Background(), "PL1", []string{"a", "b", "c"})
		if !errors.Is(err, shared.ErrBatchTooLarge) {
			t.Errorf("expected ErrBatchTooLarge, got %v", err)
		}
	})
}
