package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/playsync/internal/shared"
)

func newTestSpotify(t *testing.T, handler http.HandlerFunc) *SpotifyCatalog {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := NewSpotifyCatalog(SpotifyCredentials{AccessToken: "token"}, server.URL+"/", Options{})
	if err != nil {
		t.Fatalf("failed to create catalog: %v", err)
	}
	return svc
}

func spotifyItem(id, name, artist string) string {
	return fmt.Sprintf(`{"added_at":"2024-01-01T00:00:00Z","track":{"type":"track","id":%q,"name":%q,"artists":[{"name":%q}],"album":{"name":"Album"}}}`,
		id, name, artist)
}

func spotifyError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":{"status":%d,"message":%q}}`, status, message)
}

func TestSpotifyCatalog(t *testing.T) {
	t.Run("NewSpotifyCatalog", func(t *testing.T) {
		t.Run("requires access token", func(t *testing.T) {
			_, err := NewSpotifyCatalog(SpotifyCredentials{}, "", Options{})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("caps batch size", func(t *testing.T) {
			svc, err := NewSpotifyCatalog(SpotifyCredentials{AccessToken: "token"}, "", Options{BatchSize: 500})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if svc.BatchSize() != DefaultBatchSize {
				t.Errorf("expected batch size %d, got %d", DefaultBatchSize, svc.BatchSize())
			}
			if svc.Name() != "Spotify" {
				t.Errorf("expected name Spotify, got %s", svc.Name())
			}
		})
	})

	t.Run("sends bearer token", func(t *testing.T) {
		svc := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer token" {
				t.Errorf("expected bearer token, got %q", r.Header.Get("Authorization"))
			}
			w.Write([]byte(`{"id":"pl1","name":"Road Trip","description":"d","tracks":{"total":42,"items":[]}}`))
		})

		pl, err := svc.GetPlaylist(context.Background(), "pl1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if pl.Name != "Road Trip" || pl.TrackCount != 42 {
			t.Errorf("unexpected playlist %+v", pl)
		}
	})

	t.Run("ListPlaylistItems pages by offset", func(t *testing.T) {
		var offsets []string
		svc := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasSuffix(r.URL.Path, "/playlists/pl1/tracks") {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			offset := r.URL.Query().Get("offset")
			offsets = append(offsets, offset)

			switch offset {
			case "", "0":
				fmt.Fprintf(w, `{"total":3,"limit":2,"offset":0,"next":"http://next","items":[%s,%s]}`,
					spotifyItem("t1", "One", "A"), spotifyItem("t2", "Two", "B"))
			case "2":
				fmt.Fprintf(w, `{"total":3,"limit":2,"offset":2,"next":"","items":[%s]}`,
					spotifyItem("t3", "Three", "C"))
			default:
				t.Errorf("unexpected offset %q", offset)
			}
		})

		it := svc.ListPlaylistItems(context.Background(), "pl1")
		got, err := it.Collect(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 entries, got %d", len(got))
		}
		if got[0].Track.ID != "t1" || got[0].Track.Artist != "A" || got[0].Track.Album != "Album" {
			t.Errorf("unexpected first track %+v", got[0].Track)
		}
		if got[2].Track.Title != "Three" {
			t.Errorf("expected last title Three, got %s", got[2].Track.Title)
		}
		if total, ok := it.Total(); !ok || total != 3 {
			t.Errorf("expected total 3, got %d (%v)", total, ok)
		}
		if len(offsets) != 2 {
			t.Errorf("expected 2 page requests, got %v", offsets)
		}
	})

	t.Run("ListPlaylistItems maps API errors", func(t *testing.T) {
		svc := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			spotifyError(w, http.StatusNotFound, "Not found")
		})

		_, err := svc.ListPlaylistItems(context.Background(), "missing").Collect(context.Background())
		var upstream *UpstreamError
		if !errors.As(err, &upstream) {
			t.Fatalf("expected UpstreamError, got %v", err)
		}
		if upstream.Status != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", upstream.Status)
		}
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("ListLikedTracks", func(t *testing.T) {
		svc := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasSuffix(r.URL.Path, "/me/tracks") {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if r.URL.Query().Get("limit") != "50" {
				t.Errorf("expected limit 50, got %s", r.URL.Query().Get("limit"))
			}
			w.Write([]byte(`{"total":1,"next":"","items":[{"added_at":"2024-01-01T00:00:00Z","track":{"id":"t1","name":"Liked","artists":[{"name":"A"}],"album":{"name":"X"}}}]}`))
		})

		got, err := svc.ListLikedTracks(context.Background()).Collect(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(got) != 1 || got[0].Track.Title != "Liked" {
			t.Errorf("unexpected entries %+v", got)
		}
	})

	t.Run("SearchTrack", func(t *testing.T) {
		svc := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("q") != "Song Artist" || q.Get("type") != "track" || q.Get("limit") != "5" {
				t.Errorf("unexpected query %s", r.URL.RawQuery)
			}
			w.Write([]byte(`{"tracks":{"total":2,"items":[
				{"id":"s1","name":"Song","artists":[{"name":"Artist"}],"album":{"name":"X"}},
				{"id":"s2","name":"Song (Live)","artists":[{"name":"Artist"}],"album":{"name":"Y"}}
			]}}`))
		})

		tracks, err := svc.SearchTrack(context.Background(), "Song Artist", 5)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != 2 || tracks[0].ID != "s1" {
			t.Errorf("unexpected results %+v", tracks)
		}
	})

	t.Run("SearchTrack clamps limit", func(t *testing.T) {
		for _, tc := range []struct {
			limit int
			want  string
		}{
			{limit: 60, want: "50"},
			{limit: 0, want: "1"},
		} {
			svc := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
				if got := r.URL.Query().Get("limit"); got != tc.want {
					t.Errorf("limit %d: expected %s, got %s", tc.limit, tc.want, got)
				}
				w.Write([]byte(`{"tracks":{"total":0,"items":[]}}`))
			})

			if _, err := svc.SearchTrack(context.Background(), "Song Artist", tc.limit); err != nil {
				t.Errorf("limit %d: expected no error, got %v", tc.limit, err)
			}
		}
	})

	t.Run("CreatePlaylist resolves current user once", func(t *testing.T) {
		meCalls, createCalls := 0, 0
		svc := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			switch {
			case strings.HasSuffix(r.URL.Path, "/me"):
				meCalls++
				w.Write([]byte(`{"id":"user-1","display_name":"User"}`))
			case strings.HasSuffix(r.URL.Path, "/users/user-1/playlists"):
				createCalls++
				body, _ := io.ReadAll(r.Body)
				var req map[string]any
				json.Unmarshal(body, &req)
				if req["name"] != "Mix" || req["public"] != false {
					t.Errorf("unexpected create body %s", body)
				}
				w.WriteHeader(http.StatusCreated)
				fmt.Fprintf(w, `{"id":"new-%d","name":"Mix"}`, createCalls)
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
			}
		})

		first, err := svc.CreatePlaylist(context.Background(), "Mix", "Synced from YouTube Music")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		second, err := svc.CreatePlaylist(context.Background(), "Mix", "Synced from YouTube Music")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if first.ID == second.ID {
			t.Errorf("expected two distinct playlists, got %s twice", first.ID)
		}
		if meCalls != 1 {
			t.Errorf("expected 1 /me call, got %d", meCalls)
		}
		if createCalls != 2 {
			t.Errorf("expected 2 create calls, got %d", createCalls)
		}
	})

	t.Run("AddItems", func(t *testing.T) {
		svc := newTestSpotify(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, "/playlists/pl1/tracks") {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			var body struct {
				URIs []string `json:"uris"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			if len(body.URIs) != 2 || body.URIs[0] != "spotify:track:t1" {
				t.Errorf("unexpected uris %v", body.URIs)
			}
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"snapshot_id":"snap"}`))
		})

		if err := svc.AddItems(context.Background(), "pl1", []string{"t1", "t2"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("AddItems failure is not retried", func(t *testing.T) {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			spotifyError(w, http.StatusInternalServerError, "boom")
		}))
		defer server.Close()

		svc, err := NewSpotifyCatalog(SpotifyCredentials{AccessToken: "token"}, server.URL+"/",
			Options{Retry: RetryPolicy{MaxAttempts: 3}})
		if err != nil {
			t.Fatalf("failed to create catalog: %v", err)
		}

		err = svc.AddItems(context.Background(), "pl1", []string{"t1"})
		var upstream *UpstreamError
		if !errors.As(err, &upstream) || upstream.Status != http.StatusInternalServerError {
			t.Fatalf("expected 500 UpstreamError, got %v", err)
		}
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})

	t.Run("AddItems rejects oversized batches", func(t *testing.T) {
		svc, _ := NewSpotifyCatalog(SpotifyCredentials{AccessToken: "token"}, "", Options{BatchSize: 1})
		err := svc.AddItems(context.Background(), "pl1", []string{"a", "b"})
		if !errors.Is(err, shared.ErrBatchTooLarge) {
			t.Errorf("expected ErrBatchTooLarge, got %v", err)
		}
	})
}
