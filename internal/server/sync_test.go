package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/playsync/internal/models"
	"github.com/desertthunder/playsync/internal/repositories"
	"github.com/desertthunder/playsync/internal/services"
	"github.com/desertthunder/playsync/internal/shared"
	"github.com/desertthunder/playsync/internal/tasks"
	tu "github.com/desertthunder/playsync/internal/testing"
)

type fakeProvider struct {
	src, dst services.Catalog
	err      error
}

func (f *fakeProvider) Pair(direction models.Direction) (services.Catalog, services.Catalog, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.src, f.dst, nil
}

type testApp struct {
	server  *httptest.Server
	repo    *repositories.SyncJobRepository
	metrics *Metrics
}

func newTestApp(t *testing.T, provider CatalogProvider) *testApp {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo := repositories.NewSyncJobRepository(db)
	metrics := NewMetrics()
	engine := tasks.NewPlaylistEngine(repo, tasks.EngineOptions{Observer: metrics, Precision: 1})
	handler := NewSyncHandler(engine, provider, repo, nil, "user-1")

	srv := httptest.NewServer(NewAppRouter(handler, metrics, shared.DiscardLogger()))
	t.Cleanup(srv.Close)
	return &testApp{server: srv, repo: repo, metrics: metrics}
}

func (a *testApp) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(a.server.URL + path)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	return resp, string(body)
}

// frames splits an event stream body into its frames.
func frames(body string) []string {
	var out []string
	for _, f := range strings.Split(body, "\n\n") {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func terminalFrames(fs []string) []string {
	var out []string
	for _, f := range fs {
		if strings.HasPrefix(f, "event: ") {
			out = append(out, f)
		}
	}
	return out
}

func syncCatalogs() *fakeProvider {
	src := tu.NewFakeCatalog(models.Spotify)
	src.Entries = tu.Entries("A", "B", "C")
	dst := tu.NewFakeCatalog(models.YouTubeMusic).
		Found("A Artist 1", "yt-1", "A").
		Found("C Artist 3", "yt-3", "C")
	return &fakeProvider{src: src, dst: dst}
}

func TestSyncHandler(t *testing.T) {
	t.Run("streams a job to completion", func(t *testing.T) {
		provider := syncCatalogs()
		app := newTestApp(t, provider)

		resp, body := app.get(t, "/sync/start?playlist_id=src-playlist&name=Mix")
		if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
			t.Errorf("expected text/event-stream, got %q", ct)
		}

		fs := frames(body)
		if len(fs) == 0 {
			t.Fatal("expected events")
		}
		if !strings.HasPrefix(fs[0], `data: {"status":"initializing","percent":5}`) {
			t.Errorf("expected initializing first, got %q", fs[0])
		}
		terminal := terminalFrames(fs)
		if len(terminal) != 1 || terminal[0] != fs[len(fs)-1] {
			t.Fatalf("expected exactly one terminal frame at the end, got %v", terminal)
		}
		if !strings.HasPrefix(terminal[0], "event: complete\n") || !strings.Contains(terminal[0], "Complete! 2 synced, 1 failed") {
			t.Errorf("unexpected terminal frame %q", terminal[0])
		}
		if !strings.Contains(body, `"message":"Not found: B","type":"warning"`) {
			t.Error("expected a not-found track event")
		}

		dst := provider.dst.(*tu.FakeCatalog)
		if created := dst.Created(); len(created) != 1 || created[0].Name != "Mix" {
			t.Errorf("expected one playlist named Mix, got %v", created)
		}
	})

	t.Run("history and job lookup", func(t *testing.T) {
		app := newTestApp(t, syncCatalogs())
		app.get(t, "/sync/start?playlist_id=src-playlist")

		resp, body := app.get(t, "/sync/history")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", resp.StatusCode)
		}
		var jobs []JobResponse
		if err := json.Unmarshal([]byte(body), &jobs); err != nil {
			t.Fatalf("invalid history JSON: %v", err)
		}
		if len(jobs) != 1 {
			t.Fatalf("expected 1 job, got %d", len(jobs))
		}
		job := jobs[0]
		if job.Status != "completed" || job.TracksTotal != 3 || job.TracksSynced != 2 || job.TracksFailed != 1 {
			t.Errorf("unexpected job %+v", job)
		}
		if job.PlaylistName != "Fake Playlist" || job.DestinationID == "" {
			t.Errorf("expected playlist name and destination, got %+v", job)
		}

		resp, body = app.get(t, "/sync/jobs/"+job.ID)
		if resp.StatusCode != http.StatusOK || !strings.Contains(body, job.ID) {
			t.Errorf("expected job lookup to succeed, got %d %s", resp.StatusCode, body)
		}

		if resp, _ := app.get(t, "/sync/jobs/missing"); resp.StatusCode != http.StatusNotFound {
			t.Errorf("expected 404, got %d", resp.StatusCode)
		}

		_, body = app.get(t, "/sync/history?user=someone-else")
		if strings.TrimSpace(body) != "[]" {
			t.Errorf("expected empty history for other user, got %s", body)
		}
	})

	t.Run("fetch failure ends with error event", func(t *testing.T) {
		provider := syncCatalogs()
		provider.src.(*tu.FakeCatalog).PlaylistErr = services.NewUpstreamError("spotify", http.StatusNotFound, "missing")
		app := newTestApp(t, provider)

		_, body := app.get(t, "/sync/start?playlist_id=nope")
		terminal := terminalFrames(frames(body))
		if len(terminal) != 1 || !strings.HasPrefix(terminal[0], "event: error\n") {
			t.Fatalf("expected one error frame, got %v", terminal)
		}

		jobs, err := app.repo.History(context.Background(), "user-1")
		if err != nil {
			t.Fatalf("failed to load history: %v", err)
		}
		if len(jobs) != 1 || jobs[0].Status != models.StatusFailed || jobs[0].ErrorMessage == "" {
			t.Errorf("expected a failed job with message, got %+v", jobs)
		}
	})

	t.Run("unavailable catalogs", func(t *testing.T) {
		app := newTestApp(t, &fakeProvider{err: errors.New("missing credentials: spotify access token")})

		_, body := app.get(t, "/sync/start?playlist_id=src-playlist")
		want := "event: error\ndata: {\"message\":\"missing credentials: spotify access token\",\"type\":\"danger\"}\n\n"
		if body != want {
			t.Errorf("expected %q, got %q", want, body)
		}
	})

	t.Run("invalid direction", func(t *testing.T) {
		app := newTestApp(t, syncCatalogs())

		resp, _ := app.get(t, "/sync/start?direction=spotify_to_spotify")
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("missing playlist id", func(t *testing.T) {
		app := newTestApp(t, syncCatalogs())

		_, body := app.get(t, "/sync/start")
		fs := frames(body)
		if len(fs) != 1 || !strings.HasPrefix(fs[0], "event: error\n") {
			t.Errorf("expected a single error frame, got %v", fs)
		}
	})

	t.Run("liked kind", func(t *testing.T) {
		provider := syncCatalogs()
		provider.src, provider.dst = provider.dst, provider.src
		provider.src.(*tu.FakeCatalog).Entries = tu.Entries("A")
		provider.dst.(*tu.FakeCatalog).Found("A Artist 1", "sp-1", "A")
		app := newTestApp(t, provider)

		_, body := app.get(t, "/sync/start?direction=ytmusic:spotify&kind=liked")
		if !strings.Contains(body, "event: complete") {
			t.Fatalf("expected completion, got %s", body)
		}
		if created := provider.dst.(*tu.FakeCatalog).Created(); len(created) != 1 || created[0].Name != "Liked Songs" {
			t.Errorf("expected Liked Songs playlist, got %v", created)
		}
	})
}

func TestAppRouter(t *testing.T) {
	t.Run("health", func(t *testing.T) {
		app := newTestApp(t, syncCatalogs())

		resp, body := app.get(t, "/health")
		if resp.StatusCode != http.StatusOK || !strings.Contains(body, `"status":"ok"`) {
			t.Errorf("unexpected health response %d %s", resp.StatusCode, body)
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		app := newTestApp(t, syncCatalogs())

		resp, err := http.Post(app.server.URL+"/health", "application/json", nil)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", resp.StatusCode)
		}
	})

	t.Run("metrics", func(t *testing.T) {
		app := newTestApp(t, syncCatalogs())
		app.get(t, "/sync/start?playlist_id=src-playlist")

		_, body := app.get(t, "/metrics")
		for _, want := range []string{
			`playsync_jobs_total{direction="spotify_to_ytmusic",status="completed"} 1`,
			`playsync_tracks_total{direction="spotify_to_ytmusic",result="synced"} 2`,
			`playsync_tracks_total{direction="spotify_to_ytmusic",result="not_found"} 1`,
			`playsync_job_duration_seconds_count{direction="spotify_to_ytmusic"} 1`,
			"playsync_active_jobs 0",
		} {
			if !strings.Contains(body, want) {
				t.Errorf("expected metrics to contain %q", want)
			}
		}
	})
}
