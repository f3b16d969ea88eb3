// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"testing"

	"github.com/desertthunder/playsync/internal/models"
	"github.com/desertthunder/playsync/internal/services"
)

// Entry builds a non-empty playlist entry.
func Entry(id, title, artist string) models.PlaylistEntry {
	return models.PlaylistEntry{Track: &models.Track{ID: id, Title: title, Artist: artist}}
}

// Entries builds one entry per title with generated IDs and artists.
func Entries(titles ...string) []models.PlaylistEntry {
	out := make([]models.PlaylistEntry, len(titles))
	for i, title := range titles {
		out[i] = Entry(fmt.Sprintf("src-%d", i+1), title, fmt.Sprintf("Artist %d", i+1))
	}
	return out
}

// FakeCatalog is a scripted, goroutine-safe test double for [services.Catalog].
//
// Listings are served from Entries in pages of PageSize. Searches answer from Results
// keyed by the exact query; unknown queries return no candidates.
type FakeCatalog struct {
	Tag          models.ServiceTag
	DisplayName  string
	Batch        int
	Playlist     *models.CatalogPlaylist
	PlaylistErr  error
	Entries      []models.PlaylistEntry
	PageSize     int
	TotalUnknown bool
	PageErrs     map[int]error // page index -> error
	Results      map[string][]models.Track
	SearchErrs   map[string]error
	SearchHook   func(ctx context.Context, query string) // runs before every search
	CreateErr    error
	AddErrs      map[int]error // AddItems call index -> error

	mu       sync.Mutex
	searches []string
	created  []models.CatalogPlaylist
	added    [][]string
	pages    int
}

// NewFakeCatalog creates an empty fake for the given service.
func NewFakeCatalog(tag models.ServiceTag) *FakeCatalog {
	name := "Spotify"
	if tag == models.YouTubeMusic {
		name = "YouTube Music"
	}
	return &FakeCatalog{
		Tag:         tag,
		DisplayName: name,
		Results:     map[string][]models.Track{},
		SearchErrs:  map[string]error{},
		PageErrs:    map[int]error{},
		AddErrs:     map[int]error{},
	}
}

// Found scripts a single-candidate result for query.
func (f *FakeCatalog) Found(query, id, title string) *FakeCatalog {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Results[query] = []models.Track{{ID: id, Title: title}}
	return f
}

func (f *FakeCatalog) Name() string               { return f.DisplayName }
func (f *FakeCatalog) Service() models.ServiceTag { return f.Tag }

func (f *FakeCatalog) BatchSize() int {
	if f.Batch <= 0 {
		return services.DefaultBatchSize
	}
	return f.Batch
}

func (f *FakeCatalog) GetPlaylist(ctx context.Context, playlistID string) (*models.CatalogPlaylist, error) {
	if f.PlaylistErr != nil {
		return nil, f.PlaylistErr
	}
	if f.Playlist != nil {
		pl := *f.Playlist
		return &pl, nil
	}
	return &models.CatalogPlaylist{
		ID:         playlistID,
		Name:       "Fake Playlist",
		TrackCount: len(f.Entries),
		Service:    f.Tag,
		Role:       models.RoleSource,
	}, nil
}

func (f *FakeCatalog) ListPlaylistItems(ctx context.Context, playlistID string) *services.TrackIterator {
	return services.NewTrackIterator(f.page)
}

func (f *FakeCatalog) ListLikedTracks(ctx context.Context) *services.TrackIterator {
	return services.NewTrackIterator(f.page)
}

func (f *FakeCatalog) page(ctx context.Context, cursor string) (*services.Page, error) {
	idx := 0
	if cursor != "" {
		var err error
		if idx, err = strconv.Atoi(cursor); err != nil {
			return nil, err
		}
	}

	f.mu.Lock()
	f.pages++
	f.mu.Unlock()

	if err := f.PageErrs[idx]; err != nil {
		return nil, err
	}

	size := f.PageSize
	if size <= 0 {
		size = 100
	}
	start := idx * size
	end := min(start+size, len(f.Entries))
	if start > end {
		start = end
	}

	page := &services.Page{
		Entries:    append([]models.PlaylistEntry(nil), f.Entries[start:end]...),
		Total:      len(f.Entries),
		TotalKnown: !f.TotalUnknown,
	}
	if end < len(f.Entries) {
		page.Next = strconv.Itoa(idx + 1)
	}
	return page, nil
}

func (f *FakeCatalog) CreatePlaylist(ctx context.Context, name, description string) (*models.CatalogPlaylist, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pl := models.CatalogPlaylist{
		ID:          fmt.Sprintf("dest-%d", len(f.created)+1),
		Name:        name,
		Description: description,
		Service:     f.Tag,
		Role:        models.RoleDestination,
	}
	f.created = append(f.created, pl)
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	return &pl, nil
}

func (f *FakeCatalog) SearchTrack(ctx context.Context, query string, limit int) ([]models.Track, error) {
	if f.SearchHook != nil {
		f.SearchHook(ctx, query)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, query)

	if err := f.SearchErrs[query]; err != nil {
		return nil, err
	}
	results := f.Results[query]
	if len(results) > limit {
		results = results[:limit]
	}
	return append([]models.Track(nil), results...), nil
}

func (f *FakeCatalog) AddItems(ctx context.Context, playlistID string, itemIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(itemIDs) > f.BatchSize() {
		return fmt.Errorf("batch of %d exceeds %d", len(itemIDs), f.BatchSize())
	}
	call := len(f.added)
	f.added = append(f.added, append([]string(nil), itemIDs...))
	return f.AddErrs[call]
}

// Searches returns the queries issued so far, in call order.
func (f *FakeCatalog) Searches() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.searches...)
}

// Created returns every CreatePlaylist request, including failed ones.
func (f *FakeCatalog) Created() []models.CatalogPlaylist {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.CatalogPlaylist(nil), f.created...)
}

// Added returns the ID batches passed to AddItems, in call order.
func (f *FakeCatalog) Added() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.added...)
}

// PageFetches returns how many listing pages were requested.
func (f *FakeCatalog) PageFetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pages
}

// MemoryJobStore keeps sync jobs in memory and records every write.
type MemoryJobStore struct {
	CreateErr  error
	UpdateHook func(job models.SyncJob) error // returning an error fails the update

	mu      sync.Mutex
	jobs    map[string]models.SyncJob
	order   []string
	updates []models.SyncJob
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: map[string]models.SyncJob{}}
}

func (s *MemoryJobStore) CreateJob(ctx context.Context, job *models.SyncJob) error {
	if s.CreateErr != nil {
		return s.CreateErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		s.order = append(s.order, job.ID)
	}
	s.jobs[job.ID] = *job
	return nil
}

func (s *MemoryJobStore) UpdateJob(ctx context.Context, job *models.SyncJob) error {
	if s.UpdateHook != nil {
		if err := s.UpdateHook(*job); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return fmt.Errorf("job %s not found", job.ID)
	}
	s.jobs[job.ID] = *job
	s.updates = append(s.updates, *job)
	return nil
}

// Job returns the latest stored copy of the job.
func (s *MemoryJobStore) Job(id string) (models.SyncJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	return job, ok
}

// Jobs returns stored jobs in creation order.
func (s *MemoryJobStore) Jobs() []models.SyncJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.SyncJob, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.jobs[id])
	}
	return out
}

// Updates returns a snapshot of every successful UpdateJob call.
func (s *MemoryJobStore) Updates() []models.SyncJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.SyncJob(nil), s.updates...)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
