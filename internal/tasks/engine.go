package tasks

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/playsync/internal/models"
	"github.com/desertthunder/playsync/internal/services"
	"github.com/desertthunder/playsync/internal/shared"
)

const (
	percentInit       = 5.0
	percentFetchStart = 10.0
	fetchSpan         = 15.0
	percentFetchDone  = 25.0
	percentCreate     = 30.0
	transferSpan      = 65.0
	percentDone       = 100.0
)

const (
	likedSongsName         = "Liked Songs"
	loadingEvery           = 50
	eventBuffer            = 16
	defaultFinalizeTimeout = 10 * time.Second
)

// Track outcomes reported to an [Observer].
const (
	ResultSynced   = "synced"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// SyncEngine runs one sync job per call.
type SyncEngine interface {
	// Run executes the job described by spec, reading from src and writing to dst.
	// Events are pushed to sink in order; the caller owns and closes sink.
	Run(ctx context.Context, spec JobSpec, src, dst services.Catalog, sink chan<- ProgressEvent) (*models.SyncJob, error)

	// StartSync runs the job in the background and returns its event stream, closed after the terminal event.
	StartSync(ctx context.Context, spec JobSpec, src, dst services.Catalog) <-chan ProgressEvent
}

// JobStore persists sync jobs. Both methods must be safe to call repeatedly for the same job ID.
type JobStore interface {
	CreateJob(ctx context.Context, job *models.SyncJob) error
	UpdateJob(ctx context.Context, job *models.SyncJob) error
}

// Observer receives job and track outcomes, e.g. for metrics.
type Observer interface {
	JobStarted(direction string)
	JobFinished(direction string, status models.SyncStatus, elapsed time.Duration)
	TrackProcessed(direction, result string)
}

type nopObserver struct{}

func (nopObserver) JobStarted(string) {}
func (nopObserver) JobFinished(string, models.SyncStatus, time.Duration) {}
func (nopObserver) TrackProcessed(string, string) {}

// JobSpec describes what to sync.
type JobSpec struct {
	Direction        models.Direction
	Kind             models.SyncKind
	SourcePlaylistID string // required for [models.KindPlaylist]
	DestinationName  string // overrides the source playlist name
	UserID           string
}

// Validate checks the direction, kind and source identifier.
func (s JobSpec) Validate() error {
	if _, err := models.ParseDirection(string(s.Direction)); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	switch s.Kind {
	case models.KindPlaylist:
		if strings.TrimSpace(s.SourcePlaylistID) == "" {
			return fmt.Errorf("%w: source playlist id", shared.ErrMissingArgument)
		}
	case models.KindLiked:
	default:
		return fmt.Errorf("%w: unknown sync kind %q", shared.ErrInvalidInput, s.Kind)
	}
	return nil
}

// EngineOptions tunes a [PlaylistEngine]. Zero values fall back to defaults.
type EngineOptions struct {
	Workers         int // concurrent searches; 1 is fully sequential
	Candidates      int
	CacheSize       int
	Precision       int // decimals kept in emitted percents
	PersistEvery    int // persist counters every N processed tracks; 0 disables
	FinalizeTimeout time.Duration
	Logger          *log.Logger
	Observer        Observer
	Now             func() time.Time
	NewID           func() string
}

// EngineOptionsFromConfig maps the [sync] config section onto engine options.
func EngineOptionsFromConfig(cfg shared.SyncConfig, logger *log.Logger) EngineOptions {
	return EngineOptions{
		Workers:      cfg.Workers,
		Candidates:   cfg.Candidates,
		CacheSize:    cfg.CacheSize,
		Precision:    cfg.Precision,
		PersistEvery: cfg.PersistEvery,
		Logger:       logger,
	}
}

// PlaylistEngine implements [SyncEngine].
//
// The engine is stateless between runs; catalogs are supplied per call and a fresh [Matcher] is built for each job.
type PlaylistEngine struct {
	store           JobStore
	logger          *log.Logger
	observer        Observer
	workers         int
	candidates      int
	cacheSize       int
	precision       int
	persistEvery    int
	finalizeTimeout time.Duration
	now             func() time.Time
	newID           func() string
}

// NewPlaylistEngine creates an engine that records jobs in store.
func NewPlaylistEngine(store JobStore, opts EngineOptions) *PlaylistEngine {
	e := &PlaylistEngine{
		store:           store,
		logger:          opts.Logger,
		observer:        opts.Observer,
		workers:         opts.Workers,
		candidates:      opts.Candidates,
		cacheSize:       opts.CacheSize,
		precision:       opts.Precision,
		persistEvery:    opts.PersistEvery,
		finalizeTimeout: opts.FinalizeTimeout,
		now:             opts.Now,
		newID:           opts.NewID,
	}
	if e.logger == nil {
		e.logger = shared.DiscardLogger()
	}
	if e.observer == nil {
		e.observer = nopObserver{}
	}
	if e.workers <= 0 {
		e.workers = 1
	}
	if e.precision < 0 {
		e.precision = 0
	}
	if e.finalizeTimeout <= 0 {
		e.finalizeTimeout = defaultFinalizeTimeout
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.newID == nil {
		e.newID = shared.GenerateID
	}
	return e
}

// StartSync runs the job on its own goroutine. The returned channel is closed once Run returns.
func (e *PlaylistEngine) StartSync(ctx context.Context, spec JobSpec, src, dst services.Catalog) <-chan ProgressEvent {
	events := make(chan ProgressEvent, eventBuffer)
	go func() {
		defer close(events)
		_, _ = e.Run(ctx, spec, src, dst, events)
	}()
	return events
}

// Run executes one sync job: Init, Fetching, CreatingDestination, Transferring, Finalized.
//
// Exactly one terminal event (complete or error) is emitted. Invalid input and a failed
// CreateJob return a nil job; every other failure returns the failed job and its cause.
func (e *PlaylistEngine) Run(ctx context.Context, spec JobSpec, src, dst services.Catalog, sink chan<- ProgressEvent) (*models.SyncJob, error) {
	if spec.Kind == "" {
		spec.Kind = models.KindPlaylist
	}
	// unparseable directions are reported by checkInput
	if d, err := models.ParseDirection(string(spec.Direction)); err == nil {
		spec.Direction = d
	}

	r := &run{
		engine: e,
		ctx:    ctx,
		spec:   spec,
		src:    src,
		dst:    dst,
		sink:   sink,
		logger: shared.WithLogger(e.logger, "direction", string(spec.Direction)),
	}

	if err := checkInput(spec, src, dst); err != nil {
		r.logger.Error("rejected sync job", "error", err)
		r.emit(errorEvent(err.Error()))
		return nil, err
	}

	job := models.NewSyncJob(e.newID(), spec.UserID, spec.Kind, spec.Direction, spec.SourcePlaylistID, e.now())
	job.PlaylistName = strings.TrimSpace(spec.DestinationName)
	r.job = job
	r.logger = shared.WithLogger(r.logger, "job_id", job.ID)

	if err := e.store.CreateJob(ctx, job); err != nil {
		err = fmt.Errorf("failed to create sync job: %w", err)
		r.logger.Error("could not record sync job", "error", err)
		r.emit(errorEvent(err.Error()))
		return nil, err
	}

	e.observer.JobStarted(string(spec.Direction))
	r.logger.Info("sync started", "kind", spec.Kind, "source", spec.SourcePlaylistID)
	r.emit(initializingEvent())

	return job, r.finalize(r.execute())
}

func checkInput(spec JobSpec, src, dst services.Catalog) error {
	if src == nil || dst == nil {
		return fmt.Errorf("%w: source and destination catalogs are required", shared.ErrServiceUnavailable)
	}
	if err := spec.Validate(); err != nil {
		return err
	}
	if src.Service() != spec.Direction.Source() || dst.Service() != spec.Direction.Destination() {
		return fmt.Errorf("%w: catalogs %s -> %s do not match direction %s",
			shared.ErrInvalidInput, src.Service(), dst.Service(), spec.Direction)
	}
	return nil
}

// run holds the mutable state of a single job. Only the goroutine executing Run touches it.
type run struct {
	engine *PlaylistEngine
	ctx    context.Context
	spec   JobSpec
	src    services.Catalog
	dst    services.Catalog
	sink   chan<- ProgressEvent
	logger *log.Logger
	job    *models.SyncJob

	sourceName string
	percent    float64
	pending    []string
}

// emit delivers ev in order, clamping percents so they never decrease.
//
// Once ctx is done non-terminal events are dropped and the terminal event is only
// delivered if the sink has room.
func (r *run) emit(ev ProgressEvent) {
	if ev.Kind == EventStatus || ev.Kind == EventComplete {
		pct := roundPercent(ev.Percent, r.engine.precision)
		if pct < r.percent {
			pct = r.percent
		}
		r.percent = pct
		ev.Percent = pct
	}

	if r.sink == nil {
		return
	}

	if r.ctx.Err() != nil {
		if ev.Terminal() {
			select {
			case r.sink <- ev:
			default:
			}
		}
		return
	}

	select {
	case r.sink <- ev:
	case <-r.ctx.Done():
	}
}

// execute runs phases 2 to 4. A panic anywhere on this goroutine becomes the job's failure.
func (r *run) execute() (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
			r.logger.Error("sync panicked", "panic", rec, "stack", string(debug.Stack()))
		}
	}()

	entries, err := r.fetch()
	if err != nil {
		return err
	}
	if err := r.createDestination(); err != nil {
		return err
	}
	return r.transfer(entries)
}

func (r *run) fetch() ([]models.PlaylistEntry, error) {
	r.emit(fetchingEvent(r.src.Name()))

	var it *services.TrackIterator
	switch r.spec.Kind {
	case models.KindLiked:
		r.sourceName = likedSongsName
		it = r.src.ListLikedTracks(r.ctx)
	default:
		pl, err := r.src.GetPlaylist(r.ctx, r.spec.SourcePlaylistID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch %s playlist: %w", r.src.Name(), err)
		}
		r.sourceName = pl.Name
		it = r.src.ListPlaylistItems(r.ctx, r.spec.SourcePlaylistID)
	}

	if r.job.PlaylistName == "" {
		r.job.PlaylistName = r.sourceName
	}

	var entries []models.PlaylistEntry
	for it.Next(r.ctx) {
		entries = append(entries, it.Entry())
		if len(entries)%loadingEvery == 0 {
			total, known := it.Total()
			r.emit(loadingEvent(len(entries), total, known))
		}
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("failed to fetch %s tracks: %w", r.src.Name(), err)
	}

	total, known := it.Total()
	r.emit(loadingEvent(len(entries), total, known))
	r.emit(foundTracksEvent(len(entries)))
	r.logger.Info("fetched source tracks", "playlist", r.sourceName, "entries", len(entries))

	r.job.SetTracksTotal(len(entries))
	if err := r.engine.store.UpdateJob(r.ctx, r.job); err != nil {
		return nil, fmt.Errorf("failed to save sync job: %w", err)
	}
	return entries, nil
}

func (r *run) createDestination() error {
	r.emit(creatingEvent(r.dst.Name()))

	description := fmt.Sprintf("Synced from %s", r.src.Name())
	pl, err := r.dst.CreatePlaylist(r.ctx, r.job.PlaylistName, description)
	if err != nil {
		return fmt.Errorf("failed to create %s playlist: %w", r.dst.Name(), err)
	}

	r.job.DestinationID = pl.ID
	if err := r.engine.store.UpdateJob(r.ctx, r.job); err != nil {
		return fmt.Errorf("failed to save sync job: %w", err)
	}
	r.logger.Info("created destination playlist", "name", r.job.PlaylistName, "playlist_id", pl.ID)
	return nil
}

// finalize moves the job to its terminal state, persists it and emits the terminal event.
// Persistence uses a context detached from cancellation so a dropped consumer cannot leave the job running.
func (r *run) finalize(runErr error) error {
	e := r.engine
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.ctx), e.finalizeTimeout)
	defer cancel()

	now := e.now()
	elapsed := now.Sub(r.job.StartedAt)
	direction := string(r.spec.Direction)

	if runErr == nil {
		if err := r.job.Complete(now); err != nil {
			runErr = err
		}
	}

	if runErr == nil {
		if err := e.store.UpdateJob(ctx, r.job); err != nil {
			r.logger.Error("failed to save completed job", "error", err)
		}
		r.logger.Info("sync completed", "synced", r.job.TracksSynced, "failed", r.job.TracksFailed, "elapsed", elapsed)
		e.observer.JobFinished(direction, r.job.Status, elapsed)
		r.emit(completeEvent(r.job.Summary()))
		return nil
	}

	if err := r.job.Fail(runErr.Error(), now); err != nil {
		r.logger.Warn("job already finalized", "error", err)
	}
	if err := e.store.UpdateJob(ctx, r.job); err != nil {
		r.logger.Error("failed to save failed job", "error", err)
	}
	r.logger.Error("sync failed", "error", runErr, "synced", r.job.TracksSynced, "failed", r.job.TracksFailed)
	e.observer.JobFinished(direction, r.job.Status, elapsed)
	r.emit(errorEvent(runErr.Error()))
	return runErr
}
