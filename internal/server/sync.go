package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/playsync/internal/models"
	"github.com/desertthunder/playsync/internal/services"
	"github.com/desertthunder/playsync/internal/shared"
	"github.com/desertthunder/playsync/internal/tasks"
)

// CatalogProvider builds the catalogs for one job.
type CatalogProvider interface {
	Pair(direction models.Direction) (src, dst services.Catalog, err error)
}

// JobReader is the read side of the sync job repository.
type JobReader interface {
	Get(ctx context.Context, id string) (*models.SyncJob, error)
	History(ctx context.Context, userID string) ([]*models.SyncJob, error)
}

// JobResponse is the JSON view of a [models.SyncJob].
type JobResponse struct {
	ID            string     `json:"id"`
	Kind          string     `json:"kind"`
	Direction     string     `json:"direction"`
	PlaylistName  string     `json:"playlist_name,omitempty"`
	SourceID      string     `json:"source_id,omitempty"`
	DestinationID string     `json:"destination_id,omitempty"`
	Status        string     `json:"status"`
	TracksTotal   int        `json:"tracks_total"`
	TracksSynced  int        `json:"tracks_synced"`
	TracksFailed  int        `json:"tracks_failed"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// NewJobResponse converts a job for JSON output.
func NewJobResponse(job *models.SyncJob) JobResponse {
	return JobResponse{
		ID:            job.ID,
		Kind:          string(job.Kind),
		Direction:     string(job.Direction),
		PlaylistName:  job.PlaylistName,
		SourceID:      job.SourceID,
		DestinationID: job.DestinationID,
		Status:        string(job.Status),
		TracksTotal:   job.TracksTotal,
		TracksSynced:  job.TracksSynced,
		TracksFailed:  job.TracksFailed,
		ErrorMessage:  job.ErrorMessage,
		StartedAt:     job.StartedAt,
		CompletedAt:   job.CompletedAt,
	}
}

// SyncHandler serves the /sync/ routes: the progress stream and job history.
//
// Requests name their user with the "user" query parameter; without it the handler's default user is used.
type SyncHandler struct {
	engine      tasks.SyncEngine
	catalogs    CatalogProvider
	jobs        JobReader
	logger      *log.Logger
	defaultUser string
	mux         *http.ServeMux
}

// NewSyncHandler creates a SyncHandler.
func NewSyncHandler(engine tasks.SyncEngine, catalogs CatalogProvider, jobs JobReader, logger *log.Logger, defaultUser string) *SyncHandler {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	h := &SyncHandler{
		engine:      engine,
		catalogs:    catalogs,
		jobs:        jobs,
		logger:      logger,
		defaultUser: defaultUser,
		mux:         http.NewServeMux(),
	}
	h.mux.HandleFunc("GET /sync/start", h.start)
	h.mux.HandleFunc("GET /sync/history", h.history)
	h.mux.HandleFunc("GET /sync/jobs/{id}", h.job)
	return h
}

// Routes returns the HTTP routes this handler serves.
func (h *SyncHandler) Routes() []string {
	return []string{"/sync/"}
}

func (h *SyncHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// start runs one job and streams its progress until the terminal event.
func (h *SyncHandler) start(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	direction := models.SpotifyToYouTube
	if raw := q.Get("direction"); raw != "" {
		parsed, err := models.ParseDirection(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		direction = parsed
	}

	spec := tasks.JobSpec{
		Direction:        direction,
		Kind:             models.SyncKind(strings.ToLower(q.Get("kind"))),
		SourcePlaylistID: q.Get("playlist_id"),
		DestinationName:  q.Get("name"),
		UserID:           h.user(r),
	}

	rc := startStream(w)

	src, dst, err := h.catalogs.Pair(direction)
	if err != nil {
		h.logger.Warn("catalogs unavailable", "direction", direction, "error", err)
		WriteEvent(w, tasks.ProgressEvent{Kind: tasks.EventError, Message: err.Error()})
		rc.Flush()
		return
	}

	broken := false
	for ev := range h.engine.StartSync(r.Context(), spec, src, dst) {
		if broken {
			continue
		}
		if err := WriteEvent(w, ev); err != nil {
			h.logger.Debug("event stream closed", "error", err)
			broken = true
			continue
		}
		rc.Flush()
	}
}

func (h *SyncHandler) history(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobs.History(r.Context(), h.user(r))
	if err != nil {
		h.logger.Error("failed to load sync history", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load sync history")
		return
	}

	out := make([]JobResponse, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, NewJobResponse(job))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *SyncHandler) job(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.Get(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, shared.ErrJobNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		h.logger.Error("failed to load sync job", "id", r.PathValue("id"), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load sync job")
	default:
		writeJSON(w, http.StatusOK, NewJobResponse(job))
	}
}

func (h *SyncHandler) user(r *http.Request) string {
	if u := r.URL.Query().Get("user"); u != "" {
		return u
	}
	return h.defaultUser
}

// Health reports liveness as a small JSON document.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "playsync"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
