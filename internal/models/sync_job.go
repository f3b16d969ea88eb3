package models

import (
	"errors"
	"fmt"
	"time"
)

// SyncKind distinguishes playlist syncs from liked-tracks syncs.
type SyncKind string

const (
	KindPlaylist SyncKind = "playlist"
	KindLiked    SyncKind = "liked"
)

// SyncStatus is the lifecycle state of a [SyncJob].
type SyncStatus string

const (
	StatusRunning   SyncStatus = "running"
	StatusCompleted SyncStatus = "completed"
	StatusFailed    SyncStatus = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s SyncStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ErrInvalidTransition is returned when a job is finalized twice or moved out of a terminal state.
var ErrInvalidTransition = errors.New("invalid sync job status transition")

// SyncJob is one invocation of the sync engine, persisted as a sync record.
type SyncJob struct {
	ID            string
	UserID        string
	Kind          SyncKind
	Direction     Direction
	PlaylistName  string
	SourceID      string
	DestinationID string
	Status        SyncStatus
	TracksTotal   int
	TracksSynced  int
	TracksFailed  int
	ErrorMessage  string
	StartedAt     time.Time
	CompletedAt   *time.Time
}

// NewSyncJob creates a running job with zero counters.
func NewSyncJob(id, userID string, kind SyncKind, direction Direction, sourceID string, startedAt time.Time) *SyncJob {
	return &SyncJob{
		ID:        id,
		UserID:    userID,
		Kind:      kind,
		Direction: direction,
		SourceID:  sourceID,
		Status:    StatusRunning,
		StartedAt: startedAt,
	}
}

// SetTracksTotal records the fetched entry count. The total never decreases.
func (j *SyncJob) SetTracksTotal(n int) {
	if n > j.TracksTotal {
		j.TracksTotal = n
	}
}

// Complete moves a running job to completed.
func (j *SyncJob) Complete(at time.Time) error {
	if j.Status != StatusRunning {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, StatusCompleted)
	}
	j.Status = StatusCompleted
	j.CompletedAt = &at
	return nil
}

// Fail moves a running job to failed and stores msg verbatim.
func (j *SyncJob) Fail(msg string, at time.Time) error {
	if j.Status != StatusRunning {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.Status, StatusFailed)
	}
	j.Status = StatusFailed
	j.ErrorMessage = msg
	j.CompletedAt = &at
	return nil
}

// Validate checks required fields and counter bounds.
func (j *SyncJob) Validate() error {
	if j.ID == "" {
		return fmt.Errorf("sync job id is required")
	}
	if j.Direction.Source() == "" || j.Direction.Destination() == "" {
		return fmt.Errorf("sync job direction %q is invalid", j.Direction)
	}
	switch j.Kind {
	case KindPlaylist, KindLiked:
	default:
		return fmt.Errorf("sync job kind %q is invalid", j.Kind)
	}
	switch j.Status {
	case StatusRunning, StatusCompleted, StatusFailed:
	default:
		return fmt.Errorf("sync job status %q is invalid", j.Status)
	}
	if j.TracksSynced < 0 || j.TracksFailed < 0 {
		return fmt.Errorf("sync job counters must not be negative")
	}
	if j.TracksTotal > 0 && j.TracksSynced+j.TracksFailed > j.TracksTotal {
		return fmt.Errorf("sync job counters exceed total: %d + %d > %d", j.TracksSynced, j.TracksFailed, j.TracksTotal)
	}
	return nil
}

// Summary renders the completion line shown to users.
func (j *SyncJob) Summary() string {
	return fmt.Sprintf("Complete! %d synced, %d failed", j.TracksSynced, j.TracksFailed)
}
