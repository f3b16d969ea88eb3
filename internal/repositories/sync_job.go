package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/playsync/internal/models"
	"github.com/desertthunder/playsync/internal/shared"
)

// HistoryLimit is the number of jobs returned by [SyncJobRepository.History].
const HistoryLimit = 50

const syncJobColumns = `
	id, sequence, user_id, kind, direction, playlist_name, source_id,
	destination_id, status, tracks_total, tracks_synced, tracks_failed,
	error_message, started_at, completed_at, updated_at`

// SyncJobRepository persists [models.SyncJob] records in SQLite.
//
// CreateJob and UpdateJob are upserts keyed by job ID so the engine can call them repeatedly.
type SyncJobRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSyncJobRepository creates a new SyncJobRepository with the given database connection
func NewSyncJobRepository(db *sql.DB) *SyncJobRepository {
	return &SyncJobRepository{db: db, now: time.Now}
}

// ListCriteria filters [SyncJobRepository.List]. Zero values match everything.
type ListCriteria struct {
	UserID string
	Status models.SyncStatus
	Limit  int
}

// CreateJob inserts a new job with the next sequence number. If the ID already exists the row is updated instead.
func (r *SyncJobRepository) CreateJob(ctx context.Context, job *models.SyncJob) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	exists, err := r.exists(ctx, job.ID)
	if err != nil {
		return err
	}
	if exists {
		return r.UpdateJob(ctx, job)
	}

	sequence, err := NextSequence(ctx, r.db, "sync_jobs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	query := `
		INSERT INTO sync_jobs (
			id, sequence, user_id, kind, direction, playlist_name, source_id,
			destination_id, status, tracks_total, tracks_synced, tracks_failed,
			error_message, started_at, completed_at, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := r.now()
	_, err = r.db.ExecContext(ctx, query,
		job.ID,
		sequence,
		job.UserID,
		string(job.Kind),
		string(job.Direction),
		nullable(job.PlaylistName),
		job.SourceID,
		nullable(job.DestinationID),
		string(job.Status),
		job.TracksTotal,
		job.TracksSynced,
		job.TracksFailed,
		nullable(job.ErrorMessage),
		job.StartedAt,
		nullableTime(job.CompletedAt),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync job: %w", err)
	}

	return nil
}

// UpdateJob overwrites the mutable fields of an existing job.
func (r *SyncJobRepository) UpdateJob(ctx context.Context, job *models.SyncJob) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	query := `
		UPDATE sync_jobs
		SET playlist_name = ?, destination_id = ?, status = ?, tracks_total = ?,
			tracks_synced = ?, tracks_failed = ?, error_message = ?,
			completed_at = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		nullable(job.PlaylistName),
		nullable(job.DestinationID),
		string(job.Status),
		job.TracksTotal,
		job.TracksSynced,
		job.TracksFailed,
		nullable(job.ErrorMessage),
		nullableTime(job.CompletedAt),
		r.now(),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update sync job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrJobNotFound, job.ID)
	}

	return nil
}

// Get retrieves a job by ID
func (r *SyncJobRepository) Get(ctx context.Context, id string) (*models.SyncJob, error) {
	query := `SELECT ` + syncJobColumns + ` FROM sync_jobs WHERE id = ?`

	job, err := scanSyncJob(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrJobNotFound, id)
	}
	return job, err
}

// List retrieves jobs matching criteria, newest first.
func (r *SyncJobRepository) List(ctx context.Context, criteria ListCriteria) ([]*models.SyncJob, error) {
	query := `SELECT ` + syncJobColumns + ` FROM sync_jobs WHERE 1 = 1`
	args := []any{}

	if criteria.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, criteria.UserID)
	}

	if criteria.Status != "" {
		query += " AND status = ?"
		args = append(args, string(criteria.Status))
	}

	query += " ORDER BY started_at DESC, sequence DESC"

	if criteria.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, criteria.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.SyncJob
	for rows.Next() {
		job, err := scanSyncJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return jobs, nil
}

// History returns the latest jobs for a user.
func (r *SyncJobRepository) History(ctx context.Context, userID string) ([]*models.SyncJob, error) {
	return r.List(ctx, ListCriteria{UserID: userID, Limit: HistoryLimit})
}

func (r *SyncJobRepository) exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM sync_jobs WHERE id = ?", id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to look up sync job: %w", err)
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanSyncJob scans a single row from [sql.Row] or [sql.Rows] into a [models.SyncJob]
func scanSyncJob(s scanner) (*models.SyncJob, error) {
	var (
		job           models.SyncJob
		sequence      int
		kind          string
		direction     string
		status        string
		playlistName  sql.NullString
		destinationID sql.NullString
		errorMessage  sql.NullString
		completedAt   sql.NullTime
		updatedAt     time.Time
	)

	err := s.Scan(
		&job.ID, &sequence, &job.UserID, &kind, &direction, &playlistName, &job.SourceID,
		&destinationID, &status, &job.TracksTotal, &job.TracksSynced, &job.TracksFailed,
		&errorMessage, &job.StartedAt, &completedAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync job: %w", err)
	}

	job.Kind = models.SyncKind(kind)
	job.Direction = models.Direction(direction)
	job.Status = models.SyncStatus(status)
	job.PlaylistName = playlistName.String
	job.DestinationID = destinationID.String
	job.ErrorMessage = errorMessage.String
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}

	return &job, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
