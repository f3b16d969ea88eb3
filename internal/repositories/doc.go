// Package repositories implements SQLite persistence for sync jobs.
//
// [SyncJobRepository] satisfies the engine's job store: CreateJob and UpdateJob may be called
// repeatedly for the same job ID and always leave one row per job. History queries return
// jobs newest first, capped at [HistoryLimit] per user.
//
// Sequence numbers are assigned by [NextSequence], which atomically increments a per-table
// counter in a dedicated sequence table.
package repositories
