// Package models defines the domain entities shared by the catalog adapters, the sync engine and the persistence layer.
//
// The package contains two categories of types:
//
// 1. Catalog values: lightweight structs describing data read from a music service
//   - [Track] : Song metadata (title, primary artist, album, native ID)
//   - [PlaylistEntry] : One slot of a source listing, possibly without a track
//   - [CatalogPlaylist] : Playlist metadata tagged with its service and role
//
// 2. Sync state: the persisted record of one engine invocation
//   - [SyncJob] : Status, counters and timestamps for a single sync
//
// [SyncJob] moves only from running to completed or failed. [SyncJob.Complete] and [SyncJob.Fail]
// return [ErrInvalidTransition] for any other move, so a job is finalized exactly once.
package models
