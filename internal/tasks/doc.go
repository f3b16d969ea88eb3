// Package tasks runs playlist sync jobs between music catalog services with live progress reporting.
//
// # Sync Engine
//
// [SyncEngine.Run] executes one job as an explicit state machine:
//
//  1. Init : validate the [JobSpec], persist a running [models.SyncJob]
//  2. Fetching : drain the source listing, set tracks_total
//  3. CreatingDestination : create the destination playlist once, persist its ID
//  4. Transferring : match each track, insert matches in batches
//  5. Finalized : persist completed or failed and emit the terminal event
//
// A failure in Fetching or CreatingDestination fails the job. During Transferring a missing
// match or a search error only counts against tracks_failed, and a failed batch insert is
// reported without changing the counters.
//
// # Matching
//
// [Matcher] searches the destination with "{title} {artist}" and trusts the first candidate.
// Lookups are memoized per job in an LRU keyed by the NFC-normalized, case-folded query.
//
// # Progress Reporting
//
// Events are [ProgressEvent] values pushed to a caller-owned channel. Sends block until the
// consumer reads or the job context is cancelled. After cancellation events are dropped, but
// the job is still finalized and persisted. Percent values never decrease.
//
// # Concurrency
//
// With EngineOptions.Workers above one, searches run on a bounded errgroup while a single
// consumer re-sequences results into source order, so counters, batches and events are
// identical to a sequential run.
package tasks
