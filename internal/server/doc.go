// Package server exposes the sync engine over HTTP.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [Logging] and [Recover] are the two middlewares installed by [NewAppRouter].
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns internally.
//
// # Sync Routes
//
// [SyncHandler] owns everything under /sync/:
//   - GET /sync/start?direction=&playlist_id=&name=&kind= runs a job and streams its progress
//   - GET /sync/history returns the latest jobs for the user as JSON
//   - GET /sync/jobs/{id} returns a single job
//
// # Event Stream
//
// Progress is written as server-sent events by [WriteEvent]. Status and track events are bare "data:" frames;
// the last frame of every stream is either "event: complete" or "event: error". Closing the connection cancels the
// request context, which the engine treats as a failed job.
//
// # Metrics
//
// [Metrics] implements the engine's Observer and is served on /metrics in the Prometheus text format.
package server
