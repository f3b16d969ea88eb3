// Package services defines the [Catalog] interface for music streaming providers and implements it for Spotify and YouTube Music.
//
// # Catalog Interface
//
// Both providers expose the same five operations the sync engine needs: lazy paginated listing
// ([Catalog.ListPlaylistItems], [Catalog.ListLikedTracks]), playlist creation, track search and
// batched inserts. Listings are pulled through a [TrackIterator], which fetches one page at a time
// and stops at the first failed page.
//
// # Spotify Implementation
//
// [SpotifyCatalog] wraps github.com/zmb3/spotify/v2. The bearer token is supplied per job through
// [SpotifyCredentials] and is never refreshed. Destination playlists are created private for the
// user that owns the token.
//
// # YouTube Music Implementation
//
// [YouTubeCatalog] communicates with the FastAPI proxy server (music/) wrapping ytmusicapi.
// The browser session headers from [YouTubeCredentials] are forwarded on every request,
// and the optional auth_file path is sent via the X-Auth-File header.
//
// # Transport Policy
//
// Every remote call waits on a per-client rate limiter and runs under the configured timeout.
// Reads are retried on transient failures (no response, 429, 5xx) with bounded exponential backoff.
// CreatePlaylist and AddItems are never retried.
//
// # Error Handling
//
// Failed calls surface as [*UpstreamError] carrying the HTTP status and response body. Status 0 means
// no response was received; timeouts additionally wrap [shared.ErrTimeout]. Other sentinels:
//   - [shared.ErrMissingCredentials] : no token or cookie supplied
//   - [shared.ErrBatchTooLarge] : AddItems called with more than BatchSize IDs
package services
