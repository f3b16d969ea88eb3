// package models defines the data model for the playlist sync engine
package models

import (
	"fmt"
	"strings"
)

// ServiceTag identifies a catalog service.
type ServiceTag string

const (
	Spotify      ServiceTag = "spotify"
	YouTubeMusic ServiceTag = "ytmusic"
)

// ParseServiceTag accepts the short names used on the command line and in query strings.
func ParseServiceTag(s string) (ServiceTag, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "spotify":
		return Spotify, nil
	case "ytmusic", "youtube", "youtube_music", "yt":
		return YouTubeMusic, nil
	default:
		return "", fmt.Errorf("unknown service %q", s)
	}
}

// Direction is an ordered source→destination service pair, e.g. "spotify_to_ytmusic".
type Direction string

const (
	SpotifyToYouTube Direction = "spotify_to_ytmusic"
	YouTubeToSpotify Direction = "ytmusic_to_spotify"
)

// NewDirection builds a [Direction] from its two endpoints.
func NewDirection(src, dst ServiceTag) Direction {
	return Direction(string(src) + "_to_" + string(dst))
}

// ParseDirection parses "spotify_to_ytmusic" and the shorthand "spotify:ytmusic".
func ParseDirection(s string) (Direction, error) {
	sep := "_to_"
	if strings.Contains(s, ":") {
		sep = ":"
	}
	parts := strings.SplitN(s, sep, 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid direction %q", s)
	}
	src, err := ParseServiceTag(parts[0])
	if err != nil {
		return "", err
	}
	dst, err := ParseServiceTag(parts[1])
	if err != nil {
		return "", err
	}
	if src == dst {
		return "", fmt.Errorf("invalid direction %q: source and destination are the same service", s)
	}
	return NewDirection(src, dst), nil
}

// Source returns the service tracks are read from.
func (d Direction) Source() ServiceTag {
	src, _, _ := strings.Cut(string(d), "_to_")
	return ServiceTag(src)
}

// Destination returns the service tracks are written to.
func (d Direction) Destination() ServiceTag {
	_, dst, _ := strings.Cut(string(d), "_to_")
	return ServiceTag(dst)
}

// Track is a single song as reported by a catalog service.
type Track struct {
	ID     string // native identifier on the catalog the track was read from
	Title  string
	Artist string // primary artist, may be empty
	Album  string
	ISRC   string
}

// PlaylistEntry is one slot of a source listing.
//
// Track is nil when the slot carries no track payload (removed tracks, podcast episodes, null items).
type PlaylistEntry struct {
	Track *Track
}

// Empty reports whether the entry has no underlying track.
func (e PlaylistEntry) Empty() bool {
	return e.Track == nil
}

// PlaylistRole marks which side of a sync a playlist is on.
type PlaylistRole string

const (
	RoleSource      PlaylistRole = "source"
	RoleDestination PlaylistRole = "destination"
)

// CatalogPlaylist is playlist metadata from a catalog service.
type CatalogPlaylist struct {
	ID          string
	Name        string
	Description string
	TrackCount  int
	Service     ServiceTag
	Role        PlaylistRole
}
