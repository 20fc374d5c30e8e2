package ports

import (
	"time"
)

// LoadResult represents the result of resolving a query.
type LoadResult struct {
	Type         LoadType
	Tracks       []*TrackInfo
	PlaylistName string
}

// LoadType represents the kind of load result.
type LoadType string

const (
	LoadTypeTrack    LoadType = "track"
	LoadTypePlaylist LoadType = "playlist"
	LoadTypeSearch   LoadType = "search"
	LoadTypeEmpty    LoadType = "empty"
	LoadTypeError    LoadType = "error"
)

// TrackInfo contains information about a resolved track before it becomes a
// queue item.
type TrackInfo struct {
	Identifier string
	Encoded    string
	Title      string
	Artist     string
	Duration   time.Duration
	URI        string
	ArtworkURL string
	SourceName string
	IsStream   bool
}
