package domain

import (
	"strconv"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// TrackID is the stable identifier of a track. Two tracks with the same ID
// are considered the same queue item for deduplication purposes.
type TrackID string

// Track represents one resolved playable unit. It is immutable once created
// and owned exclusively by the queue it was appended to.
type Track struct {
	ID            TrackID
	Encoded       string // Lavalink encoded track data
	Title         string
	Artist        string
	Duration      time.Duration
	URI           string
	ArtworkURL    string
	SourceName    string // e.g. "youtube", "soundcloud"
	IsStream      bool
	RequesterID   snowflake.ID // who asked for this track
	RequesterName string
	EnqueuedAt    time.Time
}

// NewTrack creates a Track with EnqueuedAt set to now.
func NewTrack(
	id TrackID,
	encoded string,
	title string,
	artist string,
	duration time.Duration,
	uri string,
	artworkURL string,
	sourceName string,
	isStream bool,
	requesterID snowflake.ID,
	requesterName string,
) *Track {
	return &Track{
		ID:            id,
		Encoded:       encoded,
		Title:         title,
		Artist:        artist,
		Duration:      duration,
		URI:           uri,
		ArtworkURL:    artworkURL,
		SourceName:    sourceName,
		IsStream:      isStream,
		RequesterID:   requesterID,
		RequesterName: requesterName,
		EnqueuedAt:    time.Now().UTC(),
	}
}

// IsValid returns true if the track has the minimum required fields.
func (t *Track) IsValid() bool {
	return t.ID != "" && t.Title != ""
}

// FormattedDuration returns the duration as mm:ss or hh:mm:ss.
func (t *Track) FormattedDuration() string {
	if t.IsStream {
		return "LIVE"
	}

	totalSeconds := int(t.Duration.Seconds())
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return pad(hours) + ":" + pad(minutes) + ":" + pad(seconds)
	}
	return pad(minutes) + ":" + pad(seconds)
}

func pad(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
