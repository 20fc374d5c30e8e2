package ports

import (
	"context"

	"github.com/yskcmr/resona/internal/modules/music_player/domain"
)

// AudioPlayer is the transport that streams a track into the active voice
// session. Implementations report track start/end back through callbacks
// registered at construction time.
type AudioPlayer interface {
	// Play starts playback of the given track, replacing whatever is playing.
	Play(ctx context.Context, track *domain.Track) error

	// Stop stops the current playback.
	Stop(ctx context.Context) error

	// SetPaused pauses or resumes the current playback.
	SetPaused(ctx context.Context, paused bool) error

	// Paused reports whether the transport is currently paused.
	Paused() bool
}
