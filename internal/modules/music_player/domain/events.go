package domain

// TrackEndReason represents why a track ended.
type TrackEndReason string

const (
	// TrackEndFinished means the track finished normally.
	TrackEndFinished TrackEndReason = "finished"
	// TrackEndLoadFailed means the track failed to load.
	TrackEndLoadFailed TrackEndReason = "load_failed"
	// TrackEndStopped means the track was stopped by the user.
	TrackEndStopped TrackEndReason = "stopped"
	// TrackEndReplaced means the track was replaced by another.
	TrackEndReplaced TrackEndReason = "replaced"
	// TrackEndCleanup means the track was cleaned up.
	TrackEndCleanup TrackEndReason = "cleanup"
)

// MayStartNext returns true if this end reason permits automatic
// advancement to the next track. Load failures also report true here; the
// player intercepts them first and removes the broken entry instead of
// advancing.
func (r TrackEndReason) MayStartNext() bool {
	return r == TrackEndFinished || r == TrackEndLoadFailed
}

// Event is the tagged-variant type delivered to player subscribers.
// Subscribers switch on the concrete type and ignore variants they don't
// care about.
type Event interface {
	isPlayerEvent()
}

// TrackLoadedEvent is emitted when a query resolved to a single track,
// before the track is appended to the queue.
type TrackLoadedEvent struct {
	Track *Track
}

// PlaylistLoadedEvent is emitted when a query resolved to a playlist,
// before its tracks are appended to the queue.
type PlaylistLoadedEvent struct {
	Name   string
	Tracks []*Track
}

// NoMatchEvent is emitted when a query resolved to nothing.
type NoMatchEvent struct {
	Query string
}

// LoadFailedEvent is emitted when resolution of a query failed. The pipeline
// continues with the remaining queries.
type LoadFailedEvent struct {
	Query string
	Err   error
}

// TrackQueuedEvent is emitted after a single track was actually added to the
// queue.
type TrackQueuedEvent struct {
	Track *Track
}

// PlaylistQueuedEvent is emitted once per playlist batch when at least one
// of its tracks was newly added.
type PlaylistQueuedEvent struct {
	Name   string
	Tracks []*Track
	Added  int
}

// TrackPlayingEvent is emitted when the transport reports a track started.
type TrackPlayingEvent struct {
	Track *Track
}

// TrackEndedEvent is emitted when the transport reports a track ended.
type TrackEndedEvent struct {
	Track  *Track
	Reason TrackEndReason
}

// TrackSkippedEvent is emitted when the current track is skipped.
type TrackSkippedEvent struct {
	Track *Track
}

// ModeChangedEvent is emitted synchronously before a mode change is applied,
// so subscribers observe Old as the still-current mode.
type ModeChangedEvent struct {
	Old PlayerMode
	New PlayerMode
}

// QueueFinishedEvent is emitted when the queue played through to the end
// under PlayerModeNothing.
type QueueFinishedEvent struct{}

func (TrackLoadedEvent) isPlayerEvent()    {}
func (PlaylistLoadedEvent) isPlayerEvent() {}
func (NoMatchEvent) isPlayerEvent()        {}
func (LoadFailedEvent) isPlayerEvent()     {}
func (TrackQueuedEvent) isPlayerEvent()    {}
func (PlaylistQueuedEvent) isPlayerEvent() {}
func (TrackPlayingEvent) isPlayerEvent()   {}
func (TrackEndedEvent) isPlayerEvent()     {}
func (TrackSkippedEvent) isPlayerEvent()   {}
func (ModeChangedEvent) isPlayerEvent()    {}
func (QueueFinishedEvent) isPlayerEvent()  {}
