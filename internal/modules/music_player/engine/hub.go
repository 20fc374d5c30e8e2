package engine

import (
	"log/slog"
	"sync"

	"github.com/yskcmr/resona/internal/modules/music_player/domain"
)

// Subscriber receives player events. A single callback replaces a wide
// listener interface; implementations switch on the event's concrete type.
type Subscriber func(event domain.Event)

// Subscription identifies a registered subscriber so it can be removed.
type Subscription uint64

// Hub fans player events out to subscribers. Delivery is synchronous and in
// subscription order: Emit does not return until every subscriber has been
// invoked. Subscribe and Unsubscribe are safe to call from within a delivery
// because Emit iterates over a point-in-time copy of the subscriber list,
// never the live list.
type Hub struct {
	mu     sync.Mutex
	nextID Subscription
	subs   []hubEntry
}

type hubEntry struct {
	id Subscription
	fn Subscriber
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{}
}

// Subscribe registers a subscriber and returns its removal handle.
func (h *Hub) Subscribe(fn Subscriber) Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	h.subs = append(h.subs, hubEntry{id: h.nextID, fn: fn})
	return h.nextID
}

// Unsubscribe removes a previously registered subscriber. Removing an
// unknown handle is a no-op.
func (h *Hub) Unsubscribe(id Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for i, entry := range h.subs {
		if entry.id == id {
			h.subs = append(h.subs[:i], h.subs[i+1:]...)
			return
		}
	}
}

// Emit delivers the event to all current subscribers in subscription order.
// Callers must not hold player state locks: a subscriber may re-enter the
// player.
func (h *Hub) Emit(event domain.Event) {
	h.mu.Lock()
	snapshot := make([]hubEntry, len(h.subs))
	copy(snapshot, h.subs)
	h.mu.Unlock()

	slog.Debug("emitting player event", "type", eventName(event), "subscribers", len(snapshot))

	for _, entry := range snapshot {
		entry.fn(event)
	}
}

func eventName(event domain.Event) string {
	switch event.(type) {
	case domain.TrackLoadedEvent:
		return "TrackLoaded"
	case domain.PlaylistLoadedEvent:
		return "PlaylistLoaded"
	case domain.NoMatchEvent:
		return "NoMatch"
	case domain.LoadFailedEvent:
		return "LoadFailed"
	case domain.TrackQueuedEvent:
		return "TrackQueued"
	case domain.PlaylistQueuedEvent:
		return "PlaylistQueued"
	case domain.TrackPlayingEvent:
		return "TrackPlaying"
	case domain.TrackEndedEvent:
		return "TrackEnded"
	case domain.TrackSkippedEvent:
		return "TrackSkipped"
	case domain.ModeChangedEvent:
		return "ModeChanged"
	case domain.QueueFinishedEvent:
		return "QueueFinished"
	default:
		return "Unknown"
	}
}
