package domain

// DefaultQueueCapacity is the maximum queue length used when no explicit
// capacity is configured.
const DefaultQueueCapacity = 1028

// Queue is a bounded, ordered, deduplicated collection of tracks using an
// index-based model. Instead of removing tracks when they finish, a cursor
// advances through the list, enabling repeat functionality.
//
// Invariants: no two tracks share the same TrackID, and the cursor stays
// within [-1, Len()]. A cursor equal to Len() means the queue is exhausted;
// -1 means no current track.
type Queue struct {
	tracks   []*Track
	cursor   int
	capacity int
}

// NewQueue creates an empty Queue bounded at the given capacity.
// A non-positive capacity falls back to DefaultQueueCapacity.
func NewQueue(capacity int) Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return Queue{
		tracks:   make([]*Track, 0),
		capacity: capacity,
	}
}

// IsEmpty returns true if the queue has no tracks.
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

// Len returns the number of tracks in the queue.
func (q *Queue) Len() int {
	return len(q.tracks)
}

// Cursor returns the current track index.
func (q *Queue) Cursor() int {
	return q.cursor
}

// IsExhausted returns true if the cursor has moved past the last track.
func (q *Queue) IsExhausted() bool {
	return q.cursor >= q.Len()
}

func (q *Queue) isValidIndex(index int) bool {
	return 0 <= index && index < q.Len()
}

// Current returns the track at the cursor, or nil if the cursor is out of
// range.
func (q *Queue) Current() *Track {
	if !q.isValidIndex(q.cursor) {
		return nil
	}
	return q.tracks[q.cursor]
}

// At returns the track at the given index without moving the cursor.
// Returns nil if the index is out of bounds.
func (q *Queue) At(index int) *Track {
	if !q.isValidIndex(index) {
		return nil
	}
	return q.tracks[index]
}

// Contains reports whether a track with the given ID is queued.
func (q *Queue) Contains(id TrackID) bool {
	for _, t := range q.tracks {
		if t.ID == id {
			return true
		}
	}
	return false
}

// Append adds a track to the end of the queue. A track whose ID already
// exists anywhere in the queue is silently dropped (idempotent enqueue).
// When the queue is at capacity, the oldest entry is evicted first.
// Returns true if the track was actually added.
func (q *Queue) Append(track *Track) bool {
	if track == nil || q.Contains(track.ID) {
		return false
	}
	if q.Len() >= q.capacity {
		q.removeIndex(0)
	}
	q.tracks = append(q.tracks, track)
	return true
}

// AppendAll applies the Append dedup rule per track and returns how many
// tracks were actually added.
func (q *Queue) AppendAll(tracks []*Track) int {
	added := 0
	for _, t := range tracks {
		if q.Append(t) {
			added++
		}
	}
	return added
}

// RemoveAt removes and returns the track at the given index, or nil if the
// index is out of bounds. When the removed index is at or before the cursor,
// the cursor is decremented so it keeps pointing at the same logical item.
func (q *Queue) RemoveAt(index int) *Track {
	if !q.isValidIndex(index) {
		return nil
	}
	track := q.tracks[index]
	q.removeIndex(index)
	return track
}

func (q *Queue) removeIndex(index int) {
	q.tracks = append(q.tracks[:index], q.tracks[index+1:]...)
	if index <= q.cursor {
		q.cursor--
	}
}

// Seek sets the cursor to the given index and returns the track there.
// Out-of-range indexes leave the cursor unchanged and return nil.
func (q *Queue) Seek(index int) *Track {
	if !q.isValidIndex(index) {
		return nil
	}
	q.cursor = index
	return q.tracks[index]
}

// Advance moves the cursor according to the repeat mode and returns the new
// current track, or nil if the queue ended.
//   - PlayerModeRepeatOne: cursor unchanged, same track again
//   - PlayerModeRepeatQueue: cursor+1 with wrap-around to 0
//   - PlayerModeNothing: cursor+1, nil once past the end
func (q *Queue) Advance(mode PlayerMode) *Track {
	if q.IsEmpty() {
		return nil
	}

	switch mode {
	case PlayerModeRepeatOne:
		// Cursor stays put.

	case PlayerModeRepeatQueue:
		q.cursor++
		if q.cursor >= q.Len() {
			q.cursor = 0
		}

	default: // PlayerModeNothing
		q.cursor++
		if q.cursor >= q.Len() {
			q.cursor = q.Len()
			return nil
		}
	}

	return q.tracks[q.cursor]
}

// Retreat moves the cursor backwards. Repeat modes wrap to the last track;
// PlayerModeNothing stops at index 0 and replays it instead of wrapping.
func (q *Queue) Retreat(mode PlayerMode) *Track {
	if q.IsEmpty() {
		return nil
	}

	switch mode {
	case PlayerModeRepeatOne, PlayerModeRepeatQueue:
		q.cursor--
		if q.cursor < 0 {
			q.cursor = q.Len() - 1
		}

	default: // PlayerModeNothing
		if q.cursor > 0 {
			q.cursor--
		} else {
			// Soft floor: replay the first track.
			q.cursor = 0
		}
	}

	return q.tracks[q.cursor]
}

// Snapshot returns a copy of the track list safe for iteration while the
// queue keeps mutating elsewhere.
func (q *Queue) Snapshot() []*Track {
	result := make([]*Track, q.Len())
	copy(result, q.tracks)
	return result
}

// Clear removes all tracks and resets the cursor.
func (q *Queue) Clear() {
	q.tracks = make([]*Track, 0)
	q.cursor = 0
}
