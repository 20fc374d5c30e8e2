package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/yskcmr/resona/internal/modules/music_player/application/ports"
	"github.com/yskcmr/resona/internal/modules/music_player/domain"
)

// DefaultQueueAddWait bounds how long callers wait for a queue-add event
// before degrading to a generic response.
const DefaultQueueAddWait = 2 * time.Second

// QueueAdd describes what a resolution batch just added to the queue, for
// callers reporting "just added" results.
type QueueAdd struct {
	Playlist bool
	Track    *domain.Track // set for single-track adds
	Name     string        // playlist name for playlist adds
	Tracks   []*domain.Track
	Added    int
}

// Player is the control facade of the playback engine. Every external
// surface (commands, control panel) goes through it; queue, cursor, mode and
// paused state are mutated only under its lock, and the lock is never held
// across transport calls or event delivery.
type Player struct {
	mu      sync.Mutex
	session *Session

	hub       *Hub
	transport ports.AudioPlayer
	resolver  *Resolver
	votes     *VoteManager
	settings  ports.Settings
	presence  ports.PresenceProvider
}

// Compile-time check: the Player consumes resolution outcomes.
var _ OutcomeHandler = (*Player)(nil)

// NewPlayer wires the playback engine together. The session starts empty
// and is reset, never discarded, on stop.
func NewPlayer(
	transport ports.AudioPlayer,
	provider ports.TrackResolver,
	settings ports.Settings,
	presence ports.PresenceProvider,
	votes *VoteManager,
	hub *Hub,
	queueCapacity int,
) *Player {
	p := &Player{
		session:   NewSession(queueCapacity),
		hub:       hub,
		transport: transport,
		votes:     votes,
		settings:  settings,
		presence:  presence,
	}
	p.resolver = NewResolver(provider, p)
	return p
}

// AttachVotes sets the vote manager. Must be called before the player serves
// requests when nil was passed at construction; the vote hooks usually need a
// presentation surface that in turn needs the player.
func (p *Player) AttachVotes(votes *VoteManager) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.votes = votes
}

// Close stops the resolution worker and discards pending votes.
func (p *Player) Close() {
	p.resolver.Close()
	if p.votes != nil {
		p.votes.CancelAll()
	}
}

// Subscribe registers an event subscriber.
func (p *Player) Subscribe(fn Subscriber) Subscription {
	return p.hub.Subscribe(fn)
}

// Unsubscribe removes an event subscriber.
func (p *Player) Unsubscribe(id Subscription) {
	p.hub.Unsubscribe(id)
}

// Enqueue submits queries for sequential resolution on behalf of the
// requester. The first enqueue on an unowned session makes the requester
// the session owner and applies their saved repeat mode, if any.
func (p *Player) Enqueue(requesterID snowflake.ID, requesterName string, queries []string) {
	p.mu.Lock()
	var savedMode *domain.PlayerMode
	var oldMode domain.PlayerMode
	if p.session.OwnerID() == nil {
		p.session.SetOwner(requesterID)
		if mode, ok := p.settings.SavedPlayerMode(requesterID); ok && mode != p.session.Mode() {
			oldMode = p.session.Mode()
			savedMode = &mode
		}
		slog.Info("session owner assigned", "owner", requesterID)
	}
	p.mu.Unlock()

	if savedMode != nil {
		p.hub.Emit(domain.ModeChangedEvent{Old: oldMode, New: *savedMode})
		p.mu.Lock()
		p.session.SetMode(*savedMode)
		p.mu.Unlock()
	}

	p.resolver.Submit(requesterID, requesterName, queries)
}

// --- resolution outcomes (called from the resolver worker) ---

// HandleTrackResolved appends a resolved track and starts playback if the
// session was idle.
func (p *Player) HandleTrackResolved(track *domain.Track) {
	p.hub.Emit(domain.TrackLoadedEvent{Track: track})

	p.mu.Lock()
	added := p.session.Queue.Append(track)
	wasPlaying := p.session.IsPlaying()
	p.mu.Unlock()

	if added {
		p.hub.Emit(domain.TrackQueuedEvent{Track: track})
	}
	if !wasPlaying {
		p.playCursor(context.Background())
	}
}

// HandlePlaylistResolved appends a resolved playlist batch. The queued event
// fires once for the whole batch, only when at least one track was new.
func (p *Player) HandlePlaylistResolved(name string, tracks []*domain.Track) {
	p.hub.Emit(domain.PlaylistLoadedEvent{Name: name, Tracks: tracks})

	p.mu.Lock()
	added := p.session.Queue.AppendAll(tracks)
	wasPlaying := p.session.IsPlaying()
	p.mu.Unlock()

	if added > 0 {
		p.hub.Emit(domain.PlaylistQueuedEvent{Name: name, Tracks: tracks, Added: added})
	}
	if !wasPlaying {
		p.playCursor(context.Background())
	}
}

// HandleNoMatch reports a query that resolved to nothing.
func (p *Player) HandleNoMatch(query string) {
	p.hub.Emit(domain.NoMatchEvent{Query: query})
}

// HandleResolveFailed reports a failed lookup. The pipeline already moved on
// to the next query.
func (p *Player) HandleResolveFailed(query string, err error) {
	p.hub.Emit(domain.LoadFailedEvent{Query: query, Err: err})
}

// --- playback state machine ---

// playCursor clones the track at the cursor and hands it to the transport.
// With an empty or exhausted queue it settles into idle and emits nothing.
func (p *Player) playCursor(ctx context.Context) {
	p.mu.Lock()
	track := p.session.Queue.Current()
	if track == nil {
		p.session.SetPlaying(false)
		p.mu.Unlock()
		return
	}
	clone := *track
	p.session.SetPlaying(true)
	p.mu.Unlock()

	if err := p.transport.Play(ctx, &clone); err != nil {
		slog.Error("failed to hand track to transport", "track", clone.ID, "error", err)
		p.mu.Lock()
		p.session.SetPlaying(false)
		p.mu.Unlock()
	}
}

// advance moves the cursor per the repeat mode (forced moves ignore the
// mode) and plays the new current track. Reaching the end under
// PlayerModeNothing stops the transport and emits queue-finished once.
func (p *Player) advance(ctx context.Context, force bool) {
	p.mu.Lock()
	mode := p.session.Mode()
	if force {
		mode = domain.PlayerModeNothing
	}
	next := p.session.Queue.Advance(mode)
	if next == nil {
		wasPlaying := p.session.IsPlaying()
		p.session.SetPlaying(false)
		p.mu.Unlock()

		if wasPlaying {
			if err := p.transport.Stop(ctx); err != nil {
				slog.Warn("failed to stop transport at end of queue", "error", err)
			}
		}
		p.hub.Emit(domain.QueueFinishedEvent{})
		return
	}
	p.mu.Unlock()

	p.playCursor(ctx)
}

func (p *Player) sessionEmpty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session.Queue.IsEmpty()
}

// Play starts or continues playback from the cursor. With the cursor parked
// before the first track or past the end after the queue finished, playback
// restarts from the top.
func (p *Player) Play(ctx context.Context) error {
	p.mu.Lock()
	if p.session.Queue.IsEmpty() {
		p.mu.Unlock()
		return ErrQueueEmpty
	}
	if p.session.Queue.Current() == nil {
		p.session.Queue.Seek(0)
	}
	p.mu.Unlock()

	p.playCursor(ctx)
	return nil
}

// Next advances to the next track; force ignores the repeat mode.
func (p *Player) Next(ctx context.Context, force bool) error {
	if p.sessionEmpty() {
		return ErrQueueEmpty
	}
	p.advance(ctx, force)
	return nil
}

// Skip removes the current track from the queue and moves on regardless of
// repeat mode.
func (p *Player) Skip(ctx context.Context) error {
	p.mu.Lock()
	current := p.session.Queue.Current()
	if current == nil {
		p.mu.Unlock()
		return ErrNoTrack
	}
	p.session.Queue.RemoveAt(p.session.Queue.Cursor())
	p.mu.Unlock()

	p.hub.Emit(domain.TrackSkippedEvent{Track: current})
	p.advance(ctx, true)
	return nil
}

// Previous moves to the previous track. Under PlayerModeNothing at the
// first track it replays that track instead of wrapping.
func (p *Player) Previous(ctx context.Context) error {
	p.mu.Lock()
	if p.session.Queue.IsEmpty() {
		p.mu.Unlock()
		return ErrQueueEmpty
	}
	p.session.Queue.Retreat(p.session.Mode())
	p.mu.Unlock()

	p.playCursor(ctx)
	return nil
}

// JumpTo moves the cursor to the given index and plays it. Out-of-range
// indexes are rejected with no state change.
func (p *Player) JumpTo(ctx context.Context, index int) error {
	p.mu.Lock()
	if p.session.Queue.Seek(index) == nil {
		p.mu.Unlock()
		return ErrInvalidIndex
	}
	p.mu.Unlock()

	p.playCursor(ctx)
	return nil
}

// SetMode emits the mode transition with the old value still in effect,
// then commits the change.
func (p *Player) SetMode(mode domain.PlayerMode) {
	p.mu.Lock()
	old := p.session.Mode()
	p.mu.Unlock()

	if old == mode {
		return
	}

	p.hub.Emit(domain.ModeChangedEvent{Old: old, New: mode})

	p.mu.Lock()
	p.session.SetMode(mode)
	p.mu.Unlock()
}

// Mode returns the current repeat mode.
func (p *Player) Mode() domain.PlayerMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session.Mode()
}

// SetPaused toggles pause on the transport. No cursor effect.
func (p *Player) SetPaused(ctx context.Context, paused bool) error {
	if err := p.transport.SetPaused(ctx, paused); err != nil {
		return err
	}

	p.mu.Lock()
	p.session.SetPaused(paused)
	p.mu.Unlock()
	return nil
}

// IsPaused reports the paused flag.
func (p *Player) IsPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session.IsPaused()
}

// IsPlaying reports whether playback is active.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session.IsPlaying()
}

// Current returns the track at the cursor, or nil.
func (p *Player) Current() *domain.Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session.Queue.Current()
}

// Cursor returns the queue cursor.
func (p *Player) Cursor() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session.Queue.Cursor()
}

// Snapshot returns a copy of the queue safe for UI iteration.
func (p *Player) Snapshot() []*domain.Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session.Queue.Snapshot()
}

// RemoveAt removes the queue entry at the given index. Removing the entry
// of the currently playing track does not itself stop playback.
func (p *Player) RemoveAt(index int) (*domain.Track, error) {
	p.mu.Lock()
	track := p.session.Queue.RemoveAt(index)
	p.mu.Unlock()

	if track == nil {
		return nil, ErrInvalidIndex
	}
	return track, nil
}

// Stop clears the queue, resets the session (including the owner) and stops
// the transport.
func (p *Player) Stop(ctx context.Context) error {
	p.mu.Lock()
	p.session.Reset()
	p.mu.Unlock()

	if p.votes != nil {
		p.votes.CancelAll()
	}
	return p.transport.Stop(ctx)
}

// --- ownership ---

// Owner returns the session owner, or nil.
func (p *Player) Owner() *snowflake.ID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session.OwnerID()
}

// IsOwner reports whether the given user owns the session.
func (p *Player) IsOwner(userID snowflake.ID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session.IsOwner(userID)
}

// ClaimOwnership transfers the session to the claimant. It succeeds only
// when the session is unowned or the current owner is no longer present in
// any observable voice channel.
func (p *Player) ClaimOwnership(userID snowflake.ID) error {
	p.mu.Lock()
	owner := p.session.OwnerID()
	p.mu.Unlock()

	// Presence lookup happens outside the lock.
	if owner != nil && p.presence.IsParticipantPresent(*owner) {
		return ErrOwnerStillPresent
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Re-check: a concurrent claim or enqueue may have changed the owner
	// while the lock was released.
	current := p.session.OwnerID()
	if (owner == nil) != (current == nil) || (owner != nil && *owner != *current) {
		return ErrOwnerStillPresent
	}

	p.session.SetOwner(userID)
	slog.Info("session ownership claimed", "owner", userID)
	return nil
}

// BindVoiceChannel records the voice channel the session plays into.
func (p *Player) BindVoiceChannel(channelID snowflake.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.session.SetVoiceChannelID(channelID)
}

// VoiceChannel returns the bound voice channel, or zero.
func (p *Player) VoiceChannel() snowflake.ID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session.VoiceChannelID()
}

// --- gated actions ---

// RequestGatedAction runs the action immediately for the session owner and
// routes everyone else through the vote gate.
func (p *Player) RequestGatedAction(
	action string,
	requesterID snowflake.ID,
	onSuccess func(),
) (StartResult, error) {
	p.mu.Lock()
	isOwner := p.session.IsOwner(requesterID)
	owner := p.session.OwnerID()
	p.mu.Unlock()

	if isOwner {
		onSuccess()
		return VoteBypassed, nil
	}

	channel := p.presence.UserChannel(requesterID)
	if channel == nil {
		return 0, ErrNotInVoice
	}

	return p.votes.Start(action, requesterID, owner, *channel, onSuccess)
}

// CastBallot records a ballot on the pending vote with the given ID.
func (p *Player) CastBallot(voteID string, voterID snowflake.ID) (bool, error) {
	return p.votes.CastByID(voteID, voterID)
}

// --- transport callbacks ---

// HandleTrackStarted maps a transport start signal back to queue metadata
// and reports it.
func (p *Player) HandleTrackStarted(id domain.TrackID) {
	track := p.findTrack(id)
	if track == nil {
		slog.Warn("track metadata not found for start signal", "track", id)
	}
	p.hub.Emit(domain.TrackPlayingEvent{Track: track})
}

// HandleTrackEnded reacts to a transport end signal: load failures remove
// the broken entry without advancing, natural ends advance per the repeat
// mode.
func (p *Player) HandleTrackEnded(id domain.TrackID, reason domain.TrackEndReason) {
	track := p.findTrack(id)
	p.hub.Emit(domain.TrackEndedEvent{Track: track, Reason: reason})

	if reason == domain.TrackEndLoadFailed {
		p.mu.Lock()
		if idx := p.indexOf(id); idx >= 0 {
			p.session.Queue.RemoveAt(idx)
		}
		p.session.SetPlaying(false)
		p.mu.Unlock()
		return
	}

	if reason.MayStartNext() {
		p.advance(context.Background(), false)
	}
}

func (p *Player) findTrack(id domain.TrackID) *domain.Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	if idx := p.indexOf(id); idx >= 0 {
		return p.session.Queue.At(idx)
	}
	return nil
}

// indexOf must be called with the lock held.
func (p *Player) indexOf(id domain.TrackID) int {
	for i := 0; i < p.session.Queue.Len(); i++ {
		if t := p.session.Queue.At(i); t != nil && t.ID == id {
			return i
		}
	}
	return -1
}

// --- bounded waits ---

// EnqueueAndWait submits the queries and blocks until the first track or
// playlist from the batch lands in the queue, the timeout, or context
// cancellation, whichever comes first. The hub subscription opens before the
// batch is submitted, so even an instantly resolved query is observed.
// Callers degrade to a generic response on timeout.
func (p *Player) EnqueueAndWait(
	ctx context.Context,
	requesterID snowflake.ID,
	requesterName string,
	queries []string,
	timeout time.Duration,
) (*QueueAdd, error) {
	if timeout <= 0 {
		timeout = DefaultQueueAddWait
	}

	result := make(chan *QueueAdd, 1)
	sub := p.hub.Subscribe(func(event domain.Event) {
		switch e := event.(type) {
		case domain.TrackQueuedEvent:
			if e.Track.RequesterID == requesterID {
				select {
				case result <- &QueueAdd{Track: e.Track, Added: 1}:
				default:
				}
			}
		case domain.PlaylistQueuedEvent:
			if len(e.Tracks) > 0 && e.Tracks[0].RequesterID == requesterID {
				select {
				case result <- &QueueAdd{
					Playlist: true,
					Name:     e.Name,
					Tracks:   e.Tracks,
					Added:    e.Added,
				}:
				default:
				}
			}
		}
	})
	defer p.hub.Unsubscribe(sub)

	p.Enqueue(requesterID, requesterName, queries)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case add := <-result:
		return add, nil
	case <-timer.C:
		return nil, context.DeadlineExceeded
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
