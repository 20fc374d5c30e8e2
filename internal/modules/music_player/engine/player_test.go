package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/yskcmr/resona/internal/modules/music_player/application/ports"
	"github.com/yskcmr/resona/internal/modules/music_player/domain"
)

type playerFixture struct {
	player    *Player
	transport *mockTransport
	provider  *mockProvider
	settings  *mockSettings
	presence  *mockPresence
	events    *eventRecorder
}

func newPlayerFixture(t *testing.T) *playerFixture {
	t.Helper()

	transport := &mockTransport{}
	provider := newMockProvider()
	settings := &mockSettings{
		voteActions: []string{"skip", "stop", "jump"},
		savedModes:  make(map[snowflake.ID]domain.PlayerMode),
	}
	presence := newMockPresence()
	hub := NewHub()
	votes := NewVoteManager(settings, presence, VoteConfig{}, VoteHooks{})

	player := NewPlayer(transport, provider, settings, presence, votes, hub, 10)
	t.Cleanup(player.Close)

	events := &eventRecorder{}
	player.Subscribe(events.record)

	return &playerFixture{
		player:    player,
		transport: transport,
		provider:  provider,
		settings:  settings,
		presence:  presence,
		events:    events,
	}
}

// seedTracks appends n tracks through the resolution outcome path. The first
// one starts playback.
func (f *playerFixture) seedTracks(n int) []*domain.Track {
	tracks := make([]*domain.Track, n)
	for i := range n {
		tracks[i] = &domain.Track{
			ID:    domain.TrackID(fmt.Sprintf("track-%d", i)),
			Title: fmt.Sprintf("Song %d", i),
		}
		f.player.HandleTrackResolved(tracks[i])
	}
	return tracks
}

func (f *playerFixture) waitPlayed(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for len(f.transport.playedTracks()) < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d plays, got %d",
				n, len(f.transport.playedTracks()))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func isQueueFinished(e domain.Event) bool {
	_, ok := e.(domain.QueueFinishedEvent)
	return ok
}

func TestPlayer_FirstEnqueueAssignsOwner(t *testing.T) {
	f := newPlayerFixture(t)

	f.player.Enqueue(42, "alice", nil)

	owner := f.player.Owner()
	if owner == nil || *owner != 42 {
		t.Fatalf("expected owner 42, got %v", owner)
	}

	// A later requester does not displace the owner.
	f.player.Enqueue(7, "bob", nil)
	owner = f.player.Owner()
	if owner == nil || *owner != 42 {
		t.Errorf("expected owner to stay 42, got %v", owner)
	}
}

func TestPlayer_FirstEnqueueAppliesSavedMode(t *testing.T) {
	f := newPlayerFixture(t)
	f.settings.savedModes[42] = domain.PlayerModeRepeatQueue

	f.player.Enqueue(42, "alice", nil)

	if got := f.player.Mode(); got != domain.PlayerModeRepeatQueue {
		t.Errorf("expected saved mode applied, got %v", got)
	}

	found := false
	for _, e := range f.events.all() {
		if mc, ok := e.(domain.ModeChangedEvent); ok {
			found = true
			if mc.Old != domain.PlayerModeNothing || mc.New != domain.PlayerModeRepeatQueue {
				t.Errorf("unexpected transition %v -> %v", mc.Old, mc.New)
			}
		}
	}
	if !found {
		t.Error("expected a mode change event")
	}
}

func TestPlayer_EnqueueResolvesAndPlays(t *testing.T) {
	f := newPlayerFixture(t)
	f.provider.addTrack("song", &ports.TrackInfo{
		Identifier: "id-1",
		Title:      "Song",
	})

	add, err := f.player.EnqueueAndWait(context.Background(), 42, "alice",
		[]string{"song"}, 2*time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if add.Playlist {
		t.Error("expected a single-track add")
	}
	if add.Track.ID != "id-1" {
		t.Errorf("expected track id-1, got %s", add.Track.ID)
	}

	f.waitPlayed(t, 1)
	if !f.player.IsPlaying() {
		t.Error("expected playback to be active")
	}
}

func TestPlayer_EnqueueAndWaitTimesOut(t *testing.T) {
	f := newPlayerFixture(t)

	_, err := f.player.EnqueueAndWait(context.Background(), 42, "alice",
		nil, 30*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}

func TestPlayer_TrackEndAdvancesThroughQueue(t *testing.T) {
	f := newPlayerFixture(t)
	tracks := f.seedTracks(2)

	f.player.HandleTrackEnded(tracks[0].ID, domain.TrackEndFinished)

	played := f.transport.playedTracks()
	if len(played) != 2 || played[1] != tracks[1].ID {
		t.Fatalf("expected second track to play, got %v", played)
	}

	f.player.HandleTrackEnded(tracks[1].ID, domain.TrackEndFinished)

	if f.player.IsPlaying() {
		t.Error("expected playback idle at end of queue")
	}
	if f.transport.stops() != 1 {
		t.Errorf("expected 1 transport stop, got %d", f.transport.stops())
	}
	if got := f.events.count(isQueueFinished); got != 1 {
		t.Errorf("expected exactly 1 queue-finished event, got %d", got)
	}

	// Tracks are not consumed; the queue is replayable.
	if got := len(f.player.Snapshot()); got != 2 {
		t.Errorf("expected 2 tracks still queued, got %d", got)
	}
}

func TestPlayer_PlayRestartsAfterQueueFinish(t *testing.T) {
	f := newPlayerFixture(t)
	tracks := f.seedTracks(2)

	f.player.HandleTrackEnded(tracks[0].ID, domain.TrackEndFinished)
	f.player.HandleTrackEnded(tracks[1].ID, domain.TrackEndFinished)

	if f.player.IsPlaying() {
		t.Fatal("expected playback idle after the queue finished")
	}

	if err := f.player.Play(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	played := f.transport.playedTracks()
	if len(played) != 3 || played[2] != tracks[0].ID {
		t.Fatalf("expected playback to restart from the first track, got %v", played)
	}
	if !f.player.IsPlaying() {
		t.Error("expected playback active again")
	}
}

func TestPlayer_PlayEmptyQueue(t *testing.T) {
	f := newPlayerFixture(t)

	if err := f.player.Play(context.Background()); !errors.Is(err, ErrQueueEmpty) {
		t.Errorf("expected ErrQueueEmpty, got %v", err)
	}
}

func TestPlayer_TrackEndStoppedDoesNotAdvance(t *testing.T) {
	f := newPlayerFixture(t)
	tracks := f.seedTracks(2)

	f.player.HandleTrackEnded(tracks[0].ID, domain.TrackEndStopped)

	if got := len(f.transport.playedTracks()); got != 1 {
		t.Errorf("expected no further plays, got %d", got)
	}
}

func TestPlayer_RepeatOneReplaysCurrent(t *testing.T) {
	f := newPlayerFixture(t)
	tracks := f.seedTracks(2)
	f.player.SetMode(domain.PlayerModeRepeatOne)

	f.player.HandleTrackEnded(tracks[0].ID, domain.TrackEndFinished)

	played := f.transport.playedTracks()
	if len(played) != 2 || played[1] != tracks[0].ID {
		t.Errorf("expected the same track again, got %v", played)
	}
}

func TestPlayer_RepeatQueueWrapsAround(t *testing.T) {
	f := newPlayerFixture(t)
	tracks := f.seedTracks(2)
	f.player.SetMode(domain.PlayerModeRepeatQueue)

	f.player.HandleTrackEnded(tracks[0].ID, domain.TrackEndFinished)
	f.player.HandleTrackEnded(tracks[1].ID, domain.TrackEndFinished)

	played := f.transport.playedTracks()
	want := []domain.TrackID{tracks[0].ID, tracks[1].ID, tracks[0].ID}
	if len(played) != len(want) {
		t.Fatalf("expected %d plays, got %v", len(want), played)
	}
	for i := range want {
		if played[i] != want[i] {
			t.Errorf("play %d = %s, want %s", i, played[i], want[i])
		}
	}
	if got := f.events.count(isQueueFinished); got != 0 {
		t.Errorf("expected no queue-finished under repeat queue, got %d", got)
	}
}

func TestPlayer_LoadFailureRemovesEntryWithoutAdvancing(t *testing.T) {
	f := newPlayerFixture(t)
	tracks := f.seedTracks(2)

	f.player.HandleTrackEnded(tracks[0].ID, domain.TrackEndLoadFailed)

	if got := len(f.transport.playedTracks()); got != 1 {
		t.Errorf("expected no automatic advance, got %d plays", got)
	}
	if f.player.IsPlaying() {
		t.Error("expected playback idle after load failure")
	}

	snapshot := f.player.Snapshot()
	if len(snapshot) != 1 || snapshot[0].ID != tracks[1].ID {
		t.Errorf("expected broken entry removed, queue is %v", snapshot)
	}
}

func TestPlayer_SkipRemovesCurrentAndForcesAdvance(t *testing.T) {
	f := newPlayerFixture(t)
	tracks := f.seedTracks(3)
	f.player.SetMode(domain.PlayerModeRepeatOne)

	// Skip overrides the repeat mode.
	if err := f.player.Skip(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	played := f.transport.playedTracks()
	if len(played) != 2 || played[1] != tracks[1].ID {
		t.Fatalf("expected track 1 to play after skip, got %v", played)
	}

	snapshot := f.player.Snapshot()
	if len(snapshot) != 2 {
		t.Errorf("expected skipped entry removed, got %d tracks", len(snapshot))
	}

	skips := f.events.count(func(e domain.Event) bool {
		_, ok := e.(domain.TrackSkippedEvent)
		return ok
	})
	if skips != 1 {
		t.Errorf("expected 1 skip event, got %d", skips)
	}
}

func TestPlayer_SkipLastTrackFinishesQueue(t *testing.T) {
	f := newPlayerFixture(t)
	f.seedTracks(1)

	if err := f.player.Skip(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := f.events.count(isQueueFinished); got != 1 {
		t.Errorf("expected 1 queue-finished event, got %d", got)
	}
	if f.player.IsPlaying() {
		t.Error("expected playback idle")
	}
	if got := len(f.player.Snapshot()); got != 0 {
		t.Errorf("expected empty queue, got %d tracks", got)
	}
}

func TestPlayer_SkipWithoutCurrentTrack(t *testing.T) {
	f := newPlayerFixture(t)

	if err := f.player.Skip(context.Background()); !errors.Is(err, ErrNoTrack) {
		t.Errorf("expected ErrNoTrack, got %v", err)
	}
}

func TestPlayer_PreviousReplaysFirstTrackAtFloor(t *testing.T) {
	f := newPlayerFixture(t)
	tracks := f.seedTracks(2)

	if err := f.player.Previous(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	played := f.transport.playedTracks()
	if len(played) != 2 || played[1] != tracks[0].ID {
		t.Errorf("expected first track replayed, got %v", played)
	}
	if f.player.Cursor() != 0 {
		t.Errorf("expected cursor 0, got %d", f.player.Cursor())
	}
}

func TestPlayer_JumpToInvalidIndexMutatesNothing(t *testing.T) {
	f := newPlayerFixture(t)
	f.seedTracks(2)

	if err := f.player.JumpTo(context.Background(), 5); !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("expected ErrInvalidIndex, got %v", err)
	}
	if f.player.Cursor() != 0 {
		t.Errorf("expected cursor unchanged at 0, got %d", f.player.Cursor())
	}
	if got := len(f.transport.playedTracks()); got != 1 {
		t.Errorf("expected no extra play, got %d", got)
	}
}

func TestPlayer_JumpTo(t *testing.T) {
	f := newPlayerFixture(t)
	tracks := f.seedTracks(3)

	if err := f.player.JumpTo(context.Background(), 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	played := f.transport.playedTracks()
	if played[len(played)-1] != tracks[2].ID {
		t.Errorf("expected track 2 to play, got %v", played)
	}
}

func TestPlayer_SetModeEmitsBeforeCommit(t *testing.T) {
	f := newPlayerFixture(t)

	var observed domain.PlayerMode
	f.player.Subscribe(func(e domain.Event) {
		if _, ok := e.(domain.ModeChangedEvent); ok {
			// The mode must still read as the old value mid-event.
			observed = f.player.Mode()
		}
	})

	f.player.SetMode(domain.PlayerModeRepeatOne)

	if observed != domain.PlayerModeNothing {
		t.Errorf("expected old mode visible during event, got %v", observed)
	}
	if got := f.player.Mode(); got != domain.PlayerModeRepeatOne {
		t.Errorf("expected committed mode repeat_one, got %v", got)
	}
}

func TestPlayer_SetModeSameValueEmitsNothing(t *testing.T) {
	f := newPlayerFixture(t)

	f.player.SetMode(domain.PlayerModeNothing)

	changes := f.events.count(func(e domain.Event) bool {
		_, ok := e.(domain.ModeChangedEvent)
		return ok
	})
	if changes != 0 {
		t.Errorf("expected no event for a no-op change, got %d", changes)
	}
}

func TestPlayer_StopResetsSession(t *testing.T) {
	f := newPlayerFixture(t)
	f.seedTracks(2)
	f.player.Enqueue(42, "alice", nil)
	f.player.SetMode(domain.PlayerModeRepeatQueue)

	if err := f.player.Stop(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := len(f.player.Snapshot()); got != 0 {
		t.Errorf("expected empty queue, got %d tracks", got)
	}
	if f.player.Owner() != nil {
		t.Error("expected owner cleared")
	}
	if got := f.player.Mode(); got != domain.PlayerModeNothing {
		t.Errorf("expected mode reset, got %v", got)
	}
	if f.transport.stops() != 1 {
		t.Errorf("expected 1 transport stop, got %d", f.transport.stops())
	}
}

func TestPlayer_ClaimOwnership(t *testing.T) {
	f := newPlayerFixture(t)
	f.player.Enqueue(42, "alice", nil)

	// The owner is still in voice, the claim is rejected.
	f.presence.setOccupants(500, 42, 7)
	if err := f.player.ClaimOwnership(7); !errors.Is(err, ErrOwnerStillPresent) {
		t.Fatalf("expected ErrOwnerStillPresent, got %v", err)
	}

	// The owner left, the claim goes through.
	f.presence.setOccupants(500, 7)
	if err := f.player.ClaimOwnership(7); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.player.IsOwner(7) {
		t.Error("expected claimant to own the session")
	}
}

func TestPlayer_RequestGatedAction_OwnerBypasses(t *testing.T) {
	f := newPlayerFixture(t)
	f.player.Enqueue(42, "alice", nil)

	executed := false
	result, err := f.player.RequestGatedAction("skip", 42, func() { executed = true })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != VoteBypassed {
		t.Errorf("expected bypass for owner, got %v", result)
	}
	if !executed {
		t.Error("expected action to run immediately")
	}
}

func TestPlayer_RequestGatedAction_RequiresVoice(t *testing.T) {
	f := newPlayerFixture(t)
	f.player.Enqueue(42, "alice", nil)

	_, err := f.player.RequestGatedAction("skip", 7, func() {})
	if !errors.Is(err, ErrNotInVoice) {
		t.Errorf("expected ErrNotInVoice, got %v", err)
	}
}

func TestPlayer_RequestGatedAction_OpensVote(t *testing.T) {
	f := newPlayerFixture(t)
	f.player.Enqueue(42, "alice", nil)
	f.presence.setOccupants(500, 7, 8, 9, 10)

	executed := false
	result, err := f.player.RequestGatedAction("skip", 7, func() { executed = true })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != VoteOpened {
		t.Fatalf("expected a vote to open, got %v", result)
	}
	if executed {
		t.Fatal("action ran before quorum")
	}

	if _, err := f.player.CastBallot("no-such-vote", 8); !errors.Is(err, ErrVoteClosed) {
		t.Errorf("expected ErrVoteClosed for unknown vote ID, got %v", err)
	}
}

func TestPlayer_RemoveAtInvalidIndex(t *testing.T) {
	f := newPlayerFixture(t)
	f.seedTracks(2)

	if _, err := f.player.RemoveAt(5); !errors.Is(err, ErrInvalidIndex) {
		t.Errorf("expected ErrInvalidIndex, got %v", err)
	}
}

func TestPlayer_NextOnEmptyQueue(t *testing.T) {
	f := newPlayerFixture(t)

	if err := f.player.Next(context.Background(), false); !errors.Is(err, ErrQueueEmpty) {
		t.Errorf("expected ErrQueueEmpty, got %v", err)
	}
}
