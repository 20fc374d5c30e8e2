package engine

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

const testChannel = snowflake.ID(500)

func testVoteManager(
	settings *mockSettings,
	presence *mockPresence,
	cfg VoteConfig,
	hooks VoteHooks,
) *VoteManager {
	if settings == nil {
		settings = &mockSettings{voteActions: []string{"skip", "stop", "jump"}}
	}
	return NewVoteManager(settings, presence, cfg, hooks)
}

func TestVoteManager_QuorumIsStrictMajority(t *testing.T) {
	presence := newMockPresence()
	presence.setOccupants(testChannel, 1, 2, 3, 4)

	m := testVoteManager(nil, presence, VoteConfig{}, VoteHooks{})

	executed := 0
	result, err := m.Start("skip", 1, nil, testChannel, func() { executed++ })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != VoteOpened {
		t.Fatalf("expected vote to open, got %v", result)
	}

	// Requester's implicit ballot: 1 of 4 is not a majority.
	if executed != 0 {
		t.Fatal("action ran before quorum")
	}

	passed, err := m.Cast("skip", 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if passed {
		t.Error("2 of 4 ballots should not pass a 50% quorum")
	}

	passed, err = m.Cast("skip", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !passed {
		t.Error("3 of 4 ballots should pass")
	}
	if executed != 1 {
		t.Errorf("expected action to run once, ran %d times", executed)
	}

	// The vote is resolved, a late ballot hits a closed vote.
	if _, err := m.Cast("skip", 4); !errors.Is(err, ErrVoteClosed) {
		t.Errorf("expected ErrVoteClosed, got %v", err)
	}
	if executed != 1 {
		t.Errorf("expected action to stay at 1 run, got %d", executed)
	}
}

func TestVoteManager_DuplicateBallot(t *testing.T) {
	presence := newMockPresence()
	presence.setOccupants(testChannel, 1, 2, 3, 4)

	m := testVoteManager(nil, presence, VoteConfig{}, VoteHooks{})
	if _, err := m.Start("skip", 1, nil, testChannel, func() {}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The requester's ballot was cast implicitly at start.
	if _, err := m.Cast("skip", 1); !errors.Is(err, ErrAlreadyVoted) {
		t.Errorf("expected ErrAlreadyVoted, got %v", err)
	}
}

func TestVoteManager_IneligibleVoter(t *testing.T) {
	presence := newMockPresence()
	presence.setOccupants(testChannel, 1, 2, 3)

	m := testVoteManager(nil, presence, VoteConfig{}, VoteHooks{})
	if _, err := m.Start("skip", 1, nil, testChannel, func() {}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := m.Cast("skip", 99); !errors.Is(err, ErrNotEligible) {
		t.Errorf("expected ErrNotEligible, got %v", err)
	}
}

func TestVoteManager_PendingVoteConflict(t *testing.T) {
	presence := newMockPresence()
	presence.setOccupants(testChannel, 1, 2, 3)

	m := testVoteManager(nil, presence, VoteConfig{}, VoteHooks{})
	if _, err := m.Start("skip", 1, nil, testChannel, func() {}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := m.Start("skip", 2, nil, testChannel, func() {}); !errors.Is(err, ErrVotePending) {
		t.Errorf("expected ErrVotePending, got %v", err)
	}

	// A different action votes independently.
	if _, err := m.Start("stop", 2, nil, testChannel, func() {}); err != nil {
		t.Errorf("unexpected error for distinct action: %v", err)
	}
}

func TestVoteManager_OwnerSettingsBypass(t *testing.T) {
	presence := newMockPresence()
	presence.setOccupants(testChannel, 1, 2, 3, 4)

	// The owner only gates "stop"; "skip" runs without a vote.
	settings := &mockSettings{voteActions: []string{"stop"}}
	m := testVoteManager(settings, presence, VoteConfig{}, VoteHooks{})

	owner := snowflake.ID(9)
	executed := false
	result, err := m.Start("skip", 2, &owner, testChannel, func() { executed = true })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != VoteBypassed {
		t.Errorf("expected bypass, got %v", result)
	}
	if !executed {
		t.Error("expected action to run immediately")
	}
}

func TestVoteManager_ParameterizedActionSharesConfig(t *testing.T) {
	presence := newMockPresence()
	presence.setOccupants(testChannel, 1, 2, 3, 4)

	// "jump" is not gated, so "jump:5" bypasses too.
	settings := &mockSettings{voteActions: []string{"skip"}}
	m := testVoteManager(settings, presence, VoteConfig{}, VoteHooks{})

	owner := snowflake.ID(9)
	result, err := m.Start("jump:5", 2, &owner, testChannel, func() {})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != VoteBypassed {
		t.Errorf("expected bypass for ungated base action, got %v", result)
	}
}

func TestVoteManager_TinyPoolExecutesImmediately(t *testing.T) {
	presence := newMockPresence()
	presence.setOccupants(testChannel, 1)

	m := testVoteManager(nil, presence, VoteConfig{}, VoteHooks{})

	executed := false
	result, err := m.Start("skip", 1, nil, testChannel, func() { executed = true })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != VoteBypassed {
		t.Errorf("expected bypass for pool of one, got %v", result)
	}
	if !executed {
		t.Error("expected action to run immediately")
	}
}

func TestVoteManager_RequesterBallotCanSatisfyQuorum(t *testing.T) {
	presence := newMockPresence()
	presence.setOccupants(testChannel, 1, 2)

	m := testVoteManager(nil, presence, VoteConfig{QuorumPercent: 30}, VoteHooks{})

	executed := false
	result, err := m.Start("skip", 1, nil, testChannel, func() { executed = true })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 1 of 2 ballots is above a 30% quorum, so the vote resolves on open.
	if result != VoteOpened {
		t.Errorf("expected VoteOpened, got %v", result)
	}
	if !executed {
		t.Error("expected implicit ballot to satisfy quorum")
	}
}

func TestVoteManager_ExpiryWithoutQuorum(t *testing.T) {
	presence := newMockPresence()
	presence.setOccupants(testChannel, 1, 2, 3, 4)

	var mu sync.Mutex
	var expired []VoteStatus
	hooks := VoteHooks{
		OnExpired: func(status VoteStatus) {
			mu.Lock()
			expired = append(expired, status)
			mu.Unlock()
		},
	}

	m := testVoteManager(nil, presence, VoteConfig{Duration: 20 * time.Millisecond}, hooks)

	executed := false
	if _, err := m.Start("skip", 1, nil, testChannel, func() { executed = true }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		n := len(expired)
		mu.Unlock()
		if n > 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(expired) != 1 {
		t.Fatalf("expected 1 expiry, got %d", len(expired))
	}
	if expired[0].Action != "skip" {
		t.Errorf("expected action %q, got %q", "skip", expired[0].Action)
	}
	if executed {
		t.Error("expected action not to run on expiry")
	}

	// The slot is free again after expiry.
	if _, err := m.Start("skip", 1, nil, testChannel, func() {}); err != nil {
		t.Errorf("expected a fresh vote after expiry, got %v", err)
	}
}

func TestVoteManager_CancelDiscardsWithoutRunning(t *testing.T) {
	presence := newMockPresence()
	presence.setOccupants(testChannel, 1, 2, 3, 4)

	m := testVoteManager(nil, presence, VoteConfig{}, VoteHooks{})

	executed := false
	if _, err := m.Start("skip", 1, nil, testChannel, func() { executed = true }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m.Cancel("skip")

	if executed {
		t.Error("expected cancelled action not to run")
	}
	if _, ok := m.Pending("skip"); ok {
		t.Error("expected no pending vote after cancel")
	}
	if _, err := m.Cast("skip", 2); !errors.Is(err, ErrVoteClosed) {
		t.Errorf("expected ErrVoteClosed, got %v", err)
	}
}

func TestVoteManager_CastByID_StaleVoteID(t *testing.T) {
	presence := newMockPresence()
	presence.setOccupants(testChannel, 1, 2, 3, 4)

	m := testVoteManager(nil, presence, VoteConfig{}, VoteHooks{})

	var opened []VoteStatus
	m.hooks.OnOpened = func(status VoteStatus) { opened = append(opened, status) }

	if _, err := m.Start("skip", 1, nil, testChannel, func() {}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(opened) != 1 {
		t.Fatalf("expected 1 opened hook call, got %d", len(opened))
	}
	staleID := opened[0].ID

	m.Cancel("skip")
	if _, err := m.Start("skip", 1, nil, testChannel, func() {}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A ballot addressed to the first vote must not land on the second.
	if _, err := m.CastByID(staleID, 2); !errors.Is(err, ErrVoteClosed) {
		t.Errorf("expected ErrVoteClosed for stale vote ID, got %v", err)
	}

	// The second vote is untouched: voter 2 can still cast on it.
	if len(opened) != 2 {
		t.Fatalf("expected 2 opened hook calls, got %d", len(opened))
	}
	if _, err := m.CastByID(opened[1].ID, 2); err != nil {
		t.Errorf("expected ballot accepted on the current vote, got %v", err)
	}
}
