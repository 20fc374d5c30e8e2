package engine

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"

	"github.com/yskcmr/resona/internal/modules/music_player/application/ports"
)

const (
	// DefaultVoteDuration is how long a vote stays open without quorum.
	DefaultVoteDuration = 30 * time.Second

	// DefaultQuorumPercent requires a strict majority of the eligible pool.
	DefaultQuorumPercent = 50
)

// VoteConfig tunes the vote gate.
type VoteConfig struct {
	Duration      time.Duration
	QuorumPercent int
}

// StartResult reports how a gated-action request was handled.
type StartResult int

const (
	// VoteOpened means a vote is now pending and the action waits for quorum.
	VoteOpened StartResult = iota
	// VoteBypassed means the action ran immediately without a vote.
	VoteBypassed
)

// VoteStatus is a read-only snapshot of a vote handed to hooks and UI code.
type VoteStatus struct {
	ID       string
	Action   string
	Ballots  int
	PoolSize int
	Deadline time.Time
}

// VoteHooks are invoked outside the manager lock when a vote opens or
// expires, so presentation code can post and update ballot messages.
type VoteHooks struct {
	OnOpened  func(status VoteStatus)
	OnExpired func(status VoteStatus)
}

type vote struct {
	id        string
	action    string
	pool      map[snowflake.ID]struct{}
	ballots   map[snowflake.ID]struct{}
	deadline  time.Time
	timer     *time.Timer
	onSuccess func()
	closed    bool
}

func (v *vote) status() VoteStatus {
	return VoteStatus{
		ID:       v.id,
		Action:   v.action,
		Ballots:  len(v.ballots),
		PoolSize: len(v.pool),
		Deadline: v.deadline,
	}
}

// VoteManager is the quorum-vote gate for control actions requested by
// non-owner participants. At most one vote is pending per action tag, each
// eligible participant casts at most one ballot, and every vote resolves
// exactly once: quorum success, deadline expiry, or explicit cancel.
type VoteManager struct {
	mu    sync.Mutex
	votes map[string]*vote

	settings ports.Settings
	presence ports.PresenceProvider
	cfg      VoteConfig
	hooks    VoteHooks
}

// NewVoteManager creates a VoteManager.
func NewVoteManager(
	settings ports.Settings,
	presence ports.PresenceProvider,
	cfg VoteConfig,
	hooks VoteHooks,
) *VoteManager {
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultVoteDuration
	}
	if cfg.QuorumPercent <= 0 || cfg.QuorumPercent >= 100 {
		cfg.QuorumPercent = DefaultQuorumPercent
	}
	return &VoteManager{
		votes:    make(map[string]*vote),
		settings: settings,
		presence: presence,
		cfg:      cfg,
		hooks:    hooks,
	}
}

// baseAction strips a parameter suffix from an action tag, so "jump:5"
// shares configuration with "jump" while still voting independently.
func baseAction(action string) string {
	if i := strings.IndexByte(action, ':'); i >= 0 {
		return action[:i]
	}
	return action
}

// Start opens a vote for the given action, or runs onSuccess immediately
// when voting is not required. The requester's own ballot is counted as
// cast. Order of checks: pending-vote conflict, owner-settings bypass, then
// pool size (fewer than 2 humans present executes immediately).
func (m *VoteManager) Start(
	action string,
	requesterID snowflake.ID,
	ownerID *snowflake.ID,
	channelID snowflake.ID,
	onSuccess func(),
) (StartResult, error) {
	m.mu.Lock()

	if _, pending := m.votes[action]; pending {
		m.mu.Unlock()
		return 0, ErrVotePending
	}

	// An owner whose settings don't gate this action lets everyone act
	// freely. Checked before the pool-size rule.
	if ownerID != nil && !m.actionRequiresVote(*ownerID, action) {
		m.mu.Unlock()
		onSuccess()
		return VoteBypassed, nil
	}

	occupants := m.presence.ChannelOccupants(channelID)
	if len(occupants) < 2 {
		// A quorum of one can't meaningfully vote.
		m.mu.Unlock()
		onSuccess()
		return VoteBypassed, nil
	}

	pool := make(map[snowflake.ID]struct{}, len(occupants))
	for _, id := range occupants {
		pool[id] = struct{}{}
	}

	v := &vote{
		id:        uuid.NewString(),
		action:    action,
		pool:      pool,
		ballots:   make(map[snowflake.ID]struct{}),
		deadline:  time.Now().Add(m.cfg.Duration),
		onSuccess: onSuccess,
	}
	if _, eligible := pool[requesterID]; eligible {
		v.ballots[requesterID] = struct{}{}
	}

	voteID := v.id
	v.timer = time.AfterFunc(m.cfg.Duration, func() {
		m.expire(action, voteID)
	})
	m.votes[action] = v

	status := v.status()
	m.mu.Unlock()

	slog.Info("opened vote",
		"action", action, "vote_id", status.ID, "pool", status.PoolSize)

	if m.hooks.OnOpened != nil {
		m.hooks.OnOpened(status)
	}

	// The requester's implicit ballot may already satisfy quorum for tiny
	// pools.
	m.checkQuorum(action, voteID)

	return VoteOpened, nil
}

func (m *VoteManager) actionRequiresVote(ownerID snowflake.ID, action string) bool {
	base := baseAction(action)
	for _, tag := range m.settings.RequiredVoteActions(ownerID) {
		if tag == base {
			return true
		}
	}
	return false
}

// Cast records one ballot. Returns true when this ballot reached quorum and
// the action ran.
func (m *VoteManager) Cast(action string, voterID snowflake.ID) (bool, error) {
	m.mu.Lock()
	v, ok := m.votes[action]
	if !ok {
		m.mu.Unlock()
		return false, ErrVoteClosed
	}
	return m.castBallot(v, voterID)
}

// CastByID records a ballot addressed by vote instance ID, so stale ballot
// buttons from an earlier vote on the same action cannot hit a newer one.
// The lookup and the ballot share one critical section.
func (m *VoteManager) CastByID(voteID string, voterID snowflake.ID) (bool, error) {
	m.mu.Lock()
	for _, v := range m.votes {
		if v.id == voteID {
			return m.castBallot(v, voterID)
		}
	}
	m.mu.Unlock()
	return false, ErrVoteClosed
}

// castBallot validates and records a ballot on the resolved vote. The caller
// must hold m.mu; castBallot releases it before the quorum check.
func (m *VoteManager) castBallot(v *vote, voterID snowflake.ID) (bool, error) {
	if v.closed {
		m.mu.Unlock()
		return false, ErrVoteClosed
	}
	if _, eligible := v.pool[voterID]; !eligible {
		m.mu.Unlock()
		return false, ErrNotEligible
	}
	if _, voted := v.ballots[voterID]; voted {
		m.mu.Unlock()
		return false, ErrAlreadyVoted
	}

	v.ballots[voterID] = struct{}{}
	action, voteID := v.action, v.id
	m.mu.Unlock()

	return m.checkQuorum(action, voteID), nil
}

// checkQuorum resolves the vote when the ballot count passes the quorum
// fraction. Returns true when the vote succeeded on this check.
func (m *VoteManager) checkQuorum(action, voteID string) bool {
	m.mu.Lock()

	v, ok := m.votes[action]
	if !ok || v.closed || v.id != voteID {
		m.mu.Unlock()
		return false
	}
	if len(v.ballots)*100 <= len(v.pool)*m.cfg.QuorumPercent {
		m.mu.Unlock()
		return false
	}

	v.closed = true
	v.timer.Stop()
	delete(m.votes, action)
	onSuccess := v.onSuccess
	status := v.status()
	m.mu.Unlock()

	slog.Info("vote reached quorum",
		"action", action, "vote_id", status.ID,
		"ballots", status.Ballots, "pool", status.PoolSize)

	onSuccess()
	return true
}

// expire closes a vote at its deadline without running its action. The
// closed flag under the lock guarantees quorum and expiry can never both
// fire for one vote.
func (m *VoteManager) expire(action, voteID string) {
	m.mu.Lock()

	v, ok := m.votes[action]
	if !ok || v.closed || v.id != voteID {
		m.mu.Unlock()
		return
	}

	v.closed = true
	delete(m.votes, action)
	status := v.status()
	m.mu.Unlock()

	slog.Info("vote expired without quorum",
		"action", action, "vote_id", status.ID,
		"ballots", status.Ballots, "pool", status.PoolSize)

	if m.hooks.OnExpired != nil {
		m.hooks.OnExpired(status)
	}
}

// Cancel discards a pending vote without running its action, e.g. when the
// control panel that opened it is removed.
func (m *VoteManager) Cancel(action string) {
	m.mu.Lock()

	v, ok := m.votes[action]
	if !ok {
		m.mu.Unlock()
		return
	}

	v.closed = true
	v.timer.Stop()
	delete(m.votes, action)
	m.mu.Unlock()

	slog.Debug("cancelled vote", "action", action, "vote_id", v.id)
}

// CancelAll discards every pending vote.
func (m *VoteManager) CancelAll() {
	m.mu.Lock()
	actions := make([]string, 0, len(m.votes))
	for action := range m.votes {
		actions = append(actions, action)
	}
	m.mu.Unlock()

	for _, action := range actions {
		m.Cancel(action)
	}
}

// Pending returns the status of the vote for the given action, if one is
// open.
func (m *VoteManager) Pending(action string) (VoteStatus, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.votes[action]
	if !ok {
		return VoteStatus{}, false
	}
	return v.status(), true
}
