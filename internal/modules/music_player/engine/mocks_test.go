package engine

import (
	"context"
	"sync"

	"github.com/disgoorg/snowflake/v2"

	"github.com/yskcmr/resona/internal/modules/music_player/application/ports"
	"github.com/yskcmr/resona/internal/modules/music_player/domain"
)

// mockTransport is a test double for ports.AudioPlayer.
type mockTransport struct {
	mu        sync.Mutex
	played    []domain.TrackID
	stopCount int
	paused    bool
	playErr   error
	stopErr   error
}

func (m *mockTransport) Play(_ context.Context, track *domain.Track) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.playErr != nil {
		return m.playErr
	}
	m.played = append(m.played, track.ID)
	return nil
}

func (m *mockTransport) Stop(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopErr != nil {
		return m.stopErr
	}
	m.stopCount++
	return nil
}

func (m *mockTransport) SetPaused(_ context.Context, paused bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = paused
	return nil
}

func (m *mockTransport) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

func (m *mockTransport) playedTracks() []domain.TrackID {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]domain.TrackID, len(m.played))
	copy(result, m.played)
	return result
}

func (m *mockTransport) stops() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopCount
}

// mockProvider is a test double for ports.TrackResolver. Lookups are served
// from a fixed query table.
type mockProvider struct {
	mu      sync.Mutex
	results map[string]*ports.LoadResult
	errs    map[string]error
}

func newMockProvider() *mockProvider {
	return &mockProvider{
		results: make(map[string]*ports.LoadResult),
		errs:    make(map[string]error),
	}
}

func (m *mockProvider) Resolve(_ context.Context, query string) (*ports.LoadResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.errs[query]; ok {
		return nil, err
	}
	if result, ok := m.results[query]; ok {
		return result, nil
	}
	return &ports.LoadResult{Type: ports.LoadTypeEmpty}, nil
}

func (m *mockProvider) addTrack(query string, info *ports.TrackInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[query] = &ports.LoadResult{
		Type:   ports.LoadTypeTrack,
		Tracks: []*ports.TrackInfo{info},
	}
}

func (m *mockProvider) addPlaylist(query, name string, infos []*ports.TrackInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[query] = &ports.LoadResult{
		Type:         ports.LoadTypePlaylist,
		Tracks:       infos,
		PlaylistName: name,
	}
}

func (m *mockProvider) addError(query string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[query] = err
}

// mockSettings is a test double for ports.Settings.
type mockSettings struct {
	voteActions []string
	savedModes  map[snowflake.ID]domain.PlayerMode
}

func (m *mockSettings) RequiredVoteActions(_ snowflake.ID) []string {
	return m.voteActions
}

func (m *mockSettings) SavedPlayerMode(ownerID snowflake.ID) (domain.PlayerMode, bool) {
	mode, ok := m.savedModes[ownerID]
	return mode, ok
}

// mockPresence is a test double for ports.PresenceProvider.
type mockPresence struct {
	mu        sync.Mutex
	occupants map[snowflake.ID][]snowflake.ID // channel -> humans
}

func newMockPresence() *mockPresence {
	return &mockPresence{occupants: make(map[snowflake.ID][]snowflake.ID)}
}

func (m *mockPresence) setOccupants(channelID snowflake.ID, users ...snowflake.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.occupants[channelID] = users
}

func (m *mockPresence) ChannelOccupants(channelID snowflake.ID) []snowflake.ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.occupants[channelID]
}

func (m *mockPresence) IsParticipantPresent(userID snowflake.ID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, users := range m.occupants {
		for _, id := range users {
			if id == userID {
				return true
			}
		}
	}
	return false
}

func (m *mockPresence) UserChannel(userID snowflake.ID) *snowflake.ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	for channel, users := range m.occupants {
		for _, id := range users {
			if id == userID {
				c := channel
				return &c
			}
		}
	}
	return nil
}

// eventRecorder collects emitted events for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *eventRecorder) record(event domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) all() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]domain.Event, len(r.events))
	copy(result, r.events)
	return result
}

func (r *eventRecorder) count(match func(domain.Event) bool) int {
	n := 0
	for _, e := range r.all() {
		if match(e) {
			n++
		}
	}
	return n
}
