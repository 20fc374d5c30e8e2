package engine

import (
	"github.com/disgoorg/snowflake/v2"

	"github.com/yskcmr/resona/internal/modules/music_player/domain"
)

// Session holds the mutable state of the single active playback session:
// the queue with its cursor, the repeat mode, the paused/playing flags and
// the owner identity. Session itself is not synchronized; the Player
// serializes all access to it.
//
// A session is created lazily on the first playback request and reset to
// empty on stop rather than discarded, so handles to it stay valid for the
// life of the process.
type Session struct {
	Queue   domain.Queue
	mode    domain.PlayerMode
	playing bool
	paused  bool
	ownerID *snowflake.ID

	voiceChannelID snowflake.ID // voice channel the session is bound to
}

// NewSession creates an empty session with the given queue capacity.
func NewSession(queueCapacity int) *Session {
	return &Session{
		Queue: domain.NewQueue(queueCapacity),
		mode:  domain.PlayerModeNothing,
	}
}

// Mode returns the current repeat mode.
func (s *Session) Mode() domain.PlayerMode {
	return s.mode
}

// SetMode sets the repeat mode. Event emission around the change is the
// Player's responsibility.
func (s *Session) SetMode(mode domain.PlayerMode) {
	s.mode = mode
}

// IsPlaying returns true while the transport has an active track.
func (s *Session) IsPlaying() bool {
	return s.playing
}

// SetPlaying marks playback active or idle.
func (s *Session) SetPlaying(playing bool) {
	s.playing = playing
}

// IsPaused returns the paused flag.
func (s *Session) IsPaused() bool {
	return s.paused
}

// SetPaused sets the paused flag.
func (s *Session) SetPaused(paused bool) {
	s.paused = paused
}

// OwnerID returns the current session owner, or nil when unowned.
func (s *Session) OwnerID() *snowflake.ID {
	if s.ownerID == nil {
		return nil
	}
	id := *s.ownerID
	return &id
}

// IsOwner reports whether the given user owns the session.
func (s *Session) IsOwner(userID snowflake.ID) bool {
	return s.ownerID != nil && *s.ownerID == userID
}

// SetOwner assigns the session owner.
func (s *Session) SetOwner(userID snowflake.ID) {
	id := userID
	s.ownerID = &id
}

// ClearOwner removes the session owner.
func (s *Session) ClearOwner() {
	s.ownerID = nil
}

// VoiceChannelID returns the voice channel the session is bound to.
func (s *Session) VoiceChannelID() snowflake.ID {
	return s.voiceChannelID
}

// SetVoiceChannelID binds the session to a voice channel.
func (s *Session) SetVoiceChannelID(channelID snowflake.ID) {
	s.voiceChannelID = channelID
}

// Reset returns the session to its empty state: queue cleared, cursor back
// to zero, playback idle, owner cleared. The repeat mode and voice binding
// are cleared as well.
func (s *Session) Reset() {
	s.Queue.Clear()
	s.mode = domain.PlayerModeNothing
	s.playing = false
	s.paused = false
	s.ownerID = nil
	s.voiceChannelID = 0
}
