package ports

import (
	"github.com/disgoorg/snowflake/v2"
)

// PresenceProvider answers who is currently present in voice channels.
// Implementations must exclude non-human (bot) accounts from occupant lists.
type PresenceProvider interface {
	// ChannelOccupants returns the human participants of the given voice
	// channel.
	ChannelOccupants(channelID snowflake.ID) []snowflake.ID

	// IsParticipantPresent reports whether the user is in any voice channel
	// the player can observe.
	IsParticipantPresent(userID snowflake.ID) bool

	// UserChannel returns the voice channel the user is currently in, or nil.
	UserChannel(userID snowflake.ID) *snowflake.ID
}
