package infrastructure

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"

	"github.com/yskcmr/resona/internal/modules/music_player/application/ports"
)

// Ensure DiscordPresenceProvider implements ports.PresenceProvider.
var _ ports.PresenceProvider = (*DiscordPresenceProvider)(nil)

// DiscordPresenceProvider answers voice presence questions from the
// discordgo state cache. Bot accounts never count as occupants.
type DiscordPresenceProvider struct {
	session *discordgo.Session
	guildID snowflake.ID
}

// NewDiscordPresenceProvider creates a presence provider scoped to a guild.
func NewDiscordPresenceProvider(
	session *discordgo.Session,
	guildID snowflake.ID,
) *DiscordPresenceProvider {
	return &DiscordPresenceProvider{
		session: session,
		guildID: guildID,
	}
}

// ChannelOccupants returns the human participants of the given voice channel.
func (p *DiscordPresenceProvider) ChannelOccupants(channelID snowflake.ID) []snowflake.ID {
	guild, err := p.session.State.Guild(p.guildID.String())
	if err != nil {
		slog.Warn("guild not in state cache", "guild", p.guildID, "error", err)
		return nil
	}

	var occupants []snowflake.ID
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID != channelID.String() {
			continue
		}
		if p.isBot(vs.UserID) {
			continue
		}
		id, err := snowflake.Parse(vs.UserID)
		if err != nil {
			continue
		}
		occupants = append(occupants, id)
	}
	return occupants
}

// IsParticipantPresent reports whether the user is in any voice channel of
// the guild.
func (p *DiscordPresenceProvider) IsParticipantPresent(userID snowflake.ID) bool {
	return p.UserChannel(userID) != nil
}

// UserChannel returns the voice channel the user is in, or nil.
func (p *DiscordPresenceProvider) UserChannel(userID snowflake.ID) *snowflake.ID {
	guild, err := p.session.State.Guild(p.guildID.String())
	if err != nil {
		return nil
	}

	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID.String() && vs.ChannelID != "" {
			channelID, err := snowflake.Parse(vs.ChannelID)
			if err != nil {
				return nil
			}
			return &channelID
		}
	}
	return nil
}

func (p *DiscordPresenceProvider) isBot(userID string) bool {
	member, err := p.session.State.Member(p.guildID.String(), userID)
	if err != nil || member == nil || member.User == nil {
		// Unknown members stay in the pool rather than silently shrinking it.
		return false
	}
	return member.User.Bot
}
