package infrastructure

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"

	"github.com/yskcmr/resona/internal/modules/music_player/application/ports"
)

// Ensure DiscordUserInfoProvider implements ports.UserInfoProvider.
var _ ports.UserInfoProvider = (*DiscordUserInfoProvider)(nil)

// DiscordUserInfoProvider fetches member display info from Discord.
type DiscordUserInfoProvider struct {
	session *discordgo.Session
	guildID snowflake.ID
}

// NewDiscordUserInfoProvider creates a new DiscordUserInfoProvider.
func NewDiscordUserInfoProvider(
	session *discordgo.Session,
	guildID snowflake.ID,
) *DiscordUserInfoProvider {
	return &DiscordUserInfoProvider{session: session, guildID: guildID}
}

// GetUserInfo fetches display info for a guild member.
func (p *DiscordUserInfoProvider) GetUserInfo(userID snowflake.ID) (*ports.UserInfo, error) {
	member, err := p.session.GuildMember(p.guildID.String(), userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch guild member: %w", err)
	}

	return &ports.UserInfo{
		DisplayName: displayName(member),
		AvatarURL:   member.User.AvatarURL(""),
	}, nil
}

// displayName returns the effective display name for a guild member.
// Priority: guild nickname > global display name > username.
func displayName(member *discordgo.Member) string {
	if member.Nick != "" {
		return member.Nick
	}
	if member.User.GlobalName != "" {
		return member.User.GlobalName
	}
	return member.User.Username
}
