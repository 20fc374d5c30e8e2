package infrastructure

import (
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"

	"github.com/yskcmr/resona/internal/modules/music_player/application/ports"
	"github.com/yskcmr/resona/internal/modules/music_player/domain"
)

// Ensure MemorySettings implements ports.Settings.
var _ ports.Settings = (*MemorySettings)(nil)

// MemorySettings keeps per-owner player preferences in memory, seeded with
// configured defaults. Durable preference storage lives outside this module;
// this store covers the lifetime of the process.
type MemorySettings struct {
	mu sync.RWMutex

	defaultVoteActions []string
	voteActions        map[snowflake.ID][]string
	savedModes         map[snowflake.ID]domain.PlayerMode
}

// NewMemorySettings creates a settings store with the given default gated
// actions.
func NewMemorySettings(defaultVoteActions []string) *MemorySettings {
	return &MemorySettings{
		defaultVoteActions: defaultVoteActions,
		voteActions:        make(map[snowflake.ID][]string),
		savedModes:         make(map[snowflake.ID]domain.PlayerMode),
	}
}

// RequiredVoteActions returns the action tags gated by votes while the given
// user owns the session.
func (s *MemorySettings) RequiredVoteActions(ownerID snowflake.ID) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if actions, ok := s.voteActions[ownerID]; ok {
		return actions
	}
	return s.defaultVoteActions
}

// SetRequiredVoteActions overrides the gated actions for an owner.
func (s *MemorySettings) SetRequiredVoteActions(ownerID snowflake.ID, actions []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voteActions[ownerID] = actions
}

// SavedPlayerMode returns the repeat mode the owner saved, if any.
func (s *MemorySettings) SavedPlayerMode(ownerID snowflake.ID) (domain.PlayerMode, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mode, ok := s.savedModes[ownerID]
	return mode, ok
}

// SavePlayerMode stores the owner's preferred repeat mode.
func (s *MemorySettings) SavePlayerMode(ownerID snowflake.ID, mode domain.PlayerMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.savedModes[ownerID] = mode
}

// Ensure DiscordPermissions implements ports.Permissions.
var _ ports.Permissions = (*DiscordPermissions)(nil)

// DiscordPermissions maps permission nodes onto Discord guild permissions.
type DiscordPermissions struct {
	session *discordgo.Session
	guildID snowflake.ID
}

// NewDiscordPermissions creates a permission checker scoped to a guild.
func NewDiscordPermissions(
	session *discordgo.Session,
	guildID snowflake.ID,
) *DiscordPermissions {
	return &DiscordPermissions{session: session, guildID: guildID}
}

// Permission nodes consumed by the player surfaces.
const (
	PermPlayerControl = "music.player.control"
)

// HasPermission reports whether the user holds the given node. Control maps
// to the guild's Manage Channels permission.
func (p *DiscordPermissions) HasPermission(userID snowflake.ID, node string) bool {
	switch node {
	case PermPlayerControl:
		perms := p.guildPermissions(userID)
		return perms&discordgo.PermissionManageChannels != 0 ||
			perms&discordgo.PermissionAdministrator != 0
	default:
		return false
	}
}

// guildPermissions computes the user's guild-level permission set from their
// roles in the state cache.
func (p *DiscordPermissions) guildPermissions(userID snowflake.ID) int64 {
	guild, err := p.session.State.Guild(p.guildID.String())
	if err != nil {
		return 0
	}
	if guild.OwnerID == userID.String() {
		return discordgo.PermissionAdministrator
	}

	member, err := p.session.State.Member(p.guildID.String(), userID.String())
	if err != nil {
		return 0
	}

	var perms int64
	for _, role := range guild.Roles {
		if role.ID == guild.ID { // @everyone
			perms |= role.Permissions
			continue
		}
		for _, id := range member.Roles {
			if id == role.ID {
				perms |= role.Permissions
				break
			}
		}
	}
	return perms
}
