package ports

import (
	"github.com/disgoorg/snowflake/v2"

	"github.com/yskcmr/resona/internal/modules/music_player/domain"
)

// Settings exposes per-owner player preferences kept outside this module.
type Settings interface {
	// RequiredVoteActions returns the action tags that need a group vote
	// while the given user owns the session.
	RequiredVoteActions(ownerID snowflake.ID) []string

	// SavedPlayerMode returns the repeat mode the owner saved previously,
	// if any.
	SavedPlayerMode(ownerID snowflake.ID) (domain.PlayerMode, bool)
}

// Permissions is the external ACL decision service.
type Permissions interface {
	// HasPermission reports whether the user holds the given permission node.
	HasPermission(userID snowflake.ID, node string) bool
}

// UserInfo contains display information for a participant.
type UserInfo struct {
	DisplayName string
	AvatarURL   string
}

// UserInfoProvider fetches display information for participants.
type UserInfoProvider interface {
	GetUserInfo(userID snowflake.ID) (*UserInfo, error)
}
