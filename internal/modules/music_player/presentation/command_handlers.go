package presentation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"

	"github.com/yskcmr/resona/internal/bot"
	"github.com/yskcmr/resona/internal/modules/music_player/application/ports"
	"github.com/yskcmr/resona/internal/modules/music_player/domain"
	"github.com/yskcmr/resona/internal/modules/music_player/engine"
	"github.com/yskcmr/resona/internal/modules/music_player/infrastructure"
)

// Embed colors.
const (
	colorSuccess = 0x08c404
	colorInfo    = 0x3498DB
	colorError   = 0xE74C3C
)

// VoiceConnector joins and leaves voice channels on behalf of the player.
type VoiceConnector interface {
	JoinChannel(ctx context.Context, guildID, channelID snowflake.ID) error
	LeaveChannel(ctx context.Context) error
}

// CommandHandlers holds all the slash command handlers.
type CommandHandlers struct {
	player      *engine.Player
	connector   VoiceConnector
	presence    ports.PresenceProvider
	permissions ports.Permissions
	settings    *infrastructure.MemorySettings
	panel       *ControlPanel
	announcer   *Announcer
	guildID     snowflake.ID
}

// NewCommandHandlers creates new CommandHandlers.
func NewCommandHandlers(
	player *engine.Player,
	connector VoiceConnector,
	presence ports.PresenceProvider,
	permissions ports.Permissions,
	settings *infrastructure.MemorySettings,
	panel *ControlPanel,
	announcer *Announcer,
	guildID snowflake.ID,
) *CommandHandlers {
	return &CommandHandlers{
		player:      player,
		connector:   connector,
		presence:    presence,
		permissions: permissions,
		settings:    settings,
		panel:       panel,
		announcer:   announcer,
		guildID:     guildID,
	}
}

// HandlePlay handles the /play command: connect to the requester's voice
// channel, submit the query for resolution, and report what got added
// within a bounded wait.
func (h *CommandHandlers) HandlePlay(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	userID, err := memberID(i)
	if err != nil {
		return respondError(r, "Invalid user")
	}

	channel := h.presence.UserChannel(userID)
	if channel == nil {
		return respondError(r, "You must be in a voice channel.")
	}

	var query string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "query" {
			query = opt.StringValue()
		}
	}
	if strings.TrimSpace(query) == "" {
		return respondError(r, "Missing query")
	}

	ctx := context.Background()
	if err := h.connector.JoinChannel(ctx, h.guildID, *channel); err != nil {
		slog.Error("failed to join voice channel", "channel", *channel, "error", err)
		return respondError(r, "Could not join your voice channel.")
	}
	h.player.BindVoiceChannel(*channel)
	h.announcer.BindChannel(i.ChannelID)

	// Bounded wait so the reply can name what was just queued; degrade to a
	// generic response on timeout.
	add, err := h.player.EnqueueAndWait(ctx, userID, memberName(i),
		[]string{query}, engine.DefaultQueueAddWait)
	if err != nil {
		return respondInfo(r, "Request queued.")
	}

	if add.Playlist {
		return respondInfo(r, fmt.Sprintf("Added **%s** (%d tracks) to the queue.",
			add.Name, add.Added))
	}
	return respondInfo(r, fmt.Sprintf("Added **%s — %s** to the queue.",
		add.Track.Artist, add.Track.Title))
}

// HandleSkip handles the /skip command.
func (h *CommandHandlers) HandleSkip(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return h.gated(i, r, "skip", "Skipped.", func() {
		if err := h.player.Skip(context.Background()); err != nil {
			slog.Warn("skip failed", "error", err)
		}
	})
}

// HandleNext handles the /next command.
func (h *CommandHandlers) HandleNext(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return h.gated(i, r, "next", "Moved to the next track.", func() {
		if err := h.player.Next(context.Background(), true); err != nil {
			slog.Warn("next failed", "error", err)
		}
	})
}

// HandlePrevious handles the /previous command.
func (h *CommandHandlers) HandlePrevious(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return h.gated(i, r, "previous", "Moved to the previous track.", func() {
		if err := h.player.Previous(context.Background()); err != nil {
			slog.Warn("previous failed", "error", err)
		}
	})
}

// HandlePause handles the /pause command.
func (h *CommandHandlers) HandlePause(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return h.gated(i, r, "pause", "Paused.", func() {
		if err := h.player.SetPaused(context.Background(), true); err != nil {
			slog.Warn("pause failed", "error", err)
		}
	})
}

// HandleResume handles the /resume command.
func (h *CommandHandlers) HandleResume(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	// Resuming an idle player restarts playback from the cursor.
	if !h.player.IsPlaying() {
		return h.gated(i, r, "play", "Playing.", func() {
			if err := h.player.Play(context.Background()); err != nil {
				slog.Warn("play failed", "error", err)
			}
		})
	}
	return h.gated(i, r, "pause", "Resumed.", func() {
		if err := h.player.SetPaused(context.Background(), false); err != nil {
			slog.Warn("resume failed", "error", err)
		}
	})
}

// HandleStop handles the /stop command.
func (h *CommandHandlers) HandleStop(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	return h.gated(i, r, "stop", "Stopped and cleared the queue.", func() {
		ctx := context.Background()
		if err := h.player.Stop(ctx); err != nil {
			slog.Warn("stop failed", "error", err)
		}
		if err := h.connector.LeaveChannel(ctx); err != nil {
			slog.Warn("failed to leave voice channel", "error", err)
		}
	})
}

// HandleQueue handles the /queue subcommands.
func (h *CommandHandlers) HandleQueue(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		return respondError(r, "Missing subcommand")
	}

	sub := options[0]
	switch sub.Name {
	case "list":
		page := 1
		for _, opt := range sub.Options {
			if opt.Name == "page" {
				page = int(opt.IntValue())
			}
		}
		return h.respondQueueList(r, page)

	case "remove":
		position := 0
		for _, opt := range sub.Options {
			if opt.Name == "position" {
				position = int(opt.IntValue())
			}
		}
		track, err := h.player.RemoveAt(position - 1)
		if errors.Is(err, engine.ErrInvalidIndex) {
			return respondError(r, "No track at that position.")
		}
		if err != nil {
			return respondError(r, err.Error())
		}
		return respondInfo(r, fmt.Sprintf("Removed **%s** from the queue.", track.Title))

	case "jump":
		position := 0
		for _, opt := range sub.Options {
			if opt.Name == "position" {
				position = int(opt.IntValue())
			}
		}
		action := fmt.Sprintf("jump:%d", position-1)
		return h.gated(i, r, action,
			fmt.Sprintf("Jumped to position %d.", position), func() {
				err := h.player.JumpTo(context.Background(), position-1)
				if errors.Is(err, engine.ErrInvalidIndex) {
					slog.Warn("jump rejected", "position", position)
				} else if err != nil {
					slog.Warn("jump failed", "error", err)
				}
			})

	default:
		return respondError(r, "Unknown subcommand")
	}
}

const queuePageSize = 10

func (h *CommandHandlers) respondQueueList(r bot.Responder, page int) error {
	tracks := h.player.Snapshot()
	if len(tracks) == 0 {
		return respondInfo(r, "The queue is empty.")
	}

	cursor := h.player.Cursor()
	totalPages := (len(tracks) + queuePageSize - 1) / queuePageSize
	if page > totalPages {
		page = totalPages
	}
	start := (page - 1) * queuePageSize
	end := min(start+queuePageSize, len(tracks))

	var sb strings.Builder
	for idx := start; idx < end; idx++ {
		t := tracks[idx]
		marker := "  "
		if idx == cursor {
			marker = "▶ "
		}
		fmt.Fprintf(&sb, "%s`%2d.` **%s** — %s `[%s]`\n",
			marker, idx+1, t.Artist, t.Title, t.FormattedDuration())
	}
	fmt.Fprintf(&sb, "\nPage %d/%d — %d tracks", page, totalPages, len(tracks))

	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{
				{
					Title:       "Queue",
					Description: sb.String(),
					Color:       colorInfo,
				},
			},
		},
	})
}

// HandleMode handles the /mode command.
func (h *CommandHandlers) HandleMode(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	userID, err := memberID(i)
	if err != nil {
		return respondError(r, "Invalid user")
	}

	var modeStr string
	var save bool
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "mode":
			modeStr = opt.StringValue()
		case "save":
			save = opt.BoolValue()
		}
	}
	mode := domain.ParsePlayerMode(modeStr)

	if save {
		h.settings.SavePlayerMode(userID, mode)
	}

	return h.gated(i, r, "mode",
		fmt.Sprintf("Repeat mode set to **%s**.", mode), func() {
			h.player.SetMode(mode)
		})
}

// HandleClaim handles the /claim command.
func (h *CommandHandlers) HandleClaim(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	userID, err := memberID(i)
	if err != nil {
		return respondError(r, "Invalid user")
	}

	if h.presence.UserChannel(userID) == nil {
		return respondError(r, "You must be in a voice channel.")
	}

	switch err := h.player.ClaimOwnership(userID); {
	case errors.Is(err, engine.ErrOwnerStillPresent):
		return respondError(r, "The current owner is still here.")
	case err != nil:
		return respondError(r, err.Error())
	default:
		return respondInfo(r, "You now control the player.")
	}
}

// HandlePanel handles the /panel command.
func (h *CommandHandlers) HandlePanel(
	s *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	if err := h.panel.Post(s, i.ChannelID); err != nil {
		slog.Error("failed to post control panel", "error", err)
		return respondError(r, "Could not post the control panel.")
	}
	return respondInfo(r, "Control panel posted.")
}

// gated runs the action directly for the session owner and privileged users,
// and routes everyone else through the vote gate.
func (h *CommandHandlers) gated(
	i *discordgo.InteractionCreate,
	r bot.Responder,
	action string,
	successMsg string,
	run func(),
) error {
	userID, err := memberID(i)
	if err != nil {
		return respondError(r, "Invalid user")
	}

	if h.player.IsOwner(userID) ||
		h.permissions.HasPermission(userID, infrastructure.PermPlayerControl) {
		run()
		return respondInfo(r, successMsg)
	}

	result, err := h.player.RequestGatedAction(action, userID, run)
	switch {
	case errors.Is(err, engine.ErrVotePending):
		return respondError(r, "A vote for this action is already in progress.")
	case errors.Is(err, engine.ErrNotInVoice):
		return respondError(r, "You must be in a voice channel.")
	case err != nil:
		return respondError(r, err.Error())
	case result == engine.VoteBypassed:
		return respondInfo(r, successMsg)
	default:
		return respondInfo(r, "Vote started — waiting for a majority.")
	}
}

// --- helpers ---

func memberID(i *discordgo.InteractionCreate) (snowflake.ID, error) {
	if i.Member == nil || i.Member.User == nil {
		return 0, fmt.Errorf("interaction has no member")
	}
	return snowflake.Parse(i.Member.User.ID)
}

func memberName(i *discordgo.InteractionCreate) string {
	if i.Member == nil || i.Member.User == nil {
		return ""
	}
	if i.Member.Nick != "" {
		return i.Member.Nick
	}
	if i.Member.User.GlobalName != "" {
		return i.Member.User.GlobalName
	}
	return i.Member.User.Username
}

func respondInfo(r bot.Responder, message string) error {
	return bot.RespondEmbed(r, message, colorSuccess)
}

func respondError(r bot.Responder, message string) error {
	return bot.RespondEmbed(r, message, colorError)
}
