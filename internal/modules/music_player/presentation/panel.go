package presentation

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/yskcmr/resona/internal/modules/music_player/domain"
	"github.com/yskcmr/resona/internal/modules/music_player/engine"
)

// Component custom IDs. Vote ballots append the vote instance ID.
const (
	ComponentPrevious  = "music:previous"
	ComponentPlayPause = "music:playpause"
	ComponentNext      = "music:next"
	ComponentSkip      = "music:skip"
	ComponentStop      = "music:stop"
	ComponentMode      = "music:mode"
	ComponentJump      = "music:jump"
	componentVote      = "music:vote:"
)

// Discord caps select menus at 25 options.
const jumpSelectLimit = 25

// ControlPanel renders a live player status message with control buttons and
// posts ballot messages for pending votes. Rendering failures are logged and
// otherwise ignored so the engine never stalls on Discord errors.
type ControlPanel struct {
	player *engine.Player

	mu        sync.Mutex
	session   *discordgo.Session
	channelID string
	messageID string
}

// NewControlPanel creates a new ControlPanel.
func NewControlPanel(player *engine.Player) *ControlPanel {
	return &ControlPanel{player: player}
}

// Post sends a fresh panel message to the given channel, replacing any
// previously posted panel.
func (p *ControlPanel) Post(s *discordgo.Session, channelID string) error {
	embed, components := p.render()

	msg, err := s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: components,
	})
	if err != nil {
		return fmt.Errorf("failed to send panel message: %w", err)
	}

	p.mu.Lock()
	p.session = s
	p.channelID = channelID
	p.messageID = msg.ID
	p.mu.Unlock()

	return nil
}

// HandleEvent refreshes the panel when the player state changes.
func (p *ControlPanel) HandleEvent(event domain.Event) {
	switch event.(type) {
	case domain.TrackPlayingEvent,
		domain.TrackEndedEvent,
		domain.TrackQueuedEvent,
		domain.PlaylistQueuedEvent,
		domain.ModeChangedEvent,
		domain.QueueFinishedEvent:
		p.refresh()
	}
}

func (p *ControlPanel) refresh() {
	p.mu.Lock()
	s, channelID, messageID := p.session, p.channelID, p.messageID
	p.mu.Unlock()

	if s == nil || messageID == "" {
		return
	}

	embed, components := p.render()
	_, err := s.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    channelID,
		ID:         messageID,
		Embeds:     &[]*discordgo.MessageEmbed{embed},
		Components: &components,
	})
	if err != nil {
		slog.Warn("failed to refresh control panel", "error", err)
	}
}

func (p *ControlPanel) render() (*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	embed := &discordgo.MessageEmbed{
		Title: "Player",
		Color: colorInfo,
	}

	current := p.player.Current()
	if current == nil || !p.player.IsPlaying() {
		embed.Description = "Nothing is playing."
	} else {
		var sb strings.Builder
		fmt.Fprintf(&sb, "**%s — %s** `[%s]`\n", current.Artist, current.Title,
			current.FormattedDuration())
		fmt.Fprintf(&sb, "Requested by %s\n", current.RequesterName)
		embed.Description = sb.String()
		if current.ArtworkURL != "" {
			embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: current.ArtworkURL}
		}
	}

	embed.Footer = &discordgo.MessageEmbedFooter{
		Text: fmt.Sprintf("%d tracks in queue | repeat: %s",
			len(p.player.Snapshot()), p.player.Mode()),
	}

	playPauseLabel := "Pause"
	if p.player.IsPaused() {
		playPauseLabel = "Resume"
	}

	components := []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					CustomID: ComponentPrevious,
					Label:    "Prev",
					Style:    discordgo.SecondaryButton,
				},
				discordgo.Button{
					CustomID: ComponentPlayPause,
					Label:    playPauseLabel,
					Style:    discordgo.PrimaryButton,
				},
				discordgo.Button{
					CustomID: ComponentNext,
					Label:    "Next",
					Style:    discordgo.SecondaryButton,
				},
				discordgo.Button{
					CustomID: ComponentSkip,
					Label:    "Skip",
					Style:    discordgo.SecondaryButton,
				},
				discordgo.Button{
					CustomID: ComponentStop,
					Label:    "Stop",
					Style:    discordgo.DangerButton,
				},
			},
		},
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					CustomID: ComponentMode,
					Label:    "Mode: " + p.player.Mode().String(),
					Style:    discordgo.SecondaryButton,
				},
			},
		},
	}

	if options := p.jumpOptions(); len(options) > 0 {
		components = append(components, discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.SelectMenu{
					CustomID:    ComponentJump,
					Placeholder: "Jump to a track",
					Options:     options,
				},
			},
		})
	}

	return embed, components
}

func (p *ControlPanel) jumpOptions() []discordgo.SelectMenuOption {
	tracks := p.player.Snapshot()
	cursor := p.player.Cursor()

	options := make([]discordgo.SelectMenuOption, 0, min(len(tracks), jumpSelectLimit))
	for i, t := range tracks {
		if i == jumpSelectLimit {
			break
		}
		options = append(options, discordgo.SelectMenuOption{
			Label:       truncateChoice(fmt.Sprintf("%d. %s — %s", i+1, t.Artist, t.Title)),
			Value:       strconv.Itoa(i),
			Default:     i == cursor,
			Description: t.FormattedDuration(),
		})
	}
	return options
}

// VoteHooks returns hooks that announce vote lifecycle transitions in the
// panel's channel.
func (p *ControlPanel) VoteHooks() engine.VoteHooks {
	return engine.VoteHooks{
		OnOpened:  p.announceVote,
		OnExpired: p.announceExpiry,
	}
}

func (p *ControlPanel) announceVote(status engine.VoteStatus) {
	p.mu.Lock()
	s, channelID := p.session, p.channelID
	p.mu.Unlock()

	if s == nil || channelID == "" {
		return
	}

	_, err := s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{
			{
				Description: fmt.Sprintf(
					"Vote to **%s**: %d/%d votes. Expires <t:%d:R>.",
					status.Action, status.Ballots, status.PoolSize,
					status.Deadline.Unix()),
				Color: colorInfo,
			},
		},
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.Button{
						CustomID: componentVote + status.ID,
						Label:    "Vote yes",
						Style:    discordgo.SuccessButton,
					},
				},
			},
		},
	})
	if err != nil {
		slog.Warn("failed to announce vote", "action", status.Action, "error", err)
	}
}

func (p *ControlPanel) announceExpiry(status engine.VoteStatus) {
	p.mu.Lock()
	s, channelID := p.session, p.channelID
	p.mu.Unlock()

	if s == nil || channelID == "" {
		return
	}

	_, err := s.ChannelMessageSend(channelID, fmt.Sprintf(
		"Vote to **%s** expired with %d/%d votes.",
		status.Action, status.Ballots, status.PoolSize))
	if err != nil {
		slog.Warn("failed to announce vote expiry", "action", status.Action, "error", err)
	}
}
