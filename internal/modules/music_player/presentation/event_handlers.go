package presentation

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/yskcmr/resona/internal/modules/music_player/domain"
)

// Announcer posts now-playing and failure notifications to the text channel
// the player was last controlled from. Send failures are logged and dropped.
type Announcer struct {
	mu        sync.Mutex
	session   *discordgo.Session
	channelID string
}

// NewAnnouncer creates a new Announcer.
func NewAnnouncer(session *discordgo.Session) *Announcer {
	return &Announcer{session: session}
}

// BindChannel sets the text channel notifications go to.
func (a *Announcer) BindChannel(channelID string) {
	a.mu.Lock()
	a.channelID = channelID
	a.mu.Unlock()
}

// HandleEvent turns player events into channel messages.
func (a *Announcer) HandleEvent(event domain.Event) {
	switch e := event.(type) {
	case domain.TrackPlayingEvent:
		a.sendEmbed(&discordgo.MessageEmbed{
			Title: "Now Playing",
			Description: fmt.Sprintf("**%s — %s** `[%s]`\nRequested by %s",
				e.Track.Artist, e.Track.Title, e.Track.FormattedDuration(),
				e.Track.RequesterName),
			Color: colorSuccess,
		})

	case domain.NoMatchEvent:
		a.sendEmbed(&discordgo.MessageEmbed{
			Description: fmt.Sprintf("No results for `%s`.", e.Query),
			Color:       colorError,
		})

	case domain.LoadFailedEvent:
		slog.Warn("track load failed", "query", e.Query, "error", e.Err)
		a.sendEmbed(&discordgo.MessageEmbed{
			Description: fmt.Sprintf("Could not load `%s`.", e.Query),
			Color:       colorError,
		})

	case domain.QueueFinishedEvent:
		a.sendEmbed(&discordgo.MessageEmbed{
			Description: "Queue finished.",
			Color:       colorInfo,
		})
	}
}

func (a *Announcer) sendEmbed(embed *discordgo.MessageEmbed) {
	a.mu.Lock()
	s, channelID := a.session, a.channelID
	a.mu.Unlock()

	if s == nil || channelID == "" {
		return
	}

	if _, err := s.ChannelMessageSendEmbed(channelID, embed); err != nil {
		slog.Warn("failed to send player notification", "error", err)
	}
}
