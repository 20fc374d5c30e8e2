package music_player

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/yskcmr/resona/internal/bot"
	"github.com/yskcmr/resona/internal/modules/music_player/engine"
	"github.com/yskcmr/resona/internal/modules/music_player/infrastructure"
	"github.com/yskcmr/resona/internal/modules/music_player/presentation"
)

func init() {
	bot.Register(&MusicPlayerModule{})
}

// Compile-time interface checks.
var _ bot.ConfigurableModule = (*MusicPlayerModule)(nil)

// MusicPlayerModule provides voice channel music playback: a resolution
// pipeline, a deduplicating queue, repeat modes, session ownership and vote
// gated controls.
type MusicPlayerModule struct {
	config  *Config
	session *discordgo.Session

	// Built at Ready, once the gateway has identified the bot user.
	mu              sync.RWMutex
	player          *engine.Player
	lavalinkAdapter *infrastructure.LavalinkAdapter
	commandHandlers *presentation.CommandHandlers
	autocomplete    *presentation.AutocompleteHandlers
	readyOnce       sync.Once
}

// Name returns the module name.
func (m *MusicPlayerModule) Name() string {
	return "music_player"
}

// Commands returns the slash commands for this module.
func (m *MusicPlayerModule) Commands() []*discordgo.ApplicationCommand {
	return presentation.Commands()
}

// CommandHandlers returns the command handlers for this module.
func (m *MusicPlayerModule) CommandHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"play":     m.deferred(func(h *presentation.CommandHandlers) bot.InteractionHandler { return h.HandlePlay }),
		"skip":     m.deferred(func(h *presentation.CommandHandlers) bot.InteractionHandler { return h.HandleSkip }),
		"next":     m.deferred(func(h *presentation.CommandHandlers) bot.InteractionHandler { return h.HandleNext }),
		"previous": m.deferred(func(h *presentation.CommandHandlers) bot.InteractionHandler { return h.HandlePrevious }),
		"pause":    m.deferred(func(h *presentation.CommandHandlers) bot.InteractionHandler { return h.HandlePause }),
		"resume":   m.deferred(func(h *presentation.CommandHandlers) bot.InteractionHandler { return h.HandleResume }),
		"stop":     m.deferred(func(h *presentation.CommandHandlers) bot.InteractionHandler { return h.HandleStop }),
		"queue":    m.deferred(func(h *presentation.CommandHandlers) bot.InteractionHandler { return h.HandleQueue }),
		"mode":     m.deferred(func(h *presentation.CommandHandlers) bot.InteractionHandler { return h.HandleMode }),
		"claim":    m.deferred(func(h *presentation.CommandHandlers) bot.InteractionHandler { return h.HandleClaim }),
		"panel":    m.deferred(func(h *presentation.CommandHandlers) bot.InteractionHandler { return h.HandlePanel }),
	}
}

// ComponentHandlers returns the component handlers for this module.
func (m *MusicPlayerModule) ComponentHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"music:": m.deferred(func(h *presentation.CommandHandlers) bot.InteractionHandler { return h.HandleComponent }),
	}
}

// AutocompleteHandlers returns the autocomplete handlers for this module.
func (m *MusicPlayerModule) AutocompleteHandlers() map[string]bot.InteractionHandler {
	return map[string]bot.InteractionHandler{
		"play": func(s *discordgo.Session, i *discordgo.InteractionCreate, r bot.Responder) error {
			m.mu.RLock()
			ac := m.autocomplete
			m.mu.RUnlock()
			if ac == nil {
				return nil
			}
			return ac.HandlePlay(s, i, r)
		},
	}
}

// EventHandlers returns the event handlers for this module.
func (m *MusicPlayerModule) EventHandlers() []bot.EventHandler {
	return []bot.EventHandler{
		func(s *discordgo.Session, _ *discordgo.Ready) {
			m.readyOnce.Do(func() {
				if err := m.wire(s); err != nil {
					slog.Error("failed to wire music_player module", "error", err)
				}
			})
		},
		func(_ *discordgo.Session, event *discordgo.VoiceServerUpdate) {
			if adapter := m.adapter(); adapter != nil {
				adapter.OnVoiceServerUpdate(event)
			}
		},
		func(_ *discordgo.Session, event *discordgo.VoiceStateUpdate) {
			if adapter := m.adapter(); adapter != nil {
				adapter.OnVoiceStateUpdate(event)
			}
		},
	}
}

// LoadConfig loads module-specific configuration from environment variables.
func (m *MusicPlayerModule) LoadConfig() error {
	cfg, err := LoadConfig()
	if err != nil {
		return err
	}
	m.config = cfg
	return nil
}

// Init stores the session. The playback engine is wired on Ready, after the
// gateway has identified the bot user.
func (m *MusicPlayerModule) Init(deps bot.ModuleDependencies) error {
	if deps.Session == nil {
		return fmt.Errorf("music_player module requires a Discord session")
	}
	m.session = deps.Session
	return nil
}

// wire builds the playback engine and its Discord surfaces.
func (m *MusicPlayerModule) wire(s *discordgo.Session) error {
	adapter, err := infrastructure.NewLavalinkAdapter(s, infrastructure.LavalinkConfig{
		Address:  m.config.LavalinkAddress,
		Password: m.config.LavalinkPassword,
	})
	if err != nil {
		return fmt.Errorf("failed to create lavalink adapter: %w", err)
	}

	settings := infrastructure.NewMemorySettings(m.config.DefaultVoteActions)
	presence := infrastructure.NewDiscordPresenceProvider(s, m.config.GuildID)
	permissions := infrastructure.NewDiscordPermissions(s, m.config.GuildID)

	hub := engine.NewHub()

	player := engine.NewPlayer(
		adapter,
		adapter,
		settings,
		presence,
		nil, // vote manager attached below, its hooks need the panel
		hub,
		m.config.QueueCapacity,
	)

	panel := presentation.NewControlPanel(player)
	votes := engine.NewVoteManager(settings, presence, engine.VoteConfig{
		Duration:      m.config.VoteDuration,
		QuorumPercent: m.config.VoteQuorumPercent,
	}, panel.VoteHooks())
	player.AttachVotes(votes)

	adapter.SetSignalHandler(player)

	announcer := presentation.NewAnnouncer(s)
	hub.Subscribe(panel.HandleEvent)
	hub.Subscribe(announcer.HandleEvent)

	handlers := presentation.NewCommandHandlers(
		player,
		adapter,
		presence,
		permissions,
		settings,
		panel,
		announcer,
		m.config.GuildID,
	)
	autocomplete := presentation.NewAutocompleteHandlers(adapter)

	m.mu.Lock()
	m.lavalinkAdapter = adapter
	m.player = player
	m.commandHandlers = handlers
	m.autocomplete = autocomplete
	m.mu.Unlock()

	slog.Info("music_player module wired", "guild", m.config.GuildID)

	return nil
}

func (m *MusicPlayerModule) adapter() *infrastructure.LavalinkAdapter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lavalinkAdapter
}

// deferred wraps a handler lookup so interactions arriving before the module
// is wired get a graceful response instead of a nil dereference.
func (m *MusicPlayerModule) deferred(
	pick func(*presentation.CommandHandlers) bot.InteractionHandler,
) bot.InteractionHandler {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate, r bot.Responder) error {
		m.mu.RLock()
		h := m.commandHandlers
		m.mu.RUnlock()
		if h == nil {
			return r.Respond(&discordgo.InteractionResponse{
				Type: discordgo.InteractionResponseChannelMessageWithSource,
				Data: &discordgo.InteractionResponseData{
					Content: "The player is still starting up, try again in a moment.",
				},
			})
		}
		return pick(h)(s, i, r)
	}
}

// Shutdown cleans up module resources.
func (m *MusicPlayerModule) Shutdown() error {
	m.mu.RLock()
	player, adapter := m.player, m.lavalinkAdapter
	m.mu.RUnlock()

	if player != nil {
		player.Close()
	}
	if adapter != nil {
		adapter.Link().Close()
	}

	return nil
}
