package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/disgolink/v3/disgolink"
	"github.com/disgoorg/disgolink/v3/lavalink"
	"github.com/disgoorg/snowflake/v2"

	"github.com/yskcmr/resona/internal/modules/music_player/application/ports"
	"github.com/yskcmr/resona/internal/modules/music_player/domain"
)

// voiceConnectTimeout is the maximum wait for a voice connection handshake.
const voiceConnectTimeout = 10 * time.Second

// TrackSignalHandler receives transport start/end signals mapped back to
// stable track identifiers. The engine's Player implements it.
type TrackSignalHandler interface {
	HandleTrackStarted(id domain.TrackID)
	HandleTrackEnded(id domain.TrackID, reason domain.TrackEndReason)
}

// Compile-time checks against the engine ports.
var (
	_ ports.AudioPlayer   = (*LavalinkAdapter)(nil)
	_ ports.TrackResolver = (*LavalinkAdapter)(nil)
)

// voiceHandshake buffers the two gateway events Lavalink needs before a
// voice connection is usable, since Discord may deliver them in any order.
type voiceHandshake struct {
	mu sync.Mutex

	hasState  bool
	channelID *snowflake.ID
	sessionID string

	hasServer bool
	token     string
	endpoint  string

	ready chan struct{}
}

func newVoiceHandshake() *voiceHandshake {
	return &voiceHandshake{ready: make(chan struct{})}
}

func (h *voiceHandshake) setState(channelID *snowflake.ID, sessionID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hasState = true
	h.channelID = channelID
	h.sessionID = sessionID
	return h.complete()
}

func (h *voiceHandshake) setServer(token, endpoint string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hasServer = true
	h.token = token
	h.endpoint = endpoint
	return h.complete()
}

// complete must be called with the mutex held.
func (h *voiceHandshake) complete() bool {
	if h.hasState && h.hasServer {
		select {
		case <-h.ready:
		default:
			close(h.ready)
		}
		return true
	}
	return false
}

// LavalinkAdapter implements the transport and resolution-provider ports on
// top of a Lavalink node via DisGoLink. It serves the single active session:
// the guild it plays into is bound at connect time.
type LavalinkAdapter struct {
	link    disgolink.Client
	session *discordgo.Session
	botID   snowflake.ID

	mu        sync.Mutex
	guildID   snowflake.ID
	handshake *voiceHandshake

	signals TrackSignalHandler
}

// LavalinkConfig contains Lavalink connection configuration.
type LavalinkConfig struct {
	Address  string
	Password string
}

// NewLavalinkAdapter connects to the configured Lavalink node.
func NewLavalinkAdapter(
	session *discordgo.Session,
	config LavalinkConfig,
) (*LavalinkAdapter, error) {
	botID, err := snowflake.Parse(session.State.User.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bot ID: %w", err)
	}

	adapter := &LavalinkAdapter{
		session: session,
		botID:   botID,
	}

	link := disgolink.New(botID,
		disgolink.WithListenerFunc(adapter.onTrackStart),
		disgolink.WithListenerFunc(adapter.onTrackEnd),
		disgolink.WithListenerFunc(adapter.onTrackException),
	)
	adapter.link = link

	node, err := link.AddNode(context.Background(), disgolink.NodeConfig{
		Name:     "main",
		Address:  config.Address,
		Password: config.Password,
		Secure:   false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add Lavalink node: %w", err)
	}

	slog.Info("connected to Lavalink", "node", node.Config().Name, "address", config.Address)

	return adapter, nil
}

// SetSignalHandler wires the engine's transport callbacks. Must be called
// before any playback starts.
func (a *LavalinkAdapter) SetSignalHandler(h TrackSignalHandler) {
	a.signals = h
}

// Link returns the underlying DisGoLink client for shutdown.
func (a *LavalinkAdapter) Link() disgolink.Client {
	return a.link
}

// GuildID returns the guild the adapter currently plays into.
func (a *LavalinkAdapter) GuildID() snowflake.ID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.guildID
}

// JoinChannel connects the bot to a voice channel and binds the adapter to
// that guild. It waits for both voice gateway events before returning.
func (a *LavalinkAdapter) JoinChannel(ctx context.Context, guildID, channelID snowflake.ID) error {
	handshake := newVoiceHandshake()

	a.mu.Lock()
	a.guildID = guildID
	a.handshake = handshake
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.handshake = nil
		a.mu.Unlock()
	}()

	err := a.session.ChannelVoiceJoinManual(guildID.String(), channelID.String(), false, true)
	if err != nil {
		return fmt.Errorf("failed to join voice channel: %w", err)
	}

	select {
	case <-handshake.ready:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("context cancelled while waiting for voice connection: %w", ctx.Err())
	case <-time.After(voiceConnectTimeout):
		return fmt.Errorf("timeout waiting for voice connection")
	}
}

// LeaveChannel destroys the Lavalink player and disconnects from voice.
func (a *LavalinkAdapter) LeaveChannel(ctx context.Context) error {
	a.mu.Lock()
	guildID := a.guildID
	a.guildID = 0
	a.mu.Unlock()

	if guildID == 0 {
		return nil
	}

	if player := a.link.ExistingPlayer(guildID); player != nil {
		if err := player.Destroy(ctx); err != nil {
			slog.Warn("failed to destroy player", "guild", guildID, "error", err)
		}
	}

	if err := a.session.ChannelVoiceJoinManual(guildID.String(), "", false, true); err != nil {
		return fmt.Errorf("failed to leave voice channel: %w", err)
	}
	return nil
}

// Play hands the encoded track to the Lavalink player.
func (a *LavalinkAdapter) Play(ctx context.Context, track *domain.Track) error {
	player := a.link.Player(a.GuildID())

	if err := player.Update(ctx, lavalink.WithEncodedTrack(track.Encoded)); err != nil {
		return fmt.Errorf("failed to play track: %w", err)
	}
	return nil
}

// Stop stops the current playback.
func (a *LavalinkAdapter) Stop(ctx context.Context) error {
	guildID := a.GuildID()
	if guildID == 0 {
		return nil
	}
	player := a.link.Player(guildID)

	if err := player.Update(ctx, lavalink.WithNullTrack()); err != nil {
		return fmt.Errorf("failed to stop playback: %w", err)
	}
	return nil
}

// SetPaused pauses or resumes playback.
func (a *LavalinkAdapter) SetPaused(ctx context.Context, paused bool) error {
	player := a.link.Player(a.GuildID())

	if err := player.Update(ctx, lavalink.WithPaused(paused)); err != nil {
		return fmt.Errorf("failed to set paused state: %w", err)
	}
	return nil
}

// Paused reports the transport paused flag.
func (a *LavalinkAdapter) Paused() bool {
	guildID := a.GuildID()
	if guildID == 0 {
		return false
	}
	player := a.link.ExistingPlayer(guildID)
	if player == nil {
		return false
	}
	return player.Paused()
}

// Resolve looks up tracks for a query on the best available node.
func (a *LavalinkAdapter) Resolve(ctx context.Context, query string) (*ports.LoadResult, error) {
	node := a.link.BestNode()
	if node == nil {
		return nil, fmt.Errorf("no available Lavalink node")
	}

	result, err := node.LoadTracks(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load tracks: %w", err)
	}

	return a.convertLoadResult(result), nil
}

func (a *LavalinkAdapter) convertLoadResult(result *lavalink.LoadResult) *ports.LoadResult {
	switch data := result.Data.(type) {
	case lavalink.Track:
		return &ports.LoadResult{
			Type:   ports.LoadTypeTrack,
			Tracks: []*ports.TrackInfo{convertTrack(data)},
		}

	case lavalink.Playlist:
		tracks := make([]*ports.TrackInfo, len(data.Tracks))
		for i, track := range data.Tracks {
			tracks[i] = convertTrack(track)
		}
		return &ports.LoadResult{
			Type:         ports.LoadTypePlaylist,
			Tracks:       tracks,
			PlaylistName: data.Info.Name,
		}

	case lavalink.Search:
		tracks := make([]*ports.TrackInfo, len(data))
		for i, track := range data {
			tracks[i] = convertTrack(track)
		}
		return &ports.LoadResult{
			Type:   ports.LoadTypeSearch,
			Tracks: tracks,
		}

	case lavalink.Empty:
		return &ports.LoadResult{Type: ports.LoadTypeEmpty}

	case lavalink.Exception:
		return &ports.LoadResult{Type: ports.LoadTypeError}

	default:
		return &ports.LoadResult{Type: ports.LoadTypeEmpty}
	}
}

func convertTrack(track lavalink.Track) *ports.TrackInfo {
	info := track.Info

	artworkURL := ""
	if info.ArtworkURL != nil {
		artworkURL = *info.ArtworkURL
	}

	uri := ""
	if info.URI != nil {
		uri = *info.URI
	}

	return &ports.TrackInfo{
		Identifier: info.Identifier,
		Encoded:    track.Encoded,
		Title:      info.Title,
		Artist:     info.Author,
		Duration:   time.Duration(info.Length) * time.Millisecond,
		URI:        uri,
		ArtworkURL: artworkURL,
		SourceName: info.SourceName,
		IsStream:   info.IsStream,
	}
}

// --- Lavalink listeners ---

func (a *LavalinkAdapter) onTrackStart(_ disgolink.Player, event lavalink.TrackStartEvent) {
	if a.signals == nil {
		return
	}
	a.signals.HandleTrackStarted(domain.TrackID(event.Track.Info.Identifier))
}

func (a *LavalinkAdapter) onTrackEnd(_ disgolink.Player, event lavalink.TrackEndEvent) {
	if a.signals == nil {
		return
	}
	a.signals.HandleTrackEnded(
		domain.TrackID(event.Track.Info.Identifier),
		convertEndReason(event.Reason),
	)
}

func (a *LavalinkAdapter) onTrackException(_ disgolink.Player, event lavalink.TrackExceptionEvent) {
	slog.Warn("track exception",
		"track", event.Track.Info.Identifier, "message", event.Exception.Message)
}

func convertEndReason(reason lavalink.TrackEndReason) domain.TrackEndReason {
	switch reason {
	case lavalink.TrackEndReasonFinished:
		return domain.TrackEndFinished
	case lavalink.TrackEndReasonLoadFailed:
		return domain.TrackEndLoadFailed
	case lavalink.TrackEndReasonStopped:
		return domain.TrackEndStopped
	case lavalink.TrackEndReasonReplaced:
		return domain.TrackEndReplaced
	default:
		return domain.TrackEndCleanup
	}
}

// --- gateway event forwarding ---

// OnVoiceServerUpdate forwards Discord voice server updates to Lavalink.
// Must be registered as a discordgo event handler.
func (a *LavalinkAdapter) OnVoiceServerUpdate(event *discordgo.VoiceServerUpdate) {
	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice server update", "error", err)
		return
	}

	a.mu.Lock()
	handshake := a.handshake
	a.mu.Unlock()

	if handshake != nil && handshake.setServer(event.Token, event.Endpoint) {
		a.forwardHandshake(guildID, handshake)
	}
}

// OnVoiceStateUpdate forwards the bot's own voice state updates to Lavalink.
func (a *LavalinkAdapter) OnVoiceStateUpdate(event *discordgo.VoiceStateUpdate) {
	userID, err := snowflake.Parse(event.UserID)
	if err != nil || userID != a.botID {
		return
	}

	guildID, err := snowflake.Parse(event.GuildID)
	if err != nil {
		slog.Error("failed to parse guild ID in voice state update", "error", err)
		return
	}

	var channelID *snowflake.ID
	if event.ChannelID != "" {
		id, err := snowflake.Parse(event.ChannelID)
		if err == nil {
			channelID = &id
		}
	}

	a.mu.Lock()
	handshake := a.handshake
	a.mu.Unlock()

	if handshake != nil && handshake.setState(channelID, event.SessionID) {
		a.forwardHandshake(guildID, handshake)
	}
}

func (a *LavalinkAdapter) forwardHandshake(guildID snowflake.ID, h *voiceHandshake) {
	h.mu.Lock()
	channelID := h.channelID
	sessionID := h.sessionID
	token := h.token
	endpoint := h.endpoint
	h.mu.Unlock()

	a.link.OnVoiceStateUpdate(context.Background(), guildID, channelID, sessionID)
	a.link.OnVoiceServerUpdate(context.Background(), guildID, token, endpoint)
}
