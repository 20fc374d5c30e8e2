package presentation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/yskcmr/resona/internal/bot"
	"github.com/yskcmr/resona/internal/modules/music_player/application/ports"
)

const (
	autocompleteTimeout    = 2500 * time.Millisecond
	autocompleteMaxChoices = 10
	autocompleteMinQuery   = 3
)

// AutocompleteHandlers serves search suggestions for the /play query option.
type AutocompleteHandlers struct {
	resolver ports.TrackResolver
}

// NewAutocompleteHandlers creates new AutocompleteHandlers.
func NewAutocompleteHandlers(resolver ports.TrackResolver) *AutocompleteHandlers {
	return &AutocompleteHandlers{resolver: resolver}
}

// HandlePlay resolves the partial query into up to ten track suggestions.
// URLs and short fragments get no suggestions rather than a failed lookup.
func (h *AutocompleteHandlers) HandlePlay(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	var query string
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "query" && opt.Focused {
			query = opt.StringValue()
		}
	}

	query = strings.TrimSpace(query)
	if len(query) < autocompleteMinQuery || strings.HasPrefix(query, "http") {
		return respondChoices(r, nil)
	}

	ctx, cancel := context.WithTimeout(context.Background(), autocompleteTimeout)
	defer cancel()

	result, err := h.resolver.Resolve(ctx, "ytsearch:"+query)
	if err != nil {
		slog.Debug("autocomplete lookup failed", "query", query, "error", err)
		return respondChoices(r, nil)
	}

	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, autocompleteMaxChoices)
	for _, info := range result.Tracks {
		if len(choices) == autocompleteMaxChoices {
			break
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  truncateChoice(fmt.Sprintf("%s — %s", info.Artist, info.Title)),
			Value: info.URI,
		})
	}

	return respondChoices(r, choices)
}

// Discord caps choice names at 100 characters.
func truncateChoice(name string) string {
	const limit = 100
	runes := []rune(name)
	if len(runes) <= limit {
		return name
	}
	return string(runes[:limit-1]) + "…"
}

func respondChoices(
	r bot.Responder,
	choices []*discordgo.ApplicationCommandOptionChoice,
) error {
	return r.Respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionApplicationCommandAutocompleteResult,
		Data: &discordgo.InteractionResponseData{
			Choices: choices,
		},
	})
}
