package presentation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/yskcmr/resona/internal/bot"
	"github.com/yskcmr/resona/internal/modules/music_player/engine"
)

// HandleComponent routes control panel button presses and vote ballots.
func (h *CommandHandlers) HandleComponent(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
	r bot.Responder,
) error {
	customID := i.MessageComponentData().CustomID

	if voteID, ok := strings.CutPrefix(customID, componentVote); ok {
		return h.handleBallot(i, r, voteID)
	}

	switch customID {
	case ComponentPrevious:
		return h.gated(i, r, "previous", "Moved to the previous track.", func() {
			if err := h.player.Previous(context.Background()); err != nil {
				slog.Warn("previous failed", "error", err)
			}
		})

	case ComponentPlayPause:
		if !h.player.IsPlaying() {
			return h.gated(i, r, "play", "Playing.", func() {
				if err := h.player.Play(context.Background()); err != nil {
					slog.Warn("play failed", "error", err)
				}
			})
		}
		paused := !h.player.IsPaused()
		msg := "Paused."
		if !paused {
			msg = "Resumed."
		}
		return h.gated(i, r, "pause", msg, func() {
			if err := h.player.SetPaused(context.Background(), paused); err != nil {
				slog.Warn("pause toggle failed", "error", err)
			}
		})

	case ComponentNext:
		return h.gated(i, r, "next", "Moved to the next track.", func() {
			if err := h.player.Next(context.Background(), true); err != nil {
				slog.Warn("next failed", "error", err)
			}
		})

	case ComponentJump:
		values := i.MessageComponentData().Values
		if len(values) == 0 {
			return respondError(r, "No track selected.")
		}
		index, err := strconv.Atoi(values[0])
		if err != nil {
			return respondError(r, "No track selected.")
		}
		return h.gated(i, r, fmt.Sprintf("jump:%d", index), "Jumped.", func() {
			if err := h.player.JumpTo(context.Background(), index); err != nil {
				slog.Warn("jump failed", "error", err)
			}
		})

	case ComponentSkip:
		return h.gated(i, r, "skip", "Skipped.", func() {
			if err := h.player.Skip(context.Background()); err != nil {
				slog.Warn("skip failed", "error", err)
			}
		})

	case ComponentStop:
		return h.gated(i, r, "stop", "Stopped and cleared the queue.", func() {
			ctx := context.Background()
			if err := h.player.Stop(ctx); err != nil {
				slog.Warn("stop failed", "error", err)
			}
			if err := h.connector.LeaveChannel(ctx); err != nil {
				slog.Warn("failed to leave voice channel", "error", err)
			}
		})

	case ComponentMode:
		next := h.player.Mode().Cycle()
		return h.gated(i, r, "mode",
			"Repeat mode set to **"+next.String()+"**.", func() {
				h.player.SetMode(next)
			})

	default:
		slog.Warn("found no handler for component", "custom_id", customID)
		return respondError(r, "Unknown control.")
	}
}

func (h *CommandHandlers) handleBallot(
	i *discordgo.InteractionCreate,
	r bot.Responder,
	voteID string,
) error {
	userID, err := memberID(i)
	if err != nil {
		return respondError(r, "Invalid user")
	}

	passed, err := h.player.CastBallot(voteID, userID)
	switch {
	case errors.Is(err, engine.ErrVoteClosed):
		return respondError(r, "This vote is no longer open.")
	case errors.Is(err, engine.ErrNotEligible):
		return respondError(r, "Only listeners in the voice channel can vote.")
	case errors.Is(err, engine.ErrAlreadyVoted):
		return respondError(r, "You already voted.")
	case err != nil:
		return respondError(r, err.Error())
	case passed:
		return respondInfo(r, "Vote passed.")
	default:
		return respondInfo(r, "Ballot counted.")
	}
}
