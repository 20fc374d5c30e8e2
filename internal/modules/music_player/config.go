package music_player

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/disgoorg/snowflake/v2"
)

// Config holds the music player configuration loaded from environment
// variables.
type Config struct {
	LavalinkAddress  string `env:"LAVALINK_ADDRESS,notEmpty"`
	LavalinkPassword string `env:"LAVALINK_PASSWORD,notEmpty"`

	GuildID snowflake.ID `env:"GUILD_ID,notEmpty"`

	QueueCapacity      int           `env:"QUEUE_CAPACITY" envDefault:"1028"`
	VoteDuration       time.Duration `env:"VOTE_DURATION" envDefault:"30s"`
	VoteQuorumPercent  int           `env:"VOTE_QUORUM_PERCENT" envDefault:"50"`
	DefaultVoteActions []string      `env:"DEFAULT_VOTE_ACTIONS" envSeparator:"," envDefault:"skip,stop,jump"`
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if cfg.QueueCapacity <= 0 {
		return nil, fmt.Errorf("QUEUE_CAPACITY must be positive, got %d", cfg.QueueCapacity)
	}
	if cfg.VoteQuorumPercent <= 0 || cfg.VoteQuorumPercent >= 100 {
		return nil, fmt.Errorf("VOTE_QUORUM_PERCENT must be in (0, 100), got %d",
			cfg.VoteQuorumPercent)
	}

	return cfg, nil
}
