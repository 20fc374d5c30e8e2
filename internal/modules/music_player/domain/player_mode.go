package domain

// PlayerMode represents the repeat mode for queue playback.
type PlayerMode int

const (
	PlayerModeNothing     PlayerMode = iota // Default: play through once
	PlayerModeRepeatOne                     // Repeat current track indefinitely
	PlayerModeRepeatQueue                   // Repeat entire queue when reaching end
)

// String returns a human-readable representation of the mode.
func (m PlayerMode) String() string {
	switch m {
	case PlayerModeRepeatOne:
		return "repeat_one"
	case PlayerModeRepeatQueue:
		return "repeat_queue"
	default:
		return "nothing"
	}
}

// ParsePlayerMode converts a string to a PlayerMode.
func ParsePlayerMode(s string) PlayerMode {
	switch s {
	case "repeat_one":
		return PlayerModeRepeatOne
	case "repeat_queue":
		return PlayerModeRepeatQueue
	default:
		return PlayerModeNothing
	}
}

// Cycle returns the next mode in the Nothing -> RepeatOne -> RepeatQueue cycle.
func (m PlayerMode) Cycle() PlayerMode {
	switch m {
	case PlayerModeNothing:
		return PlayerModeRepeatOne
	case PlayerModeRepeatOne:
		return PlayerModeRepeatQueue
	default:
		return PlayerModeNothing
	}
}
