package engine

import "errors"

// Engine errors surfaced to calling layers.
var (
	// ErrInvalidIndex is returned when a jump or removal targets an index
	// outside the queue. No state is mutated.
	ErrInvalidIndex = errors.New("queue index out of range")

	// ErrQueueEmpty is returned when an operation needs a non-empty queue.
	ErrQueueEmpty = errors.New("the queue is empty")

	// ErrNoTrack is returned when no track is currently playing.
	ErrNoTrack = errors.New("nothing is currently playing")

	// ErrOwnerStillPresent is returned when a claim is rejected because the
	// current owner is still in voice.
	ErrOwnerStillPresent = errors.New("session owner is still present")

	// ErrVotePending is returned when a vote for the same action tag is
	// already open.
	ErrVotePending = errors.New("a vote for this action is already pending")

	// ErrVoteClosed is returned when casting a ballot on a vote that has
	// already been resolved.
	ErrVoteClosed = errors.New("the vote has already closed")

	// ErrNotEligible is returned when a ballot comes from a participant
	// outside the eligible pool.
	ErrNotEligible = errors.New("not eligible to vote on this action")

	// ErrAlreadyVoted is returned when a participant casts a second ballot
	// on the same vote.
	ErrAlreadyVoted = errors.New("ballot already cast")

	// ErrLoadFailed is reported when the resolution provider returns an
	// error result for a query.
	ErrLoadFailed = errors.New("failed to load track")

	// ErrNotInVoice is returned when a gated action comes from a requester
	// who is not in any voice channel.
	ErrNotInVoice = errors.New("you must be in a voice channel")
)
