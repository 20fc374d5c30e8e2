package ports

import (
	"context"
)

// TrackResolver turns one query string (URL or search terms) into playable
// track metadata. Resolution may take seconds; callers must not invoke it
// while holding player state locks.
type TrackResolver interface {
	// Resolve looks up tracks for the given query.
	Resolve(ctx context.Context, query string) (*LoadResult, error)
}
