package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/yskcmr/resona/internal/modules/music_player/application/ports"
	"github.com/yskcmr/resona/internal/modules/music_player/domain"
)

const (
	// defaultResolveTimeout bounds a single external lookup.
	defaultResolveTimeout = 15 * time.Second

	// resolveJobBuffer is the submission buffer; requests beyond it are
	// dropped with a warning rather than blocking the caller.
	resolveJobBuffer = 64
)

// OutcomeHandler receives resolution outcomes, one per query, in submission
// order. The Player implements this to append resolved tracks to the queue.
type OutcomeHandler interface {
	HandleTrackResolved(track *domain.Track)
	HandlePlaylistResolved(name string, tracks []*domain.Track)
	HandleNoMatch(query string)
	HandleResolveFailed(query string, err error)
}

type resolveJob struct {
	requesterID   snowflake.ID
	requesterName string
	queries       []string
}

// Resolver runs the resolution pipeline: queries are resolved strictly
// sequentially on a single worker goroutine, so query i+1 starts only after
// query i completed, and a failed query never aborts the rest of its batch.
type Resolver struct {
	provider ports.TrackResolver
	handler  OutcomeHandler
	timeout  time.Duration

	jobs      chan resolveJob
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewResolver creates a Resolver and starts its worker goroutine.
func NewResolver(provider ports.TrackResolver, handler OutcomeHandler) *Resolver {
	ctx, cancel := context.WithCancel(context.Background())

	r := &Resolver{
		provider: provider,
		handler:  handler,
		timeout:  defaultResolveTimeout,
		jobs:     make(chan resolveJob, resolveJobBuffer),
		ctx:      ctx,
		cancel:   cancel,
	}

	r.wg.Add(1)
	go r.run()

	return r
}

// Submit enqueues a batch of queries for sequential resolution on behalf of
// the given requester. It never blocks: when the submission buffer is full
// the batch is dropped with a warning.
func (r *Resolver) Submit(requesterID snowflake.ID, requesterName string, queries []string) {
	if len(queries) == 0 {
		return
	}

	job := resolveJob{
		requesterID:   requesterID,
		requesterName: requesterName,
		queries:       queries,
	}

	select {
	case r.jobs <- job:
		slog.Debug("submitted resolve batch", "requester", requesterID, "queries", len(queries))
	default:
		slog.Warn("resolve buffer full, dropping batch",
			"requester", requesterID, "queries", len(queries))
	}
}

// Close stops the worker. Pending batches are discarded.
func (r *Resolver) Close() {
	r.closeOnce.Do(func() {
		r.cancel()
		r.wg.Wait()
	})
}

func (r *Resolver) run() {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case job := <-r.jobs:
			r.resolveBatch(job)
		}
	}
}

func (r *Resolver) resolveBatch(job resolveJob) {
	for _, query := range job.queries {
		select {
		case <-r.ctx.Done():
			return
		default:
		}
		r.resolveOne(job, query)
	}
}

func (r *Resolver) resolveOne(job resolveJob, query string) {
	ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
	defer cancel()

	result, err := r.provider.Resolve(ctx, query)
	if err != nil {
		slog.Warn("failed to resolve query", "query", query, "error", err)
		r.handler.HandleResolveFailed(query, err)
		return
	}

	switch result.Type {
	case ports.LoadTypeTrack:
		if len(result.Tracks) == 0 {
			r.handler.HandleNoMatch(query)
			return
		}
		r.handler.HandleTrackResolved(r.newTrack(job, result.Tracks[0]))

	case ports.LoadTypeSearch:
		// A search resolves to its best match.
		if len(result.Tracks) == 0 {
			r.handler.HandleNoMatch(query)
			return
		}
		r.handler.HandleTrackResolved(r.newTrack(job, result.Tracks[0]))

	case ports.LoadTypePlaylist:
		tracks := make([]*domain.Track, 0, len(result.Tracks))
		for _, info := range result.Tracks {
			tracks = append(tracks, r.newTrack(job, info))
		}
		r.handler.HandlePlaylistResolved(result.PlaylistName, tracks)

	case ports.LoadTypeEmpty:
		r.handler.HandleNoMatch(query)

	case ports.LoadTypeError:
		r.handler.HandleResolveFailed(query, ErrLoadFailed)

	default:
		r.handler.HandleNoMatch(query)
	}
}

func (r *Resolver) newTrack(job resolveJob, info *ports.TrackInfo) *domain.Track {
	return domain.NewTrack(
		domain.TrackID(info.Identifier),
		info.Encoded,
		info.Title,
		info.Artist,
		info.Duration,
		info.URI,
		info.ArtworkURL,
		info.SourceName,
		info.IsStream,
		job.requesterID,
		job.requesterName,
	)
}
