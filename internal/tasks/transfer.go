package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/playsync/internal/models"
	"golang.org/x/sync/errgroup"
)

// trackRef identifies the track being reported on in status events.
type trackRef struct {
	position int
	total    int
	title    string
	artist   string
}

type searchOutcome struct {
	match Match
	err   error // track-local search failure, including a recovered panic
}

// transfer matches every non-empty entry and writes the matches in source order.
//
// Searches run on an errgroup limited to the configured worker count. Each result lands
// in a per-entry channel and is consumed strictly in source order by this goroutine,
// which alone updates counters, fills batches and emits events. The producer may run at
// most 2*workers entries ahead of the consumer.
func (r *run) transfer(entries []models.PlaylistEntry) error {
	e := r.engine
	matcher := NewMatcher(r.dst, e.candidates, e.cacheSize)
	batchSize := r.dst.BatchSize()
	if batchSize <= 0 {
		batchSize = 1
	}

	denom := 0
	for _, entry := range entries {
		if !entry.Empty() {
			denom++
		}
	}
	r.logger.Info("transferring tracks", "tracks", denom, "skipped", len(entries)-denom, "workers", e.workers)

	ctx, cancel := context.WithCancel(r.ctx)
	results := make([]chan searchOutcome, len(entries))
	for i, entry := range entries {
		if !entry.Empty() {
			results[i] = make(chan searchOutcome, 1)
		}
	}

	ahead := make(chan struct{}, 2*e.workers)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		g := new(errgroup.Group)
		g.SetLimit(e.workers)
	produce:
		for i, entry := range entries {
			if entry.Empty() {
				continue
			}
			select {
			case ahead <- struct{}{}:
			case <-ctx.Done():
				break produce
			}
			out, track := results[i], *entry.Track
			g.Go(func() error {
				out <- r.search(ctx, matcher, track)
				return nil
			})
		}
		_ = g.Wait()
	}()
	defer func() {
		cancel()
		<-finished
	}()

	processed := 0
	for i, entry := range entries {
		if entry.Empty() {
			continue
		}
		if err := r.ctx.Err(); err != nil {
			return err
		}

		var out searchOutcome
		select {
		case out = <-results[i]:
			<-ahead
		case <-r.ctx.Done():
			return r.ctx.Err()
		}
		if err := r.ctx.Err(); err != nil {
			return err
		}

		processed++
		ref := &trackRef{position: i + 1, total: len(entries), title: entry.Track.Title, artist: entry.Track.Artist}
		r.emit(syncingEvent(ref, percentCreate+float64(processed)/float64(denom)*transferSpan))
		r.record(ref, out)

		if len(r.pending) >= batchSize {
			r.flush()
		}
		if e.persistEvery > 0 && processed%e.persistEvery == 0 {
			r.persistProgress()
		}
	}

	if err := r.ctx.Err(); err != nil {
		return err
	}
	r.flush()
	return nil
}

// search runs one lookup. A panic in the matcher counts as a failed search for this track only.
func (r *run) search(ctx context.Context, m *Matcher, t models.Track) (out searchOutcome) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("recovered panic while matching", "title", t.Title, "panic", rec)
			out = searchOutcome{match: Match{Query: BuildQuery(t)}, err: fmt.Errorf("panic while matching %q: %v", t.Title, rec)}
		}
	}()
	out.match, out.err = m.Match(ctx, t)
	return out
}

// record applies one outcome to the job counters and reports it.
func (r *run) record(ref *trackRef, out searchOutcome) {
	direction := string(r.spec.Direction)
	switch {
	case out.err != nil:
		r.job.TracksFailed++
		r.logger.Debug("search failed", "title", ref.title, "query", out.match.Query, "error", out.err)
		r.engine.observer.TrackProcessed(direction, ResultError)
		r.emit(searchErrorEvent(ref.title, out.err))
	case !out.match.Found:
		r.job.TracksFailed++
		r.logger.Debug("no match", "title", ref.title, "query", out.match.Query)
		r.engine.observer.TrackProcessed(direction, ResultNotFound)
		r.emit(notFoundEvent(ref.title))
	default:
		r.job.TracksSynced++
		r.pending = append(r.pending, out.match.ID)
		r.engine.observer.TrackProcessed(direction, ResultSynced)
		r.emit(matchedEvent(ref.title, out.match.Track.Title))
	}
}

// flush writes the pending batch. A failed write is reported and its items are dropped.
func (r *run) flush() {
	if len(r.pending) == 0 {
		return
	}
	ids := r.pending
	r.pending = nil

	if err := r.dst.AddItems(r.ctx, r.job.DestinationID, ids); err != nil {
		r.logger.Warn("failed to add tracks", "count", len(ids), "playlist_id", r.job.DestinationID, "error", err)
		r.emit(flushFailedEvent(len(ids), err))
		return
	}
	r.logger.Debug("added tracks", "count", len(ids))
}

func (r *run) persistProgress() {
	if err := r.engine.store.UpdateJob(r.ctx, r.job); err != nil {
		r.logger.Warn("failed to save progress", "synced", r.job.TracksSynced, "failed", r.job.TracksFailed, "error", err)
	}
}
