package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/rewind-gg/rewind/internal/match"
	"github.com/rewind-gg/rewind/internal/riot"
	"github.com/rewind-gg/rewind/internal/storage"
)

// defaultFetchConcurrency caps parallel match downloads per run. The riot
// client's retry ladder absorbs rate-limit responses on each download.
const defaultFetchConcurrency = 10

type (
	// matchSource is the slice of the Riot client the ingest stage uses.
	matchSource interface {
		ResolvePUUID(ctx context.Context, h riot.Handle) (string, error)
		ListMatchIDs(ctx context.Context, cluster riot.Cluster, puuid string, year int) ([]string, error)
		GetMatch(ctx context.Context, cluster riot.Cluster, matchID string) (json.RawMessage, error)
	}

	// matchIndex records archived matches for the aggregation stage to walk.
	matchIndex interface {
		Record(ctx context.Context, entry *storage.IndexEntry) error
	}

	// ingestJob is one player season to archive.
	ingestJob struct {
		Handle  riot.Handle
		Cluster riot.Cluster
		Period  string
		Year    int
		Limit   int
	}

	// ingestStats summarizes a completed run.
	ingestStats struct {
		PUUID    string
		Listed   int
		Archived int
		Skipped  int
	}

	// ingestor archives one player's season: raw match documents into the
	// blob store, summary rows into the match index.
	ingestor struct {
		source      matchSource
		archive     *match.Archive
		index       matchIndex
		concurrency int
		logger      *slog.Logger
	}
)

// Compile-time interface check.
var _ matchSource = (*riot.Client)(nil)

// run resolves the player and archives every listed match. A limit keeps
// only the most recent matches, which Riot lists first. The first failing
// match aborts the run; already-archived matches are never refetched, so a
// rerun after a partial failure only downloads the remainder.
func (ing *ingestor) run(ctx context.Context, job ingestJob) (ingestStats, error) {
	stats := ingestStats{}

	puuid, err := ing.source.ResolvePUUID(ctx, job.Handle)
	if err != nil {
		return stats, fmt.Errorf("resolve %s: %w", job.Handle, err)
	}

	stats.PUUID = puuid

	ing.logger.Info("Player resolved",
		"handle", job.Handle.String(),
		"region", job.Handle.Region,
		"cluster", string(job.Cluster),
		"puuid", puuid,
	)

	ids, err := ing.source.ListMatchIDs(ctx, job.Cluster, puuid, job.Year)
	if err != nil {
		return stats, fmt.Errorf("list matches for %s: %w", puuid, err)
	}

	if job.Limit > 0 && len(ids) > job.Limit {
		ids = ids[:job.Limit]
	}

	stats.Listed = len(ids)

	ing.logger.Info("Matches listed",
		"puuid", puuid,
		"period", job.Period,
		"count", len(ids),
	)

	concurrency := ing.concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	var archived, skipped atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, id := range ids {
		g.Go(func() error {
			stored, err := ing.archiveOne(gctx, job, puuid, id)
			if err != nil {
				return err
			}

			if stored {
				archived.Add(1)
			} else {
				skipped.Add(1)
			}

			return nil
		})
	}

	err = g.Wait()

	stats.Archived = int(archived.Load())
	stats.Skipped = int(skipped.Load())

	if err != nil {
		return stats, err
	}

	return stats, nil
}

// archiveOne fetches, indexes, and archives a single match, or returns false
// without touching anything when the match is already archived.
//
// The index row is written before the blob: a crash between the two leaves a
// row pointing at nothing, which the aggregation stage skips and the next
// run repairs (no blob means no skip). The reverse order would strand blobs
// the skip check then hides from the index.
func (ing *ingestor) archiveOne(ctx context.Context, job ingestJob, puuid, matchID string) (bool, error) {
	archived, err := ing.archive.Exists(ctx, puuid, job.Period, matchID)
	if err != nil {
		return false, fmt.Errorf("probe archive for %s: %w", matchID, err)
	}

	if archived {
		ing.logger.Debug("Match already archived", "match_id", matchID)

		return false, nil
	}

	raw, err := ing.source.GetMatch(ctx, job.Cluster, matchID)
	if err != nil {
		return false, fmt.Errorf("fetch %s: %w", matchID, err)
	}

	m, err := match.Decode(raw)
	if err != nil {
		return false, err
	}

	entry := &storage.IndexEntry{
		PUUID:          puuid,
		Period:         job.Period,
		MatchID:        matchID,
		BlobKey:        match.Key(puuid, job.Period, matchID),
		QueueID:        m.Info.QueueID,
		GameCreationMS: m.Info.GameCreation,
	}

	// Summary columns stay empty when the listing returns a match the
	// player somehow does not appear in; the row is still recorded so the
	// archive and the index agree.
	if p := m.ParticipantByPUUID(puuid); p != nil {
		entry.Champion = p.ChampionName
		entry.Role = p.TeamPosition
	}

	if err := ing.index.Record(ctx, entry); err != nil {
		return false, err
	}

	if err := ing.archive.Put(ctx, puuid, job.Period, matchID, raw); err != nil {
		return false, err
	}

	ing.logger.Debug("Match archived",
		"match_id", matchID,
		"queue_id", entry.QueueID,
		"champion", entry.Champion,
	)

	return true, nil
}
