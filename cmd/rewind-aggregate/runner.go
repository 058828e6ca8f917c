package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rewind-gg/rewind/internal/match"
	"github.com/rewind-gg/rewind/internal/recap"
	"github.com/rewind-gg/rewind/internal/storage"
)

type (
	// refLister walks the match index for one player and period.
	refLister interface {
		List(ctx context.Context, puuid, period string) ([]storage.MatchRef, error)
	}

	// recapWriter persists the finished document.
	recapWriter interface {
		Put(ctx context.Context, doc *recap.Document) error
	}

	// aggregateJob is one recap to compute.
	aggregateJob struct {
		PUUID  string
		Period string
		Limit  int
	}

	// aggregateStats summarizes a completed run.
	aggregateStats struct {
		Indexed int
		Rows    int
		Skipped int
	}

	// aggregator folds a player's archived season into a KPI document.
	aggregator struct {
		index   refLister
		archive *match.Archive
		recaps  recapWriter
		logger  *slog.Logger
	}
)

// Compile-time interface checks.
var (
	_ refLister   = (*storage.MatchIndex)(nil)
	_ recapWriter = (*recap.BlobStore)(nil)
)

// run loads every indexed match, reduces each to the player's feature row,
// and writes the aggregated KPI document. Unreadable matches are skipped
// with a warning. A season with zero readable matches still writes an empty
// document: the pipeline reads the document back after this stage, so
// "nothing played" must be distinguishable from "nothing stored".
func (agg *aggregator) run(ctx context.Context, job aggregateJob) (aggregateStats, error) {
	stats := aggregateStats{}

	refs, err := agg.index.List(ctx, job.PUUID, job.Period)
	if err != nil {
		return stats, fmt.Errorf("list archived matches: %w", err)
	}

	if job.Limit > 0 && len(refs) > job.Limit {
		refs = refs[:job.Limit]
	}

	stats.Indexed = len(refs)

	rows := make([]recap.FeatureRow, 0, len(refs))

	for _, ref := range refs {
		row, err := agg.featureRow(ctx, ref, job.PUUID)
		if err != nil {
			stats.Skipped++

			agg.logger.Warn("Skipping unreadable match",
				"match_id", ref.MatchID,
				"blob_key", ref.BlobKey,
				"error", err.Error(),
			)

			continue
		}

		rows = append(rows, *row)
	}

	stats.Rows = len(rows)

	doc := &recap.Document{
		PUUID: job.PUUID,
		Year:  job.Period,
		KPIs:  recap.Aggregate(rows),
	}

	if err := agg.recaps.Put(ctx, doc); err != nil {
		return stats, fmt.Errorf("store recap: %w", err)
	}

	return stats, nil
}

// featureRow loads one archived match and reduces it to the player's row.
func (agg *aggregator) featureRow(ctx context.Context, ref storage.MatchRef, puuid string) (*recap.FeatureRow, error) {
	raw, err := agg.archive.GetByKey(ctx, ref.BlobKey)
	if err != nil {
		return nil, err
	}

	m, err := match.Decode(raw)
	if err != nil {
		return nil, err
	}

	row := recap.BuildFeatureRow(m, puuid)
	if row == nil {
		return nil, fmt.Errorf("player %s not in match %s", puuid, ref.MatchID)
	}

	return row, nil
}
