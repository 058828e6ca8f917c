package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/rewind-gg/rewind/internal/config"
)

// ErrEntryIncomplete is returned when an index entry is missing one of its
// key fields.
var ErrEntryIncomplete = errors.New("match index entry missing puuid, period, match id, or blob key")

type (
	// IndexEntry is one archived match as recorded at ingest time. The
	// summary columns (queue, champion, role, creation time) exist so future
	// listings can filter without opening blobs.
	IndexEntry struct {
		PUUID          string
		Period         string
		MatchID        string
		BlobKey        string
		QueueID        int
		Champion       string
		Role           string
		GameCreationMS int64
	}

	// MatchRef is the subset of an index entry the aggregation stage needs
	// to locate a document.
	MatchRef struct {
		MatchID string
		BlobKey string
	}

	// MatchIndex catalogues archived matches in PostgreSQL, keyed by
	// (puuid, period, match_id).
	MatchIndex struct {
		conn   *Connection
		logger *slog.Logger
	}
)

// NewMatchIndex creates a match index backed by an open connection pool.
func NewMatchIndex(conn *Connection) *MatchIndex {
	return &MatchIndex{
		conn: conn,
		logger: slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: config.GetEnvLogLevel("LOG_LEVEL", slog.LevelInfo),
		})),
	}
}

// Record upserts an index entry. Re-recording the same match is a no-op
// update, which keeps re-ingestion idempotent.
func (s *MatchIndex) Record(ctx context.Context, entry *IndexEntry) error {
	if entry == nil || entry.PUUID == "" || entry.Period == "" || entry.MatchID == "" || entry.BlobKey == "" {
		return ErrEntryIncomplete
	}

	query := `
		INSERT INTO match_archive (puuid, period, match_id, blob_key, queue_id, champion, role, game_creation_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (puuid, period, match_id)
		DO UPDATE SET blob_key = EXCLUDED.blob_key,
		              queue_id = EXCLUDED.queue_id,
		              champion = EXCLUDED.champion,
		              role = EXCLUDED.role,
		              game_creation_ms = EXCLUDED.game_creation_ms
	`

	_, err := s.conn.ExecContext(
		ctx,
		query,
		entry.PUUID,
		entry.Period,
		entry.MatchID,
		entry.BlobKey,
		entry.QueueID,
		entry.Champion,
		entry.Role,
		entry.GameCreationMS,
	)
	if err != nil {
		return fmt.Errorf("failed to record match %s: %w", entry.MatchID, err)
	}

	s.logger.Debug("Match indexed",
		"puuid", entry.PUUID,
		"period", entry.Period,
		"match_id", entry.MatchID,
		"queue_id", entry.QueueID,
	)

	return nil
}

// List returns the archived matches for a player and period, ordered by
// match ID so repeated listings walk documents in the same order.
func (s *MatchIndex) List(ctx context.Context, puuid, period string) ([]MatchRef, error) {
	query := `
		SELECT match_id, blob_key
		FROM match_archive
		WHERE puuid = $1 AND period = $2
		ORDER BY match_id
	`

	rows, err := s.conn.QueryContext(ctx, query, puuid, period)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	refs := []MatchRef{}

	for rows.Next() {
		var ref MatchRef

		if err := rows.Scan(&ref.MatchID, &ref.BlobKey); err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}

		refs = append(refs, ref)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return refs, nil
}

// Count returns how many matches are indexed for a player and period.
func (s *MatchIndex) Count(ctx context.Context, puuid, period string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM match_archive
		WHERE puuid = $1 AND period = $2
	`

	var count int
	if err := s.conn.QueryRowContext(ctx, query, puuid, period).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count matches: %w", err)
	}

	return count, nil
}
