package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/rewind-gg/rewind/internal/blob"
	"github.com/rewind-gg/rewind/internal/match"
	"github.com/rewind-gg/rewind/internal/recap"
	"github.com/rewind-gg/rewind/internal/storage"
)

type fakeLister struct {
	refs []storage.MatchRef
	err  error
}

func (f *fakeLister) List(_ context.Context, _, _ string) ([]storage.MatchRef, error) {
	if f.err != nil {
		return nil, f.err
	}

	return f.refs, nil
}

type failingWriter struct {
	err error
}

func (f *failingWriter) Put(_ context.Context, _ *recap.Document) error {
	return f.err
}

func matchJSON(t *testing.T, matchID, puuid string, win bool) []byte {
	t.Helper()

	doc := map[string]any{
		"metadata": map[string]any{"matchId": matchID},
		"info": map[string]any{
			"gameCreation": 1717200000000,
			"gameDuration": 1800,
			"queueId":      420,
			"participants": []map[string]any{{
				"puuid":        puuid,
				"teamId":       100,
				"win":          win,
				"championName": "Jinx",
				"teamPosition": "BOTTOM",
				"kills":        5,
				"deaths":       2,
				"assists":      7,
			}},
			"teams": []map[string]any{{"teamId": 100, "win": win}},
		},
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal match fixture: %v", err)
	}

	return raw
}

// newTestAggregator builds an aggregator over a temp-dir blob store with a
// real recap store, so assertions can read the written document back.
func newTestAggregator(t *testing.T) (*aggregator, blob.Store, *recap.BlobStore) {
	t.Helper()

	fs, err := blob.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore returned unexpected error: %v", err)
	}

	recaps := recap.NewBlobStore(fs)

	return &aggregator{
		index:   &fakeLister{},
		archive: match.NewArchive(fs),
		recaps:  recaps,
		logger:  slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}, fs, recaps
}

func archiveMatch(t *testing.T, agg *aggregator, puuid, period, matchID string, raw []byte) storage.MatchRef {
	t.Helper()

	if err := agg.archive.Put(context.Background(), puuid, period, matchID, raw); err != nil {
		t.Fatalf("Put returned unexpected error: %v", err)
	}

	return storage.MatchRef{MatchID: matchID, BlobKey: match.Key(puuid, period, matchID)}
}

func TestAggregateWritesDocument(t *testing.T) {
	agg, _, recaps := newTestAggregator(t)

	refs := []storage.MatchRef{
		archiveMatch(t, agg, "P-123", "2024", "NA1_1", matchJSON(t, "NA1_1", "P-123", true)),
		archiveMatch(t, agg, "P-123", "2024", "NA1_2", matchJSON(t, "NA1_2", "P-123", false)),
	}
	agg.index = &fakeLister{refs: refs}

	stats, err := agg.run(context.Background(), aggregateJob{PUUID: "P-123", Period: "2024"})
	if err != nil {
		t.Fatalf("run returned unexpected error: %v", err)
	}

	if stats.Indexed != 2 || stats.Rows != 2 || stats.Skipped != 0 {
		t.Errorf("stats = %+v, want 2 indexed, 2 rows, 0 skipped", stats)
	}

	doc, err := recaps.Get(context.Background(), "P-123", "2024")
	if err != nil {
		t.Fatalf("Get returned unexpected error: %v", err)
	}

	if doc.PUUID != "P-123" || doc.Year != "2024" {
		t.Errorf("document keys = %s/%s, want P-123/2024", doc.PUUID, doc.Year)
	}

	if doc.KPIs.Games != 2 {
		t.Errorf("KPIs.Games = %d, want 2", doc.KPIs.Games)
	}

	if doc.KPIs.Winrate != 0.5 {
		t.Errorf("KPIs.Winrate = %v, want 0.5", doc.KPIs.Winrate)
	}
}

func TestAggregateAppliesLimit(t *testing.T) {
	agg, _, recaps := newTestAggregator(t)

	refs := []storage.MatchRef{
		archiveMatch(t, agg, "P-123", "2024", "NA1_1", matchJSON(t, "NA1_1", "P-123", true)),
		archiveMatch(t, agg, "P-123", "2024", "NA1_2", matchJSON(t, "NA1_2", "P-123", true)),
		archiveMatch(t, agg, "P-123", "2024", "NA1_3", matchJSON(t, "NA1_3", "P-123", true)),
	}
	agg.index = &fakeLister{refs: refs}

	stats, err := agg.run(context.Background(), aggregateJob{PUUID: "P-123", Period: "2024", Limit: 1})
	if err != nil {
		t.Fatalf("run returned unexpected error: %v", err)
	}

	if stats.Indexed != 1 || stats.Rows != 1 {
		t.Errorf("stats = %+v, want 1 indexed, 1 row", stats)
	}

	doc, err := recaps.Get(context.Background(), "P-123", "2024")
	if err != nil {
		t.Fatalf("Get returned unexpected error: %v", err)
	}

	if doc.KPIs.Games != 1 {
		t.Errorf("KPIs.Games = %d, want 1", doc.KPIs.Games)
	}
}

func TestAggregateSkipsUnreadableMatches(t *testing.T) {
	agg, fs, recaps := newTestAggregator(t)
	ctx := context.Background()

	good := archiveMatch(t, agg, "P-123", "2024", "NA1_1", matchJSON(t, "NA1_1", "P-123", true))

	// Indexed but never archived.
	dangling := storage.MatchRef{MatchID: "NA1_2", BlobKey: match.Key("P-123", "2024", "NA1_2")}

	// Archived bytes that are not gzip.
	corruptKey := match.Key("P-123", "2024", "NA1_3")
	if err := fs.Put(ctx, corruptKey, []byte("not gzip")); err != nil {
		t.Fatalf("Put returned unexpected error: %v", err)
	}
	corrupt := storage.MatchRef{MatchID: "NA1_3", BlobKey: corruptKey}

	// Decodes, but the player is not in it.
	foreign := archiveMatch(t, agg, "P-123", "2024", "NA1_4", matchJSON(t, "NA1_4", "P-OTHER", true))

	agg.index = &fakeLister{refs: []storage.MatchRef{good, dangling, corrupt, foreign}}

	stats, err := agg.run(ctx, aggregateJob{PUUID: "P-123", Period: "2024"})
	if err != nil {
		t.Fatalf("run returned unexpected error: %v", err)
	}

	if stats.Indexed != 4 || stats.Rows != 1 || stats.Skipped != 3 {
		t.Errorf("stats = %+v, want 4 indexed, 1 row, 3 skipped", stats)
	}

	doc, err := recaps.Get(ctx, "P-123", "2024")
	if err != nil {
		t.Fatalf("Get returned unexpected error: %v", err)
	}

	if doc.KPIs.Games != 1 {
		t.Errorf("KPIs.Games = %d, want 1", doc.KPIs.Games)
	}
}

func TestAggregateEmptySeasonWritesEmptyDocument(t *testing.T) {
	agg, _, recaps := newTestAggregator(t)

	stats, err := agg.run(context.Background(), aggregateJob{PUUID: "P-123", Period: "2024"})
	if err != nil {
		t.Fatalf("run returned unexpected error: %v", err)
	}

	if stats.Indexed != 0 || stats.Rows != 0 {
		t.Errorf("stats = %+v, want everything zero", stats)
	}

	doc, err := recaps.Get(context.Background(), "P-123", "2024")
	if err != nil {
		t.Fatalf("Get returned unexpected error: %v", err)
	}

	if doc.KPIs.Games != 0 {
		t.Errorf("KPIs.Games = %d, want 0", doc.KPIs.Games)
	}
}

func TestAggregateListFailure(t *testing.T) {
	agg, _, recaps := newTestAggregator(t)
	agg.index = &fakeLister{err: errors.New("postgres down")}

	if _, err := agg.run(context.Background(), aggregateJob{PUUID: "P-123", Period: "2024"}); err == nil {
		t.Fatal("run succeeded despite listing failure")
	}

	if _, err := recaps.Get(context.Background(), "P-123", "2024"); !errors.Is(err, recap.ErrNotFound) {
		t.Errorf("Get error = %v, want ErrNotFound after a failed run", err)
	}
}

func TestAggregateStoreFailure(t *testing.T) {
	agg, _, _ := newTestAggregator(t)
	agg.recaps = &failingWriter{err: errors.New("bucket gone")}

	_, err := agg.run(context.Background(), aggregateJob{PUUID: "P-123", Period: "2024"})
	if err == nil {
		t.Fatal("run succeeded despite store failure")
	}
}
