package storage

import (
	"context"
	"errors"
	"testing"
)

func TestMatchIndexRecordValidation(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	idx := NewMatchIndex(&Connection{})

	tests := []struct {
		name  string
		entry *IndexEntry
	}{
		{name: "nil entry", entry: nil},
		{name: "missing puuid", entry: &IndexEntry{Period: "2024", MatchID: "NA1_1", BlobKey: "k"}},
		{name: "missing period", entry: &IndexEntry{PUUID: "P-1", MatchID: "NA1_1", BlobKey: "k"}},
		{name: "missing match id", entry: &IndexEntry{PUUID: "P-1", Period: "2024", BlobKey: "k"}},
		{name: "missing blob key", entry: &IndexEntry{PUUID: "P-1", Period: "2024", MatchID: "NA1_1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := idx.Record(context.Background(), tt.entry)
			if !errors.Is(err, ErrEntryIncomplete) {
				t.Errorf("Record() error = %v, want ErrEntryIncomplete", err)
			}
		})
	}
}
