package main

import (
	"reflect"
	"strings"
	"testing"
	"testing/fstest"
)

// setOf builds a migration set over an in-memory file system.
func setOf(files map[string]string) (*MigrationSet, fstest.MapFS) {
	fsys := fstest.MapFS{}
	for name, content := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(content)}
	}

	return newMigrationSetFS(fsys), fsys
}

func pairedSet() map[string]string {
	return map[string]string{
		"001_create_things.up.sql":   "CREATE TABLE things (id INT);",
		"001_create_things.down.sql": "DROP TABLE things;",
		"002_add_column.up.sql":      "ALTER TABLE things ADD COLUMN name TEXT;",
		"002_add_column.down.sql":    "ALTER TABLE things DROP COLUMN name;",
	}
}

func TestEmbeddedSetIsValid(t *testing.T) {
	set := NewMigrationSet()

	if err := set.Validate(); err != nil {
		t.Fatalf("Validate returned unexpected error: %v", err)
	}

	files, err := set.Files()
	if err != nil {
		t.Fatalf("Files returned unexpected error: %v", err)
	}

	want := []string{
		"001_create_match_archive.down.sql",
		"001_create_match_archive.up.sql",
	}

	if !reflect.DeepEqual(files, want) {
		t.Errorf("Files = %v, want %v", files, want)
	}
}

func TestFilesIgnoresNonMigrationEntries(t *testing.T) {
	set, _ := setOf(map[string]string{
		"001_create_things.up.sql":   "CREATE TABLE things (id INT);",
		"001_create_things.down.sql": "DROP TABLE things;",
		"README.md":                  "not a migration",
		"notes.txt":                  "also not",
	})

	files, err := set.Files()
	if err != nil {
		t.Fatalf("Files returned unexpected error: %v", err)
	}

	want := []string{"001_create_things.down.sql", "001_create_things.up.sql"}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("Files = %v, want %v", files, want)
	}
}

func TestValidateAcceptsWellFormedSet(t *testing.T) {
	set, _ := setOf(pairedSet())

	if err := set.Validate(); err != nil {
		t.Errorf("Validate returned unexpected error: %v", err)
	}
}

func TestValidateRejectsEmptySet(t *testing.T) {
	set, _ := setOf(nil)

	if err := set.Validate(); err == nil {
		t.Error("Validate accepted an empty set")
	}
}

func TestValidateRejectsMalformedFilename(t *testing.T) {
	files := pairedSet()
	files["3_bad_name.up.sql"] = "SELECT 1;"

	set, _ := setOf(files)

	err := set.Validate()
	if err == nil {
		t.Fatal("Validate accepted a malformed filename")
	}

	if !strings.Contains(err.Error(), "3_bad_name.up.sql") {
		t.Errorf("error %q does not name the offending file", err)
	}
}

func TestValidateRejectsUnpairedMigrations(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		wantErr string
	}{
		{
			name: "missing down",
			files: map[string]string{
				"001_create_things.up.sql": "CREATE TABLE things (id INT);",
			},
			wantErr: "missing down migration",
		},
		{
			name: "missing up",
			files: map[string]string{
				"001_create_things.down.sql": "DROP TABLE things;",
			},
			wantErr: "missing up migration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set, _ := setOf(tt.files)

			err := set.Validate()
			if err == nil {
				t.Fatal("Validate accepted an unpaired migration")
			}

			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateRejectsSequenceGap(t *testing.T) {
	files := pairedSet()
	files["004_too_far.up.sql"] = "SELECT 1;"
	files["004_too_far.down.sql"] = "SELECT 1;"

	set, _ := setOf(files)

	err := set.Validate()
	if err == nil {
		t.Fatal("Validate accepted a sequence gap")
	}

	if !strings.Contains(err.Error(), "gap in migration sequence") {
		t.Errorf("error = %q, want a sequence gap complaint", err)
	}
}

func TestValidateRejectsSequenceNotStartingAtOne(t *testing.T) {
	set, _ := setOf(map[string]string{
		"002_add_column.up.sql":   "SELECT 1;",
		"002_add_column.down.sql": "SELECT 1;",
	})

	err := set.Validate()
	if err == nil {
		t.Fatal("Validate accepted a sequence starting past 001")
	}

	if !strings.Contains(err.Error(), "start with 001") {
		t.Errorf("error = %q, want a sequence start complaint", err)
	}
}

func TestValidateDetectsModifiedContent(t *testing.T) {
	set, fsys := setOf(pairedSet())

	if err := set.Validate(); err != nil {
		t.Fatalf("first Validate returned unexpected error: %v", err)
	}

	fsys["001_create_things.up.sql"].Data = []byte("CREATE TABLE tampered (id INT);")

	err := set.Validate()
	if err == nil {
		t.Fatal("Validate accepted modified content")
	}

	if !strings.Contains(err.Error(), "checksum mismatch") {
		t.Errorf("error = %q, want a checksum complaint", err)
	}
}

func TestValidateIsRepeatable(t *testing.T) {
	set, _ := setOf(pairedSet())

	for i := 0; i < 3; i++ {
		if err := set.Validate(); err != nil {
			t.Fatalf("Validate run %d returned unexpected error: %v", i+1, err)
		}
	}
}

func TestLatestSequence(t *testing.T) {
	set, _ := setOf(pairedSet())

	latest, err := set.LatestSequence()
	if err != nil {
		t.Fatalf("LatestSequence returned unexpected error: %v", err)
	}

	if latest != 2 {
		t.Errorf("LatestSequence = %d, want 2", latest)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename string
		want     *MigrationInfo
	}{
		{
			filename: "001_create_match_archive.up.sql",
			want:     &MigrationInfo{Sequence: 1, Name: "create_match_archive", Direction: "up", Filename: "001_create_match_archive.up.sql"},
		},
		{
			filename: "042_rename_column.down.sql",
			want:     &MigrationInfo{Sequence: 42, Name: "rename_column", Direction: "down", Filename: "042_rename_column.down.sql"},
		},
		{filename: "1_short_sequence.up.sql"},
		{filename: "001_bad-chars.up.sql"},
		{filename: "001_no_direction.sql"},
		{filename: "001_wrong_direction.sideways.sql"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got, err := parseMigrationFilename(tt.filename)

			if tt.want == nil {
				if err == nil {
					t.Fatalf("parseMigrationFilename accepted %q", tt.filename)
				}

				return
			}

			if err != nil {
				t.Fatalf("parseMigrationFilename returned unexpected error: %v", err)
			}

			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseMigrationFilename = %+v, want %+v", got, tt.want)
			}
		})
	}
}
