package main

import (
	"crypto/sha256"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"sort"
	"strconv"
)

// Migration files compile into the binary, so a deployed migrator carries
// its own schema and needs no directory alongside it.
//
//go:embed *.sql
var embeddedMigrations embed.FS

// Migration filenames follow NNN_name.up.sql / NNN_name.down.sql.
var migrationFilenameRegex = regexp.MustCompile(`^(\d{3})_([a-zA-Z0-9_]+)\.(up|down)\.sql$`)

type (
	// MigrationSet is a collection of migration files with validation:
	// naming standard, up/down pairing, gapless sequence, and content
	// checksums across repeated validations.
	MigrationSet struct {
		fsys      fs.FS
		checksums map[string]string
	}

	// MigrationInfo is one parsed migration filename.
	MigrationInfo struct {
		Sequence  int
		Name      string
		Direction string
		Filename  string
	}
)

// NewMigrationSet returns the embedded migration set.
func NewMigrationSet() *MigrationSet {
	return newMigrationSetFS(embeddedMigrations)
}

// NewMigrationSetFromDir returns a migration set backed by a directory, for
// running schema work in progress instead of the embedded files.
func NewMigrationSetFromDir(dir string) *MigrationSet {
	return newMigrationSetFS(os.DirFS(dir))
}

func newMigrationSetFS(fsys fs.FS) *MigrationSet {
	return &MigrationSet{
		fsys:      fsys,
		checksums: make(map[string]string),
	}
}

// FS exposes the underlying files for the migrate source driver.
func (s *MigrationSet) FS() fs.FS {
	return s.fsys
}

// Files lists the migration files in lexicographic order, which the naming
// standard makes the application order. Files that do not conform are left
// out; Validate rejects them.
func (s *MigrationSet) Files() ([]string, error) {
	files, _, err := s.list()

	return files, err
}

// list partitions the set's .sql entries into conforming and rejected
// filenames, both sorted.
func (s *MigrationSet) list() (files, rejected []string, err error) {
	entries, err := fs.ReadDir(s.fsys, ".")
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read migration set: %w", err)
	}

	for _, entry := range entries {
		name := entry.Name()

		if entry.IsDir() || path.Ext(name) != ".sql" {
			continue
		}

		if migrationFilenameRegex.MatchString(name) {
			files = append(files, name)
		} else {
			rejected = append(rejected, name)
		}
	}

	sort.Strings(files)
	sort.Strings(rejected)

	return files, rejected, nil
}

// Validate checks the whole set: every .sql file follows the naming
// standard, every up has a down, sequence numbers start at 001 with no
// gaps, and previously validated content has not changed underneath us.
func (s *MigrationSet) Validate() error {
	files, rejected, err := s.list()
	if err != nil {
		return err
	}

	if len(rejected) > 0 {
		return fmt.Errorf("migration %s does not match NNN_name.(up|down).sql", rejected[0])
	}

	if len(files) == 0 {
		return errors.New("migration set is empty")
	}

	if err := s.validatePairing(files); err != nil {
		return err
	}

	if err := s.validateSequence(files); err != nil {
		return err
	}

	return s.validateChecksums(files)
}

// LatestSequence returns the highest sequence number in the set.
func (s *MigrationSet) LatestSequence() (int, error) {
	files, _, err := s.list()
	if err != nil {
		return 0, err
	}

	latest := 0

	for _, file := range files {
		info, err := parseMigrationFilename(file)
		if err != nil {
			return 0, err
		}

		if info.Sequence > latest {
			latest = info.Sequence
		}
	}

	return latest, nil
}

// parseMigrationFilename splits a conforming filename into its components.
func parseMigrationFilename(filename string) (*MigrationInfo, error) {
	matches := migrationFilenameRegex.FindStringSubmatch(filename)
	if len(matches) != 4 {
		return nil, fmt.Errorf("invalid migration filename %s (expected NNN_name.up.sql or NNN_name.down.sql)", filename)
	}

	sequence, err := strconv.Atoi(matches[1])
	if err != nil {
		return nil, fmt.Errorf("invalid sequence number in %s: %w", filename, err)
	}

	return &MigrationInfo{
		Sequence:  sequence,
		Name:      matches[2],
		Direction: matches[3],
		Filename:  filename,
	}, nil
}

// validatePairing ensures every migration has both directions.
func (s *MigrationSet) validatePairing(files []string) error {
	directions := make(map[string]map[string]bool)

	for _, file := range files {
		info, err := parseMigrationFilename(file)
		if err != nil {
			return err
		}

		key := fmt.Sprintf("%03d_%s", info.Sequence, info.Name)
		if directions[key] == nil {
			directions[key] = make(map[string]bool)
		}

		directions[key][info.Direction] = true
	}

	for key, dirs := range directions {
		if !dirs["up"] {
			return fmt.Errorf("orphaned down migration: missing up migration for %s", key)
		}

		if !dirs["down"] {
			return fmt.Errorf("orphaned up migration: missing down migration for %s", key)
		}
	}

	return nil
}

// validateSequence ensures sequence numbers start at 001 with no gaps.
func (s *MigrationSet) validateSequence(files []string) error {
	seen := make(map[int]bool)

	for _, file := range files {
		info, err := parseMigrationFilename(file)
		if err != nil {
			return err
		}

		seen[info.Sequence] = true
	}

	sequences := make([]int, 0, len(seen))
	for seq := range seen {
		sequences = append(sequences, seq)
	}

	sort.Ints(sequences)

	if sequences[0] != 1 {
		return fmt.Errorf("migration sequence should start with 001, but found %03d", sequences[0])
	}

	for i := 1; i < len(sequences); i++ {
		if sequences[i] != sequences[i-1]+1 {
			return fmt.Errorf("gap in migration sequence: expected %03d, found %03d", sequences[i-1]+1, sequences[i])
		}
	}

	return nil
}

// validateChecksums reads every file, rejects content that changed since a
// previous validation, and records checksums for the next one.
func (s *MigrationSet) validateChecksums(files []string) error {
	for _, file := range files {
		content, err := fs.ReadFile(s.fsys, file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		sum := checksum(content)

		if stored, ok := s.checksums[file]; ok && stored != sum {
			return fmt.Errorf("checksum mismatch for %s: file has been modified", file)
		}

		s.checksums[file] = sum
	}

	return nil
}

// checksum returns the hex-encoded SHA-256 of content.
func checksum(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}
