package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rewind-gg/rewind/internal/config"
	"github.com/rewind-gg/rewind/internal/storage"
)

// Configuration validation errors.
var (
	ErrEmptyDatabaseURL    = errors.New("DATABASE_URL cannot be empty")
	ErrEmptyMigrationTable = errors.New("MIGRATION_TABLE cannot be empty")
	ErrMigrationsPathGone  = errors.New("migrations directory does not exist")
)

// Config holds all configuration for the migration tool.
type Config struct {
	// DatabaseURL is the PostgreSQL connection string.
	DatabaseURL string

	// MigrationsPath optionally points at a directory of migration files to
	// run instead of the embedded set. Empty selects the embedded files.
	MigrationsPath string

	// MigrationTable names the version tracking table.
	MigrationTable string
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		DatabaseURL:    config.GetEnvStr("DATABASE_URL", ""),
		MigrationsPath: config.GetEnvStr("MIGRATIONS_PATH", ""),
		MigrationTable: config.GetEnvStr("MIGRATION_TABLE", "schema_migrations"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration and resolves MigrationsPath to an
// absolute path when one is set.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return ErrEmptyDatabaseURL
	}

	if c.MigrationTable == "" {
		return ErrEmptyMigrationTable
	}

	if c.MigrationsPath != "" {
		absPath, err := filepath.Abs(c.MigrationsPath)
		if err != nil {
			return fmt.Errorf("failed to resolve migrations path: %w", err)
		}

		c.MigrationsPath = absPath

		if _, err := os.Stat(c.MigrationsPath); os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrMigrationsPathGone, c.MigrationsPath)
		}
	}

	return nil
}

// MigrationSet returns the set the configuration selects: a directory when
// MIGRATIONS_PATH is set, the embedded files otherwise.
func (c *Config) MigrationSet() *MigrationSet {
	if c.MigrationsPath != "" {
		return NewMigrationSetFromDir(c.MigrationsPath)
	}

	return NewMigrationSet()
}

// String renders the configuration with credentials masked.
func (c *Config) String() string {
	source := "embedded"
	if c.MigrationsPath != "" {
		source = c.MigrationsPath
	}

	return fmt.Sprintf("Config{DatabaseURL: %s, Migrations: %s, MigrationTable: %s}",
		storage.NewConfig(c.DatabaseURL).MaskDatabaseURL(), source, c.MigrationTable)
}
