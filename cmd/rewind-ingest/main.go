// Package main provides the Rewind ingestion stage.
//
// rewind-ingest is dispatched by the recap pipeline as
//
//	rewind-ingest <handle> <region> <period> [limit]
//
// It resolves the handle to a PUUID, lists the period's matches on the
// player's routing cluster, and archives each one: the raw document goes
// gzip-compressed into the blob store and a summary row into the PostgreSQL
// match index. Already-archived matches are skipped, so rerunning a failed
// ingest fetches only the remainder.
//
// All logging goes to stderr. The dispatcher discards stage stdout and keeps
// a stderr tail for diagnostics.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/rewind-gg/rewind/internal/blob"
	"github.com/rewind-gg/rewind/internal/config"
	"github.com/rewind-gg/rewind/internal/match"
	"github.com/rewind-gg/rewind/internal/recap"
	"github.com/rewind-gg/rewind/internal/riot"
	"github.com/rewind-gg/rewind/internal/storage"
)

// Version information.
const (
	version = "0.1.0-dev"
	name    = "rewind-ingest"
)

func main() {
	versionFlag := flag.Bool("version", false, "show version information")
	flag.Parse()

	if *versionFlag {
		log.Printf("%s v%s\n", name, version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) < 3 || len(args) > 4 {
		fmt.Fprintf(os.Stderr, "usage: %s <handle> <region> <period> [limit]\n", name)
		os.Exit(2)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.GetEnvLogLevel("LOG_LEVEL", slog.LevelInfo),
	}))

	limit := 0

	if len(args) == 4 {
		parsed, err := strconv.Atoi(args[3])
		if err != nil || parsed < 0 {
			fmt.Fprintf(os.Stderr, "%s: limit must be a non-negative integer, got %q\n", name, args[3])
			os.Exit(2)
		}

		limit = parsed
	}

	handle, err := riot.ParseHandle(args[0], args[1])
	if err != nil {
		logger.Error("Invalid handle", slog.String("handle", args[0]), slog.String("error", err.Error()))
		os.Exit(2)
	}

	year, err := recap.ParsePeriod(args[2])
	if err != nil {
		logger.Error("Invalid period", slog.String("period", args[2]), slog.String("error", err.Error()))
		os.Exit(2)
	}

	// The normalized period string keys blobs and index rows.
	period := strconv.Itoa(year)

	startTime := time.Now()

	logger.Info("Starting ingest",
		slog.String("service", name),
		slog.String("version", version),
		slog.String("handle", handle.String()),
		slog.String("region", handle.Region),
		slog.String("period", period),
		slog.Int("limit", limit),
	)

	aliases, err := riot.LoadAliasConfigFromEnv()
	if err != nil {
		logger.Error("Failed to load region aliases", slog.String("error", err.Error()))
		os.Exit(1)
	}

	client, err := riot.NewClient(riot.LoadClientConfig(),
		riot.WithAliases(aliases),
		riot.WithLogger(logger),
	)
	if err != nil {
		logger.Error("Failed to create riot client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	storageConfig := storage.LoadConfig()

	conn, err := storage.NewConnection(storageConfig)
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL",
			slog.String("database_url", storageConfig.MaskDatabaseURL()),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	defer func() {
		_ = conn.Close()
	}()

	ctx := context.Background()

	blobConfig := blob.LoadConfig()

	store, err := blob.BuildStore(ctx, blobConfig)
	if err != nil {
		logger.Error("Failed to build blob store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ing := &ingestor{
		source:      client,
		archive:     match.NewArchive(store),
		index:       storage.NewMatchIndex(conn),
		concurrency: config.GetEnvInt("FETCH_CONCURRENCY", defaultFetchConcurrency),
		logger:      logger,
	}

	stats, err := ing.run(ctx, ingestJob{
		Handle:  handle,
		Cluster: riot.ClusterForRegion(aliases.Canonical(handle.Region)),
		Period:  period,
		Year:    year,
		Limit:   limit,
	})
	if err != nil {
		logger.Error("Ingest failed",
			slog.String("handle", handle.String()),
			slog.String("period", period),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	logger.Info("Ingest complete",
		slog.String("puuid", stats.PUUID),
		slog.String("period", period),
		slog.Int("listed", stats.Listed),
		slog.Int("archived", stats.Archived),
		slog.Int("skipped", stats.Skipped),
		slog.Duration("duration", time.Since(startTime)),
	)
}
