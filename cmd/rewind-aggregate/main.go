// Package main provides the Rewind aggregation stage.
//
// rewind-aggregate is dispatched by the recap pipeline as
//
//	rewind-aggregate <identifier> <period> [limit]
//
// It walks the PostgreSQL match index for the player, loads each archived
// match from the blob store, reduces it to a feature row, and writes the
// aggregated KPI document under kpis/{puuid}/{period}.json. The identifier
// is the PUUID the pipeline resolved before dispatching.
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
	"strings"
	"time"

	"github.com/rewind-gg/rewind/internal/blob"
	"github.com/rewind-gg/rewind/internal/config"
	"github.com/rewind-gg/rewind/internal/match"
	"github.com/rewind-gg/rewind/internal/recap"
	"github.com/rewind-gg/rewind/internal/storage"
)

// Version information.
const (
	version = "0.1.0-dev"
	name    = "rewind-aggregate"
)

func main() {
	versionFlag := flag.Bool("version", false, "show version information")
	flag.Parse()

	if *versionFlag {
		log.Printf("%s v%s\n", name, version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) < 2 || len(args) > 3 {
		fmt.Fprintf(os.Stderr, "usage: %s <identifier> <period> [limit]\n", name)
		os.Exit(2)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.GetEnvLogLevel("LOG_LEVEL", slog.LevelInfo),
	}))

	limit := 0

	if len(args) == 3 {
		parsed, err := strconv.Atoi(args[2])
		if err != nil || parsed < 0 {
			fmt.Fprintf(os.Stderr, "%s: limit must be a non-negative integer, got %q\n", name, args[2])
			os.Exit(2)
		}

		limit = parsed
	}

	// PUUIDs are opaque; the only local check is that one was given.
	puuid := strings.TrimSpace(args[0])
	if puuid == "" {
		fmt.Fprintf(os.Stderr, "%s: identifier must not be empty\n", name)
		os.Exit(2)
	}

	year, err := recap.ParsePeriod(args[1])
	if err != nil {
		logger.Error("Invalid period", slog.String("period", args[1]), slog.String("error", err.Error()))
		os.Exit(2)
	}

	// The normalized period string keys blobs and index rows.
	period := strconv.Itoa(year)

	startTime := time.Now()

	logger.Info("Starting aggregation",
		slog.String("service", name),
		slog.String("version", version),
		slog.String("puuid", puuid),
		slog.String("period", period),
		slog.Int("limit", limit),
	)

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

	agg := &aggregator{
		index:   storage.NewMatchIndex(conn),
		archive: match.NewArchive(store),
		recaps:  recap.NewBlobStore(store),
		logger:  logger,
	}

	stats, err := agg.run(ctx, aggregateJob{
		PUUID:  puuid,
		Period: period,
		Limit:  limit,
	})
	if err != nil {
		logger.Error("Aggregation failed",
			slog.String("puuid", puuid),
			slog.String("period", period),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	logger.Info("Aggregation complete",
		slog.String("puuid", puuid),
		slog.String("period", period),
		slog.Int("indexed", stats.Indexed),
		slog.Int("rows", stats.Rows),
		slog.Int("skipped", stats.Skipped),
		slog.Duration("duration", time.Since(startTime)),
	)
}
