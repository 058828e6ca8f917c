// Package main provides the Rewind recap API service.
//
// The service resolves player handles through the Riot account directory,
// dispatches the ingest and aggregate compute stages, and serves the stored
// season recap documents over HTTP.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/rewind-gg/rewind/internal/api"
	"github.com/rewind-gg/rewind/internal/api/middleware"
	"github.com/rewind-gg/rewind/internal/blob"
	"github.com/rewind-gg/rewind/internal/dispatch"
	"github.com/rewind-gg/rewind/internal/events"
	"github.com/rewind-gg/rewind/internal/metrics"
	"github.com/rewind-gg/rewind/internal/pipeline"
	"github.com/rewind-gg/rewind/internal/recap"
	"github.com/rewind-gg/rewind/internal/riot"
)

// Version information.
const (
	version = "0.1.0-dev"
	name    = "rewind"
)

func main() {
	versionFlag := flag.Bool("version", false, "show version information")
	flag.Parse()

	if *versionFlag {
		log.Printf("%s v%s\n", name, version)
		os.Exit(0)
	}

	serverConfig := api.LoadServerConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: serverConfig.LogLevel,
	}))

	logger.Info("Starting Rewind service",
		slog.String("service", name),
		slog.String("version", version),
	)

	logger.Info("Loaded server configuration",
		slog.String("host", serverConfig.Host),
		slog.Int("port", serverConfig.Port),
		slog.Duration("read_timeout", serverConfig.ReadTimeout),
		slog.Duration("write_timeout", serverConfig.WriteTimeout),
		slog.Duration("shutdown_timeout", serverConfig.ShutdownTimeout),
		slog.String("log_level", serverConfig.LogLevel.String()),
	)

	ctx := context.Background()

	metricsManager := metrics.NewManager()

	// Recap documents live in the blob store; the same store backs the
	// readiness probe.
	blobConfig := blob.LoadConfig()

	blobStore, err := blob.BuildStore(ctx, blobConfig)
	if err != nil {
		logger.Error("Failed to build blob store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Blob store initialized", slog.String("backend", blobConfig.Backend))

	recapStore := recap.NewBlobStore(blobStore)

	// Riot client for identity resolution. The stages talk to Riot on
	// their own; this client only serves account-v1 lookups.
	aliases, err := riot.LoadAliasConfigFromEnv()
	if err != nil {
		logger.Error("Failed to load region aliases", slog.String("error", err.Error()))
		os.Exit(1)
	}

	riotClient, err := riot.NewClient(riot.LoadClientConfig(),
		riot.WithAliases(aliases),
		riot.WithLogger(logger),
	)
	if err != nil {
		logger.Error("Failed to create riot client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	dispatchConfig := dispatch.LoadConfig()

	dispatcher, err := dispatch.NewDispatcher(dispatchConfig, dispatch.NewExecRunner(), metricsManager)
	if err != nil {
		logger.Error("Failed to create dispatcher", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Stage dispatcher initialized",
		slog.String("ingest_bin", dispatchConfig.IngestBin),
		slog.String("aggregate_bin", dispatchConfig.AggregateBin),
		slog.Duration("ingest_timeout", dispatchConfig.IngestTimeout),
		slog.Duration("aggregate_timeout", dispatchConfig.AggregateTimeout),
	)

	pipelineConfig := pipeline.LoadConfig()

	markers, err := pipeline.BuildMarkerStore(pipelineConfig)
	if err != nil {
		logger.Error("Failed to build completion marker store", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer func() {
		_ = markers.Close()
	}()

	eventsConfig := events.LoadConfig()
	publisher := events.BuildPublisher(eventsConfig)

	defer func() {
		_ = publisher.Close()
	}()

	if eventsConfig.Enabled() {
		logger.Info("Event publishing enabled",
			slog.String("topic", eventsConfig.Topic),
			slog.Int("brokers", len(eventsConfig.Brokers)),
		)
	} else {
		logger.Warn("KAFKA_BROKERS not configured - completion events disabled")
	}

	orchestrator, err := pipeline.NewOrchestrator(
		pipelineConfig,
		riotClient,
		dispatcher,
		recapStore,
		markers,
		publisher,
		metricsManager,
	)
	if err != nil {
		logger.Error("Failed to create pipeline orchestrator", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Pipeline orchestrator initialized",
		slog.Duration("dedup_window", pipelineConfig.DedupWindow),
		slog.String("marker_backend", pipelineConfig.MarkerBackend),
	)

	middlewareConfig := middleware.LoadConfig()
	rateLimiter := middleware.NewInMemoryRateLimiter(middlewareConfig)

	logger.Info("Rate limiter initialized",
		slog.Int("global_rps", middlewareConfig.GlobalRPS),
		slog.Int("service_rps", middlewareConfig.ServiceRPS),
		slog.Int("client_rps", middlewareConfig.ClientRPS),
	)

	var auth *middleware.ServiceAuth

	authConfig := middleware.LoadAuthConfig()
	if authConfig.Enabled() {
		auth, err = middleware.NewServiceAuth(authConfig)
		if err != nil {
			logger.Error("Failed to configure service authentication", slog.String("error", err.Error()))
			os.Exit(1)
		}

		logger.Info("Service authentication enabled")
	} else {
		logger.Warn("Service authentication disabled",
			slog.String("security", "Only use in trusted networks (localhost, VPN, internal)"),
			slog.String("note", "Set API_KEY_HASH or API_KEY to require a service key"),
		)
	}

	server := api.NewServer(serverConfig, api.Dependencies{
		Recaps:      orchestrator,
		BlobStore:   blobStore,
		Auth:        auth,
		RateLimiter: rateLimiter,
		Metrics:     metricsManager.Handler(),
	})

	if err := server.Start(); err != nil {
		logger.Error("Server failed to start", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Rewind service stopped")
}
