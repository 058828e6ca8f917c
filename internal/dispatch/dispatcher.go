package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/rewind-gg/rewind/internal/config"
	"github.com/rewind-gg/rewind/internal/metrics"
)

type (
	// Hints carry the stage arguments that are not part of the dispatch
	// key: the player-facing handle and region feed the ingestion stage,
	// and Limit (0 = unlimited) bounds how many matches both stages touch.
	Hints struct {
		Handle string
		Region string
		Limit  int
	}

	// Dispatcher runs the ingest and aggregate stages in order for one
	// player and period.
	Dispatcher struct {
		cfg     *Config
		runner  Runner
		metrics *metrics.Manager
		logger  *slog.Logger
	}
)

// NewDispatcher creates a dispatcher. The runner decides how stages execute;
// production uses ExecRunner.
func NewDispatcher(cfg *Config, runner Runner, m *metrics.Manager) (*Dispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dispatch config: %w", err)
	}

	return &Dispatcher{
		cfg:     cfg,
		runner:  runner,
		metrics: m,
		logger: slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: config.GetEnvLogLevel("LOG_LEVEL", slog.LevelInfo),
		})),
	}, nil
}

// EnsureComputed runs ingestion and then aggregation for the player and
// period. It returns nil once both stages have exited successfully; the
// produced document is read back through the result store, not returned
// here. Aggregation is never invoked after a failed ingestion.
func (d *Dispatcher) EnsureComputed(ctx context.Context, playerID, period string, hints Hints) error {
	ingest := Invocation{
		ID:    uuid.NewString(),
		Stage: StageIngest,
		Path:  d.cfg.IngestBin,
		Args:  ingestArgs(hints, period),
	}

	if err := d.runStage(ctx, ingest, d.cfg.IngestTimeout); err != nil {
		return err
	}

	aggregate := Invocation{
		ID:    uuid.NewString(),
		Stage: StageAggregate,
		Path:  d.cfg.AggregateBin,
		Args:  aggregateArgs(playerID, period, hints.Limit),
	}

	return d.runStage(ctx, aggregate, d.cfg.AggregateTimeout)
}

// ingestArgs builds the ingestion argv: handle, region, period, and the
// limit only when one is set.
func ingestArgs(hints Hints, period string) []string {
	args := []string{hints.Handle, hints.Region, period}
	if hints.Limit > 0 {
		args = append(args, strconv.Itoa(hints.Limit))
	}

	return args
}

// aggregateArgs builds the aggregation argv: resolved identifier, period,
// and the limit only when one is set.
func aggregateArgs(playerID, period string, limit int) []string {
	args := []string{playerID, period}
	if limit > 0 {
		args = append(args, strconv.Itoa(limit))
	}

	return args
}

// runStage executes one invocation with the stage timeout, retrying up to
// the configured count. The stage context detaches from the caller: an
// abandoned request must not kill a running stage, or the archive and the
// stored document drift apart.
func (d *Dispatcher) runStage(ctx context.Context, inv Invocation, timeout time.Duration) error {
	stageCtx := context.WithoutCancel(ctx)

	var lastErr error

	for attempt := 0; attempt <= d.cfg.Retries; attempt++ {
		runCtx, cancel := context.WithTimeout(stageCtx, timeout)

		start := time.Now()
		err := d.runner.Run(runCtx, inv)
		elapsed := time.Since(start)

		cancel()

		d.metrics.RecordStageDuration(inv.Stage.String(), elapsed)

		if err == nil {
			d.metrics.RecordStageRun(inv.Stage.String(), metrics.ResultOK)
			d.logger.Info("stage completed",
				"invocation_id", inv.ID,
				"stage", inv.Stage.String(),
				"attempt", attempt,
				"duration_ms", elapsed.Milliseconds(),
			)

			return nil
		}

		d.metrics.RecordStageRun(inv.Stage.String(), metrics.ResultError)
		d.logger.Error("stage failed",
			"invocation_id", inv.ID,
			"stage", inv.Stage.String(),
			"attempt", attempt,
			"duration_ms", elapsed.Milliseconds(),
			"error", err,
		)

		lastErr = err
	}

	return lastErr
}
