package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rewind-gg/rewind/internal/config"
	"github.com/rewind-gg/rewind/internal/dispatch"
	"github.com/rewind-gg/rewind/internal/events"
	"github.com/rewind-gg/rewind/internal/metrics"
	"github.com/rewind-gg/rewind/internal/recap"
	"github.com/rewind-gg/rewind/internal/riot"
)

type (
	// Request is one recap ask as received from the API layer. Handle is
	// the raw "GameName#TAG" form; Limit (0 = unlimited) bounds how many
	// matches the stages consider.
	Request struct {
		Handle string
		Region string
		Period string
		Limit  int
	}

	// Result is a finished request: the resolved identity and the stored
	// document. Shared reports that this request attached to another
	// caller's in-flight computation instead of starting its own.
	Result struct {
		PlayerID string
		Period   string
		Document *recap.Document
		Shared   bool
	}

	// Resolver turns a player handle into a stable identifier.
	Resolver interface {
		ResolvePUUID(ctx context.Context, h riot.Handle) (string, error)
	}

	// Dispatcher runs the ordered compute stages for a key.
	Dispatcher interface {
		EnsureComputed(ctx context.Context, playerID, period string, hints dispatch.Hints) error
	}

	// DocumentStore is the read side of the recap store. The write side
	// belongs to the aggregation stage; the orchestrator only ever fetches.
	DocumentStore interface {
		Get(ctx context.Context, puuid, period string) (*recap.Document, error)
	}

	// Orchestrator drives recap requests through the lifecycle. Concurrent
	// requests for the same key collapse onto one flight.
	Orchestrator struct {
		cfg        *Config
		resolver   Resolver
		dispatcher Dispatcher
		store      DocumentStore
		markers    MarkerStore
		publisher  events.Publisher
		metrics    *metrics.Manager
		group      singleflight.Group
		logger     *slog.Logger
	}
)

// NewOrchestrator wires an orchestrator from its collaborators.
func NewOrchestrator(
	cfg *Config,
	resolver Resolver,
	dispatcher Dispatcher,
	store DocumentStore,
	markers MarkerStore,
	publisher events.Publisher,
	m *metrics.Manager,
) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}

	return &Orchestrator{
		cfg:        cfg,
		resolver:   resolver,
		dispatcher: dispatcher,
		store:      store,
		markers:    markers,
		publisher:  publisher,
		metrics:    m,
		logger: slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: config.GetEnvLogLevel("LOG_LEVEL", slog.LevelInfo),
		})),
	}, nil
}

// Run drives one request through RESOLVING → DISPATCHING → FETCHING → DONE
// and returns the stored document. Every failure comes back as an *Error
// tagged with the state that failed.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	res, err := o.run(ctx, req)

	o.metrics.RecordRequestDuration(time.Since(start))

	if err != nil {
		o.metrics.RecordRequest(outcomeLabel(err))

		return nil, err
	}

	o.metrics.RecordRequest("done")

	return res, nil
}

func (o *Orchestrator) run(ctx context.Context, req Request) (*Result, error) {
	lc := newLifecycle()

	handle, err := riot.ParseHandle(req.Handle, req.Region)
	if err != nil {
		return nil, o.fail(lc, err)
	}

	resolveStart := time.Now()
	playerID, err := o.resolver.ResolvePUUID(ctx, handle)
	o.metrics.RecordResolveDuration(time.Since(resolveStart))

	if err != nil {
		return nil, o.fail(lc, fmt.Errorf("resolve %s in %s: %w", handle, handle.Region, err))
	}

	key := Key{PlayerID: playerID, Period: req.Period}
	keyStr := key.String()

	hints := dispatch.Hints{
		Handle: handle.String(),
		Region: handle.Region,
		Limit:  req.Limit,
	}

	leader := false

	v, err, shared := o.group.Do(keyStr, func() (any, error) {
		leader = true

		return o.computeAndFetch(ctx, lc, key, hints)
	})

	o.group.Forget(keyStr)

	if shared && !leader {
		o.metrics.RecordSingleflightShared()
	}

	if err != nil {
		return nil, err
	}

	doc, ok := v.(*recap.Document)
	if !ok {
		return nil, o.fail(lc, fmt.Errorf("flight returned %T instead of a document", v))
	}

	o.logger.Info("recap request done",
		"key", keyStr,
		"shared", shared && !leader,
		"games", doc.KPIs.Games,
	)

	return &Result{
		PlayerID: playerID,
		Period:   req.Period,
		Document: doc,
		Shared:   shared && !leader,
	}, nil
}

// computeAndFetch is the singleflight body: it owns the DISPATCHING and
// FETCHING states for everyone sharing the flight.
func (o *Orchestrator) computeAndFetch(ctx context.Context, lc *lifecycle, key Key, hints dispatch.Hints) (*recap.Document, error) {
	if err := lc.advance(StateDispatching); err != nil {
		return nil, o.fail(lc, err)
	}

	doc := o.reusableDocument(ctx, key)

	if doc == nil {
		if err := o.dispatcher.EnsureComputed(ctx, key.PlayerID, key.Period, hints); err != nil {
			return nil, o.fail(lc, err)
		}

		o.markComplete(ctx, key)
		o.announce(ctx, key)
	}

	if err := lc.advance(StateFetching); err != nil {
		return nil, o.fail(lc, err)
	}

	if doc == nil {
		fetched, err := o.store.Get(ctx, key.PlayerID, key.Period)
		if err != nil {
			// The stages just reported success, so absence here means the
			// pipeline is broken, not that the player is unknown.
			if errors.Is(err, recap.ErrNotFound) {
				err = fmt.Errorf("%w: %s", ErrInconsistentState, key)
			}

			return nil, o.fail(lc, err)
		}

		doc = fetched
	}

	if err := lc.advance(StateDone); err != nil {
		return nil, o.fail(lc, err)
	}

	return doc, nil
}

// reusableDocument returns the stored document when the key completed
// inside the dedup window, or nil when the request must dispatch. A marker
// whose document has vanished counts as a miss, so a stale marker can never
// mask a missing recap.
func (o *Orchestrator) reusableDocument(ctx context.Context, key Key) *recap.Document {
	if o.cfg.DedupWindow <= 0 {
		return nil
	}

	done, err := o.markers.IsComplete(ctx, key)
	if err != nil {
		o.logger.Warn("completion marker lookup failed", "key", key.String(), "error", err)
	}

	if done {
		doc, err := o.store.Get(ctx, key.PlayerID, key.Period)
		if err == nil {
			o.metrics.RecordWindowHit()

			return doc
		}

		o.logger.Warn("completion marker without a readable document", "key", key.String(), "error", err)
	}

	o.metrics.RecordWindowMiss()

	return nil
}

// markComplete records the completion for the dedup window. Marker failures
// only cost future reuse, so they are logged, not returned.
func (o *Orchestrator) markComplete(ctx context.Context, key Key) {
	if o.cfg.DedupWindow <= 0 {
		return
	}

	if err := o.markers.MarkComplete(ctx, key, o.cfg.DedupWindow); err != nil {
		o.logger.Warn("failed to record completion marker", "key", key.String(), "error", err)
	}
}

// announce publishes the completion event. The computation already
// happened, so publishing detaches from the caller and never fails the
// request.
func (o *Orchestrator) announce(ctx context.Context, key Key) {
	err := o.publisher.PublishRecapComputed(context.WithoutCancel(ctx), key.PlayerID, key.Period)
	if err != nil {
		o.metrics.RecordEventPublished(metrics.ResultError)
		o.logger.Warn("failed to publish completion event", "key", key.String(), "error", err)

		return
	}

	o.metrics.RecordEventPublished(metrics.ResultOK)
}

// fail moves the lifecycle to FAILED and wraps the cause with the state
// that produced it.
func (o *Orchestrator) fail(lc *lifecycle, err error) error {
	stage := lc.state
	_ = lc.advance(StateFailed)

	o.logger.Error("recap request failed", "state", string(stage), "error", err)

	return &Error{Stage: stage, Err: err}
}

// outcomeLabel maps a pipeline error to its metrics outcome label.
func outcomeLabel(err error) string {
	var perr *Error
	if errors.As(err, &perr) {
		return "failed_" + strings.ToLower(string(perr.Stage))
	}

	return "failed"
}
