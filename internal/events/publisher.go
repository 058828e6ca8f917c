// Package events publishes recap lifecycle events for downstream consumers
// (notification fanout, warm-cache builders). Publishing is best-effort: a
// recap that computed but failed to announce is still a computed recap.
package events

import (
	"context"
	"time"
)

// TypeRecapComputed is the event type emitted after both compute stages
// finish for a key.
const TypeRecapComputed = "recap.computed"

type (
	// RecapComputed is the payload announcing a freshly computed recap.
	RecapComputed struct {
		Type       string    `json:"type"`
		PlayerID   string    `json:"player_id"`
		Period     string    `json:"period"`
		ComputedAt time.Time `json:"computed_at"`
	}

	// Publisher emits recap lifecycle events.
	Publisher interface {
		PublishRecapComputed(ctx context.Context, playerID, period string) error
		Close() error
	}
)

// NoopPublisher drops every event. It stands in when no broker is
// configured so callers never need a nil check.
type NoopPublisher struct{}

// Compile-time interface check.
var _ Publisher = (*NoopPublisher)(nil)

// PublishRecapComputed implements Publisher.
func (NoopPublisher) PublishRecapComputed(context.Context, string, string) error {
	return nil
}

// Close implements Publisher.
func (NoopPublisher) Close() error {
	return nil
}
