package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/rewind-gg/rewind/internal/config"
)

const publishTimeout = 10 * time.Second

// KafkaPublisher writes recap events to a Kafka topic. Messages are keyed by
// the dispatch key so per-player ordering is preserved across partitions.
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// Compile-time interface check.
var _ Publisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates a publisher against the configured brokers.
func NewKafkaPublisher(cfg *Config) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.Topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			BatchTimeout:           50 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
		logger: slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: config.GetEnvLogLevel("LOG_LEVEL", slog.LevelInfo),
		})),
	}
}

// PublishRecapComputed emits one recap.computed event.
func (p *KafkaPublisher) PublishRecapComputed(ctx context.Context, playerID, period string) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, publishTimeout)
		defer cancel()
	}

	event := RecapComputed{
		Type:       TypeRecapComputed,
		PlayerID:   playerID,
		Period:     period,
		ComputedAt: time.Now().UTC(),
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", TypeRecapComputed, err)
	}

	msg := kafka.Message{
		Key:   []byte(playerID + "/" + period),
		Value: value,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s for %s/%s: %w", TypeRecapComputed, playerID, period, err)
	}

	p.logger.Debug("published event", "type", TypeRecapComputed, "player_id", playerID, "period", period)

	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
