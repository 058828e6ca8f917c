package events

import (
	"github.com/rewind-gg/rewind/internal/config"
)

const defaultTopic = "rewind.recaps"

// Config holds event publishing settings. Publishing is off unless at least
// one broker is configured.
type Config struct {
	Brokers []string
	Topic   string
}

// LoadConfig loads event configuration from environment variables.
func LoadConfig() *Config {
	return &Config{
		Brokers: config.ParseCommaSeparatedList(config.GetEnvStr("KAFKA_BROKERS", "")),
		Topic:   config.GetEnvStr("KAFKA_TOPIC", defaultTopic),
	}
}

// Enabled reports whether events should be published at all.
func (c *Config) Enabled() bool {
	return len(c.Brokers) > 0
}

// BuildPublisher returns a Kafka publisher when brokers are configured and
// the noop publisher otherwise.
func BuildPublisher(cfg *Config) Publisher {
	if !cfg.Enabled() {
		return NoopPublisher{}
	}

	return NewKafkaPublisher(cfg)
}
