package dispatch

import (
	"time"

	"github.com/rewind-gg/rewind/internal/config"
)

// Default stage settings. Ingestion gets the long budget: it walks a full
// year of match history against a rate-limited upstream.
const (
	defaultIngestBin        = "rewind-ingest"
	defaultAggregateBin     = "rewind-aggregate"
	defaultIngestTimeout    = 20 * time.Minute
	defaultAggregateTimeout = 5 * time.Minute
	defaultRetries          = 0
)

// Config holds dispatcher settings.
type Config struct {
	IngestBin        string
	AggregateBin     string
	IngestTimeout    time.Duration
	AggregateTimeout time.Duration

	// Retries is the number of additional attempts per stage after a
	// failure. The default of 0 means each stage runs exactly once.
	Retries int
}

// LoadConfig loads dispatcher configuration from environment variables.
func LoadConfig() *Config {
	return &Config{
		IngestBin:        config.GetEnvStr("INGEST_BIN", defaultIngestBin),
		AggregateBin:     config.GetEnvStr("AGGREGATE_BIN", defaultAggregateBin),
		IngestTimeout:    config.GetEnvDuration("INGEST_TIMEOUT", defaultIngestTimeout),
		AggregateTimeout: config.GetEnvDuration("AGGREGATE_TIMEOUT", defaultAggregateTimeout),
		Retries:          config.GetEnvInt("STAGE_RETRIES", defaultRetries),
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.IngestBin == "" || c.AggregateBin == "" {
		return ErrStageBinaryEmpty
	}

	if c.IngestTimeout <= 0 || c.AggregateTimeout <= 0 {
		return ErrStageTimeoutInvalid
	}

	if c.Retries < 0 {
		return ErrRetriesNegative
	}

	return nil
}
