package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/rewind-gg/rewind/internal/config"
)

// Marker store backends.
const (
	MarkerBackendMemory = "memory"
	MarkerBackendRedis  = "redis"

	defaultRedisAddr = "localhost:6379"
)

// ErrUnknownMarkerBackend is returned for an unrecognized MARKER_BACKEND.
var ErrUnknownMarkerBackend = errors.New("unknown marker backend")

// Config holds orchestrator settings.
type Config struct {
	// DedupWindow is how long a completed computation satisfies new
	// requests without redispatch. Zero (the default) means every request
	// recomputes, which keeps recaps current as new matches land.
	DedupWindow time.Duration

	MarkerBackend string
	RedisAddr     string
}

// LoadConfig loads orchestrator configuration from environment variables.
func LoadConfig() *Config {
	return &Config{
		DedupWindow:   config.GetEnvDuration("DEDUP_WINDOW", 0),
		MarkerBackend: config.GetEnvStr("MARKER_BACKEND", MarkerBackendMemory),
		RedisAddr:     config.GetEnvStr("REDIS_ADDR", defaultRedisAddr),
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.MarkerBackend {
	case MarkerBackendMemory, MarkerBackendRedis:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMarkerBackend, c.MarkerBackend)
	}
}

// BuildMarkerStore constructs the configured marker store.
func BuildMarkerStore(cfg *Config) (MarkerStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.MarkerBackend == MarkerBackendRedis {
		return NewRedisMarkerStore(cfg.RedisAddr), nil
	}

	return NewMemoryMarkerStore(), nil
}
