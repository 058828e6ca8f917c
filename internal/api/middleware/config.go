package middleware

import (
	"time"

	"github.com/rewind-gg/rewind/internal/config"
)

// Config holds rate limiter settings. Rates are requests per second; a zero
// burst means twice the sustained rate.
type Config struct {
	GlobalRPS  int
	ServiceRPS int
	ClientRPS  int

	GlobalBurst  int
	ServiceBurst int
	ClientBurst  int

	CleanupInterval time.Duration
	IdleTimeout     time.Duration
	MaxClients      int
}

// LoadConfig loads rate limiter settings from environment variables.
func LoadConfig() *Config {
	return &Config{
		GlobalRPS:  config.GetEnvInt("RATE_LIMIT_GLOBAL_RPS", defaultGlobalRPS),
		ServiceRPS: config.GetEnvInt("RATE_LIMIT_SERVICE_RPS", defaultServiceRPS),
		ClientRPS:  config.GetEnvInt("RATE_LIMIT_CLIENT_RPS", defaultClientRPS),

		GlobalBurst:  config.GetEnvInt("RATE_LIMIT_GLOBAL_BURST", 0),
		ServiceBurst: config.GetEnvInt("RATE_LIMIT_SERVICE_BURST", 0),
		ClientBurst:  config.GetEnvInt("RATE_LIMIT_CLIENT_BURST", 0),

		CleanupInterval: config.GetEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", defaultCleanupInterval),
		IdleTimeout:     config.GetEnvDuration("RATE_LIMIT_IDLE_TIMEOUT", defaultIdleTimeout),
		MaxClients:      config.GetEnvInt("RATE_LIMIT_MAX_CLIENTS", defaultMaxClients),
	}
}
