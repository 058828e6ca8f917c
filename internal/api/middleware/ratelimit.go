package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	burstMultiplier = 2

	defaultGlobalRPS  = 100
	defaultServiceRPS = 50
	defaultClientRPS  = 10

	defaultCleanupInterval = 5 * time.Minute
	defaultIdleTimeout     = time.Hour
	defaultMaxClients      = 10000

	clientWarnThreshold = 0.8
)

type (
	// RateLimiter decides whether a request may proceed. client identifies
	// the caller for per-client fairness; authenticated requests carry the
	// shared service key and are limited as one caller.
	//
	// The in-memory implementation suits a single replica; a distributed
	// store can implement the same interface when the API scales out.
	RateLimiter interface {
		Allow(client string, authenticated bool) bool
	}

	// InMemoryRateLimiter applies token buckets in three tiers:
	//
	//  1. a global bucket over all traffic,
	//  2. one bucket for authenticated (service-key) traffic,
	//  3. per-client buckets for unauthenticated traffic, keyed by IP.
	//
	// Per-client buckets are created lazily and swept periodically so an
	// open deployment cannot grow the map without bound.
	InMemoryRateLimiter struct {
		global  *rate.Limiter
		service *rate.Limiter

		mu        sync.RWMutex
		perClient map[string]*clientLimiter

		cleanupTicker *time.Ticker
		done          chan struct{}

		clientRPS       int
		clientBurst     int
		cleanupInterval time.Duration
		idleTimeout     time.Duration
		maxClients      int
	}

	// clientLimiter is one unauthenticated caller's bucket plus the last
	// time it was used, which drives idle eviction.
	clientLimiter struct {
		limiter    *rate.Limiter
		mu         sync.Mutex
		lastAccess time.Time
	}
)

// Compile-time interface check.
var _ RateLimiter = (*InMemoryRateLimiter)(nil)

// NewInMemoryRateLimiter creates the three-tier limiter. Burst capacities
// default to twice the sustained rate unless overridden in cfg.
func NewInMemoryRateLimiter(cfg *Config) *InMemoryRateLimiter {
	rl := &InMemoryRateLimiter{
		global:          rate.NewLimiter(rate.Limit(cfg.GlobalRPS), burstFor(cfg.GlobalRPS, cfg.GlobalBurst)),
		service:         rate.NewLimiter(rate.Limit(cfg.ServiceRPS), burstFor(cfg.ServiceRPS, cfg.ServiceBurst)),
		perClient:       make(map[string]*clientLimiter),
		done:            make(chan struct{}),
		clientRPS:       cfg.ClientRPS,
		clientBurst:     burstFor(cfg.ClientRPS, cfg.ClientBurst),
		cleanupInterval: cfg.CleanupInterval,
		idleTimeout:     cfg.IdleTimeout,
		maxClients:      cfg.MaxClients,
	}

	rl.startCleanup()

	return rl
}

// burstFor returns the burst capacity for a rate, honoring an override.
func burstFor(rps, override int) int {
	if override > 0 {
		return override
	}

	return rps * burstMultiplier
}

// Allow implements RateLimiter.
func (rl *InMemoryRateLimiter) Allow(client string, authenticated bool) bool {
	if !rl.global.Allow() {
		return false
	}

	if authenticated {
		return rl.service.Allow()
	}

	return rl.clientFor(client).Allow()
}

// clientFor returns the caller's bucket, creating it on first sight.
func (rl *InMemoryRateLimiter) clientFor(client string) *rate.Limiter {
	rl.mu.RLock()
	cl, ok := rl.perClient[client]
	rl.mu.RUnlock()

	if !ok {
		rl.mu.Lock()
		if cl, ok = rl.perClient[client]; !ok {
			cl = &clientLimiter{
				limiter:    rate.NewLimiter(rate.Limit(rl.clientRPS), rl.clientBurst),
				lastAccess: time.Now(),
			}
			rl.perClient[client] = cl

			if count := len(rl.perClient); count >= int(float64(rl.maxClients)*clientWarnThreshold) {
				slog.Warn("rate limiter approaching max tracked clients",
					"current_clients", count,
					"max_clients", rl.maxClients,
				)
			}
		}
		rl.mu.Unlock()
	}

	cl.mu.Lock()
	cl.lastAccess = time.Now()
	cl.mu.Unlock()

	return cl.limiter
}

// Close stops the cleanup goroutine. Close is not part of the RateLimiter
// interface so that implementations without background work stay trivial;
// callers type-assert io.Closer.
func (rl *InMemoryRateLimiter) Close() error {
	if rl.cleanupTicker != nil {
		rl.cleanupTicker.Stop()
	}

	close(rl.done)

	return nil
}

func (rl *InMemoryRateLimiter) startCleanup() {
	interval := rl.cleanupInterval
	if interval <= 0 {
		interval = defaultCleanupInterval
	}

	rl.cleanupTicker = time.NewTicker(interval)

	go func() {
		for {
			select {
			case <-rl.cleanupTicker.C:
				rl.cleanup()
			case <-rl.done:
				return
			}
		}
	}()
}

// cleanup evicts client buckets that have been idle past the timeout.
func (rl *InMemoryRateLimiter) cleanup() {
	idleTimeout := rl.idleTimeout
	if idleTimeout <= 0 {
		idleTimeout = defaultIdleTimeout
	}

	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for client, cl := range rl.perClient {
		cl.mu.Lock()
		last := cl.lastAccess
		cl.mu.Unlock()

		if now.Sub(last) > idleTimeout {
			delete(rl.perClient, client)
		}
	}
}

// clientAddr normalizes RemoteAddr to a host, so one caller's requests land
// in one bucket regardless of source port.
func clientAddr(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}

	return host
}

// RateLimit returns a middleware enforcing the limiter on every request.
// It must sit after Authenticate in the chain so the tier decision sees the
// auth result.
func RateLimit(limiter RateLimiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientAddr(r.RemoteAddr)

			if !limiter.Allow(client, IsAuthenticated(r.Context())) {
				correlationID := GetCorrelationID(r.Context())
				detail := "Rate limit exceeded. Retry after a short wait."

				if err := writeProblem(w, r, http.StatusTooManyRequests, detail, correlationID); err != nil {
					logger.Error("failed to write rate limit response",
						slog.String("correlation_id", correlationID),
						slog.String("error", err.Error()),
					)

					http.Error(w, detail, http.StatusTooManyRequests)
				}

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
