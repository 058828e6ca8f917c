package middleware

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/rewind-gg/rewind/internal/config"
)

const (
	// bcryptCost trades ~60ms per comparison for brute-force resistance.
	bcryptCost  = 10
	bcryptLimit = 72
)

// publicEndpoints lists paths that bypass authentication: health probes and
// the metrics scrape. Business endpoints must never be registered here.
var publicEndpoints = map[string]bool{}

// RegisterPublicEndpoint marks a path as reachable without a service key.
// Called during route setup only.
func RegisterPublicEndpoint(endpoint string) {
	publicEndpoints[endpoint] = true
}

// Authentication errors.
var (
	// ErrMissingServiceKey is returned when no key is presented.
	ErrMissingServiceKey = errors.New("missing service key")

	// ErrInvalidServiceKey is returned when the presented key does not
	// match. Deliberately generic; the caller learns nothing about why.
	ErrInvalidServiceKey = errors.New("invalid service key")
)

type (
	// AuthConfig holds the static service-key settings. The API is meant to
	// sit behind a trusted frontend, so a single shared key is enough; when
	// neither field is set the middleware is not installed and the API is
	// open.
	AuthConfig struct {
		// KeyHash is a bcrypt hash of the service key. Preferred: the
		// plaintext never has to appear in the environment.
		KeyHash string

		// Key is the plaintext service key, for deployments without a
		// hashing step. Ignored when KeyHash is set.
		Key string
	}

	// ServiceAuth validates the static service key on incoming requests.
	ServiceAuth struct {
		keyHash string
		// keyDigest is the SHA-256 of the plaintext key; comparing digests
		// keeps the plain path constant-time regardless of key length.
		keyDigest []byte
	}
)

// LoadAuthConfig loads auth settings from API_KEY_HASH and API_KEY.
func LoadAuthConfig() *AuthConfig {
	return &AuthConfig{
		KeyHash: config.GetEnvStr("API_KEY_HASH", ""),
		Key:     config.GetEnvStr("API_KEY", ""),
	}
}

// Enabled reports whether a service key is configured at all.
func (c *AuthConfig) Enabled() bool {
	return c.KeyHash != "" || c.Key != ""
}

// NewServiceAuth builds the validator for a configured service key.
func NewServiceAuth(cfg *AuthConfig) (*ServiceAuth, error) {
	if !cfg.Enabled() {
		return nil, ErrMissingServiceKey
	}

	auth := &ServiceAuth{keyHash: cfg.KeyHash}

	if cfg.KeyHash == "" {
		digest := sha256.Sum256([]byte(cfg.Key))
		auth.keyDigest = digest[:]
	}

	return auth, nil
}

// Verify reports whether the presented key matches the configured one. The
// comparison is constant-time on both paths.
func (a *ServiceAuth) Verify(key string) bool {
	if key == "" {
		return false
	}

	if a.keyHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(a.keyHash), bcryptInput(key)) == nil
	}

	digest := sha256.Sum256([]byte(key))

	return subtle.ConstantTimeCompare(a.keyDigest, digest[:]) == 1
}

// HashServiceKey generates a bcrypt hash suitable for API_KEY_HASH. Keys
// longer than bcrypt's 72-byte limit are pre-hashed with SHA-256.
func HashServiceKey(key string) (string, error) {
	if key == "" {
		return "", ErrMissingServiceKey
	}

	hash, err := bcrypt.GenerateFromPassword(bcryptInput(key), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash service key: %w", err)
	}

	return string(hash), nil
}

// bcryptInput prepares a key for bcrypt, pre-hashing past the 72-byte limit.
// Hashing and comparison must agree on this.
func bcryptInput(key string) []byte {
	if len(key) > bcryptLimit {
		digest := sha256.Sum256([]byte(key))

		return digest[:]
	}

	return []byte(key)
}

// dummyCompare burns one bcrypt comparison so requests without a key take as
// long as requests with a wrong one.
func dummyCompare() {
	_ = bcrypt.CompareHashAndPassword([]byte("dummy"), []byte("dummy"))
}

// authenticatedKey is the context key marking a request that passed auth.
type authenticatedKey struct{}

// markAuthenticated records on the context that the service key checked out.
func markAuthenticated(ctx context.Context) context.Context {
	return context.WithValue(ctx, authenticatedKey{}, true)
}

// IsAuthenticated reports whether the request presented a valid service key.
// The rate limiter uses this to pick a tier.
func IsAuthenticated(ctx context.Context) bool {
	ok, _ := ctx.Value(authenticatedKey{}).(bool)

	return ok
}

// extractServiceKey pulls the key from X-Api-Key (primary) or
// Authorization: Bearer (fallback). Keys containing newlines are rejected
// outright to block header injection.
func extractServiceKey(r *http.Request) (string, bool) {
	if key := r.Header.Get("X-Api-Key"); key != "" {
		return cleanServiceKey(key)
	}

	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return cleanServiceKey(strings.TrimPrefix(auth, "Bearer "))
	}

	return "", false
}

func cleanServiceKey(key string) (string, bool) {
	if strings.ContainsAny(key, "\r\n") {
		return "", false
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return "", false
	}

	return key, true
}

// Authenticate creates a middleware that requires the static service key on
// every route except registered public endpoints. Requests that pass are
// marked authenticated in the context.
func Authenticate(auth *ServiceAuth, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicEndpoints[r.URL.Path] {
				next.ServeHTTP(w, r)

				return
			}

			authStart := time.Now()

			key, found := extractServiceKey(r)
			if !found {
				dummyCompare()
				writeAuthError(w, r, logger, ErrMissingServiceKey)

				return
			}

			if !auth.Verify(key) {
				writeAuthError(w, r, logger, ErrInvalidServiceKey)

				return
			}

			logger.Debug("service key accepted",
				slog.Duration("auth_latency", time.Since(authStart)),
				slog.String("correlation_id", GetCorrelationID(r.Context())),
				slog.String("endpoint", r.URL.Path),
			)

			next.ServeHTTP(w, r.WithContext(markAuthenticated(r.Context())))
		})
	}
}

// writeAuthError logs the failure and writes the 401 problem response.
func writeAuthError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, cause error) {
	correlationID := GetCorrelationID(r.Context())

	logger.Warn("authentication failed",
		slog.String("reason", cause.Error()),
		slog.String("correlation_id", correlationID),
		slog.String("endpoint", r.URL.Path),
		slog.String("remote_addr", r.RemoteAddr),
	)

	detail := cause.Error()
	if err := writeProblem(w, r, http.StatusUnauthorized, detail, correlationID); err != nil {
		logger.Error("failed to write auth error response",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)

		http.Error(w, detail, http.StatusUnauthorized)
	}
}
