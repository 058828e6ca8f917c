package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rewind-gg/rewind/internal/blob"
)

// fakeBlobStore satisfies blob.Store for readiness probe tests.
type fakeBlobStore struct {
	existsErr error
}

func (f *fakeBlobStore) Put(context.Context, string, []byte) error { return nil }

func (f *fakeBlobStore) Get(context.Context, string) ([]byte, error) {
	return nil, blob.ErrNotFound
}

func (f *fakeBlobStore) Exists(context.Context, string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}

	return false, nil
}

func TestPingReturnsPong(t *testing.T) {
	srv := newTestServer(t, Dependencies{})

	rec := serveRequest(srv, httptest.NewRequest(http.MethodGet, "/ping", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	if body := rec.Body.String(); body != "pong" {
		t.Errorf("body = %q, want pong", body)
	}

	if rec.Header().Get("X-Rewind-Version") == "" {
		t.Error("X-Rewind-Version header missing")
	}
}

func TestReadyWithoutStoreReportsReady(t *testing.T) {
	srv := newTestServer(t, Dependencies{})

	rec := serveRequest(srv, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	if body := rec.Body.String(); body != "ready" {
		t.Errorf("body = %q, want ready", body)
	}
}

func TestReadyWithHealthyStore(t *testing.T) {
	srv := newTestServer(t, Dependencies{BlobStore: &fakeBlobStore{}})

	rec := serveRequest(srv, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	if body := rec.Body.String(); body != "ready" {
		t.Errorf("body = %q, want ready", body)
	}
}

func TestReadyWithUnreachableStore(t *testing.T) {
	store := &fakeBlobStore{existsErr: errors.New("connection refused")}
	srv := newTestServer(t, Dependencies{BlobStore: store})

	rec := serveRequest(srv, httptest.NewRequest(http.MethodGet, "/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	if body := rec.Body.String(); body != "storage unavailable" {
		t.Errorf("body = %q, want storage unavailable", body)
	}
}

func TestHealthReportsServiceInfo(t *testing.T) {
	srv := newTestServer(t, Dependencies{})

	rec := serveRequest(srv, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var health HealthStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode health response: %v", err)
	}

	if health.Status != "healthy" {
		t.Errorf("status = %q, want healthy", health.Status)
	}

	if health.ServiceName != "rewind" {
		t.Errorf("serviceName = %q, want rewind", health.ServiceName)
	}

	if health.Version == "" {
		t.Error("version missing from health response")
	}
}

func TestUnknownPathReturns404Problem(t *testing.T) {
	srv := newTestServer(t, Dependencies{})

	rec := serveRequest(srv, httptest.NewRequest(http.MethodGet, "/nope", nil))

	problem := decodeProblem(t, rec)
	if problem.Status != http.StatusNotFound {
		t.Errorf("status = %d, want %d", problem.Status, http.StatusNotFound)
	}

	if problem.Instance != "/nope" {
		t.Errorf("instance = %q, want /nope", problem.Instance)
	}
}

func TestMetricsRouteOnlyWhenConfigured(t *testing.T) {
	t.Run("with handler", func(t *testing.T) {
		metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("metrics-ok"))
		})
		srv := newTestServer(t, Dependencies{Metrics: metrics})

		rec := serveRequest(srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}

		if body := rec.Body.String(); body != "metrics-ok" {
			t.Errorf("body = %q, want metrics-ok", body)
		}
	})

	t.Run("without handler", func(t *testing.T) {
		srv := newTestServer(t, Dependencies{})

		rec := serveRequest(srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})
}
