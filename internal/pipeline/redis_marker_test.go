package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// fakeRedis implements redisCmdable in memory.
type fakeRedis struct {
	sets      map[string]time.Duration
	present   map[string]bool
	setErr    error
	existsErr error
	closed    bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		sets:    make(map[string]time.Duration),
		present: make(map[string]bool),
	}
}

func (f *fakeRedis) Set(_ context.Context, key string, _ interface{}, ttl time.Duration) *redis.StatusCmd {
	if f.setErr != nil {
		return redis.NewStatusResult("", f.setErr)
	}

	f.sets[key] = ttl
	f.present[key] = true

	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Exists(_ context.Context, keys ...string) *redis.IntCmd {
	if f.existsErr != nil {
		return redis.NewIntResult(0, f.existsErr)
	}

	var n int64
	for _, k := range keys {
		if f.present[k] {
			n++
		}
	}

	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) Close() error {
	f.closed = true

	return nil
}

func TestRedisMarkerStoreRoundtrip(t *testing.T) {
	fake := newFakeRedis()
	store := &RedisMarkerStore{client: fake}

	ctx := context.Background()
	key := Key{PlayerID: "P-123", Period: "2024"}

	done, err := store.IsComplete(ctx, key)
	if err != nil {
		t.Fatalf("IsComplete: %v", err)
	}

	if done {
		t.Fatal("empty store reported a completion")
	}

	if err := store.MarkComplete(ctx, key, time.Hour); err != nil {
		t.Fatalf("MarkComplete: %v", err)
	}

	wantKey := "rewind:done:P-123/2024"
	if ttl, ok := fake.sets[wantKey]; !ok || ttl != time.Hour {
		t.Errorf("stored under %v, want %q with ttl 1h", fake.sets, wantKey)
	}

	if done, _ := store.IsComplete(ctx, key); !done {
		t.Error("marker missing after MarkComplete")
	}
}

func TestRedisMarkerStoreZeroTTLIsNoop(t *testing.T) {
	fake := newFakeRedis()
	store := &RedisMarkerStore{client: fake}

	if err := store.MarkComplete(context.Background(), Key{PlayerID: "P-123", Period: "2024"}, 0); err != nil {
		t.Fatalf("MarkComplete: %v", err)
	}

	if len(fake.sets) != 0 {
		t.Errorf("zero-ttl marker reached redis: %v", fake.sets)
	}
}

func TestRedisMarkerStoreWrapsErrors(t *testing.T) {
	cause := errors.New("connection refused")

	fake := newFakeRedis()
	fake.setErr = cause
	fake.existsErr = cause

	store := &RedisMarkerStore{client: fake}
	ctx := context.Background()
	key := Key{PlayerID: "P-123", Period: "2024"}

	if err := store.MarkComplete(ctx, key, time.Hour); !errors.Is(err, cause) {
		t.Errorf("MarkComplete returned %v, want the redis error", err)
	}

	if _, err := store.IsComplete(ctx, key); !errors.Is(err, cause) {
		t.Errorf("IsComplete returned %v, want the redis error", err)
	}
}

func TestRedisMarkerStoreClose(t *testing.T) {
	fake := newFakeRedis()
	store := &RedisMarkerStore{client: fake}

	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if !fake.closed {
		t.Error("Close did not release the client")
	}
}
