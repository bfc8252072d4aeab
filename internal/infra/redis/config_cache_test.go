package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type countingLoader struct {
	mu    sync.Mutex
	raw   []byte
	calls int
}

func (l *countingLoader) LoadConfig(_ context.Context) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return l.raw, nil
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func TestConfigCacheServesFromRedisAfterFirstLoad(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	origin := &countingLoader{raw: []byte(`{"q1": {"ans": "x", "score": 1}}`)}
	cache := NewConfigCache(client, origin, "contest:questions", time.Minute)

	ctx := context.Background()
	raw, err := cache.LoadConfig(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(raw) != string(origin.raw) {
		t.Fatalf("expected origin document, got %s", raw)
	}
	if origin.count() != 1 {
		t.Fatalf("expected one origin fetch, got %d", origin.count())
	}
	if !mr.Exists("contest:questions") {
		t.Fatalf("expected cached key in redis")
	}

	if _, err := cache.LoadConfig(ctx); err != nil {
		t.Fatalf("second load: %v", err)
	}
	if origin.count() != 1 {
		t.Fatalf("expected cache hit, origin fetches=%d", origin.count())
	}
}

func TestConfigCacheInvalidateForcesRefetch(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	origin := &countingLoader{raw: []byte(`{"q1": {"ans": "x", "score": 1}}`)}
	cache := NewConfigCache(client, origin, "contest:questions", time.Minute)

	ctx := context.Background()
	if _, err := cache.LoadConfig(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cache.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists("contest:questions") {
		t.Fatalf("expected cached key removed")
	}

	origin.mu.Lock()
	origin.raw = []byte(`{"q1": {"ans": "y", "score": 2}}`)
	origin.mu.Unlock()

	raw, err := cache.LoadConfig(ctx)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if string(raw) != `{"q1": {"ans": "y", "score": 2}}` {
		t.Fatalf("expected refreshed document, got %s", raw)
	}
	if origin.count() != 2 {
		t.Fatalf("expected second origin fetch, got %d", origin.count())
	}
}
