package session

import (
	"context"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
)

type memoryStore struct {
	values map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}}
}

func (m *memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.values[key] = "1"
	_ = value
	return nil
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.values[key]; ok {
		return v, nil
	}
	return "", redislib.Nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

type staticKeyer struct{}

func (staticKeyer) AccessSessionKey(accessID string) string { return "pv:session:access:" + accessID }

func TestManagerSessionLifecycle(t *testing.T) {
	mgr := &Manager{store: newMemoryStore(), keyer: staticKeyer{}, ttl: time.Hour}
	ctx := context.Background()

	ok, err := mgr.HasSession(ctx, "jti-1")
	if err != nil {
		t.Fatalf("has session: %v", err)
	}
	if ok {
		t.Fatal("session should not exist yet")
	}

	if err := mgr.Create(ctx, "jti-1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	ok, err = mgr.HasSession(ctx, "jti-1")
	if err != nil || !ok {
		t.Fatalf("expected live session, ok=%t err=%v", ok, err)
	}

	if err := mgr.Revoke(ctx, "jti-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	ok, _ = mgr.HasSession(ctx, "jti-1")
	if ok {
		t.Fatal("session should be gone after revoke")
	}
}

func TestManagerRejectsEmptyAccessID(t *testing.T) {
	mgr := &Manager{store: newMemoryStore(), keyer: staticKeyer{}, ttl: time.Hour}
	if err := mgr.Create(context.Background(), " "); err == nil {
		t.Fatal("expected error for blank access id")
	}
}
