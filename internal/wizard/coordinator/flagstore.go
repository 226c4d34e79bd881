// internal/wizard/coordinator/flagstore.go
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// FlagStore keeps the per-session "full pass attempted" marker.
type FlagStore interface {
	IsSet(ctx context.Context, sessionID string) (bool, error)
	Set(ctx context.Context, sessionID string) error
	Clear(ctx context.Context, sessionID string) error
}

// MemoryFlagStore is a process-local FlagStore.
type MemoryFlagStore struct {
	mu    sync.RWMutex
	flags map[string]struct{}
}

func NewMemoryFlagStore() *MemoryFlagStore {
	return &MemoryFlagStore{flags: make(map[string]struct{})}
}

func (m *MemoryFlagStore) IsSet(_ context.Context, sessionID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.flags[sessionID]
	return ok, nil
}

func (m *MemoryFlagStore) Set(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flags[sessionID] = struct{}{}
	return nil
}

func (m *MemoryFlagStore) Clear(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.flags, sessionID)
	return nil
}

// RedisFlagStore shares the marker across server instances. Keys expire after
// ttl so abandoned sessions do not leak.
type RedisFlagStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewRedisFlagStore(client redis.Cmdable, prefix string, ttl time.Duration) *RedisFlagStore {
	if prefix == "" {
		prefix = "wizard:full-pass:"
	}
	return &RedisFlagStore{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisFlagStore) key(sessionID string) string {
	return r.prefix + sessionID
}

func (r *RedisFlagStore) IsSet(ctx context.Context, sessionID string) (bool, error) {
	_, err := r.client.Get(ctx, r.key(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get: %w", err)
	}
	return true, nil
}

func (r *RedisFlagStore) Set(ctx context.Context, sessionID string) error {
	if err := r.client.Set(ctx, r.key(sessionID), "1", r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *RedisFlagStore) Clear(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
