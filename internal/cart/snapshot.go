package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopin/storefront-bff/pkg/redis"
)

// Snapshot is the persisted form of one session's optimistic cart, so the
// local state survives a process restart between debounce cycles.
type Snapshot struct {
	Lines   []Line    `json:"lines"`
	Pending bool      `json:"pending"`
	SavedAt time.Time `json:"saved_at"`
}

// SnapshotStore persists optimistic cart snapshots per user.
type SnapshotStore interface {
	Save(ctx context.Context, userID string, snap Snapshot) error
	Load(ctx context.Context, userID string) (*Snapshot, error)
	Delete(ctx context.Context, userID string) error
}

type redisSnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSnapshotStore builds the Redis-backed snapshot store.
func NewRedisSnapshotStore(client *redis.Client, ttl time.Duration) (SnapshotStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &redisSnapshotStore{client: client, ttl: ttl}, nil
}

func (s *redisSnapshotStore) Save(ctx context.Context, userID string, snap Snapshot) error {
	encoded, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal cart snapshot: %w", err)
	}
	return s.client.Set(ctx, s.client.CartSnapshotKey(userID), string(encoded), s.ttl)
}

func (s *redisSnapshotStore) Load(ctx context.Context, userID string) (*Snapshot, error) {
	raw, err := s.client.Get(ctx, s.client.CartSnapshotKey(userID))
	if err != nil {
		if errors.Is(err, redis.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load cart snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		// A corrupt snapshot is recoverable: drop it and rehydrate from
		// the upstream cart.
		return nil, nil
	}
	return &snap, nil
}

func (s *redisSnapshotStore) Delete(ctx context.Context, userID string) error {
	return s.client.Del(ctx, s.client.CartSnapshotKey(userID))
}
