package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LeagueKey holds the JSON of the combined league view.
const LeagueKey = "league:snapshot"

// Snapshots caches the rendered league view in Redis.
type Snapshots struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshots returns a cache whose entries expire after ttl; zero means
// they never expire.
func NewSnapshots(client *redis.Client, ttl time.Duration) *Snapshots {
	return &Snapshots{client: client, ttl: ttl}
}

// Get returns the cached snapshot, or ok=false when there is none.
func (s *Snapshots) Get(ctx context.Context) (data []byte, ok bool, err error) {
	b, err := s.client.Get(ctx, LeagueKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get snapshot: %w", err)
	}
	return b, true, nil
}

func (s *Snapshots) Set(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, LeagueKey, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("set snapshot: %w", err)
	}
	return nil
}

// Invalidate drops the snapshot after the league changed.
func (s *Snapshots) Invalidate(ctx context.Context) error {
	if err := s.client.Del(ctx, LeagueKey).Err(); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}
