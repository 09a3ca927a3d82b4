package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "session:"
	markerKeyPrefix  = "expired:"

	// markerTTL bounds how long an unconsumed "was expired" marker lives.
	markerTTL = 24 * time.Hour

	// ttlSlop keeps a revoked-but-unswept record visible slightly past its
	// hard expiry so the sweeper can still set the marker for it.
	ttlSlop = time.Minute
)

// RedisStore persists sessions in Redis. Records carry a TTL slightly past
// the hard expiry; validity checks never rely on the TTL alone.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ttl := time.Until(s.HardExpiry) + ttlSlop
	if ttl < ttlSlop {
		ttl = ttlSlop
	}

	if err := r.client.Set(ctx, sessionKeyPrefix+s.ID.String(), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	payload, err := r.client.Get(ctx, sessionKeyPrefix+id.String()).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &s, nil
}

func (r *RedisStore) Revoke(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, sessionKeyPrefix+id.String()).Err(); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

func (r *RedisStore) List(ctx context.Context) ([]*Session, error) {
	var sessions []*Session
	iter := r.client.Scan(ctx, 0, sessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		payload, err := r.client.Get(ctx, iter.Val()).Bytes()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get session: %w", err)
		}
		var s Session
		if err := json.Unmarshal(payload, &s); err != nil {
			continue
		}
		sessions = append(sessions, &s)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan sessions: %w", err)
	}
	return sessions, nil
}

func (r *RedisStore) SetExpiredMarker(ctx context.Context, userID uuid.UUID) error {
	if err := r.client.Set(ctx, markerKeyPrefix+userID.String(), "1", markerTTL).Err(); err != nil {
		return fmt.Errorf("failed to set expired marker: %w", err)
	}
	return nil
}

func (r *RedisStore) ConsumeExpiredMarker(ctx context.Context, userID uuid.UUID) (bool, error) {
	n, err := r.client.Del(ctx, markerKeyPrefix+userID.String()).Result()
	if err != nil {
		return false, fmt.Errorf("failed to consume expired marker: %w", err)
	}
	return n > 0, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
