package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/deskroute/deskroute/internal/state"
)

const (
	// stateTTL bounds the per-customer tracking window. State is derived
	// data: when it expires it is rebuilt by replaying message history.
	stateTTL = 7 * 24 * time.Hour

	// dedupTTL is how long processed event ids are remembered. It must
	// exceed the transport's redelivery horizon.
	dedupTTL = 48 * time.Hour

	rateLimitTTL = time.Minute
)

// RedisStore handles Redis operations: the conversation-state cache,
// event deduplication, and ingestion rate limiting.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Client exposes the underlying client for middleware that shares the
// connection.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// stateKey returns the key for a customer's rolling conversation state.
func stateKey(customerID string) string {
	return fmt.Sprintf("state:%s", customerID)
}

// eventKey returns the dedup key for a processed event.
func eventKey(eventID string) string {
	return fmt.Sprintf("event:%s", eventID)
}

// rateLimitKey returns the key for an identifier's ingestion counter.
func rateLimitKey(identifier string) string {
	return fmt.Sprintf("ratelimit:%s", identifier)
}

// LoadState retrieves a customer's cached conversation state, or nil when
// none is cached.
func (s *RedisStore) LoadState(ctx context.Context, customerID string) (*state.State, error) {
	data, err := s.client.Get(ctx, stateKey(customerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var st state.State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	if st.Topics == nil {
		st.Topics = make(map[string]int)
	}
	return &st, nil
}

// SaveState caches a customer's conversation state with a refreshed TTL.
func (s *RedisStore) SaveState(ctx context.Context, st state.State) error {
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, stateKey(st.CustomerID), data, stateTTL).Err()
}

// MarkEventProcessed records an event id and reports whether this delivery
// was the first. At-least-once transports redeliver; cumulative counters
// must only be updated on the first delivery.
func (s *RedisStore) MarkEventProcessed(ctx context.Context, eventID string) (bool, error) {
	return s.client.SetNX(ctx, eventKey(eventID), "1", dedupTTL).Result()
}

// CheckRateLimit checks if an identifier has exceeded the rate limit.
func (s *RedisStore) CheckRateLimit(ctx context.Context, identifier string, limit int) (bool, error) {
	count, err := s.client.Get(ctx, rateLimitKey(identifier)).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, err
	}
	return count < limit, nil
}

// IncrementRateLimit increments the rate limit counter.
func (s *RedisStore) IncrementRateLimit(ctx context.Context, identifier string) error {
	key := rateLimitKey(identifier)

	pipe := s.client.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, rateLimitTTL)
	_, err := pipe.Exec(ctx)
	return err
}
