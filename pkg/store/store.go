// Package store persists the source credential and the most recent run
// result per target in Redis. Absence of a value is a valid outcome,
// reported as ErrNotFound and distinct from a read failure.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

// Prometheus metrics for store operations.
var (
	storeMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commentpulse_store_misses_total",
		Help: "Total reads of absent keys",
	})

	storeErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commentpulse_store_errors_total",
		Help: "Total store operation errors by operation",
	}, []string{"operation"})
)

// ErrNotFound indicates the requested key has no value. This is not a
// failure; callers decide whether absence is acceptable.
var ErrNotFound = errors.New("not found")

// Redis keys used by the store.
const (
	credentialKey   = "commentpulse:credential:source_api_key"
	resultKeyPrefix = "commentpulse:result:"
)

// Store is a Redis-backed key-value store for credentials and run results.
type Store struct {
	redis *redis.Client
}

// New creates a store.
func New(redisClient *redis.Client) *Store {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &Store{redis: redisClient}
}

// GetCredential returns the source access credential.
func (s *Store) GetCredential(ctx context.Context) (string, error) {
	key, err := s.redis.Get(ctx, credentialKey).Result()
	if err != nil {
		if err == redis.Nil {
			storeMissesTotal.Inc()
			return "", ErrNotFound
		}
		storeErrorsTotal.WithLabelValues("get_credential").Inc()
		return "", fmt.Errorf("redis get credential: %w", err)
	}
	return key, nil
}

// SetCredential stores the source access credential.
func (s *Store) SetCredential(ctx context.Context, key string) error {
	if err := s.redis.Set(ctx, credentialKey, key, 0).Err(); err != nil {
		storeErrorsTotal.WithLabelValues("set_credential").Inc()
		return fmt.Errorf("redis set credential: %w", err)
	}
	return nil
}

// SaveResult stores v as the most recent result for target, replacing any
// previous one. Last write wins; no history is kept.
func (s *Store) SaveResult(ctx context.Context, target string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		storeErrorsTotal.WithLabelValues("save_result").Inc()
		return fmt.Errorf("marshal result: %w", err)
	}

	if err := s.redis.Set(ctx, resultKeyPrefix+target, data, 0).Err(); err != nil {
		storeErrorsTotal.WithLabelValues("save_result").Inc()
		return fmt.Errorf("redis set result: %w", err)
	}
	return nil
}

// GetResult loads the most recent result for target into v.
func (s *Store) GetResult(ctx context.Context, target string, v any) error {
	data, err := s.redis.Get(ctx, resultKeyPrefix+target).Bytes()
	if err != nil {
		if err == redis.Nil {
			storeMissesTotal.Inc()
			return ErrNotFound
		}
		storeErrorsTotal.WithLabelValues("get_result").Inc()
		return fmt.Errorf("redis get result: %w", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		storeErrorsTotal.WithLabelValues("get_result").Inc()
		return fmt.Errorf("unmarshal result: %w", err)
	}
	return nil
}
