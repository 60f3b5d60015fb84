package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jdeweedata/circletel-sub016/internal/domain"
)

const (
	// DefaultResultTTL is the short cache TTL for aggregated results.
	DefaultResultTTL = 5 * time.Minute
	// providerIndexTTL outlives the result TTL so invalidation sets do
	// not expire before their members.
	providerIndexTTL = time.Hour
)

// Store handles Redis operations for the result cache and call log.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// SaveResult caches an aggregated result under its query fingerprint and
// indexes the fingerprint per participating provider for invalidation.
func (s *Store) SaveResult(ctx context.Context, fingerprint string, result *domain.AggregatedResult, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, ResultKey(fingerprint), data, ttl)
	for _, pr := range result.Providers {
		key := ProviderIndexKey(pr.ProviderID)
		pipe.SAdd(ctx, key, fingerprint)
		pipe.Expire(ctx, key, providerIndexTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache result: %w", err)
	}
	return nil
}

// GetResult retrieves a cached result. A miss returns (nil, false, nil).
func (s *Store) GetResult(ctx context.Context, fingerprint string) (*domain.AggregatedResult, bool, error) {
	data, err := s.client.Get(ctx, ResultKey(fingerprint)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get cached result: %w", err)
	}

	var result domain.AggregatedResult
	if err := json.Unmarshal(data, &result); err != nil {
		// Corrupt entry: treat as a miss and let it be overwritten.
		return nil, false, nil
	}
	return &result, true, nil
}

// InvalidateProvider drops every cached result the provider contributed
// to. Called when a provider's datasets are re-activated or replaced.
func (s *Store) InvalidateProvider(ctx context.Context, providerID string) error {
	key := ProviderIndexKey(providerID)
	fingerprints, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("failed to list provider fingerprints: %w", err)
	}

	if len(fingerprints) > 0 {
		keys := make([]string, 0, len(fingerprints)+1)
		for _, fp := range fingerprints {
			keys = append(keys, ResultKey(fp))
		}
		if err := s.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("failed to invalidate provider cache: %w", err)
		}
	}
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to clear provider index: %w", err)
	}
	return nil
}

// FlushResults removes all cached results.
func (s *Store) FlushResults(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, KeyPrefixResult+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete cache key: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to flush result cache: %w", err)
	}
	return nil
}
