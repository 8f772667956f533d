// Copyright (c) 2026 Plotweave. All rights reserved.

package taxonomy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/plotweave/plotweave/internal/platform/constants"
)

// CachedRepository decorates a [Repository] with a short-TTL, fandom-keyed
// Redis snapshot cache.
//
// The cache is an optimization, never a correctness dependency: every Redis
// failure is logged and the read falls through to the inner repository.
// Writes to a fandom's taxonomy must call [CachedRepository.Invalidate].
type CachedRepository struct {
	inner  Repository
	client *redis.Client
	logger *slog.Logger
}

// NewCachedRepository wraps inner with the Redis snapshot cache.
func NewCachedRepository(inner Repository, client *redis.Client, logger *slog.Logger) *CachedRepository {
	return &CachedRepository{inner: inner, client: client, logger: logger}
}

// Snapshot implements [Repository] with read-through caching.
func (repository *CachedRepository) Snapshot(ctx context.Context, fandomID int64, activeOnly bool) (*Snapshot, error) {
	key := snapshotKey(fandomID, activeOnly)

	cached, err := repository.client.Get(ctx, key).Bytes()
	if err == nil {
		snapshot := &Snapshot{}
		if unmarshalErr := json.Unmarshal(cached, snapshot); unmarshalErr == nil {
			return snapshot, nil
		}
		// Corrupt entry: drop it and reload from the source of truth.
		repository.client.Del(ctx, key)
	} else if err != redis.Nil {
		repository.logger.Warn("taxonomy_cache_read_failed",
			slog.Int64("fandom_id", fandomID),
			slog.Any("error", err),
		)
	}

	snapshot, err := repository.inner.Snapshot(ctx, fandomID, activeOnly)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(snapshot)
	if err == nil {
		if setErr := repository.client.Set(ctx, key, encoded, constants.SnapshotCacheTTL).Err(); setErr != nil {
			repository.logger.Warn("taxonomy_cache_write_failed",
				slog.Int64("fandom_id", fandomID),
				slog.Any("error", setErr),
			)
		}
	}

	return snapshot, nil
}

// ListFandoms implements [Repository]. Fandom listings are cheap single-table
// reads and bypass the cache.
func (repository *CachedRepository) ListFandoms(ctx context.Context, activeOnly bool) ([]*Fandom, error) {
	return repository.inner.ListFandoms(ctx, activeOnly)
}

// GetFandomBySlug implements [Repository].
func (repository *CachedRepository) GetFandomBySlug(ctx context.Context, slug string) (*Fandom, error) {
	return repository.inner.GetFandomBySlug(ctx, slug)
}

// Invalidate drops both snapshot variants for a fandom. Management tooling
// must call this after committing any taxonomy or rule write.
func (repository *CachedRepository) Invalidate(ctx context.Context, fandomID int64) error {
	keys := []string{snapshotKey(fandomID, true), snapshotKey(fandomID, false)}
	if err := repository.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("taxonomy: cache invalidation failed for fandom %d: %w", fandomID, err)
	}
	return nil
}

func snapshotKey(fandomID int64, activeOnly bool) string {
	return fmt.Sprintf("%s%d:%t", constants.RedisPrefixSnapshot, fandomID, activeOnly)
}
