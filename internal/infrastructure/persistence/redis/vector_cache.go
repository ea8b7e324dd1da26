package redis

import (
	"context"
	"errors"
	"log/slog"

	"github.com/kiko-app/kiko-matching/internal/domain/profile"
	"github.com/kiko-app/kiko-matching/internal/domain/shared"
)

// VectorCache is a read-through profile.VectorProvider decorator. Generation
// loads the same vectors for every user in a round, so a short-lived cache in
// front of PostgreSQL takes most of the read load off the vectors table.
//
// Cache failures never fail a read: on any Redis error the call falls
// through to the source.
type VectorCache struct {
	source profile.VectorProvider
	cache  *Cache
	logger *slog.Logger
}

// NewVectorCache creates a new VectorCache wrapping the given source.
func NewVectorCache(source profile.VectorProvider, cache *Cache, logger *slog.Logger) *VectorCache {
	return &VectorCache{
		source: source,
		cache:  cache,
		logger: logger.With(slog.String("component", "vector_cache")),
	}
}

// GetVector returns the user's vector, from cache when possible.
func (c *VectorCache) GetVector(ctx context.Context, userID shared.UserID) (*profile.UserVector, error) {
	key := VectorKey(string(userID))

	var cached profile.UserVector
	err := c.cache.Get(ctx, key, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		c.logger.Warn("vector cache read failed, falling through",
			slog.String("user_id", string(userID)),
			slog.String("error", err.Error()),
		)
	}

	v, err := c.source.GetVector(ctx, userID)
	if err != nil {
		return nil, err
	}

	if setErr := c.cache.Set(ctx, key, v, TTLVectorCache); setErr != nil {
		c.logger.Warn("vector cache write failed",
			slog.String("user_id", string(userID)),
			slog.String("error", setErr.Error()),
		)
	}

	return v, nil
}

// Invalidate drops the cached vector for a user. Called when a user retakes
// the battery.
func (c *VectorCache) Invalidate(ctx context.Context, userID shared.UserID) error {
	return c.cache.Delete(ctx, VectorKey(string(userID)))
}
