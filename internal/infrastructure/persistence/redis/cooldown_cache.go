package redis

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kiko-app/kiko-matching/internal/domain/matching"
	"github.com/kiko-app/kiko-matching/internal/domain/shared"
)

// CooldownCache decorates a matching.Repository, caching each proposer's
// cooldown set in Redis. Generation reads the set once per user per round,
// and the 28-day window moves slowly, so a short TTL in front of the
// rejection query is safe.
//
// Like VectorCache, cache failures never fail a read: on any Redis error
// the call falls through to the source.
type CooldownCache struct {
	source matching.Repository
	inner  cooldownProposals
}

// cooldownProposals overrides the cooldown read, delegating everything else.
type cooldownProposals struct {
	matching.ProposalRepository
	cache  *Cache
	logger *slog.Logger
}

// NewCooldownCache wraps a match repository with cooldown set caching.
func NewCooldownCache(source matching.Repository, cache *Cache, logger *slog.Logger) *CooldownCache {
	return &CooldownCache{
		source: source,
		inner: cooldownProposals{
			ProposalRepository: source.Proposals(),
			cache:              cache,
			logger:             logger.With(slog.String("component", "cooldown_cache")),
		},
	}
}

// Batches returns the underlying batch repository unchanged.
func (c *CooldownCache) Batches() matching.BatchRepository {
	return c.source.Batches()
}

// Proposals returns the proposal repository with the cached cooldown read.
func (c *CooldownCache) Proposals() matching.ProposalRepository {
	return &c.inner
}

// RecentlyRejectedCandidateIDs returns the proposer's cooldown set, from
// cache when possible.
func (p *cooldownProposals) RecentlyRejectedCandidateIDs(ctx context.Context, proposerID shared.UserID, since time.Time) ([]shared.UserID, error) {
	key := CooldownKey(string(proposerID))

	var cached []shared.UserID
	err := p.cache.Get(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		p.logger.Warn("cooldown cache read failed, falling through",
			slog.String("proposer_id", string(proposerID)),
			slog.String("error", err.Error()),
		)
	}

	ids, err := p.ProposalRepository.RecentlyRejectedCandidateIDs(ctx, proposerID, since)
	if err != nil {
		return nil, err
	}

	if setErr := p.cache.Set(ctx, key, ids, TTLCooldownSet); setErr != nil {
		p.logger.Warn("cooldown cache write failed",
			slog.String("proposer_id", string(proposerID)),
			slog.String("error", setErr.Error()),
		)
	}

	return ids, nil
}
