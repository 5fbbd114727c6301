// Package cache keeps the per-associate debt summary in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/credicuenta/debt-ledger/internal/domain"
)

const (
	summaryKeyPrefix    = "debt:summary:"
	generationKeyPrefix = "debt:summary:gen:"
)

// DebtCache stores computed debt summaries.
//
// Entries are keyed by a per-associate generation. Invalidate bumps the
// generation, so a summary computed before a write and stored after it
// lands under a key no reader looks up anymore.
type DebtCache interface {
	// Generation returns the associate's current generation; read it before
	// computing a summary to store
	Generation(ctx context.Context, associateID uuid.UUID) (int64, error)
	// GetSummary returns (nil, nil) on a miss
	GetSummary(ctx context.Context, associateID uuid.UUID, generation int64) (*domain.DebtSummary, error)
	SetSummary(ctx context.Context, summary *domain.DebtSummary, generation int64) error
	Invalidate(ctx context.Context, associateID uuid.UUID) error
}

// SummaryKey is the Redis key holding an associate's summary for a generation
func SummaryKey(associateID uuid.UUID, generation int64) string {
	return fmt.Sprintf("%s%s:%d", summaryKeyPrefix, associateID, generation)
}

// GenerationKey is the Redis counter bumped on every write for the associate
func GenerationKey(associateID uuid.UUID) string {
	return generationKeyPrefix + associateID.String()
}

type redisDebtCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisDebtCache creates a DebtCache on top of a go-redis client
func NewRedisDebtCache(client redis.Cmdable, ttl time.Duration) DebtCache {
	return &redisDebtCache{client: client, ttl: ttl}
}

func (c *redisDebtCache) Generation(ctx context.Context, associateID uuid.UUID) (int64, error) {
	generation, err := c.client.Get(ctx, GenerationKey(associateID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get summary generation: %w", err)
	}
	return generation, nil
}

func (c *redisDebtCache) GetSummary(ctx context.Context, associateID uuid.UUID, generation int64) (*domain.DebtSummary, error) {
	raw, err := c.client.Get(ctx, SummaryKey(associateID, generation)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get summary: %w", err)
	}

	var summary domain.DebtSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	return &summary, nil
}

func (c *redisDebtCache) SetSummary(ctx context.Context, summary *domain.DebtSummary, generation int64) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if err := c.client.Set(ctx, SummaryKey(summary.AssociateID, generation), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set summary: %w", err)
	}
	return nil
}

// Invalidate bumps the generation; entries of older generations expire on
// their own TTL
func (c *redisDebtCache) Invalidate(ctx context.Context, associateID uuid.UUID) error {
	if err := c.client.Incr(ctx, GenerationKey(associateID)).Err(); err != nil {
		return fmt.Errorf("invalidate summary: %w", err)
	}
	return nil
}

// NopDebtCache never stores anything; used when Redis is not configured
type NopDebtCache struct{}

func (NopDebtCache) Generation(context.Context, uuid.UUID) (int64, error) { return 0, nil }

func (NopDebtCache) GetSummary(context.Context, uuid.UUID, int64) (*domain.DebtSummary, error) {
	return nil, nil
}

func (NopDebtCache) SetSummary(context.Context, *domain.DebtSummary, int64) error { return nil }

func (NopDebtCache) Invalidate(context.Context, uuid.UUID) error { return nil }
