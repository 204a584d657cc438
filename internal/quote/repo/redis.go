package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	errx "github.com/tinnova-pe/cotizador/internal/core/error"
	"github.com/tinnova-pe/cotizador/internal/quote"
	logx "github.com/tinnova-pe/cotizador/pkg/logger"
)

// QuoteRepository persists the per-user quotation state between requests.
type QuoteRepository interface {
	// Load retrieves the user's quote; a user without one gets a fresh
	// empty quote, not an error.
	Load(ctx context.Context, userID string) (*quote.Quote, error)

	// Save stores the quote, extending its TTL.
	Save(ctx context.Context, userID string, q *quote.Quote) error

	// Clear removes the user's quote entirely.
	Clear(ctx context.Context, userID string) error
}

type RedisQuoteRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisQuoteRepository(rdb redis.Cmdable, ttl time.Duration) *RedisQuoteRepository {
	return &RedisQuoteRepository{rdb: rdb, ttl: ttl}
}

func (r *RedisQuoteRepository) quoteKey(userID string) string {
	return fmt.Sprintf("quote:%s:state", userID)
}

func (r *RedisQuoteRepository) Load(ctx context.Context, userID string) (*quote.Quote, error) {
	key := r.quoteKey(userID)

	raw, err := r.rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return quote.New(), nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load quote from redis")
		return nil, errx.WrapRedis(err)
	}

	var q quote.Quote
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		logx.Error().Err(err).Str("userID", userID).Msg("failed to unmarshal quote")
		return nil, fmt.Errorf("unmarshal quote: %w", err)
	}
	return &q, nil
}

func (r *RedisQuoteRepository) Save(ctx context.Context, userID string, q *quote.Quote) error {
	b, err := json.Marshal(q)
	if err != nil {
		logx.Error().Err(err).Str("userID", userID).Msg("failed to marshal quote")
		return fmt.Errorf("marshal quote: %w", err)
	}
	key := r.quoteKey(userID)

	if err := r.rdb.Set(ctx, key, b, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to save quote to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisQuoteRepository) Clear(ctx context.Context, userID string) error {
	key := r.quoteKey(userID)
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete quote from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

var _ QuoteRepository = (*RedisQuoteRepository)(nil)
