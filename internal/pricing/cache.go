package pricing

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// QuoteCache wraps a Quoter with a short-lived redis cache. The oracle
// itself never caches; this wrapper implements the callers' 30-second
// refresh cadence so that upstream providers are not hit on every request.
//
// Cache failures degrade to a direct oracle call. Only successful quotes
// are cached: an unavailable price is retried on the next request.
type QuoteCache struct {
	next Quoter
	rdb  *redis.Client
	ttl  time.Duration
	lg   *zap.Logger
}

// NewQuoteCache builds a cache in front of next using the given redis client.
func NewQuoteCache(next Quoter, rdb *redis.Client, ttl time.Duration, lg *zap.Logger) *QuoteCache {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &QuoteCache{next: next, rdb: rdb, ttl: ttl, lg: lg}
}

func (c *QuoteCache) cacheKey(src Source) string {
	return "breadstore:price:" + src.Key()
}

// PriceUSD returns the cached quote when fresh, otherwise quotes through the
// underlying oracle and caches the result.
func (c *QuoteCache) PriceUSD(ctx context.Context, src Source) (decimal.Decimal, bool) {
	key := c.cacheKey(src)

	cached, err := c.rdb.Get(ctx, key).Result()
	if err == nil {
		price, perr := decimal.NewFromString(cached)
		if perr == nil && price.IsPositive() {
			return price, true
		}
	} else if err != redis.Nil {
		c.lg.Debug("price cache read failed", zap.String("key", key), zap.Error(err))
	}

	price, ok := c.next.PriceUSD(ctx, src)
	if !ok {
		return decimal.Zero, false
	}

	if err := c.rdb.Set(ctx, key, price.String(), c.ttl).Err(); err != nil {
		c.lg.Debug("price cache write failed", zap.String("key", key), zap.Error(err))
	}
	return price, true
}
