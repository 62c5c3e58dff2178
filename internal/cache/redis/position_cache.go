package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/orderbot/internal/domain"
)

// PositionCache implements domain.PositionCache using Redis hashes. Each
// position is stored at "{bot}:position:{instrument}" with fields
// "net_quantity" and "ts" (Unix nanoseconds).
type PositionCache struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

// NewPositionCache creates a PositionCache. Keys expire after ttl without an
// update; ttl <= 0 keeps them forever.
func NewPositionCache(c *Client, ttl time.Duration) *PositionCache {
	return &PositionCache{rdb: c.Underlying(), ttl: ttl, now: time.Now}
}

func positionKey(bot, instrument string) string {
	return bot + ":position:" + instrument
}

// SetPositions writes every position in one pipeline.
func (pc *PositionCache) SetPositions(ctx context.Context, bot string, positions []domain.Position) error {
	if len(positions) == 0 {
		return nil
	}
	ts := strconv.FormatInt(pc.now().UnixNano(), 10)
	_, err := pc.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, pos := range positions {
			key := positionKey(bot, pos.Instrument)
			p.HSet(ctx, key, "net_quantity", pos.NetQuantity.String(), "ts", ts)
			if pc.ttl > 0 {
				p.Expire(ctx, key, pc.ttl)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: set positions %s: %w", bot, err)
	}
	return nil
}

// GetPosition reads one mirrored position. It returns domain.ErrNotFound when
// the key does not exist.
func (pc *PositionCache) GetPosition(ctx context.Context, bot, instrument string) (domain.Position, error) {
	vals, err := pc.rdb.HGetAll(ctx, positionKey(bot, instrument)).Result()
	if err != nil {
		return domain.Position{}, fmt.Errorf("redis: get position %s/%s: %w", bot, instrument, err)
	}
	raw, ok := vals["net_quantity"]
	if !ok {
		return domain.Position{}, domain.ErrNotFound
	}
	qty, err := decimal.NewFromString(raw)
	if err != nil {
		return domain.Position{}, fmt.Errorf("redis: parse position %s/%s: %w", bot, instrument, err)
	}
	return domain.Position{Instrument: instrument, NetQuantity: qty}, nil
}

var _ domain.PositionCache = (*PositionCache)(nil)
