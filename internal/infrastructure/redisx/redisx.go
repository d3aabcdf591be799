// Package redisx holds the optional Redis-backed caches. Every operation is
// best-effort: a nil cache or an unreachable server degrades to the store.
package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// Cached order document: order_status:{order_id} -> JSON body.
	keyOrderStatus = "order_status:%s"

	// Confirmation dedup mark: dedup:payment:{transaction_id}.
	keyPaymentDedup = "dedup:payment:%s"
)

var (
	ttlStatusCache = 5 * time.Minute
	ttlDedup       = 48 * time.Hour
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

// StatusCache caches order documents by id.
type StatusCache struct {
	rdb *redis.Client
}

func NewStatusCache(rdb *redis.Client) *StatusCache {
	if rdb == nil {
		return nil
	}
	return &StatusCache{rdb: rdb}
}

func (c *StatusCache) Get(ctx context.Context, orderID string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	body, err := c.rdb.Get(ctx, fmt.Sprintf(keyOrderStatus, orderID)).Bytes()
	if err != nil || len(body) == 0 {
		return nil, false
	}
	return body, true
}

func (c *StatusCache) Set(ctx context.Context, orderID string, doc []byte) {
	if c == nil {
		return
	}
	_ = c.rdb.Set(ctx, fmt.Sprintf(keyOrderStatus, orderID), doc, ttlStatusCache).Err()
}

func (c *StatusCache) Invalidate(ctx context.Context, orderID string) {
	if c == nil {
		return
	}
	_ = c.rdb.Del(ctx, fmt.Sprintf(keyOrderStatus, orderID)).Err()
}

// MarkConfirmation records that a transaction id was seen and reports whether
// it is the first sighting. The mark is observational only; confirmation is
// intentionally not gated on it.
func (c *StatusCache) MarkConfirmation(ctx context.Context, transactionID string) bool {
	if c == nil {
		return true
	}
	first, err := c.rdb.SetNX(ctx, fmt.Sprintf(keyPaymentDedup, transactionID), "1", ttlDedup).Result()
	if err != nil {
		return true
	}
	return first
}
