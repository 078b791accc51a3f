package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwalitptl/scheduling-api/internal/schedule"
)

// SlotCache keeps resolved day slots in Redis for a short TTL. Entries
// for a provider are dropped whenever their schedule or exceptions are
// replaced, so the TTL only bounds staleness against out-of-band
// booking writes.
type SlotCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSlotCache(rdb *redis.Client, ttl time.Duration) *SlotCache {
	return &SlotCache{rdb: rdb, ttl: ttl}
}

func key(providerID, clinicID uuid.UUID, date string) string {
	return fmt.Sprintf("slots:%s:%s:%s", providerID, clinicID, date)
}

func (c *SlotCache) Get(ctx context.Context, providerID, clinicID uuid.UUID, date string) ([]schedule.DisplaySlot, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	raw, err := c.rdb.Get(ctx, key(providerID, clinicID, date)).Bytes()
	if err != nil {
		return nil, false
	}
	var slots []schedule.DisplaySlot
	if err := json.Unmarshal(raw, &slots); err != nil {
		return nil, false
	}
	return slots, true
}

func (c *SlotCache) Set(ctx context.Context, providerID, clinicID uuid.UUID, date string, slots []schedule.DisplaySlot) {
	if c == nil || c.rdb == nil {
		return
	}
	raw, err := json.Marshal(slots)
	if err != nil {
		return
	}
	// Best effort: a failed cache write never fails the request.
	c.rdb.Set(ctx, key(providerID, clinicID, date), raw, c.ttl)
}

// InvalidateProvider removes every cached day for a provider/clinic.
func (c *SlotCache) InvalidateProvider(ctx context.Context, providerID, clinicID uuid.UUID) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	pattern := fmt.Sprintf("slots:%s:%s:*", providerID, clinicID)
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to invalidate slot cache: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan slot cache keys: %w", err)
	}
	return nil
}
