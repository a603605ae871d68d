package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper guards webhook processing against redelivery. State application is
// idempotent on its own; the deduper exists to skip side channels (reminder
// emails) and log noise for events already seen. Callers check Seen before
// applying and Mark only after a successful application, so a failed apply
// leaves the event eligible for the provider's redelivery.
type Deduper interface {
	// Seen reports whether the event ID has already been processed.
	Seen(ctx context.Context, eventID string) (bool, error)

	// Mark records the event ID as processed.
	Mark(ctx context.Context, eventID string) error
}

// RedisDeduper tracks processed event IDs in Redis with a TTL covering the
// provider's redelivery horizon.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisDeduper creates a deduper on the given client. A non-positive TTL
// defaults to 72 hours, which exceeds typical provider retry schedules.
func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	if client == nil {
		panic("billing: redis client is required")
	}
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &RedisDeduper{client: client, ttl: ttl, prefix: "billing:event:"}
}

// Seen implements Deduper with an EXISTS round trip.
func (d *RedisDeduper) Seen(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		// Events without an ID cannot be deduplicated; process them.
		return false, nil
	}
	n, err := d.client.Exists(ctx, d.prefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("billing: event dedup check failed: %w", err)
	}
	return n > 0, nil
}

// Mark implements Deduper with a SET carrying the redelivery-horizon TTL.
func (d *RedisDeduper) Mark(ctx context.Context, eventID string) error {
	if eventID == "" {
		return nil
	}
	if err := d.client.Set(ctx, d.prefix+eventID, 1, d.ttl).Err(); err != nil {
		return fmt.Errorf("billing: event dedup mark failed: %w", err)
	}
	return nil
}

// NoopDeduper processes every delivery. Useful when Redis is not deployed;
// state application stays idempotent without it.
type NoopDeduper struct{}

func (NoopDeduper) Seen(context.Context, string) (bool, error) { return false, nil }
func (NoopDeduper) Mark(context.Context, string) error         { return nil }
