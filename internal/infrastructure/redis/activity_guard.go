package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	// DefaultActivityResultTTL bounds how long completed-activity markers
	// are retained. Redelivery of an activity older than this window falls
	// back on the activity's own idempotency.
	DefaultActivityResultTTL = time.Hour
)

// Key patterns
const (
	activityResultKeyPattern = "activity_result:%s:%d" // instanceID:seq
)

// ActivityResultKey generates the dedup key for a recorded activity result
func ActivityResultKey(instanceID string, seq int) string {
	return fmt.Sprintf(activityResultKeyPattern, instanceID, seq)
}

// ActivityGuard is a cross-process duplicate-execution guard for workflow
// activities. The runtime delivers activities at least once; the guard
// turns redeliveries of an already-executed activity into a lookup of the
// first execution's result.
type ActivityGuard struct {
	client *Client
	ttl    time.Duration
}

// NewActivityGuard creates a guard backed by the shared Redis client.
func NewActivityGuard(client *Client, ttl time.Duration) *ActivityGuard {
	if ttl <= 0 {
		ttl = DefaultActivityResultTTL
	}
	return &ActivityGuard{client: client, ttl: ttl}
}

// Lookup returns the recorded result for (instanceID, seq) if a prior
// execution stored one.
func (g *ActivityGuard) Lookup(ctx context.Context, instanceID string, seq int) (string, bool, error) {
	val, err := g.client.rdb.Get(ctx, ActivityResultKey(instanceID, seq)).Result()
	if err == goredis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Store records the result of an activity execution. If a concurrent
// execution raced us to the key, the first writer wins and its result is
// returned so both callers observe the same outcome.
func (g *ActivityGuard) Store(ctx context.Context, instanceID string, seq int, result string) (string, error) {
	key := ActivityResultKey(instanceID, seq)
	inserted, err := g.client.SetNX(ctx, key, result, g.ttl)
	if err != nil {
		return "", err
	}
	if inserted {
		return result, nil
	}
	return g.client.Get(ctx, key)
}
