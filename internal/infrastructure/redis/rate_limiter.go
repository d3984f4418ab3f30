package redis

import (
	"context"
	"fmt"
	"time"
)

const (
	DefaultLoginStartLimit  = 5
	DefaultLoginStartWindow = time.Minute
)

const loginStartKeyPattern = "login_starts:%s"

// LoginRateLimiter caps how many login orchestrations a single username
// can start within a rolling window. Each start increments a per-username
// counter whose TTL opens the next window.
type LoginRateLimiter struct {
	client *Client
	limit  int64
	window time.Duration
}

func NewLoginRateLimiter(client *Client, limit int64, window time.Duration) *LoginRateLimiter {
	if limit <= 0 {
		limit = DefaultLoginStartLimit
	}
	if window <= 0 {
		window = DefaultLoginStartWindow
	}
	return &LoginRateLimiter{client: client, limit: limit, window: window}
}

// Allow reports whether the username may start another login now.
func (l *LoginRateLimiter) Allow(ctx context.Context, username string) (bool, error) {
	key := fmt.Sprintf(loginStartKeyPattern, username)
	count, err := l.client.Incr(ctx, key)
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window); err != nil {
			return false, err
		}
	}
	return count <= l.limit, nil
}
