package redis

import (
	"context"
	"fmt"
	"time"

	"svmedia/internal/infra/metrics"
)

// RateLimiter is a fixed-window counter: the first hit in a window sets the TTL.
type RateLimiter struct {
	client Client
	name   string
	limit  int
	window time.Duration
}

func NewRateLimiter(client Client, name string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{client: client, name: name, limit: limit, window: window}
}

func (r *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		metrics.IncRateLimit(r.name, "error")
		return false, err
	}

	if count == 1 {
		if err := r.client.Expire(ctx, key, r.window); err != nil {
			metrics.IncRateLimit(r.name, "error")
			return false, err
		}
	}

	if count > int64(r.limit) {
		metrics.IncRateLimit(r.name, "deny")
		return false, nil
	}

	metrics.IncRateLimit(r.name, "allow")
	return true, nil
}

// RedeemAttemptKey buckets redemption attempts per client address.
func RedeemAttemptKey(clientIP string) string {
	return fmt.Sprintf("rate_limit:redeem:%s", clientIP)
}
