package ports

import "context"

// RateLimiter admits or rejects work per key. A rejected Acquire returns
// an error wrapping ErrRateLimitExceeded.
type RateLimiter interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}
