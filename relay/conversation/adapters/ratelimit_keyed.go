package adapters

import (
	"context"
	"fmt"
	"sync"
	"time"

	ports "github.com/ZanzyTHEbar/ai-counselor/relay/conversation/ports"
	"golang.org/x/time/rate"
)

// KeyedRateLimiter admits work per key with a token bucket (capacity tokens,
// one regained every refillRate) and caps the requests running at once for
// the same key. The release func returned by Acquire frees the in-flight slot.
type KeyedRateLimiter struct {
	mu          sync.Mutex
	entries     map[string]*limiterEntry
	limit       rate.Limit
	burst       int
	maxInFlight int // 0 means unlimited
	now         func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	inFlight int
	lastSeen time.Time
}

// NewKeyedRateLimiter creates a limiter. A refillRate <= 0 never throttles.
func NewKeyedRateLimiter(capacity int, refillRate time.Duration, maxInFlight int) *KeyedRateLimiter {
	limit := rate.Inf
	if refillRate > 0 {
		limit = rate.Every(refillRate)
	}
	return &KeyedRateLimiter{
		entries:     make(map[string]*limiterEntry),
		limit:       limit,
		burst:       capacity,
		maxInFlight: maxInFlight,
		now:         time.Now,
	}
}

// Acquire takes one token and one in-flight slot for key, or fails with
// ErrRateLimitExceeded. release is safe to call more than once.
func (l *KeyedRateLimiter) Acquire(ctx context.Context, key string) (release func(), err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.entries[key] = e
	}
	e.lastSeen = now

	if l.maxInFlight > 0 && e.inFlight >= l.maxInFlight {
		return nil, fmt.Errorf("%w: key %s has %d requests in flight", ports.ErrRateLimitExceeded, key, e.inFlight)
	}
	if !e.limiter.AllowN(now, 1) {
		return nil, fmt.Errorf("%w: key %s", ports.ErrRateLimitExceeded, key)
	}
	e.inFlight++

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			e.inFlight--
			l.mu.Unlock()
		})
	}, nil
}

// InFlight reports the requests currently holding a slot for key.
func (l *KeyedRateLimiter) InFlight(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[key]; ok {
		return e.inFlight
	}
	return 0
}

// Prune drops keys with nothing in flight that have not been seen for idle.
// idle should exceed capacity*refillRate so dropped buckets are already full.
func (l *KeyedRateLimiter) Prune(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	removed := 0
	for key, e := range l.entries {
		if e.inFlight == 0 && now.Sub(e.lastSeen) >= idle {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}

// Ensure KeyedRateLimiter implements the RateLimiter interface.
var _ ports.RateLimiter = (*KeyedRateLimiter)(nil)
