// Per-data-feed rate limiting for ingest_grid_signal. Grounded on the
// teacher's gateway/middleware/ratelimit.go token-bucket-per-key pattern,
// repointed from per-HTTP-client-IP keys to per-authorized-data-feed-
// address keys.
package gridservice

import (
	"sync"

	"golang.org/x/time/rate"
)

type feedLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func newFeedLimiter(rps float64, burst int) *feedLimiter {
	return &feedLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (f *feedLimiter) allow(key string) bool {
	f.mu.Lock()
	l, ok := f.limiters[key]
	if !ok {
		l = rate.NewLimiter(f.rps, f.burst)
		f.limiters[key] = l
	}
	f.mu.Unlock()
	return l.Allow()
}
