package node

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per node command.
type RateLimiter struct {
	limiters   map[string]*rate.Limiter
	mu         sync.RWMutex
	rateLimit  rate.Limit
	burstLimit int
}

// NewRateLimiter creates a limiter allowing ratePerSecond requests per
// command with the given burst. A non-positive rate disables limiting.
func NewRateLimiter(ratePerSecond float64, burst int) *RateLimiter {
	limit := rate.Limit(ratePerSecond)
	if ratePerSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters:   make(map[string]*rate.Limiter),
		rateLimit:  limit,
		burstLimit: burst,
	}
}

// Wait blocks until a request for the command is allowed or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context, command string) error {
	return r.limiter(command).Wait(ctx)
}

// Allow reports whether a request for the command may proceed now.
func (r *RateLimiter) Allow(command string) bool {
	return r.limiter(command).Allow()
}

func (r *RateLimiter) limiter(command string) *rate.Limiter {
	r.mu.RLock()
	l, ok := r.limiters[command]
	r.mu.RUnlock()
	if ok {
		return l
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok = r.limiters[command]; ok {
		return l
	}
	l = rate.NewLimiter(r.rateLimit, r.burstLimit)
	r.limiters[command] = l
	return l
}
