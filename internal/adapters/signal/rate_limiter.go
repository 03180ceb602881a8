package signal

import (
	"sync"

	"golang.org/x/time/rate"
)

// RoomRateLimiter keeps one token bucket per sender key.
type RoomRateLimiter struct {
	mu    sync.Mutex
	m     map[string]*rate.Limiter
	rps   float64
	burst int
}

// NewRoomRateLimiter returns nil when rps is not positive, which disables limiting.
func NewRoomRateLimiter(rps float64, burst int) *RoomRateLimiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &RoomRateLimiter{
		m:     make(map[string]*rate.Limiter),
		rps:   rps,
		burst: burst,
	}
}

func (rl *RoomRateLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if l, ok := rl.m[key]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Limit(rl.rps), rl.burst)
	rl.m[key] = l
	return l
}

func (rl *RoomRateLimiter) Allow(key string) bool {
	return rl.get(key).Allow()
}
