package ratelimiter

import (
	"sync"
	"time"
)

type window struct {
	start time.Time
	count int
}

// FixedWindowRateLimiter counts requests per client in fixed windows that
// start at the client's first request.
type FixedWindowRateLimiter struct {
	sync.Mutex
	clients map[string]*window
	limit   int
	window  time.Duration
	nextGC  time.Time
	now     func() time.Time
}

func NewFixedWindowLimiter(limit int, w time.Duration) *FixedWindowRateLimiter {
	return &FixedWindowRateLimiter{
		clients: make(map[string]*window),
		limit:   limit,
		window:  w,
		nextGC:  time.Now().Add(w),
		now:     time.Now,
	}
}

// Allow records one request from ip. When the limit is reached it returns
// false and the time left until the window resets.
func (rl *FixedWindowRateLimiter) Allow(ip string) (bool, time.Duration) {
	now := rl.now()

	rl.Lock()
	defer rl.Unlock()

	if now.After(rl.nextGC) {
		for k, w := range rl.clients {
			if now.Sub(w.start) >= rl.window {
				delete(rl.clients, k)
			}
		}
		rl.nextGC = now.Add(rl.window)
	}

	w, ok := rl.clients[ip]
	if !ok || now.Sub(w.start) >= rl.window {
		rl.clients[ip] = &window{start: now, count: 1}
		return true, 0
	}
	if w.count < rl.limit {
		w.count++
		return true, 0
	}
	return false, rl.window - now.Sub(w.start)
}

func (rl *FixedWindowRateLimiter) size() int {
	rl.Lock()
	defer rl.Unlock()
	return len(rl.clients)
}
