// Copyright 2026 The Slabseller Accounts Authors
// Licensed under the EUPL-1.2

package server

import (
	"net/http"
	"sync"
	"time"

	"codeberg.org/slabseller/accounts/internal/handlers"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

const limiterIdleTimeout = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits requests per client IP.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	r        rate.Limit
	b        int
	now      func() time.Time
	lastGC   time.Time
}

// NewRateLimiter creates a limiter allowing requestsPerSecond with the
// given burst for every client IP.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		r:        rate.Limit(requestsPerSecond),
		b:        burst,
		now:      time.Now,
	}
}

// Allow reports whether a request from ip may proceed.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.evict(now)

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.r, rl.b)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now

	return v.limiter.AllowN(now, 1)
}

// evict drops visitors idle for longer than limiterIdleTimeout. It runs at
// most once per timeout period. Callers hold mu.
func (rl *RateLimiter) evict(now time.Time) {
	if now.Sub(rl.lastGC) < limiterIdleTimeout {
		return
	}
	rl.lastGC = now

	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > limiterIdleTimeout {
			delete(rl.visitors, ip)
		}
	}
}

// Size returns the number of tracked client IPs.
func (rl *RateLimiter) Size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !rl.Allow(c.RealIP()) {
				return handlers.JSONError(c, http.StatusTooManyRequests, handlers.CategoryRateLimited)
			}
			return next(c)
		}
	}
}
