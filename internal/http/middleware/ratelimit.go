// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements a process-local token-bucket limiter keyed per client.
// Recomputes are the expensive operation in this service, so the bucket is
// keyed by the client id in the path and a request can cost more than one
// token (recomputing every range costs one token per range).
package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyFunc maps a request to a bucket identity.
type KeyFunc func(*gin.Context) string

// CostFunc returns how many tokens a request consumes. Values < 1 count as 1.
type CostFunc func(*gin.Context) int

// KeyByClientOrIP keys requests on client routes by "client:<id>" and
// everything else by "ip:<addr>".
func KeyByClientOrIP() KeyFunc {
	return func(c *gin.Context) string {
		if id := c.Param("id"); id != "" {
			return "client:" + id
		}
		return "ip:" + c.ClientIP()
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter holds one token bucket per key. Idle buckets are evicted
// opportunistically. Safe for concurrent use.
type RateLimiter struct {
	rps      rate.Limit
	burst    int
	keyFn    KeyFunc
	costFn   CostFunc
	mu       sync.Mutex
	visitors map[string]*visitor

	ttl      time.Duration
	cleanupN uint64
}

// NewRateLimiter builds a limiter refilling rps tokens per second with the
// given burst (coerced to at least 1). A nil cost charges one token.
func NewRateLimiter(rps float64, burst int, keyFn KeyFunc, costFn CostFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		keyFn:    keyFn,
		costFn:   costFn,
		visitors: make(map[string]*visitor),
		ttl:      10 * time.Minute,
	}
}

// getVisitor returns the limiter for key, creating it if absent. Every 5000
// lookups idle buckets are dropped first, so a stale bucket is replaced even
// when it is the one requested.
func (rl *RateLimiter) getVisitor(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.cleanupN++
	if rl.cleanupN >= 5000 {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.cleanupN = 0
	}

	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = now
		return v.limiter
	}
	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	return lim
}

func (rl *RateLimiter) cost(c *gin.Context) int {
	if rl.costFn == nil {
		return 1
	}
	n := rl.costFn(c)
	if n < 1 {
		return 1
	}
	if n > rl.burst {
		// A request costing more than the bucket holds could never pass.
		return rl.burst
	}
	return n
}

// Handler enforces the limit. Rejected requests get 429 with Retry-After and
// the standard error envelope.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		now := time.Now()
		lim := rl.getVisitor(rl.keyFn(c), now)
		n := rl.cost(c)
		if lim.AllowN(now, n) {
			c.Next()
			return
		}

		retry := 1
		if rl.rps > 0 {
			if s := int(float64(n)/float64(rl.rps) + 0.999); s > retry {
				retry = s
			}
		}
		c.Header("Retry-After", strconv.Itoa(retry))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get(requestIDHeader),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}
