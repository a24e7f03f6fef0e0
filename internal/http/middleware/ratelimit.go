package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ipLimiter keeps one token bucket per client IP. Buckets idle past the
// TTL are dropped on the next sweep, so the map does not grow without
// bound under scanner traffic. State is per process; a restart resets
// all buckets.
type ipLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucketEntry

	limit rate.Limit
	burst int
	ttl   time.Duration

	lastSweep time.Time
}

type bucketEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(every time.Duration, burst int) *ipLimiter {
	return &ipLimiter{
		buckets:   make(map[string]*bucketEntry),
		limit:     rate.Every(every),
		burst:     burst,
		ttl:       10 * time.Minute,
		lastSweep: time.Now(),
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastSweep) > l.ttl {
		for k, e := range l.buckets {
			if now.Sub(e.lastSeen) > l.ttl {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	e, ok := l.buckets[ip]
	if !ok {
		e = &bucketEntry{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[ip] = e
	}
	e.lastSeen = now
	return e.lim.Allow()
}

// RateLimit allows `requests` per `window` per client IP and answers
// 429 beyond that.
func RateLimit(requests int, window time.Duration) gin.HandlerFunc {
	limiter := newIPLimiter(window/time.Duration(requests), requests)

	return func(c *gin.Context) {
		if !limiter.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   "Too many requests. Please try again later.",
			})
			return
		}
		c.Next()
	}
}
