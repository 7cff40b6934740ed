package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// SenderLimiter keeps one token bucket per key (sender phone or client ip).
type SenderLimiter struct {
	mu       sync.Mutex
	limiters map[string]*entry
	rps      rate.Limit
	burst    int
	ttl      time.Duration
}

type entry struct {
	limiter *rate.Limiter
	seen    time.Time
}

func NewSenderLimiter(rps float64, burst int) *SenderLimiter {
	if rps <= 0 {
		rps = 2
	}
	if burst <= 0 {
		burst = 5
	}
	return &SenderLimiter{
		limiters: make(map[string]*entry),
		rps:      rate.Limit(rps),
		burst:    burst,
		ttl:      10 * time.Minute,
	}
}

// Allow consumes one token for key.
func (l *SenderLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[key] = e
		if len(l.limiters) > 1024 {
			l.evict(now)
		}
	}
	e.seen = now
	return e.limiter.AllowN(now, 1)
}

// evict drops buckets untouched for longer than ttl. Caller holds mu.
func (l *SenderLimiter) evict(now time.Time) {
	for k, e := range l.limiters {
		if now.Sub(e.seen) > l.ttl {
			delete(l.limiters, k)
		}
	}
}

// Len is the number of tracked keys.
func (l *SenderLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

// RateLimitByIP rejects requests with 429 once the client ip exhausts its bucket.
func RateLimitByIP(l *SenderLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow("ip:" + c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
