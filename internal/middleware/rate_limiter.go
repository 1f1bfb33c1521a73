package middleware

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/time/rate"
)

// RateLimiterConfig configures rate limiting behavior
type RateLimiterConfig struct {
	RequestsPerSecond float64
	Burst             int
	// IdleTTL drops a client's limiter after this long without requests.
	IdleTTL time.Duration
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// rateLimiterMap stores rate limiters per client IP
type rateLimiterMap struct {
	limiters *xsync.Map[string, *clientLimiter]
	config   RateLimiterConfig
	now      func() time.Time
}

// NewRateLimiterMap creates a new rate limiter map
func NewRateLimiterMap(config RateLimiterConfig) *rateLimiterMap {
	if config.IdleTTL <= 0 {
		config.IdleTTL = 10 * time.Minute
	}
	return &rateLimiterMap{
		limiters: xsync.NewMap[string, *clientLimiter](),
		config:   config,
		now:      time.Now,
	}
}

// getLimiter returns or creates a rate limiter for the given IP
func (rl *rateLimiterMap) getLimiter(ip string) *rate.Limiter {
	cl, ok := rl.limiters.Load(ip)
	if !ok {
		cl, _ = rl.limiters.LoadOrStore(ip, &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.Burst),
		})
	}
	cl.lastSeen.Store(rl.now().Unix())
	return cl.limiter
}

// evictIdle removes limiters that have not been used within IdleTTL.
func (rl *rateLimiterMap) evictIdle() int {
	cutoff := rl.now().Add(-rl.config.IdleTTL).Unix()
	removed := 0
	rl.limiters.Range(func(ip string, cl *clientLimiter) bool {
		if cl.lastSeen.Load() < cutoff {
			rl.limiters.Delete(ip)
			removed++
		}
		return true
	})
	return removed
}

func (rl *rateLimiterMap) cleanup(stop <-chan struct{}) {
	ticker := time.NewTicker(rl.config.IdleTTL)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			rl.evictIdle()
		}
	}
}

// RateLimiterMiddleware creates a rate limiting middleware. Closing stop ends the cleanup
// goroutine; nil keeps it running for the life of the process.
func RateLimiterMiddleware(config RateLimiterConfig, stop <-chan struct{}) gin.HandlerFunc {
	limiterMap := NewRateLimiterMap(config)
	go limiterMap.cleanup(stop)

	return func(c *gin.Context) {
		limiter := limiterMap.getLimiter(c.ClientIP())

		if !limiter.Allow() {
			reservation := limiter.Reserve()
			retryAfter := reservation.DelayFrom(time.Now()).Seconds()
			reservation.Cancel()

			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded. Please try again later.",
				"retry_after": retryAfter,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
