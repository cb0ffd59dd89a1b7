package http

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimit bounds credential attempts per client IP.
type RateLimit struct {
	PerMinute int
	Burst     int
}

// Enabled reports whether throttling is configured.
func (r RateLimit) Enabled() bool {
	return r.PerMinute > 0
}

type ipLimiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int

	mu          sync.Mutex
	lastCleanup time.Time
}

func newIPLimiter(cfg RateLimit) *ipLimiter {
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &ipLimiter{
		rate:        rate.Limit(float64(cfg.PerMinute) / time.Minute.Seconds()),
		burst:       burst,
		lastCleanup: time.Now(),
	}
}

func (l *ipLimiter) get(key string) *rate.Limiter {
	if limiter, ok := l.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}
	actual, _ := l.limiters.LoadOrStore(key, rate.NewLimiter(l.rate, l.burst))
	l.maybeCleanup()
	return actual.(*rate.Limiter)
}

// maybeCleanup drops limiters whose bucket has refilled, at most every five minutes.
func (l *ipLimiter) maybeCleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if time.Since(l.lastCleanup) < 5*time.Minute {
		return
	}
	l.lastCleanup = time.Now()

	l.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(l.burst) {
			l.limiters.Delete(key)
		}
		return true
	})
}

func (h *Handler) rateLimit() gin.HandlerFunc {
	if !h.limit.Enabled() {
		return func(c *gin.Context) { c.Next() }
	}

	limiter := newIPLimiter(h.limit)
	return func(c *gin.Context) {
		key := c.ClientIP()
		l := limiter.get(key)
		if l.Allow() {
			c.Next()
			return
		}

		reservation := l.Reserve()
		delay := reservation.Delay()
		reservation.Cancel()

		retryAfter := max(int(delay.Seconds()), 1)
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		h.logger.WithField("clientIP", key).WithField("path", c.Request.URL.Path).Warn("rate limit exceeded")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, MessageResponse{Message: "Too many requests, try again later"})
	}
}
