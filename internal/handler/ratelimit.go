package handler

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	maxTrackedClients = 5000
	idleClientTTL     = 10 * time.Minute
)

type rateVisitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LoginRateLimiter is a per-client-IP token bucket refilled at perMinute
// tokens per minute with a burst of perMinute.
type LoginRateLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	visitors  map[string]*rateVisitor
	maxMemory int
	now       func() time.Time
}

// NewLoginRateLimiter returns nil when perMinute is not positive, which
// disables limiting.
func NewLoginRateLimiter(perMinute int) *LoginRateLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &LoginRateLimiter{
		limit:     rate.Every(time.Minute / time.Duration(perMinute)),
		burst:     perMinute,
		visitors:  make(map[string]*rateVisitor),
		maxMemory: maxTrackedClients,
		now:       time.Now,
	}
}

func (l *LoginRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}

		allowed, retryAfter := l.allow(c.ClientIP(), l.now())
		if !allowed {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			abortWithError(c, http.StatusTooManyRequests, "too many login attempts")
			return
		}

		c.Next()
	}
}

func (l *LoginRateLimiter) allow(key string, now time.Time) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[key]
	if !ok {
		if len(l.visitors) >= l.maxMemory {
			l.evictIdle(now)
		}
		if len(l.visitors) >= l.maxMemory {
			l.evictOldest()
		}
		v = &rateVisitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now

	reservation := v.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, time.Minute
	}
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// evictOldest drops the least recently seen client so the map never
// exceeds maxMemory.
func (l *LoginRateLimiter) evictOldest() {
	var (
		oldestKey string
		oldest    time.Time
		found     bool
	)
	for key, v := range l.visitors {
		if !found || v.lastSeen.Before(oldest) {
			oldestKey, oldest, found = key, v.lastSeen, true
		}
	}
	if found {
		delete(l.visitors, oldestKey)
	}
}

func (l *LoginRateLimiter) evictIdle(now time.Time) {
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > idleClientTTL {
			delete(l.visitors, key)
		}
	}
}
