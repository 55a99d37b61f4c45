package middlewares

import (
	"net/http"
	"sync"
	"time"

	"notebook-ai/internal/apis/dtos"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 30 * time.Minute

type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// SubmissionRateLimiter keeps one token bucket per authenticated user.
type SubmissionRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*userLimiter
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

func NewSubmissionRateLimiter(perMinute int) *SubmissionRateLimiter {
	burst := perMinute / 4
	if burst < 1 {
		burst = 1
	}
	return &SubmissionRateLimiter{
		limiters: make(map[string]*userLimiter),
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    burst,
		now:      time.Now,
	}
}

func (l *SubmissionRateLimiter) Allow(userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.limiters[userID]
	if !ok {
		entry = &userLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[userID] = entry
	}
	entry.lastSeen = now

	for id, other := range l.limiters {
		if now.Sub(other.lastSeen) > limiterIdleTTL {
			delete(l.limiters, id)
		}
	}
	return entry.limiter.AllowN(now, 1)
}

func (l *SubmissionRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.GetString("userID")) {
			errorMsg := "Too many messages, please slow down"
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dtos.Response{
				Success: false,
				Error:   &errorMsg,
			})
			return
		}
		c.Next()
	}
}
