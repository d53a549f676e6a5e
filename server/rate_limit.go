package server

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/postman-push/go-postman-api"
)

// rateLimiter counts calls in fixed windows.
// Once more than limit calls arrive in a window, callers get 429 until the window ends.
type rateLimiter struct {
	limit  int
	window time.Duration

	nextReset time.Time
	count     int
	lock      sync.Mutex
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:  limit,
		window: window,
	}
}

// exceeded records a call and returns how long to wait before the next one, or zero if it is allowed.
func (r *rateLimiter) exceeded() time.Duration {
	r.lock.Lock()
	defer r.lock.Unlock()

	if now := time.Now(); now.After(r.nextReset) {
		r.count = 0
		r.nextReset = now.Add(r.window)
	}

	if r.count++; r.count > r.limit {
		return time.Until(r.nextReset)
	}

	return 0
}

func (s *Server) handleRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.rateLimit == nil {
			return
		}

		if wait := s.rateLimit.exceeded(); wait > 0 {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))

			c.AbortWithStatusJSON(http.StatusTooManyRequests, postman.APIError{
				Code:    postman.TooManyRequestsCode,
				Message: "Too many requests",
			})
		}
	}
}
