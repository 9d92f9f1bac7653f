package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// InMemoryRateLimiter allows limit hits per key in any sliding window.
type InMemoryRateLimiter struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	limit  int
	window time.Duration
	now    func() time.Time
}

func NewInMemoryRateLimiter(limit int, window time.Duration) *InMemoryRateLimiter {
	r := newRateLimiter(limit, window, time.Now)
	go r.sweep(time.Minute)
	return r
}

func newRateLimiter(limit int, window time.Duration, now func() time.Time) *InMemoryRateLimiter {
	return &InMemoryRateLimiter{hits: make(map[string][]time.Time), limit: limit, window: window, now: now}
}

// Allow records a hit for key when the window has room. Otherwise it reports how long
// until the oldest hit leaves the window.
func (r *InMemoryRateLimiter) Allow(key string) (bool, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	live := inWindow(r.hits[key], now.Add(-r.window))
	if len(live) >= r.limit {
		r.hits[key] = live
		return false, live[0].Add(r.window).Sub(now)
	}
	r.hits[key] = append(live, now)
	return true, 0
}

// inWindow drops hits at or before cutoff. Hits are appended in time order, so the
// live ones form a suffix.
func inWindow(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}

func (r *InMemoryRateLimiter) sweep(every time.Duration) {
	tick := time.NewTicker(every)
	for range tick.C {
		r.prune()
	}
}

func (r *InMemoryRateLimiter) prune() {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-r.window)
	for k, hits := range r.hits {
		if live := inWindow(hits, cutoff); len(live) == 0 {
			delete(r.hits, k)
		} else {
			r.hits[k] = live
		}
	}
}

// rateKey buckets authenticated callers by user and everyone else by client IP, so
// users behind one NAT do not share a budget.
func rateKey(c *gin.Context) string {
	if uid := GetUserID(c); uid != "" {
		return "user:" + uid
	}
	return "ip:" + c.ClientIP()
}

func RateLimit(limiter *InMemoryRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, wait := limiter.Allow(rateKey(c))
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
