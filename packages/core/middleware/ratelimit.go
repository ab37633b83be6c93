package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type submissionKey struct {
	clientIP string
	round    string
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// SubmissionLimiter throttles score submissions with one token bucket per
// client IP and round. A judge starting a new round gets a full bucket.
type SubmissionLimiter struct {
	mu      sync.Mutex
	buckets map[submissionKey]*bucket
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

func NewSubmissionLimiter(limit rate.Limit, burst int) *SubmissionLimiter {
	return &SubmissionLimiter{
		buckets: make(map[submissionKey]*bucket),
		limit:   limit,
		burst:   burst,
		now:     time.Now,
	}
}

// Allow takes a token from the bucket of clientIP in round.
func (l *SubmissionLimiter) Allow(clientIP, round string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := submissionKey{clientIP: clientIP, round: round}
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = l.now()
	return b.limiter.AllowN(b.lastSeen, 1)
}

// Prune drops buckets idle for longer than maxIdle and reports how many went.
func (l *SubmissionLimiter) Prune(maxIdle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-maxIdle)
	pruned := 0
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
			pruned++
		}
	}
	return pruned
}

// RunJanitor prunes idle buckets every interval until stop is closed.
func (l *SubmissionLimiter) RunJanitor(interval, maxIdle time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.Prune(maxIdle)
		case <-stop:
			return
		}
	}
}

// RateLimit rejects a submission with 429 once the client runs out of tokens
// for the round named by the roundParam path parameter. A nil limiter
// disables the check.
func RateLimit(limiter *SubmissionLimiter, roundParam string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		if !limiter.Allow(c.ClientIP(), c.Param(roundParam)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many score submissions, slow down",
				"code":  "rate_limited",
			})
			return
		}
		c.Next()
	}
}
