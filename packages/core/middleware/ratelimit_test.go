package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func newLimitedRouter(limiter *SubmissionLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/rounds/:id/scores", RateLimit(limiter, "id"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func post(r http.Handler, path, remoteAddr string) int {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.RemoteAddr = remoteAddr
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimitPerClientAndRound(t *testing.T) {
	r := newLimitedRouter(NewSubmissionLimiter(rate.Limit(0.001), 2))

	assert.Equal(t, http.StatusNoContent, post(r, "/rounds/1/scores", "10.0.0.1:1234"))
	assert.Equal(t, http.StatusNoContent, post(r, "/rounds/1/scores", "10.0.0.1:1234"))
	assert.Equal(t, http.StatusTooManyRequests, post(r, "/rounds/1/scores", "10.0.0.1:1234"))

	// Same client, next round: fresh bucket.
	assert.Equal(t, http.StatusNoContent, post(r, "/rounds/2/scores", "10.0.0.1:1234"))
	// Another client has its own bucket.
	assert.Equal(t, http.StatusNoContent, post(r, "/rounds/1/scores", "10.0.0.2:1234"))
}

func TestRateLimitDisabled(t *testing.T) {
	r := newLimitedRouter(nil)
	for i := 0; i < 20; i++ {
		assert.Equal(t, http.StatusNoContent, post(r, "/rounds/1/scores", "10.0.0.1:1234"))
	}
}

func TestPruneDropsIdleBuckets(t *testing.T) {
	l := NewSubmissionLimiter(rate.Limit(0.001), 1)
	now := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("1.2.3.4", "1"))
	now = now.Add(5 * time.Minute)
	assert.True(t, l.Allow("5.6.7.8", "1"))
	now = now.Add(6 * time.Minute)

	assert.Equal(t, 1, l.Prune(10*time.Minute))
	assert.Len(t, l.buckets, 1)

	// The pruned client starts over with a full bucket, the other stays empty.
	assert.True(t, l.Allow("1.2.3.4", "1"))
	assert.False(t, l.Allow("5.6.7.8", "1"))
}

func TestRunJanitorStops(t *testing.T) {
	l := NewSubmissionLimiter(rate.Limit(1), 1)
	l.Allow("1.2.3.4", "1")
	l.now = func() time.Time { return time.Now().Add(time.Hour) }

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		l.RunJanitor(5*time.Millisecond, time.Minute, stop)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		l.mu.Lock()
		defer l.mu.Unlock()
		return len(l.buckets) == 0
	}, time.Second, 5*time.Millisecond)

	close(stop)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
