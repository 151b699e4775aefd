package middleware

import (
	"net/http"
	"sync/atomic"

	"github.com/harliandi/go-imgfit/internal/logctx"
	"github.com/harliandi/go-imgfit/pkg/metrics"
)

// ConcurrencyLimiter bounds the number of requests encoding at once.
type ConcurrencyLimiter struct {
	slots  chan struct{}
	active atomic.Int64
}

// NewConcurrencyLimiter creates a limiter with max slots.
func NewConcurrencyLimiter(max int) *ConcurrencyLimiter {
	return &ConcurrencyLimiter{slots: make(chan struct{}, max)}
}

// Acquire takes a slot without blocking; false means the limit is reached.
func (cl *ConcurrencyLimiter) Acquire() bool {
	select {
	case cl.slots <- struct{}{}:
		metrics.UpdateConcurrency(int(cl.active.Add(1)))
		return true
	default:
		return false
	}
}

// Release returns a slot taken by Acquire.
func (cl *ConcurrencyLimiter) Release() {
	<-cl.slots
	metrics.UpdateConcurrency(int(cl.active.Add(-1)))
}

// Active returns the number of held slots.
func (cl *ConcurrencyLimiter) Active() int {
	return int(cl.active.Load())
}

// ConcurrencyLimit rejects requests with 503 while max requests are in flight.
func ConcurrencyLimit(max int) func(http.Handler) http.Handler {
	cl := NewConcurrencyLimiter(max)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cl.Acquire() {
				logctx.From(r.Context()).Warn("concurrency limit reached", "max", max)
				metrics.RecordConcurrencyLimitExceeded()
				w.Header().Set("Retry-After", "1")
				writeJSONError(w, http.StatusServiceUnavailable, "Service busy, please try again")
				return
			}
			defer cl.Release()
			next.ServeHTTP(w, r)
		})
	}
}
