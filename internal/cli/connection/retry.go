package connection

import (
	"net/http"
	"strconv"
	"time"
)

// RetryPolicy bounds retries of idempotent requests.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy returns 3 attempts with 200ms doubling backoff capped
// at 5s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   200 * time.Millisecond,
		MaxDelay:    5 * time.Second,
	}
}

// Backoff returns the delay before retry n (0 for the first retry).
func (p RetryPolicy) Backoff(n int) time.Duration {
	d := p.BaseDelay
	for i := 0; i < n; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

func (p RetryPolicy) attempts(req *Request) int {
	if !req.Idempotent() || p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// delay honours a Retry-After header in seconds, bounded by MaxDelay.
func (p RetryPolicy) delay(n int, header http.Header) time.Duration {
	d := p.Backoff(n)
	if header == nil {
		return d
	}
	if secs, err := strconv.Atoi(header.Get("Retry-After")); err == nil && secs > 0 {
		ra := time.Duration(secs) * time.Second
		if ra > p.MaxDelay {
			ra = p.MaxDelay
		}
		if ra > d {
			d = ra
		}
	}
	return d
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
