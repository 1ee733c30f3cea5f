package drive

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const ExtraDelay = 250 * time.Millisecond

// Limiter delays requests while the backend reports its rate limit as
// exhausted. It never re-sends a request; it only holds back the next one.
type Limiter struct {
	lock      sync.Mutex
	reset     time.Time
	remaining int64 // -1 while the backend has not reported a budget
}

func NewLimiter() *Limiter {
	return &Limiter{remaining: -1}
}

// Wait blocks until a request may be sent or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	l.lock.Lock()
	now := time.Now()
	var delay time.Duration
	if l.remaining == 0 && l.reset.After(now) {
		delay = l.reset.Sub(now)
	}
	if l.remaining > 0 {
		l.remaining--
	}
	l.lock.Unlock()

	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Update records the rate limit headers of a response. A nil header means the
// request failed before any response arrived.
func (l *Limiter) Update(headers http.Header) {
	if headers == nil {
		return
	}
	var (
		remaining  = headers.Get("X-RateLimit-Remaining")
		reset      = headers.Get("X-RateLimit-Reset") // unix seconds, may be fractional
		retryAfter = headers.Get("Retry-After")
	)

	l.lock.Lock()
	defer l.lock.Unlock()

	switch {
	case retryAfter != "":
		i, err := strconv.Atoi(retryAfter)
		if err != nil {
			return
		}
		l.reset = time.Now().Add(time.Duration(i)*time.Second + ExtraDelay)
		l.remaining = 0
		return

	case reset != "":
		unix, err := strconv.ParseFloat(reset, 64)
		if err != nil {
			return
		}
		sec := int64(unix)
		nsec := int64((unix - float64(sec)) * float64(time.Second))
		l.reset = time.Unix(sec, nsec).Add(ExtraDelay)
	}

	if remaining != "" {
		n, err := strconv.ParseInt(remaining, 10, 64)
		if err != nil {
			return
		}
		l.remaining = n
	}
}
