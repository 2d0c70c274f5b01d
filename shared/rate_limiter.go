package shared

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// HTTPRequestRateLimiter spaces outbound requests by a minimum delay.
// A zero delay disables limiting.
type HTTPRequestRateLimiter struct {
	minimumDelay time.Duration
	nextSlot     time.Time
	mutex        sync.Mutex
	requestCount int64
}

// NewHTTPRequestRateLimiter creates a new rate limiter with the specified minimum delay
func NewHTTPRequestRateLimiter(minimumDelay time.Duration) *HTTPRequestRateLimiter {
	return &HTTPRequestRateLimiter{minimumDelay: minimumDelay}
}

// Wait blocks until the caller's slot arrives or ctx is done.
func (limiter *HTTPRequestRateLimiter) Wait(ctx context.Context) error {
	limiter.mutex.Lock()
	limiter.requestCount++
	if limiter.minimumDelay <= 0 {
		limiter.mutex.Unlock()
		return nil
	}

	now := time.Now()
	slot := limiter.nextSlot
	if slot.Before(now) {
		slot = now
	}
	limiter.nextSlot = slot.Add(limiter.minimumDelay)
	count := limiter.requestCount
	limiter.mutex.Unlock()

	remainingDelay := slot.Sub(now)
	if remainingDelay <= 0 {
		return nil
	}

	logrus.WithFields(logrus.Fields{
		"component":       "HTTPRequestRateLimiter",
		"minimum_delay":   limiter.minimumDelay,
		"remaining_delay": remainingDelay,
		"request_count":   count,
	}).Debug("Enforcing rate limit delay")

	timer := time.NewTimer(remainingDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// GetRequestCount returns the total number of requests processed
func (limiter *HTTPRequestRateLimiter) GetRequestCount() int64 {
	limiter.mutex.Lock()
	defer limiter.mutex.Unlock()
	return limiter.requestCount
}
