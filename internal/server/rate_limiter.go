// Package server implements per-connection throttling on top of a token
// bucket.
package server

import (
	"time"

	"golang.org/x/time/rate"
)

// rateLimiter guards one connection's inbound messages. A nil limiter allows
// everything.
type rateLimiter struct {
	limiter *rate.Limiter
}

// newRateLimiter returns a limiter admitting capacity messages per interval
// with bursts up to capacity, or nil when capacity is not positive.
func newRateLimiter(capacity int, interval time.Duration) *rateLimiter {
	if capacity <= 0 {
		return nil
	}
	if interval <= 0 {
		interval = time.Second
	}

	every := rate.Every(interval / time.Duration(capacity))
	return &rateLimiter{limiter: rate.NewLimiter(every, capacity)}
}

func (rl *rateLimiter) allow() bool {
	if rl == nil {
		return true
	}
	return rl.limiter.Allow()
}
