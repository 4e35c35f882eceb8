package commands

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter enforces a per-chat token bucket on summary requests, so a busy
// room cannot exhaust the generation quota shared by every room.
//
// A nil *Limiter allows everything. Limiter is safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	every    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
	now      func() time.Time
}

// NewLimiter returns a Limiter admitting perMinute requests per chat per
// minute, with a burst of perMinute. perMinute <= 0 returns nil (unlimited).
func NewLimiter(perMinute int) *Limiter {
	if perMinute <= 0 {
		return nil
	}
	return &Limiter{
		every:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		limiters: make(map[string]*rate.Limiter),
		now:      time.Now,
	}
}

// Allow reports whether chatID may make another request now and consumes a
// token when it may.
func (l *Limiter) Allow(chatID string) bool {
	if l == nil {
		return true
	}
	return l.AllowAt(chatID, l.now())
}

// AllowAt is Allow with an explicit clock.
func (l *Limiter) AllowAt(chatID string, now time.Time) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	lim, ok := l.limiters[chatID]
	if !ok {
		lim = rate.NewLimiter(l.every, l.burst)
		l.limiters[chatID] = lim
	}
	l.mu.Unlock()
	return lim.AllowN(now, 1)
}
