package server

import (
	"fmt"
	"sync"
	"time"
)

// Limits configures the per-client request limiter. Zero disables a limit.
type Limits struct {
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxDataPerDay     int64 // in bytes
}

// RateLimiter enforces fixed-window request limits and daily upload quotas
// per client.
type RateLimiter struct {
	mu      sync.Mutex
	limits  Limits
	clients map[string]*clientUsage
	now     func() time.Time
}

// clientUsage counts requests in the current minute, hour and day windows.
type clientUsage struct {
	minuteStart, hourStart, dayStart time.Time

	minute, hour, day int
	dataToday         int64
	lastSeen          time.Time
}

// NewRateLimiter creates a limiter enforcing limits.
func NewRateLimiter(limits Limits) *RateLimiter {
	return &RateLimiter{
		limits:  limits,
		clients: make(map[string]*clientUsage),
		now:     time.Now,
	}
}

// Allow records a request of dataSize bytes from client, or returns a
// *RateLimitError or *QuotaExceededError without recording it.
func (rl *RateLimiter) Allow(client string, dataSize int64) error {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	u, ok := rl.clients[client]
	if !ok {
		u = &clientUsage{minuteStart: now, hourStart: now, dayStart: startOfDay(now)}
		rl.clients[client] = u
	}
	u.roll(now)

	if err := rl.check(u, dataSize, now); err != nil {
		return err
	}
	u.minute++
	u.hour++
	u.day++
	u.dataToday += dataSize
	u.lastSeen = now
	return nil
}

func (u *clientUsage) roll(now time.Time) {
	if now.Sub(u.minuteStart) >= time.Minute {
		u.minuteStart, u.minute = now, 0
	}
	if now.Sub(u.hourStart) >= time.Hour {
		u.hourStart, u.hour = now, 0
	}
	if day := startOfDay(now); day.After(u.dayStart) {
		u.dayStart, u.day, u.dataToday = day, 0, 0
	}
}

func (rl *RateLimiter) check(u *clientUsage, dataSize int64, now time.Time) error {
	l := rl.limits
	if l.RequestsPerMinute > 0 && u.minute >= l.RequestsPerMinute {
		return &RateLimitError{Type: "minute", Limit: l.RequestsPerMinute, RetryAfter: u.minuteStart.Add(time.Minute).Sub(now)}
	}
	if l.RequestsPerHour > 0 && u.hour >= l.RequestsPerHour {
		return &RateLimitError{Type: "hour", Limit: l.RequestsPerHour, RetryAfter: u.hourStart.Add(time.Hour).Sub(now)}
	}
	resets := u.dayStart.AddDate(0, 0, 1)
	if l.MaxRequestsPerDay > 0 && u.day >= l.MaxRequestsPerDay {
		return &QuotaExceededError{Type: "requests", Limit: int64(l.MaxRequestsPerDay), Used: int64(u.day), Resets: resets}
	}
	if l.MaxDataPerDay > 0 && u.dataToday+dataSize > l.MaxDataPerDay {
		return &QuotaExceededError{Type: "data", Limit: l.MaxDataPerDay, Used: u.dataToday, Resets: resets}
	}
	return nil
}

// Usage returns the request and byte counts of client in the current windows.
func (rl *RateLimiter) Usage(client string) (minute, hour, day int, data int64) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	u, ok := rl.clients[client]
	if !ok {
		return 0, 0, 0, 0
	}
	u.roll(rl.now())
	return u.minute, u.hour, u.day, u.dataToday
}

// Prune forgets clients not seen for longer than idle and returns how many
// were removed.
func (rl *RateLimiter) Prune(idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-idle)
	n := 0
	for id, u := range rl.clients {
		if u.lastSeen.Before(cutoff) {
			delete(rl.clients, id)
			n++
		}
	}
	return n
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// RateLimitError represents a rate limit violation.
type RateLimitError struct {
	Type       string        // "minute" or "hour"
	Limit      int           // the limit that was exceeded
	RetryAfter time.Duration // how long to wait before retrying
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s (limit: %d, retry after: %v)", e.Type, e.Limit, e.RetryAfter)
}

// QuotaExceededError represents a daily quota violation.
type QuotaExceededError struct {
	Type   string    // "requests" or "data"
	Limit  int64     // the limit that was exceeded
	Used   int64     // current usage
	Resets time.Time // when the quota resets
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s (used: %d, limit: %d, resets: %s)",
		e.Type, e.Used, e.Limit, e.Resets.Format(time.RFC3339))
}
