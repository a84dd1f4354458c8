package httpcache

import (
	"context"
	"log/slog"
	"net/url"
	"sync"
	"time"
)

// Rate limiting.
var globalRateLimiter = newDomainRateLimiter(1100 * time.Millisecond)

// SetMinDelay changes the minimum spacing between requests to one host.
// It is meant for process start-up and tests.
func SetMinDelay(d time.Duration) {
	globalRateLimiter.mu.Lock()
	globalRateLimiter.minDelay = d
	globalRateLimiter.mu.Unlock()
}

type domainRateLimiter struct {
	lastRequest map[string]time.Time
	mu          sync.Mutex
	minDelay    time.Duration
}

func newDomainRateLimiter(minDelay time.Duration) *domainRateLimiter {
	return &domainRateLimiter{minDelay: minDelay, lastRequest: map[string]time.Time{}}
}

// Wait reserves the next request slot for the URL's host and sleeps until it
// arrives, or returns the context error if the caller gives up first.
func (r *domainRateLimiter) Wait(ctx context.Context, rawURL string, logger *slog.Logger) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil
	}
	domain := u.Host

	r.mu.Lock()
	now := time.Now()
	next := now
	if last, ok := r.lastRequest[domain]; ok {
		if slot := last.Add(r.minDelay); slot.After(now) {
			next = slot
		}
	}
	r.lastRequest[domain] = next
	r.mu.Unlock()

	wait := time.Until(next)
	if wait <= 0 {
		return nil
	}
	if logger != nil {
		logger.Debug("rate limit pause", "domain", domain, "wait", wait.Round(time.Millisecond))
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
