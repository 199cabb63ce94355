// Package ratelimit provides per-domain request pacing.
package ratelimit

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/orbitdata/companycrawl/internal/telemetry"
)

// Limiter paces requests so that each domain sees at most one request per
// configured interval. Different domains never block each other.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	burst    int
	domains  map[string]*rate.Limiter
}

// New returns a Limiter allowing one request per interval per domain.
// A non-positive interval disables pacing.
func New(interval time.Duration) *Limiter {
	return &Limiter{
		interval: interval,
		burst:    1,
		domains:  make(map[string]*rate.Limiter),
	}
}

// Wait blocks until the domain of rawURL is allowed another request, or the
// context is done.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	if l == nil || l.interval <= 0 {
		return nil
	}
	domain := Domain(rawURL)
	lim := l.forDomain(domain)

	start := time.Now()
	if err := lim.Wait(ctx); err != nil {
		return err
	}
	telemetry.ObserveRateLimitDelay(domain, time.Since(start))
	return nil
}

func (l *Limiter) forDomain(domain string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.domains[domain]
	if !ok {
		lim = rate.NewLimiter(rate.Every(l.interval), l.burst)
		l.domains[domain] = lim
	}
	return lim
}

// Domain extracts the registrable host from a URL, lowercased and with any
// leading "www." stripped, so www and apex share a single budget.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}
