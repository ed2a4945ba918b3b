// Package ratelimit provides a per-source token bucket used to shield the
// webhook endpoints from runaway provider retries.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	staleAfter    = 5 * time.Minute
	sweepInterval = 3 * time.Minute
)

// Limiter keeps an independent token bucket per source key, typically the
// caller's IP address. Buckets for sources not seen within staleAfter are
// swept in the background.
type Limiter struct {
	mu      sync.Mutex
	sources map[string]*source
	rps     rate.Limit
	burst   int
}

type source struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

// NewLimiter creates a limiter allowing rps sustained requests per second per
// source with the given burst, and starts the background sweeper.
func NewLimiter(rps float64, burst int) *Limiter {
	l := &Limiter{
		sources: make(map[string]*source),
		rps:     rate.Limit(rps),
		burst:   burst,
	}
	go l.sweep()
	return l
}

// Allow reports whether a request from key should be served now. Unknown
// keys get a fresh full bucket.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	s, ok := l.sources[key]
	if !ok {
		s = &source{bucket: rate.NewLimiter(l.rps, l.burst)}
		l.sources[key] = s
	}
	s.lastSeen = time.Now()
	l.mu.Unlock()

	return s.bucket.Allow()
}

func (l *Limiter) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for range ticker.C {
		l.mu.Lock()
		for key, s := range l.sources {
			if time.Since(s.lastSeen) >= staleAfter {
				delete(l.sources, key)
			}
		}
		l.mu.Unlock()
	}
}
