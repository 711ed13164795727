// Package ratelimit provides a keyed token-bucket rate limiter. The API
// layer uses it to throttle credential endpoints per client address.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// KeyedLimiter manages per-key rate limiting. Each unique key gets its
// own independent token bucket. Keys are arbitrary strings; the API
// layer uses client IPs, so idle entries are evicted to keep the map
// from growing with every address ever seen.
type KeyedLimiter struct {
	mu       sync.Mutex
	limiters map[string]*entry
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration

	done     chan struct{}
	stopOnce sync.Once
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a keyed rate limiter allowing rps requests per second
// with the given burst per key. Entries idle for ten minutes are
// dropped, which refills their bucket; acceptable for abuse throttling.
func New(rps float64, burst int) *KeyedLimiter {
	kl := &KeyedLimiter{
		limiters: make(map[string]*entry),
		limit:    rate.Limit(rps),
		burst:    burst,
		idleTTL:  10 * time.Minute,
		done:     make(chan struct{}),
	}

	go kl.evictLoop()

	return kl
}

// Allow reports whether a request for the given key should be allowed.
// Returns immediately without blocking.
func (kl *KeyedLimiter) Allow(key string) bool {
	kl.mu.Lock()
	e, ok := kl.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(kl.limit, kl.burst)}
		kl.limiters[key] = e
	}
	e.lastSeen = time.Now()
	kl.mu.Unlock()

	return e.limiter.Allow()
}

// Stop shuts down the eviction goroutine.
func (kl *KeyedLimiter) Stop() {
	kl.stopOnce.Do(func() {
		close(kl.done)
	})
}

func (kl *KeyedLimiter) evictLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-kl.done:
			return
		case now := <-ticker.C:
			kl.mu.Lock()
			for key, e := range kl.limiters {
				if now.Sub(e.lastSeen) > kl.idleTTL {
					delete(kl.limiters, key)
				}
			}
			kl.mu.Unlock()
		}
	}
}

// Len returns the number of tracked keys.
func (kl *KeyedLimiter) Len() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.limiters)
}
