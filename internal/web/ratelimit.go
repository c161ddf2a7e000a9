package web

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/JonMunkholm/tabula/internal/core"
	"github.com/zoobzio/clockz"
)

// rateLimiter is a fixed-window limiter keyed by client IP.
// Stale visitors are swept on access once per window, so no goroutine is
// needed to keep the map bounded.
type rateLimiter struct {
	mu        sync.Mutex
	clock     clockz.Clock
	visitors  map[string]*visitor
	rate      int
	window    time.Duration
	lastSweep time.Time
}

type visitor struct {
	tokens    int
	lastReset time.Time
}

func newRateLimiter(rate int, window time.Duration, clock clockz.Clock) *rateLimiter {
	if clock == nil {
		clock = clockz.RealClock
	}
	return &rateLimiter{
		clock:     clock,
		visitors:  make(map[string]*visitor),
		rate:      rate,
		window:    window,
		lastSweep: clock.Now(),
	}
}

// allow consumes a token for ip and reports whether the request may proceed.
func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	if now.Sub(rl.lastSweep) > rl.window {
		for k, v := range rl.visitors {
			if now.Sub(v.lastReset) > rl.window*2 {
				delete(rl.visitors, k)
			}
		}
		rl.lastSweep = now
	}

	v, ok := rl.visitors[ip]
	if !ok || now.Sub(v.lastReset) >= rl.window {
		rl.visitors[ip] = &visitor{tokens: rl.rate - 1, lastReset: now}
		return true
	}
	if v.tokens <= 0 {
		return false
	}
	v.tokens--
	return true
}

// retryAfter returns the whole seconds until ip's window resets.
func (rl *rateLimiter) retryAfter(ip string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[ip]
	if !ok {
		return 0
	}
	left := rl.window - rl.clock.Since(v.lastReset)
	if left <= 0 {
		return 0
	}
	return int((left + time.Second - 1) / time.Second)
}

// size returns the number of tracked visitors.
func (rl *rateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

// middleware rejects requests over the limit with 429 and RATE001.
// r.RemoteAddr is already the client IP by the time this runs.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if !rl.allow(ip) {
			w.Header().Set("Retry-After", strconv.Itoa(rl.retryAfter(ip)))
			respondErrorJSON(w, core.MapError(errRateLimited))
			return
		}
		next.ServeHTTP(w, r)
	})
}
