package rate

import (
	"context"
	"sync"
	"time"
)

// Config defines rate limiting parameters for one shop.
// Shopify's REST limit is a leaky bucket: Burst is the bucket size and
// RequestsPerSecond the leak rate.
type Config struct {
	RequestsPerSecond int
	Burst             int
	// Cooldown is the pause applied by Throttle when the platform answers
	// 429 without a Retry-After value.
	Cooldown time.Duration
}

// Limiter implements a token bucket rate limiter.
type Limiter struct {
	mu           sync.Mutex
	tokens       float64
	last         time.Time
	rate         float64
	burst        float64
	cooldown     time.Duration
	blockedUntil time.Time
}

// New creates a new limiter.
func New(cfg Config) *Limiter {
	return &Limiter{
		tokens:   float64(cfg.Burst),
		last:     time.Now(),
		rate:     float64(cfg.RequestsPerSecond),
		burst:    float64(cfg.Burst),
		cooldown: cfg.Cooldown,
	}
}

// Allow takes a token if one is available and the limiter is not throttled.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(l.last).Seconds()
	l.last = now

	l.tokens += elapsed * l.rate
	if l.tokens > l.burst {
		l.tokens = l.burst
	}

	if now.Before(l.blockedUntil) {
		return false
	}

	if l.tokens >= 1 {
		l.tokens -= 1
		return true
	}
	return false
}

// Throttle empties the bucket and blocks Allow for d (or the configured
// cooldown when d is zero). Called after the platform answered 429.
func (l *Limiter) Throttle(d time.Duration) {
	if d <= 0 {
		d = l.cooldown
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens = 0
	if until := time.Now().Add(d); until.After(l.blockedUntil) {
		l.blockedUntil = until
	}
}

// Wait blocks until a token becomes available or context is canceled.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		if l.Allow() {
			return nil
		}
		select {
		case <-time.After(50 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Manager holds per-shop limiters.
type Manager struct {
	mu       sync.RWMutex
	limiters map[string]*Limiter
	defaults Config
}

func NewManager(defaults Config) *Manager {
	return &Manager{
		limiters: make(map[string]*Limiter),
		defaults: defaults,
	}
}

func (m *Manager) GetLimiter(key string) *Limiter {
	m.mu.RLock()
	if lim, ok := m.limiters[key]; ok {
		m.mu.RUnlock()
		return lim
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if lim, ok := m.limiters[key]; ok {
		return lim
	}
	lim := New(m.defaults)
	m.limiters[key] = lim
	return lim
}

// Wait ensures rate limit compliance for a given key.
func (m *Manager) Wait(ctx context.Context, key string) error {
	return m.GetLimiter(key).Wait(ctx)
}

// Throttle backs off the limiter for key.
func (m *Manager) Throttle(key string, d time.Duration) {
	m.GetLimiter(key).Throttle(d)
}
