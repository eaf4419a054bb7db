package ratelimit

import (
	"sync"
	"time"
)

// defaultCleanupPeriod applies when KeyedConfig.CleanupPeriod is not set.
const defaultCleanupPeriod = 5 * time.Minute

// Recorder receives limiter metrics. *metrics.Metrics satisfies it.
type Recorder interface {
	RecordRateLimiterDrop(limiterType string)
	SetRateLimiterClients(count int)
}

// KeyedConfig configures a KeyedLimiter.
type KeyedConfig struct {
	Name          string        // metrics label, e.g. "client"
	Burst         float64       // bucket size per key
	RefillRate    float64       // tokens per second per key
	CleanupPeriod time.Duration // how often idle keys are forgotten
	Metrics       Recorder      // optional
}

// KeyedLimiter keeps one token bucket per key (client IP). A bucket that has
// refilled completely belongs to an idle client and is dropped by the
// background sweep, so memory follows the number of recently active clients.
type KeyedLimiter struct {
	cfg KeyedConfig
	now func() time.Time

	mu      sync.RWMutex
	buckets map[string]*Limiter

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewKeyedLimiter starts a limiter and its sweep goroutine. Call Stop when
// done.
func NewKeyedLimiter(cfg KeyedConfig) *KeyedLimiter {
	kl := newKeyed(cfg, time.Now)
	go kl.sweepLoop()
	return kl
}

func newKeyed(cfg KeyedConfig, now func() time.Time) *KeyedLimiter {
	if cfg.CleanupPeriod <= 0 {
		cfg.CleanupPeriod = defaultCleanupPeriod
	}
	return &KeyedLimiter{
		cfg:     cfg,
		now:     now,
		buckets: make(map[string]*Limiter),
		stopCh:  make(chan struct{}),
	}
}

// Allow spends a token from key's bucket. The empty key is never limited.
func (kl *KeyedLimiter) Allow(key string) bool {
	if key == "" {
		return true
	}
	if kl.bucket(key).Allow() {
		return true
	}
	if kl.cfg.Metrics != nil {
		kl.cfg.Metrics.RecordRateLimiterDrop(kl.cfg.Name)
	}
	return false
}

// RetryAfter is how long key must wait for its next token. Unknown keys
// wait zero.
func (kl *KeyedLimiter) RetryAfter(key string) time.Duration {
	if b := kl.lookup(key); b != nil {
		return b.RetryAfter()
	}
	return 0
}

// Available returns the tokens left for key; Burst for unknown keys.
func (kl *KeyedLimiter) Available(key string) float64 {
	if b := kl.lookup(key); b != nil {
		return b.Available()
	}
	return kl.cfg.Burst
}

// Clients returns the number of tracked keys.
func (kl *KeyedLimiter) Clients() int {
	kl.mu.RLock()
	defer kl.mu.RUnlock()
	return len(kl.buckets)
}

func (kl *KeyedLimiter) lookup(key string) *Limiter {
	kl.mu.RLock()
	defer kl.mu.RUnlock()
	return kl.buckets[key]
}

func (kl *KeyedLimiter) bucket(key string) *Limiter {
	if b := kl.lookup(key); b != nil {
		return b
	}

	kl.mu.Lock()
	defer kl.mu.Unlock()
	if b, ok := kl.buckets[key]; ok {
		return b
	}
	b := newWithClock(kl.cfg.Burst, kl.cfg.RefillRate, kl.now)
	kl.buckets[key] = b
	return b
}

func (kl *KeyedLimiter) sweepLoop() {
	ticker := time.NewTicker(kl.cfg.CleanupPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-kl.stopCh:
			return
		case <-ticker.C:
			kl.sweep()
		}
	}
}

// sweep drops full buckets and reports how many clients remain.
func (kl *KeyedLimiter) sweep() {
	kl.mu.Lock()
	for key, b := range kl.buckets {
		if b.IsFull() {
			delete(kl.buckets, key)
		}
	}
	remaining := len(kl.buckets)
	kl.mu.Unlock()

	if kl.cfg.Metrics != nil {
		kl.cfg.Metrics.SetRateLimiterClients(remaining)
	}
}

// Stop ends the sweep goroutine. Safe to call more than once.
func (kl *KeyedLimiter) Stop() {
	kl.stopOnce.Do(func() { close(kl.stopCh) })
}
