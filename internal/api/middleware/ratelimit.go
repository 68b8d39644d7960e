package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/viewdesk/viewdesk/config"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterStore maps client keys to token buckets. Entries unseen for
// staleAfter are dropped by cleanup.
type limiterStore struct {
	mu         sync.Mutex
	entries    map[string]*limiterEntry
	staleAfter time.Duration
}

func (s *limiterStore) getOrCreate(key string, r rate.Limit, burst int) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		e.lastSeen = time.Now()
		return e.limiter
	}
	lim := rate.NewLimiter(r, burst)
	s.entries[key] = &limiterEntry{limiter: lim, lastSeen: time.Now()}
	return lim
}

func (s *limiterStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-s.staleAfter)
	for k, e := range s.entries {
		if e.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

// RateLimiter applies a per-operator, else per-IP, token bucket. It guards
// the routes that call the chat completion API. Stop ends the background
// sweep of idle buckets.
type RateLimiter struct {
	cfg   config.RateLimitConfig
	store *limiterStore

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	l := &RateLimiter{
		cfg:  cfg,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	if !cfg.Enabled {
		close(l.done)
		return l
	}

	l.store = &limiterStore{
		entries:    make(map[string]*limiterEntry),
		staleAfter: 10 * time.Minute,
	}
	go l.sweep(time.Minute)
	return l
}

func (l *RateLimiter) sweep(every time.Duration) {
	defer close(l.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.store.cleanup()
		case <-l.stop:
			return
		}
	}
}

// Stop is safe to call more than once.
func (l *RateLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
	<-l.done
}

func (l *RateLimiter) Handler() gin.HandlerFunc {
	if !l.cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	limit := rate.Limit(l.cfg.RPS)

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		key := "ip:" + GetIPAddress(c)
		if key == "ip:" {
			key = "ip:" + c.ClientIP()
		}
		if op, ok := GetOperator(c); ok && op != "" {
			key = "op:" + op
		}

		if !l.store.getOrCreate(key, limit, l.cfg.Burst).Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
