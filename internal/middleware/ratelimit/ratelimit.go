// Package ratelimit throttles clients by IP over fixed windows.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

type Config struct {
	// Requests is the number of requests a client may make per Window.
	Requests int
	Window   time.Duration
	// IdleTTL is how long an idle client is remembered.
	IdleTTL         time.Duration
	CleanupInterval time.Duration
	// OnlyMutating leaves GET, HEAD and OPTIONS requests unthrottled.
	OnlyMutating bool
}

func DefaultConfig() Config {
	return Config{
		Requests:        60,
		Window:          time.Minute,
		IdleTTL:         10 * time.Minute,
		CleanupInterval: 5 * time.Minute,
		OnlyMutating:    true,
	}
}

type window struct {
	start time.Time
	last  time.Time
	count int
}

// Limiter counts requests per client. Stop releases its cleanup goroutine.
type Limiter struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	clients map[string]*window
	refused int64

	stop     chan struct{}
	stopOnce sync.Once
}

func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.Requests <= 0 {
		cfg.Requests = def.Requests
	}
	if cfg.Window <= 0 {
		cfg.Window = def.Window
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = def.IdleTTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}

	l := &Limiter{
		cfg:     cfg,
		now:     time.Now,
		clients: make(map[string]*window),
		stop:    make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// Allow records a request from ip. When the request is refused it also
// returns how long until the client's window resets.
func (l *Limiter) Allow(ip string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.clients[ip]
	if !ok || now.Sub(w.start) >= l.cfg.Window {
		l.clients[ip] = &window{start: now, last: now, count: 1}
		return true, 0
	}
	w.last = now
	w.count++
	if w.count <= l.cfg.Requests {
		return true, 0
	}
	atomic.AddInt64(&l.refused, 1)
	return false, w.start.Add(l.cfg.Window).Sub(now)
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.evictIdle()
		case <-l.stop:
			return
		}
	}
}

func (l *Limiter) evictIdle() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.cfg.IdleTTL)
	n := 0
	for ip, w := range l.clients {
		if w.last.Before(cutoff) {
			delete(l.clients, ip)
			n++
		}
	}
	return n
}

func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

type Metrics struct {
	Refused int64 `json:"refused"`
	Clients int   `json:"clients"`
}

func (l *Limiter) GetMetrics() Metrics {
	l.mu.Lock()
	clients := len(l.clients)
	l.mu.Unlock()
	return Metrics{Refused: atomic.LoadInt64(&l.refused), Clients: clients}
}

// RetryAfterSeconds renders d for a Retry-After header, rounding up.
func RetryAfterSeconds(d time.Duration) string {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		s = 1
	}
	return strconv.Itoa(s)
}

func readOnly(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// Middleware refuses requests over the limit. onLimit writes the refusal;
// when nil a plain 429 is sent.
func (l *Limiter) Middleware(clientIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request, time.Duration)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l.cfg.OnlyMutating && readOnly(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			ok, retry := l.Allow(clientIP(r))
			if ok {
				next.ServeHTTP(w, r)
				return
			}
			if onLimit != nil {
				onLimit(w, r, retry)
				return
			}
			w.Header().Set("Retry-After", RetryAfterSeconds(retry))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		})
	}
}
