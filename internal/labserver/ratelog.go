package labserver

import (
	"sync"
	"time"

	log "github.com/go-pkgz/lgr"
)

// rateLimitedLogger drops lines logged within interval of the previous one.
type rateLimitedLogger struct {
	mu       sync.Mutex
	lastAt   time.Time
	interval time.Duration
	dropped  int
}

func newRateLimitedLogger(interval time.Duration) *rateLimitedLogger {
	return &rateLimitedLogger{interval: interval}
}

func (l *rateLimitedLogger) Printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	if !l.lastAt.IsZero() && now.Sub(l.lastAt) < l.interval {
		l.dropped++
		return
	}
	if l.dropped > 0 {
		log.Printf("[DEBUG] %d similar line(s) suppressed", l.dropped)
		l.dropped = 0
	}
	l.lastAt = now
	log.Printf(format, args...)
}
