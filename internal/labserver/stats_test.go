package labserver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatsSnapshot(t *testing.T) {
	s := newStatsCollector()
	assert.Equal(t, statsSnapshot{}, s.Snapshot())

	s.Observe(true, 100)
	s.Observe(true, 300)
	s.Observe(false, 20)
	s.Observe(false, -5)

	assert.Equal(t, statsSnapshot{
		Hits:         2,
		Misses:       2,
		MinRespBytes: 0,
		MaxRespBytes: 300,
		AvgRespBytes: 105,
	}, s.Snapshot())
}

func TestRateLimitedLoggerDrops(t *testing.T) {
	l := newRateLimitedLogger(time.Hour)
	l.Printf("[DEBUG] first")
	l.Printf("[DEBUG] second")
	l.Printf("[DEBUG] third")
	assert.Equal(t, 2, l.dropped)

	l.lastAt = time.Now().Add(-2 * time.Hour)
	l.Printf("[DEBUG] fourth")
	assert.Zero(t, l.dropped)
}
