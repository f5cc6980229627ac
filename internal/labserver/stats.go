package labserver

import (
	"math"
	"sync/atomic"
)

// statsCollector tracks sizes of responses served from the store.
type statsCollector struct {
	hits   atomic.Uint64
	misses atomic.Uint64

	totalRespBytes atomic.Uint64
	minRespBytes   atomic.Uint64
	maxRespBytes   atomic.Uint64
}

func newStatsCollector() *statsCollector {
	s := &statsCollector{}
	s.minRespBytes.Store(math.MaxUint64)
	return s
}

func (s *statsCollector) Observe(hit bool, respBytes int) {
	if hit {
		s.hits.Add(1)
	} else {
		s.misses.Add(1)
	}
	n := uint64(max(respBytes, 0))
	s.totalRespBytes.Add(n)

	for {
		cur := s.minRespBytes.Load()
		if n >= cur || s.minRespBytes.CompareAndSwap(cur, n) {
			break
		}
	}
	for {
		cur := s.maxRespBytes.Load()
		if n <= cur || s.maxRespBytes.CompareAndSwap(cur, n) {
			break
		}
	}
}

type statsSnapshot struct {
	Hits         uint64
	Misses       uint64
	MinRespBytes uint64
	MaxRespBytes uint64
	AvgRespBytes uint64
}

func (s *statsCollector) Snapshot() statsSnapshot {
	hits, misses := s.hits.Load(), s.misses.Load()
	count := hits + misses
	if count == 0 {
		return statsSnapshot{}
	}
	minv := s.minRespBytes.Load()
	if minv == math.MaxUint64 {
		minv = 0
	}
	return statsSnapshot{
		Hits:         hits,
		Misses:       misses,
		MinRespBytes: minv,
		MaxRespBytes: s.maxRespBytes.Load(),
		AvgRespBytes: s.totalRespBytes.Load() / count,
	}
}
