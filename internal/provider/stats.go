package provider

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Stats counts stream runs per provider.
type Stats struct {
	mu    sync.RWMutex
	stats map[string]*runMetrics
}

type runMetrics struct {
	complete       atomic.Int64
	incomplete     atomic.Int64
	totalLatencyNs atomic.Int64
	lastRun        atomic.Int64
}

// RunSummary is a read-only view of one provider's counters.
type RunSummary struct {
	Provider   string        `json:"provider"`
	Complete   int64         `json:"complete"`
	Incomplete int64         `json:"incomplete"`
	AvgLatency time.Duration `json:"avg_latency"`
	LastRun    time.Time     `json:"last_run"`
}

func NewStats() *Stats {
	return &Stats{stats: make(map[string]*runMetrics)}
}

func (s *Stats) getOrCreate(name string) *runMetrics {
	s.mu.RLock()
	m := s.stats[name]
	s.mu.RUnlock()
	if m != nil {
		return m
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if m = s.stats[name]; m != nil {
		return m
	}
	m = &runMetrics{}
	s.stats[name] = m
	return m
}

// Record counts one run. complete is false for streams that ended early.
func (s *Stats) Record(name string, latency time.Duration, complete bool) {
	m := s.getOrCreate(name)
	if complete {
		m.complete.Add(1)
	} else {
		m.incomplete.Add(1)
	}
	m.totalLatencyNs.Add(int64(latency))
	m.lastRun.Store(time.Now().UnixNano())
}

func (s *Stats) Summary(name string) (RunSummary, bool) {
	s.mu.RLock()
	m := s.stats[name]
	s.mu.RUnlock()
	if m == nil {
		return RunSummary{Provider: name}, false
	}
	return m.summary(name), true
}

// Summaries returns every provider's counters sorted by name.
func (s *Stats) Summaries() []RunSummary {
	s.mu.RLock()
	out := make([]RunSummary, 0, len(s.stats))
	for name, m := range s.stats {
		out = append(out, m.summary(name))
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Provider < out[j].Provider })
	return out
}

// Cleanup drops providers idle for longer than maxAge and returns how many.
func (s *Stats) Cleanup(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge).UnixNano()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for name, m := range s.stats {
		if m.lastRun.Load() < cutoff {
			delete(s.stats, name)
			removed++
		}
	}
	return removed
}

func (m *runMetrics) summary(name string) RunSummary {
	complete, incomplete := m.complete.Load(), m.incomplete.Load()
	sum := RunSummary{Provider: name, Complete: complete, Incomplete: incomplete}
	if n := complete + incomplete; n > 0 {
		sum.AvgLatency = time.Duration(m.totalLatencyNs.Load() / n)
	}
	if ts := m.lastRun.Load(); ts > 0 {
		sum.LastRun = time.Unix(0, ts)
	}
	return sum
}
