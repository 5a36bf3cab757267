package daemon

import (
	"sync"
	"time"
)

// sourceCounters is the per-source breakdown inside stats.
type sourceCounters struct {
	fetched    int
	added      int
	duplicates int
	errors     int
}

// stats holds the daemon's counters. All fields are guarded by mu; the
// cycle loop, concurrent harvest tasks and stats readers all go through it.
type stats struct {
	startedAt     time.Time
	perSource     map[string]*sourceCounters
	totalFetched  int
	totalAdded    int
	totalDupes    int
	rateLimitHits int
	totalErrors   int
	mu            sync.Mutex
}

func newStats() *stats {
	return &stats{
		perSource: make(map[string]*sourceCounters),
	}
}

func (s *stats) counters(source string) *sourceCounters {
	c, ok := s.perSource[source]
	if !ok {
		c = &sourceCounters{}
		s.perSource[source] = c
	}
	return c
}

func (s *stats) markStarted(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startedAt = at
}

func (s *stats) recordFetched(source string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalFetched += n
	s.counters(source).fetched += n
}

func (s *stats) recordAdded(source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalAdded++
	s.counters(source).added++
}

func (s *stats) recordDuplicate(source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalDupes++
	s.counters(source).duplicates++
}

func (s *stats) recordError(source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalErrors++
	s.counters(source).errors++
}

func (s *stats) recordRateLimit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateLimitHits++
}

// read copies the counters out under the lock. The per-source map values are
// copied so callers never alias live counters.
func (s *stats) read() (time.Time, int, int, int, int, int, map[string]sourceCounters) {
	s.mu.Lock()
	defer s.mu.Unlock()

	perSource := make(map[string]sourceCounters, len(s.perSource))
	for name, c := range s.perSource {
		perSource[name] = *c
	}
	return s.startedAt, s.totalFetched, s.totalAdded, s.totalDupes, s.rateLimitHits, s.totalErrors, perSource
}
