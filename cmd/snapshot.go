package cmd

import (
	"sync"
	"time"
)

// BenchSnapshot holds the latest round-trip sample the bench loop took;
// the loop updates it and then prints it on each tick. The
// shape (plain fields behind one RWMutex, a Read that copies out) is
// the teacher's MetricsSnapshot pattern; the fields themselves are
// put/get/fork round-trip counters instead of CPU/mem/temp readings,
// since nothing in this runtime collects host telemetry.
type BenchSnapshot struct {
	mu       sync.RWMutex
	Puts     int32
	Gets     int32
	Forks    int32
	NBForks  int32
	LastRTT  time.Duration
	Failures int32
}

func (s *BenchSnapshot) update(puts, gets, forks, nbForks int32, rtt time.Duration, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Puts, s.Gets, s.Forks, s.NBForks = puts, gets, forks, nbForks
	s.LastRTT = rtt
	if failed {
		s.Failures++
	}
}

func (s *BenchSnapshot) Read() BenchSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return BenchSnapshot{Puts: s.Puts, Gets: s.Gets, Forks: s.Forks, NBForks: s.NBForks, LastRTT: s.LastRTT, Failures: s.Failures}
}
