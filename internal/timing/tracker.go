package timing

import (
	"sort"
	"sync"
	"time"
)

// Tracker accumulates stage durations across runs. It is safe for use by
// concurrent workers.
type Tracker struct {
	timings map[string][]time.Duration
	mu      sync.RWMutex
}

func NewTracker() *Tracker {
	return &Tracker{timings: make(map[string][]time.Duration)}
}

func (t *Tracker) record(stage string, d time.Duration) {
	t.mu.Lock()
	t.timings[stage] = append(t.timings[stage], d)
	t.mu.Unlock()
}

func (t *Tracker) Timings(stage string) []time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	timings := t.timings[stage]
	if timings == nil {
		return nil
	}
	result := make([]time.Duration, len(timings))
	copy(result, timings)
	return result
}

// Stages lists every recorded stage name, sorted.
func (t *Tracker) Stages() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.timings))
	for name := range t.timings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (t *Tracker) Average(stage string) time.Duration {
	timings := t.Timings(stage)
	if len(timings) == 0 {
		return 0
	}

	var total time.Duration
	for _, d := range timings {
		total += d
	}
	return total / time.Duration(len(timings))
}

func (t *Tracker) Averages() map[string]time.Duration {
	out := make(map[string]time.Duration)
	for _, stage := range t.Stages() {
		out[stage] = t.Average(stage)
	}
	return out
}

// Stopwatch times the stages of a single run and forwards each measurement
// to its Tracker. A nil Tracker is allowed.
type Stopwatch struct {
	tracker *Tracker
	stages  map[string]time.Duration
}

func (t *Tracker) Stopwatch() *Stopwatch {
	return &Stopwatch{tracker: t, stages: make(map[string]time.Duration)}
}

// Start begins timing stage; calling the returned func stops it. Stopping
// twice records once.
func (s *Stopwatch) Start(stage string) func() {
	start := time.Now()
	var once sync.Once
	return func() {
		once.Do(func() {
			d := time.Since(start)
			s.stages[stage] += d
			if s.tracker != nil {
				s.tracker.record(stage, d)
			}
		})
	}
}

func (s *Stopwatch) Stages() map[string]time.Duration {
	out := make(map[string]time.Duration, len(s.stages))
	for k, v := range s.stages {
		out[k] = v
	}
	return out
}
