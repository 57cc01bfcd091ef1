package timing

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStopwatch_RecordsIntoTracker(t *testing.T) {
	tracker := NewTracker()

	sw := tracker.Stopwatch()
	stop := sw.Start("load")
	time.Sleep(2 * time.Millisecond)
	stop()
	stop()

	sw.Start("extract")()

	stages := sw.Stages()
	require.Len(t, stages, 2)
	assert.GreaterOrEqual(t, stages["load"], 2*time.Millisecond)
	assert.Len(t, tracker.Timings("load"), 1)
	assert.Equal(t, []string{"extract", "load"}, tracker.Stages())
}

func TestTracker_Average(t *testing.T) {
	tracker := NewTracker()
	tracker.record("save", 10*time.Millisecond)
	tracker.record("save", 30*time.Millisecond)
	tracker.record("load", 5*time.Millisecond)

	assert.Equal(t, 20*time.Millisecond, tracker.Average("save"))
	assert.Equal(t, time.Duration(0), tracker.Average("missing"))
	assert.Equal(t, map[string]time.Duration{"save": 20 * time.Millisecond, "load": 5 * time.Millisecond}, tracker.Averages())
}

func TestTracker_ConcurrentStopwatches(t *testing.T) {
	tracker := NewTracker()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Stopwatch().Start("extract")()
		}()
	}
	wg.Wait()

	assert.Len(t, tracker.Timings("extract"), 8)
}

func TestStopwatch_NilTracker(t *testing.T) {
	sw := (*Tracker)(nil).Stopwatch()
	sw.Start("load")()
	assert.Contains(t, sw.Stages(), "load")
}
