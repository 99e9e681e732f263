package metrics

import (
	"sync/atomic"
	"time"
)

type Counter struct {
	value atomic.Uint64
}

func (c *Counter) Inc() {
	c.value.Add(1)
}

func (c *Counter) Load() uint64 {
	return c.value.Load()
}

type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Collection tracks the I/O a single collection store performs.
type Collection struct {
	Loads         Counter
	LoadFailures  Counter
	Writes        Counter
	WriteFailures Counter
	Merges        Counter
	MergeFailures Counter

	lastWrite atomic.Int64
}

// ObserveWrite records the latency of the most recent persistence write.
func (c *Collection) ObserveWrite(t *Timer) {
	c.lastWrite.Store(int64(t.Duration()))
}

type CollectionSnapshot struct {
	Loads         uint64
	LoadFailures  uint64
	Writes        uint64
	WriteFailures uint64
	Merges        uint64
	MergeFailures uint64
	LastWrite     time.Duration
}

func (c *Collection) Snapshot() CollectionSnapshot {
	return CollectionSnapshot{
		Loads:         c.Loads.Load(),
		LoadFailures:  c.LoadFailures.Load(),
		Writes:        c.Writes.Load(),
		WriteFailures: c.WriteFailures.Load(),
		Merges:        c.Merges.Load(),
		MergeFailures: c.MergeFailures.Load(),
		LastWrite:     time.Duration(c.lastWrite.Load()),
	}
}
