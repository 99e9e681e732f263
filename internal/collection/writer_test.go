package collection

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWriter_CoalescesToLatest(t *testing.T) {
	var mu sync.Mutex
	var written []uint64
	started := make(chan struct{}, 1)
	release := make(chan struct{})

	w := newWriter(func(in intent) {
		select {
		case started <- struct{}{}:
			<-release
		default:
		}
		mu.Lock()
		written = append(written, in.seq)
		mu.Unlock()
	})
	defer w.close()

	w.schedule(intent{seq: 1})
	<-started

	// Everything scheduled while the first write is in flight collapses into one.
	w.schedule(intent{seq: 2})
	w.schedule(intent{seq: 3})
	w.schedule(intent{seq: 4})
	close(release)

	w.flush()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []uint64{1, 4}, written)
}

func TestWriter_FlushWaitsForInFlightWrite(t *testing.T) {
	var done bool
	var mu sync.Mutex

	w := newWriter(func(in intent) {
		time.Sleep(20 * time.Millisecond)
		mu.Lock()
		done = true
		mu.Unlock()
	})
	defer w.close()

	w.schedule(intent{seq: 1})
	w.flush()

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, done)
}

func TestWriter_CloseDrainsAndDropsLaterWrites(t *testing.T) {
	var mu sync.Mutex
	count := 0

	w := newWriter(func(in intent) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	w.schedule(intent{seq: 1})
	w.close()
	w.schedule(intent{seq: 2})
	w.close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, count)
}
