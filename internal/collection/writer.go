package collection

import (
	"sync"

	"staylook-store/internal/session"
)

// intent is one full-snapshot write bound to the session it was made under.
type intent struct {
	seq   uint64
	sess  session.Session
	raw   RawCollection
	clear bool
}

// writer persists intents on a single goroutine. Only the latest pending
// intent is kept, so a burst of mutations collapses into one write of the
// newest snapshot.
type writer struct {
	run func(intent)

	mu      sync.Mutex
	idle    *sync.Cond
	pending *intent
	busy    bool
	closed  bool
	wake    chan struct{}
	done    chan struct{}
}

func newWriter(run func(intent)) *writer {
	w := &writer{
		run:  run,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	w.idle = sync.NewCond(&w.mu)
	go w.loop()
	return w
}

func (w *writer) schedule(in intent) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	w.pending = &in
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *writer) loop() {
	defer close(w.done)

	for range w.wake {
		for {
			w.mu.Lock()
			in := w.pending
			if in == nil {
				w.busy = false
				w.idle.Broadcast()
				w.mu.Unlock()
				break
			}
			w.pending = nil
			w.busy = true
			w.mu.Unlock()

			w.run(*in)
		}
	}
}

// flush blocks until every scheduled intent has been written.
func (w *writer) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for w.pending != nil || w.busy {
		w.idle.Wait()
	}
}

func (w *writer) close() {
	w.flush()

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.wake)
	w.mu.Unlock()

	<-w.done
}
