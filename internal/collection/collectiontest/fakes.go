// Package collectiontest provides in-memory persistence backends with
// failure injection for exercising collection stores.
package collectiontest

import (
	"context"
	"sync"

	"staylook-store/internal/collection"
)

type remoteKey struct {
	kind   collection.Kind
	userID string
}

// Remote is an in-memory collection.RemoteStore. Like the Postgres backend it
// applies each merge revision at most once.
type Remote struct {
	mu      sync.Mutex
	data    map[remoteKey]collection.RawCollection
	applied map[string]bool
	mergers map[collection.Kind]collection.MergeFunc
	errs    map[string]error
	calls   map[string]int
	gate    chan struct{}
}

var _ collection.RemoteStore = (*Remote)(nil)

func NewRemote(mergers map[collection.Kind]collection.MergeFunc) *Remote {
	return &Remote{
		data:    make(map[remoteKey]collection.RawCollection),
		applied: make(map[string]bool),
		mergers: mergers,
		errs:    make(map[string]error),
		calls:   make(map[string]int),
	}
}

// Fail makes every later call of method ("Fetch", "Replace", "Merge",
// "Clear") return err. A nil err restores normal behavior.
func (r *Remote) Fail(method string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs[method] = err
}

func (r *Remote) Calls(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[method]
}

// HoldFetch blocks Fetch calls until the returned release func is called.
func (r *Remote) HoldFetch() (release func()) {
	gate := make(chan struct{})
	r.mu.Lock()
	r.gate = gate
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			r.gate = nil
			r.mu.Unlock()
			close(gate)
		})
	}
}

func (r *Remote) Seed(kind collection.Kind, userID string, raw collection.RawCollection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[remoteKey{kind, userID}] = raw
}

func (r *Remote) Stored(kind collection.Kind, userID string) (collection.RawCollection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw, ok := r.data[remoteKey{kind, userID}]
	return raw, ok
}

func (r *Remote) enter(method string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[method]++
	return r.errs[method]
}

func (r *Remote) Fetch(ctx context.Context, kind collection.Kind, userID string) (collection.RawCollection, error) {
	if err := r.enter("Fetch"); err != nil {
		return collection.RawCollection{}, err
	}

	r.mu.Lock()
	gate := r.gate
	r.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return collection.RawCollection{}, ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	raw, ok := r.data[remoteKey{kind, userID}]
	if !ok {
		return collection.Empty(kind), nil
	}
	return raw, nil
}

func (r *Remote) Replace(ctx context.Context, kind collection.Kind, userID string, raw collection.RawCollection) error {
	if err := r.enter("Replace"); err != nil {
		return err
	}
	r.Seed(kind, userID, raw)
	return nil
}

func (r *Remote) Merge(ctx context.Context, kind collection.Kind, userID string, incoming collection.RawCollection) error {
	if err := r.enter("Merge"); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ledger := string(kind) + "/" + userID + "/" + incoming.Revision
	if r.applied[ledger] {
		return nil
	}

	current, ok := r.data[remoteKey{kind, userID}]
	if !ok {
		current = collection.Empty(kind)
	}
	merged, err := r.mergers[kind](current, incoming)
	if err != nil {
		return err
	}
	r.data[remoteKey{kind, userID}] = merged
	r.applied[ledger] = true
	return nil
}

func (r *Remote) Clear(ctx context.Context, kind collection.Kind, userID string) error {
	if err := r.enter("Clear"); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, remoteKey{kind, userID})
	return nil
}

// Local is an in-memory collection.LocalStore.
type Local struct {
	mu    sync.Mutex
	data  map[collection.StorageKey]collection.RawCollection
	errs  map[string]error
	calls map[string]int
}

var _ collection.LocalStore = (*Local)(nil)

func NewLocal() *Local {
	return &Local{
		data:  make(map[collection.StorageKey]collection.RawCollection),
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
}

// Fail makes every later call of method ("Get", "Set", "Remove") return err.
func (l *Local) Fail(method string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs[method] = err
}

func (l *Local) Calls(method string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[method]
}

func (l *Local) enter(method string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls[method]++
	return l.errs[method]
}

func (l *Local) Get(ctx context.Context, key collection.StorageKey) (collection.RawCollection, bool, error) {
	if err := l.enter("Get"); err != nil {
		return collection.RawCollection{}, false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	raw, ok := l.data[key]
	return raw, ok, nil
}

func (l *Local) Set(ctx context.Context, key collection.StorageKey, raw collection.RawCollection) error {
	if err := l.enter("Set"); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.data[key] = raw
	return nil
}

func (l *Local) Remove(ctx context.Context, key collection.StorageKey) error {
	if err := l.enter("Remove"); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.data, key)
	return nil
}

// Stored returns what is held under key without counting as a call.
func (l *Local) Stored(key collection.StorageKey) (collection.RawCollection, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	raw, ok := l.data[key]
	return raw, ok
}
