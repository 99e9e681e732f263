package collection

import (
	"context"
	"sync"
	"time"

	"staylook-store/internal/logger"
	"staylook-store/internal/metrics"
	"staylook-store/internal/session"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type Status int

const (
	StatusUninitialized Status = iota
	StatusLoading
	StatusReady
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// State is a point-in-time copy of a store.
type State[E any] struct {
	Entries []E
	Status  Status
	Session session.Session
	// Err is the most recent soft failure since the last session change.
	Err error
}

func (s State[E]) Loading() bool {
	return s.Status != StatusReady
}

type Options struct {
	// Timeout bounds every single persistence call. Zero means no bound.
	Timeout time.Duration
	// Limiter paces remote writes. Nil leaves them unpaced.
	Limiter *rate.Limiter
	OnError ErrorHandler
	Now     func() time.Time
	NewID   func() string
}

// op is a mutation. apply may modify entries in place and reports whether
// anything changed.
type op[E any] struct {
	apply  func(entries []E) ([]E, bool)
	clears bool
}

// Store owns one collection for the current session. In-memory state is
// authoritative for reads; persistence is a best-effort mirror written by a
// background writer. All methods are safe for concurrent use.
type Store[E any] struct {
	policy  Policy[E]
	local   LocalStore
	remote  RemoteStore
	opts    Options
	metrics metrics.Collection
	w       *writer

	mu      sync.Mutex
	entries []E
	status  Status
	sess    session.Session
	gen     uint64
	journal []op[E]
	lastErr error
	merging bool
	closed  bool
	seq     uint64
}

func NewStore[E any](p Policy[E], local LocalStore, remote RemoteStore, opts Options) *Store[E] {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	s := &Store[E]{
		policy:  p,
		local:   local,
		remote:  remote,
		opts:    opts,
		entries: []E{},
	}
	s.w = newWriter(s.persist)
	return s
}

// Open loads the collection for the initial session.
func (s *Store[E]) Open(ctx context.Context, sess session.Session) {
	s.switchSession(ctx, sess, true)
}

// SetSession moves the store to sess. Any identity change reloads the
// collection; an anonymous -> authenticated change first merges the guest
// collection into the user's remote one. Returns once the load has landed.
func (s *Store[E]) SetSession(ctx context.Context, sess session.Session) {
	s.switchSession(ctx, sess, false)
}

func (s *Store[E]) switchSession(ctx context.Context, next session.Session, force bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	prev := s.sess
	if !force && prev == next && s.status != StatusUninitialized {
		s.mu.Unlock()
		return
	}
	s.sess = next
	s.gen++
	s.status = StatusLoading
	s.journal = nil
	s.lastErr = nil
	if prev != next {
		// The previous identity's entries must not be shown while the next one loads.
		s.entries = []E{}
	}
	s.mu.Unlock()

	// Writes still pending belong to prev and must land before its source is abandoned.
	s.w.flush()

	if next.Authenticated {
		ctx = logger.WithUserID(ctx, next.UserID)
	}
	if session.IsLogin(prev, next) {
		s.mergeOnLogin(ctx, next)
	}
	s.load(ctx)
}

func (s *Store[E]) load(ctx context.Context) {
	s.mu.Lock()
	gen, sess := s.gen, s.sess
	s.mu.Unlock()

	log := s.log(ctx, "load")
	timer := metrics.StartTimer()

	var loaded []E
	raw, err := s.fetch(ctx, sess)
	if err == nil {
		loaded, err = Decode(s.policy, raw)
	}
	if err != nil {
		loaded = []E{}
	}

	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		log.Debug("discarding stale load")
		return
	}

	journal := s.journal
	clears, replayed := false, false
	for _, o := range journal {
		var changed bool
		loaded, changed = o.apply(loaded)
		replayed = replayed || changed
		clears = clears || (o.clears && changed)
	}
	s.entries = loaded
	s.status = StatusReady
	s.journal = nil

	var failure *Failure
	if err != nil {
		failure = &Failure{Op: OpLoad, Kind: s.policy.Kind(), Session: sess, Err: err}
		s.lastErr = failure
	}

	// Queued under s.mu: no session switch may run between building the
	// intent and handing it to the writer.
	if replayed {
		if in := s.intentLocked(clears && len(loaded) == 0); in != nil {
			s.w.schedule(*in)
		}
	}
	count := len(loaded)
	s.mu.Unlock()

	if failure != nil {
		s.metrics.LoadFailures.Inc()
		s.report(ctx, failure)
	} else {
		s.metrics.Loads.Inc()
		log.Debug("collection loaded",
			zap.Int("entries", count),
			zap.Int("replayed", len(journal)),
			zap.Duration("duration", timer.Duration()),
		)
	}
}

// mergeOnLogin folds the guest collection into the user's remote collection
// and drops the guest copy. Guest data survives a failed merge so the next
// login can retry.
func (s *Store[E]) mergeOnLogin(ctx context.Context, sess session.Session) {
	s.mu.Lock()
	if s.merging {
		s.mu.Unlock()
		return
	}
	s.merging = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.merging = false
		s.mu.Unlock()
	}()

	log := s.log(ctx, "mergeOnLogin")

	fail := func(err error) {
		s.metrics.MergeFailures.Inc()
		s.recordFailure(ctx, &Failure{Op: OpMerge, Kind: s.policy.Kind(), Session: sess, Err: err})
	}

	if sess.UserID == "" {
		fail(ErrMissingUserID)
		return
	}
	key, ok := s.policy.Kind().LocalKey()
	if !ok {
		fail(ErrUnknownKind)
		return
	}

	getCtx, cancel := s.withTimeout(ctx)
	raw, found, err := s.local.Get(getCtx, key)
	cancel()
	if err != nil {
		fail(err)
		return
	}
	if !found {
		log.Debug("no guest collection to merge")
		return
	}
	guest, err := Decode(s.policy, raw)
	if err != nil {
		fail(err)
		return
	}
	if len(guest) == 0 {
		log.Debug("guest collection is empty, nothing to merge")
		return
	}

	mergeCtx, cancel := s.withTimeout(ctx)
	err = s.remote.Merge(mergeCtx, s.policy.Kind(), sess.UserID, raw)
	cancel()
	if err != nil {
		fail(err)
		return
	}

	removeCtx, cancel := s.withTimeout(ctx)
	err = s.local.Remove(removeCtx, key)
	cancel()
	if err != nil {
		// The remote merge is keyed by revision, so a retry with this copy is a no-op.
		fail(err)
		return
	}

	s.metrics.Merges.Inc()
	log.Info("guest collection merged", zap.String("revision", raw.Revision))
}

// Add inserts e, or folds it into the entry already holding its line.
// Entries that fail validation are ignored.
func (s *Store[E]) Add(e E) {
	e, ok := s.policy.Normalize(e)
	if !ok {
		return
	}
	id, now := s.opts.NewID(), s.opts.Now()
	key := s.policy.Key(e)

	s.mutate(op[E]{apply: func(entries []E) ([]E, bool) {
		if i := indexByKey(s.policy, entries, key); i >= 0 {
			merged, changed := s.policy.Absorb(entries[i], e)
			if changed {
				entries[i] = merged
			}
			return entries, changed
		}
		prepared := s.policy.Prepare(e, id, now)
		if s.policy.Prepend() {
			return append([]E{prepared}, entries...), true
		}
		return append(entries, prepared), true
	}})
}

// Update rewrites the entry with the given id. fn returning keep=false
// removes the entry. Unknown ids are a no-op.
func (s *Store[E]) Update(id string, fn func(E) (E, bool)) {
	s.mutate(op[E]{apply: func(entries []E) ([]E, bool) {
		i := indexByID(s.policy, entries, id)
		if i < 0 {
			return entries, false
		}
		updated, keep := fn(entries[i])
		if !keep {
			return append(entries[:i], entries[i+1:]...), true
		}
		if updated, ok := s.policy.Normalize(updated); ok {
			entries[i] = updated
			return entries, true
		}
		return append(entries[:i], entries[i+1:]...), true
	}})
}

// RemoveByID removes the entry with the given id, if present.
func (s *Store[E]) RemoveByID(id string) {
	s.Update(id, func(e E) (E, bool) { return e, false })
}

// RemoveByKey removes the entry holding the given line, if present.
func (s *Store[E]) RemoveByKey(key string) {
	s.mutate(op[E]{apply: func(entries []E) ([]E, bool) {
		i := indexByKey(s.policy, entries, key)
		if i < 0 {
			return entries, false
		}
		return append(entries[:i], entries[i+1:]...), true
	}})
}

// Clear empties the collection and clears the active source.
func (s *Store[E]) Clear() {
	s.mutate(op[E]{
		apply: func(entries []E) ([]E, bool) {
			return entries[:0], true
		},
		clears: true,
	})
}

func (s *Store[E]) mutate(o op[E]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	next, changed := o.apply(s.entries)
	if changed {
		s.entries = next
	}

	// Until a load lands every mutation is kept and replayed onto the loaded
	// data, even one that was a no-op against what memory holds now.
	if s.status != StatusReady {
		s.journal = append(s.journal, o)
		return
	}
	if !changed {
		return
	}

	if in := s.intentLocked(o.clears); in != nil {
		s.w.schedule(*in)
	}
}

// intentLocked snapshots the current entries. Callers hold s.mu.
func (s *Store[E]) intentLocked(clear bool) *intent {
	s.seq++
	in := &intent{seq: s.seq, sess: s.sess, clear: clear}
	if clear {
		return in
	}

	raw, err := Encode(s.policy, s.entries, s.opts.Now())
	if err != nil {
		s.lastErr = &Failure{Op: OpPersist, Kind: s.policy.Kind(), Session: s.sess, Err: err}
		return nil
	}
	in.raw = raw
	return in
}

// persist runs on the writer goroutine.
func (s *Store[E]) persist(in intent) {
	ctx := context.Background()
	if in.sess.Authenticated {
		ctx = logger.WithUserID(ctx, in.sess.UserID)
	}
	failOp := OpPersist
	if in.clear {
		failOp = OpClear
	}

	log := s.log(ctx, string(failOp)).With(zap.Uint64("seq", in.seq))
	timer := metrics.StartTimer()

	if in.sess.Authenticated && s.opts.Limiter != nil {
		if err := s.opts.Limiter.Wait(ctx); err != nil {
			s.metrics.WriteFailures.Inc()
			s.recordFailure(ctx, &Failure{Op: failOp, Kind: s.policy.Kind(), Session: in.sess, Err: err})
			return
		}
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var err error
	if in.clear {
		err = s.clearSource(ctx, in.sess)
	} else {
		err = s.write(ctx, in.sess, in.raw)
	}

	s.metrics.ObserveWrite(timer)
	if err != nil {
		s.metrics.WriteFailures.Inc()
		s.recordFailure(ctx, &Failure{Op: failOp, Kind: s.policy.Kind(), Session: in.sess, Err: err})
		return
	}

	s.metrics.Writes.Inc()
	log.Debug("collection persisted", zap.Duration("duration", timer.Duration()))
}

func (s *Store[E]) fetch(ctx context.Context, sess session.Session) (RawCollection, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if sess.Authenticated {
		if sess.UserID == "" {
			return RawCollection{}, ErrMissingUserID
		}
		return s.remote.Fetch(ctx, s.policy.Kind(), sess.UserID)
	}

	key, ok := s.policy.Kind().LocalKey()
	if !ok {
		return RawCollection{}, ErrUnknownKind
	}
	raw, found, err := s.local.Get(ctx, key)
	if err != nil {
		return RawCollection{}, err
	}
	if !found {
		return Empty(s.policy.Kind()), nil
	}
	return raw, nil
}

func (s *Store[E]) write(ctx context.Context, sess session.Session, raw RawCollection) error {
	if sess.Authenticated {
		if sess.UserID == "" {
			return ErrMissingUserID
		}
		return s.remote.Replace(ctx, s.policy.Kind(), sess.UserID, raw)
	}

	key, ok := s.policy.Kind().LocalKey()
	if !ok {
		return ErrUnknownKind
	}
	return s.local.Set(ctx, key, raw)
}

func (s *Store[E]) clearSource(ctx context.Context, sess session.Session) error {
	if sess.Authenticated {
		if sess.UserID == "" {
			return ErrMissingUserID
		}
		return s.remote.Clear(ctx, s.policy.Kind(), sess.UserID)
	}

	key, ok := s.policy.Kind().LocalKey()
	if !ok {
		return ErrUnknownKind
	}
	return s.local.Remove(ctx, key)
}

// State returns a copy of the current collection and status.
func (s *Store[E]) State() State[E] {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]E, len(s.entries))
	copy(entries, s.entries)
	return State[E]{
		Entries: entries,
		Status:  s.status,
		Session: s.sess,
		Err:     s.lastErr,
	}
}

// HasKey reports whether the collection holds the given line.
func (s *Store[E]) HasKey(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return indexByKey(s.policy, s.entries, key) >= 0
}

func (s *Store[E]) Stats() metrics.CollectionSnapshot {
	return s.metrics.Snapshot()
}

// Flush blocks until every scheduled write has completed.
func (s *Store[E]) Flush() {
	s.w.flush()
}

// Close flushes pending writes and stops the writer. Loads still in flight
// are discarded when they complete.
func (s *Store[E]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.w.close()

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *Store[E]) recordFailure(ctx context.Context, f *Failure) {
	s.mu.Lock()
	s.lastErr = f
	s.mu.Unlock()
	s.report(ctx, f)
}

func (s *Store[E]) report(ctx context.Context, f *Failure) {
	s.log(ctx, string(f.Op)).Warn("collection operation failed",
		zap.Bool("authenticated", f.Session.Authenticated),
		zap.Error(f.Err),
	)
	if s.opts.OnError != nil {
		s.opts.OnError(f)
	}
}

func (s *Store[E]) log(ctx context.Context, method string) *zap.Logger {
	return logger.FromCtx(ctx).With(
		zap.String("layer", "collection"),
		zap.String("kind", string(s.policy.Kind())),
		zap.String("method", method),
	)
}

func (s *Store[E]) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.Timeout)
}
