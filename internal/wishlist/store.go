package wishlist

import (
	"context"
	"time"

	"staylook-store/internal/collection"
	"staylook-store/internal/metrics"
	"staylook-store/internal/session"
)

type State struct {
	Entries   []Entry
	ItemCount int
	Status    collection.Status
	Loading   bool
	Err       error
}

// Store is the session-scoped wishlist.
type Store struct {
	core *collection.Store[Entry]
}

func NewStore(local collection.LocalStore, remote collection.RemoteStore, opts collection.Options) *Store {
	return &Store{core: collection.NewStore[Entry](Policy{}, local, remote, opts)}
}

func (s *Store) Open(ctx context.Context, sess session.Session) {
	s.core.Open(ctx, sess)
}

func (s *Store) SetSession(ctx context.Context, sess session.Session) {
	s.core.SetSession(ctx, sess)
}

// AddEntry saves a product. Saving one that is already present does nothing.
func (s *Store) AddEntry(candidate Entry) {
	candidate.ID = ""
	candidate.InsertedAt = time.Time{}
	s.core.Add(candidate)
}

func (s *Store) RemoveEntry(productID string) {
	s.core.RemoveByKey(productID)
}

func (s *Store) IsPresent(productID string) bool {
	return s.core.HasKey(productID)
}

func (s *Store) Clear() {
	s.core.Clear()
}

func (s *Store) State() State {
	st := s.core.State()
	return State{
		Entries:   st.Entries,
		ItemCount: len(st.Entries),
		Status:    st.Status,
		Loading:   st.Loading(),
		Err:       st.Err,
	}
}

func (s *Store) Stats() metrics.CollectionSnapshot {
	return s.core.Stats()
}

func (s *Store) Flush() {
	s.core.Flush()
}

func (s *Store) Close() {
	s.core.Close()
}
