package cart

import (
	"context"

	"staylook-store/internal/collection"
	"staylook-store/internal/metrics"
	"staylook-store/internal/session"

	"github.com/shopspring/decimal"
)

type State struct {
	Entries   []Entry
	ItemCount int
	Subtotal  decimal.Decimal
	Status    collection.Status
	Loading   bool
	Err       error
}

// Store is the session-scoped cart.
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

// AddEntry adds quantity to the line (ProductID, VariantKey), creating it
// when absent. Candidates with a quantity below 1 are ignored.
func (s *Store) AddEntry(candidate Entry) {
	candidate.ID = ""
	s.core.Add(candidate)
}

// UpdateQuantity sets the quantity of an entry; quantity <= 0 removes it.
func (s *Store) UpdateQuantity(entryID string, quantity int) {
	if quantity <= 0 {
		s.core.RemoveByID(entryID)
		return
	}
	s.core.Update(entryID, func(e Entry) (Entry, bool) {
		e.Quantity = quantity
		return e, true
	})
}

func (s *Store) RemoveEntry(entryID string) {
	s.core.RemoveByID(entryID)
}

func (s *Store) Clear() {
	s.core.Clear()
}

func (s *Store) State() State {
	st := s.core.State()
	return State{
		Entries:   st.Entries,
		ItemCount: ItemCount(st.Entries),
		Subtotal:  Subtotal(st.Entries),
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
