package storefront

import (
	"context"
	"sync"

	"staylook-store/internal/cart"
	"staylook-store/internal/collection"
	"staylook-store/internal/logger"
	"staylook-store/internal/session"
	"staylook-store/internal/wishlist"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Deps are the collaborators a Scope is built from.
type Deps struct {
	Local    collection.LocalStore
	Remote   collection.RemoteStore
	Provider *session.Provider
	Tokens   *session.Tokens
	Options  collection.Options
}

// Scope is one browsing session: a cart and a wishlist bound to the
// identity held by the provider. Presentation code receives a Scope instead
// of reaching for global state.
type Scope struct {
	ID       string
	Cart     *cart.Store
	Wishlist *wishlist.Store

	ctx         context.Context
	provider    *session.Provider
	tokens      *session.Tokens
	unsubscribe func()
	closeOnce   sync.Once
}

func NewScope(ctx context.Context, deps Deps) *Scope {
	id := uuid.NewString()
	s := &Scope{
		ID:       id,
		Cart:     cart.NewStore(deps.Local, deps.Remote, deps.Options),
		Wishlist: wishlist.NewStore(deps.Local, deps.Remote, deps.Options),
		ctx:      logger.WithScopeID(ctx, id),
		provider: deps.Provider,
		tokens:   deps.Tokens,
	}
	return s
}

// Open loads both collections for the provider's current session and starts
// following session changes.
func (s *Scope) Open() {
	current := s.provider.Current()
	s.each(func(st sessionBound) { st.Open(s.ctx, current) })
	s.unsubscribe = s.provider.Subscribe(s.onSessionChange)

	logger.FromCtx(s.ctx).Info("session scope opened",
		zap.Bool("authenticated", current.Authenticated),
	)
}

func (s *Scope) onSessionChange(prev, next session.Session) {
	logger.FromCtx(s.ctx).Info("session changed",
		zap.Bool("was_authenticated", prev.Authenticated),
		zap.Bool("authenticated", next.Authenticated),
		zap.Bool("login", session.IsLogin(prev, next)),
	)
	s.each(func(st sessionBound) { st.SetSession(s.ctx, next) })
}

// SignIn resolves token to a session and makes it current. A token that
// does not verify leaves the session untouched.
func (s *Scope) SignIn(token string) error {
	sess, err := s.tokens.Resolve(token)
	if err != nil {
		logger.FromCtx(s.ctx).Warn("sign in rejected", zap.Error(err))
		return err
	}
	s.provider.Set(sess)
	return nil
}

func (s *Scope) SignOut() {
	s.provider.Set(session.Anonymous())
}

// Close stops following the provider and flushes both stores.
func (s *Scope) Close() {
	s.closeOnce.Do(func() {
		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		s.each(func(st sessionBound) { st.Close() })
	})
}

type sessionBound interface {
	Open(ctx context.Context, sess session.Session)
	SetSession(ctx context.Context, sess session.Session)
	Close()
}

// each runs fn for the cart and the wishlist concurrently.
func (s *Scope) each(fn func(sessionBound)) {
	var wg sync.WaitGroup
	for _, st := range []sessionBound{s.Cart, s.Wishlist} {
		wg.Add(1)
		go func(st sessionBound) {
			defer wg.Done()
			fn(st)
		}(st)
	}
	wg.Wait()
}
