package session

import "sync"

// Session is the identity a collection is scoped to.
type Session struct {
	Authenticated bool
	UserID        string
}

func Anonymous() Session {
	return Session{}
}

func User(userID string) Session {
	return Session{Authenticated: true, UserID: userID}
}

// IsLogin reports whether moving from prev to next is an anonymous -> authenticated transition.
func IsLogin(prev, next Session) bool {
	return !prev.Authenticated && next.Authenticated
}

// Provider holds the current session and notifies subscribers on every change.
// Setting an identical session is not a change.
type Provider struct {
	mu      sync.Mutex
	current Session
	nextID  int
	subs    map[int]func(prev, next Session)
}

func NewProvider(initial Session) *Provider {
	return &Provider{
		current: initial,
		subs:    make(map[int]func(prev, next Session)),
	}
}

func (p *Provider) Current() Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Subscribe registers fn and returns a func that removes it.
func (p *Provider) Subscribe(fn func(prev, next Session)) (cancel func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

// Set replaces the current session. Subscribers run synchronously, in no
// particular order, after the lock is released.
func (p *Provider) Set(next Session) {
	p.mu.Lock()
	prev := p.current
	if prev == next {
		p.mu.Unlock()
		return
	}
	p.current = next
	fns := make([]func(prev, next Session), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(prev, next)
	}
}
