package authcontext_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jrsteele09/assoc-portal/authcontext"
	"github.com/jrsteele09/assoc-portal/sessions"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeProvider struct {
	mu        sync.Mutex
	session   *sessions.Session
	getErr    error
	getGate   chan struct{}
	refreshed *sessions.Session
	// emitRefresh makes RefreshSession announce TOKEN_REFRESHED, as the sdk does.
	emitRefresh bool
	signOuts    int
	listeners map[int]func(authcontext.AuthEvent)
	nextID    int
}

func newFakeProvider(s *sessions.Session) *fakeProvider {
	return &fakeProvider{session: s, listeners: make(map[int]func(authcontext.AuthEvent))}
}

func (p *fakeProvider) GetSession(ctx context.Context) (*sessions.Session, error) {
	p.mu.Lock()
	gate := p.getGate
	p.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session, p.getErr
}

func (p *fakeProvider) RefreshSession(context.Context) (*sessions.Session, error) {
	p.mu.Lock()
	if p.refreshed == nil {
		p.mu.Unlock()
		return nil, errors.New("refresh token not found")
	}
	p.session = p.refreshed
	s, emit := p.refreshed, p.emitRefresh
	p.mu.Unlock()

	if emit {
		p.emit(authcontext.AuthEvent{Event: authcontext.EventTokenRefreshed, Session: s})
	}
	return s, nil
}

func (p *fakeProvider) SignOut(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signOuts++
	p.session = nil
	return nil
}

func (p *fakeProvider) Subscribe(fn func(authcontext.AuthEvent)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

func (p *fakeProvider) emit(ev authcontext.AuthEvent) {
	p.mu.Lock()
	listeners := make([]func(authcontext.AuthEvent), 0, len(p.listeners))
	for _, fn := range p.listeners {
		listeners = append(listeners, fn)
	}
	p.mu.Unlock()
	for _, fn := range listeners {
		fn(ev)
	}
}

func (p *fakeProvider) SignOuts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.signOuts
}

func (p *fakeProvider) Subscribers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.listeners)
}

// adminAnswer is one scripted response of fakeAdmins. A nil gate answers at once.
type adminAnswer struct {
	gate    chan struct{}
	isAdmin bool
	err     error
}

type fakeAdmins struct {
	mu      sync.Mutex
	answers []adminAnswer
	calls   int
}

func (a *fakeAdmins) IsAdmin(ctx context.Context, _ string) (bool, error) {
	a.mu.Lock()
	var ans adminAnswer
	if a.calls < len(a.answers) {
		ans = a.answers[a.calls]
	} else if len(a.answers) > 0 {
		ans = a.answers[len(a.answers)-1]
		ans.gate = nil
	}
	a.calls++
	a.mu.Unlock()

	if ans.gate != nil {
		select {
		case <-ans.gate:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return ans.isAdmin, ans.err
}

func (a *fakeAdmins) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

type recordingNav struct {
	mu        sync.Mutex
	navigated []string
	reloaded  []string
}

func (n *recordingNav) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.navigated = append(n.navigated, path)
}

func (n *recordingNav) Reload(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reloaded = append(n.reloaded, path)
}

func (n *recordingNav) Navigated() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.navigated...)
}

func (n *recordingNav) Reloaded() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.reloaded...)
}
