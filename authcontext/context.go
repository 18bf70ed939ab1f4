package authcontext

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/assoc-portal/policy"
	"github.com/jrsteele09/assoc-portal/sessions"
	"github.com/rs/zerolog/log"
)

const (
	// ExpiredMessage is shown on the login page after the liveness check ends a session.
	ExpiredMessage = "Your session has expired. Please sign in again."

	// DefaultProviderKeyPrefix prefixes the storage keys the provider client
	// keeps its credentials under.
	DefaultProviderKeyPrefix = "portal-auth-"
)

// State is what the rest of the client reads.
type State struct {
	Session   *sessions.Session
	IsAdmin   bool
	IsLoading bool
}

type freshness int

const (
	freshCached freshness = iota
	freshAuthoritative
)

// adminCell orders writes to IsAdmin. A write carries the sequence number
// captured when its fetch began; it loses to any later sequence and, within
// one sequence, to a fresher value.
type adminCell struct {
	seq   uint64
	fresh freshness
}

func (c adminCell) accepts(seq uint64, fresh freshness) bool {
	return seq > c.seq || (seq == c.seq && fresh >= c.fresh)
}

// Context mirrors the provider's session for one client, applies the session
// validator and domain policy to it, and tracks whether the user is an admin.
type Context struct {
	provider          Provider
	admins            AdminStore
	storage           Storage
	nav               Navigator
	policy            policy.DomainPolicy
	validator         *sessions.Validator
	window            *StorageWindow
	providerKeyPrefix string
	initTimeout       time.Duration
	adminTimeout      time.Duration
	livenessInterval  time.Duration

	mu           sync.Mutex
	state        State
	mounted      bool
	initInFlight bool
	admin        adminCell
	seq          uint64
	listeners    []func(State)
	applied      *sessions.Session
	ctx          context.Context
	cancel       context.CancelFunc
	unsubscribe  func()
	wg           sync.WaitGroup
}

type Option func(*Context)

func WithPolicy(p policy.DomainPolicy) Option {
	return func(c *Context) {
		c.policy = p
	}
}

func WithValidator(v *sessions.Validator) Option {
	return func(c *Context) {
		c.validator = v
	}
}

func WithInitTimeout(d time.Duration) Option {
	return func(c *Context) {
		c.initTimeout = d
	}
}

func WithAdminFetchTimeout(d time.Duration) Option {
	return func(c *Context) {
		c.adminTimeout = d
	}
}

func WithLivenessInterval(d time.Duration) Option {
	return func(c *Context) {
		c.livenessInterval = d
	}
}

func WithProviderKeyPrefix(prefix string) Option {
	return func(c *Context) {
		c.providerKeyPrefix = prefix
	}
}

func New(provider Provider, admins AdminStore, storage Storage, nav Navigator, options ...Option) *Context {
	c := &Context{
		provider:          provider,
		admins:            admins,
		storage:           storage,
		nav:               nav,
		policy:            policy.NewDomainPolicy(""),
		validator:         sessions.NewValidator(),
		window:            NewStorageWindow(storage),
		providerKeyPrefix: DefaultProviderKeyPrefix,
		initTimeout:       2 * time.Second,
		adminTimeout:      10 * time.Second,
		livenessInterval:  time.Minute,
		state:             State{IsLoading: true},
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// State returns a snapshot of the current state.
func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnChange registers fn to be called with every new state.
func (c *Context) OnChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Mount starts initialisation, the event subscription and the liveness check.
// Calling Mount on a mounted Context does nothing.
func (c *Context) Mount(parent context.Context) {
	c.mu.Lock()
	if c.mounted {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(parent)
	c.mounted = true
	c.ctx = ctx
	c.cancel = cancel
	// Set before subscribing so an early INITIAL_SESSION event is left to initialise.
	c.initInFlight = true
	c.mu.Unlock()

	unsubscribe := c.provider.Subscribe(func(ev AuthEvent) { c.handleEvent(ctx, ev) })
	c.mu.Lock()
	c.unsubscribe = unsubscribe
	c.mu.Unlock()

	c.goSafe(c.initialise)
	c.goSafe(c.liveness)
}

// Unmount stops every background task. Results that arrive later are dropped.
func (c *Context) Unmount() {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return
	}
	c.mounted = false
	cancel, unsubscribe := c.cancel, c.unsubscribe
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	cancel()
	c.wg.Wait()
}

// RefreshSession asks the provider for a new session and applies it, unless
// the provider's TOKEN_REFRESHED event already did.
func (c *Context) RefreshSession(ctx context.Context) error {
	s, err := c.provider.RefreshSession(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("session refresh failed")
		return err
	}
	c.mu.Lock()
	applied := s != nil && c.applied == s
	c.mu.Unlock()
	if !applied {
		c.applySession(ctx, s)
	}
	return nil
}

// SignOut ends the session everywhere this client knows about and reloads the
// home page.
func (c *Context) SignOut(ctx context.Context) {
	if err := c.provider.SignOut(ctx); err != nil {
		log.Warn().Err(err).Msg("provider sign out failed")
	}
	deleteKeys(c.storage, c.providerKeyPrefix)
	c.clearLocal()
	c.clearState()
	c.reload("/")
}

// initialise loads the session once per mount. Mount has already set initInFlight.
func (c *Context) initialise(ctx context.Context) {
	timer := time.AfterFunc(c.initTimeout, func() {
		log.Debug().Msg("auth initialisation timed out, rendering without a session")
		c.update(func(s *State) { s.IsLoading = false })
	})
	defer func() {
		timer.Stop()
		c.mu.Lock()
		c.initInFlight = false
		c.mu.Unlock()
		c.update(func(s *State) { s.IsLoading = false })
	}()

	s, err := c.provider.GetSession(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to load session")
		s = nil
	}
	c.applySession(ctx, s)
}

func (c *Context) handleEvent(ctx context.Context, ev AuthEvent) {
	switch ev.Event {
	case EventSignedOut:
		c.clearState()
		c.clearLocal()
	case EventInitialSession:
		c.mu.Lock()
		busy := c.initInFlight
		c.mu.Unlock()
		if busy {
			return
		}
		c.applySession(ctx, ev.Session)
	case EventSignedIn:
		c.startNewWindow(ev.Session)
		c.applySession(ctx, ev.Session)
	case EventTokenRefreshed:
		c.applySession(ctx, ev.Session)
	}
}

// startNewWindow drops a window left behind by an earlier session that was
// never signed out. A sign-in issued after the recorded start opens its own.
func (c *Context) startNewWindow(s *sessions.Session) {
	if s == nil || s.IssuedAt == 0 {
		return
	}
	start, ok := c.window.Start()
	if ok && time.Unix(s.IssuedAt, 0).After(start) {
		c.window.Clear()
	}
}

// applySession validates s, applies the domain policy and publishes it.
func (c *Context) applySession(ctx context.Context, s *sessions.Session) {
	if s == nil {
		c.clearState()
		return
	}
	c.mu.Lock()
	c.applied = s
	c.mu.Unlock()

	if !c.validator.IsValid(s, c.window) {
		log.Info().Str("user_id", s.UserID).Msg("stored session is no longer valid")
		c.discard(ctx)
		return
	}

	if !c.policy.AllowsSession(s) {
		log.Warn().Str("email", s.Email).Msg("session email outside allowed domain")
		c.discard(ctx)
		return
	}

	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return
	}
	c.seq++
	seq := c.seq
	c.mu.Unlock()

	c.update(func(st *State) {
		if st.Session == nil || st.Session.UserID != s.UserID {
			st.IsAdmin = false
		}
		st.Session = s
	})

	cached, hasCached := c.cachedAdmin(s.UserID)
	if hasCached {
		c.writeAdmin(seq, freshCached, s.UserID, cached)
	}

	c.goSafe(func(ctx context.Context) { c.fetchAdmin(ctx, seq, s.UserID, cached) })
}

// fetchAdmin waits up to adminTimeout for the store. On timeout or error the
// cached value stands in; a late answer is still applied if nothing newer won.
// ctx is the mount context, so Unmount always releases it.
func (c *Context) fetchAdmin(ctx context.Context, seq uint64, userID string, fallback bool) {
	type result struct {
		isAdmin bool
		err     error
	}
	done := make(chan result, 1)
	started := c.goSafe(func(ctx context.Context) {
		isAdmin, err := c.admins.IsAdmin(ctx, userID)
		done <- result{isAdmin, err}
	})
	if !started {
		return
	}

	timer := time.NewTimer(c.adminTimeout)
	defer timer.Stop()

	select {
	case r := <-done:
		c.applyAdminResult(seq, userID, fallback, r.isAdmin, r.err)
		return
	case <-ctx.Done():
		return
	case <-timer.C:
		log.Warn().Str("user_id", userID).Msg("admin status fetch timed out, using cached value")
		c.writeAdmin(seq, freshCached, userID, fallback)
	}

	select {
	case r := <-done:
		c.applyAdminResult(seq, userID, fallback, r.isAdmin, r.err)
	case <-ctx.Done():
	}
}

func (c *Context) applyAdminResult(seq uint64, userID string, fallback, isAdmin bool, err error) {
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("admin status fetch failed")
		c.writeAdmin(seq, freshCached, userID, fallback)
		return
	}
	if c.writeAdmin(seq, freshAuthoritative, userID, isAdmin) {
		if err := c.storage.Set(adminKey(userID), boolString(isAdmin)); err != nil {
			log.Warn().Err(err).Msg("failed to cache admin status")
		}
	}
}

// writeAdmin applies an admin value if it still belongs to the published
// session and is not older than what is already shown.
func (c *Context) writeAdmin(seq uint64, fresh freshness, userID string, isAdmin bool) bool {
	c.mu.Lock()
	if !c.mounted || c.state.Session == nil || c.state.Session.UserID != userID || !c.admin.accepts(seq, fresh) {
		c.mu.Unlock()
		return false
	}
	c.admin = adminCell{seq: seq, fresh: fresh}
	c.state.IsAdmin = isAdmin
	snapshot, listeners := c.state, c.listeners
	c.mu.Unlock()

	notify(listeners, snapshot)
	return true
}

func (c *Context) cachedAdmin(userID string) (bool, bool) {
	v, ok, err := c.storage.Get(adminKey(userID))
	if err != nil || !ok {
		return false, false
	}
	return v == "true", true
}

// liveness re-validates the published session on every tick.
func (c *Context) liveness(ctx context.Context) {
	ticker := time.NewTicker(c.livenessInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		s := c.State().Session
		if s == nil {
			continue
		}
		if !c.validator.IsValid(s, c.window) {
			if c.expire(ctx, s) {
				c.navigate(LoginErrorPath(ExpiredMessage))
			}
			continue
		}
		if c.validator.ShouldRefresh(s, c.window) {
			_ = c.RefreshSession(ctx)
		}
	}
}

// discard signs out an incoming session that failed validation or the
// domain policy. Nothing of it stays published.
func (c *Context) discard(ctx context.Context) {
	c.clearState()
	c.signOutProvider(ctx)
}

// expire ends the published session s. The liveness check and a sign-out
// event can race here: whoever finds s still published clears it, the other
// finds it gone and returns false.
func (c *Context) expire(ctx context.Context, s *sessions.Session) bool {
	c.mu.Lock()
	if !c.mounted || c.state.Session != s {
		c.mu.Unlock()
		return false
	}
	c.seq++
	c.admin = adminCell{seq: c.seq, fresh: freshAuthoritative}
	c.state.Session = nil
	c.state.IsAdmin = false
	snapshot, listeners := c.state, c.listeners
	c.mu.Unlock()

	notify(listeners, snapshot)
	c.signOutProvider(ctx)
	return true
}

func (c *Context) signOutProvider(ctx context.Context) {
	if err := c.provider.SignOut(ctx); err != nil {
		log.Warn().Err(err).Msg("provider sign out failed")
	}
	c.clearLocal()
}

// clearState unpublishes the session and invalidates admin fetches in flight.
func (c *Context) clearState() {
	c.mu.Lock()
	c.seq++
	c.admin = adminCell{seq: c.seq, fresh: freshAuthoritative}
	if !c.mounted {
		c.mu.Unlock()
		return
	}
	c.state.Session = nil
	c.state.IsAdmin = false
	snapshot, listeners := c.state, c.listeners
	c.mu.Unlock()

	notify(listeners, snapshot)
}

func (c *Context) clearLocal() {
	c.window.Clear()
	deleteKeys(c.storage, AdminStatusPrefix)
}

// update applies fn to the state and notifies listeners. It is a no-op once unmounted.
func (c *Context) update(fn func(*State)) {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return
	}
	fn(&c.state)
	snapshot, listeners := c.state, c.listeners
	c.mu.Unlock()

	notify(listeners, snapshot)
}

func (c *Context) navigate(path string) {
	c.mu.Lock()
	mounted := c.mounted
	c.mu.Unlock()
	if mounted && c.nav != nil {
		c.nav.Navigate(path)
	}
}

func (c *Context) reload(path string) {
	c.mu.Lock()
	mounted := c.mounted
	c.mu.Unlock()
	if mounted && c.nav != nil {
		c.nav.Reload(path)
	}
}

// goSafe runs fn on a tracked goroutine with the mount context. It reports
// false, and runs nothing, once the Context is unmounted.
func (c *Context) goSafe(fn func(ctx context.Context)) bool {
	c.mu.Lock()
	if !c.mounted {
		c.mu.Unlock()
		return false
	}
	ctx := c.ctx
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		fn(ctx)
	}()
	return true
}

func notify(listeners []func(State), s State) {
	for _, fn := range listeners {
		fn(s)
	}
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// LoginErrorPath is the login page showing msg.
func LoginErrorPath(msg string) string {
	return "/login?error=" + strings.ReplaceAll(url.QueryEscape(msg), "+", "%20")
}
