// Package sdk is the HTTP client for the portal's auth provider API. It keeps
// the session in client storage and reports changes to subscribers, which is
// what authcontext.Context consumes.
package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/assoc-portal/auth"
	"github.com/jrsteele09/assoc-portal/authcontext"
	"github.com/jrsteele09/assoc-portal/oauth2"
	"github.com/jrsteele09/assoc-portal/sessions"
	"github.com/jrsteele09/assoc-portal/users"
	"github.com/rs/zerolog/log"
	xoauth2 "golang.org/x/oauth2"
)

const (
	sessionKey = "session"
	clientID   = "portalctl"
)

// ErrNoSession is returned by calls that need a signed-in session.
var ErrNoSession = errors.New("not signed in")

// Client talks to the provider API under baseURL.
type Client struct {
	baseURL   string
	http      *http.Client
	storage   authcontext.Storage
	keyPrefix string
	oauth     xoauth2.Config

	mu        sync.Mutex
	listeners map[int]func(authcontext.AuthEvent)
	nextID    int
}

var (
	_ authcontext.Provider   = (*Client)(nil)
	_ authcontext.AdminStore = (*Client)(nil)
)

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithKeyPrefix changes the storage prefix the session is kept under.
func WithKeyPrefix(prefix string) Option {
	return func(c *Client) {
		c.keyPrefix = prefix
	}
}

func New(baseURL string, storage authcontext.Storage, options ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		http:      &http.Client{Timeout: 15 * time.Second},
		storage:   storage,
		keyPrefix: authcontext.DefaultProviderKeyPrefix,
		listeners: make(map[int]func(authcontext.AuthEvent)),
	}
	for _, opt := range options {
		opt(c)
	}
	c.oauth = xoauth2.Config{
		ClientID: clientID,
		Endpoint: xoauth2.Endpoint{
			TokenURL:  c.baseURL + "/auth/v1/token",
			AuthStyle: xoauth2.AuthStyleInParams,
		},
	}
	return c
}

// SendMagicLink asks the provider to email a sign-in link.
func (c *Client) SendMagicLink(ctx context.Context, email, redirectTo string) error {
	body := oauth2.OTPRequest{Email: email, RedirectTo: redirectTo}
	if err := c.do(ctx, http.MethodPost, "/auth/v1/otp", "", body, nil); err != nil {
		return fmt.Errorf("[Client.SendMagicLink] %w", err)
	}
	return nil
}

// VerifyOTP redeems a token hash and signs the client in.
func (c *Client) VerifyOTP(ctx context.Context, tokenHash, tokenType string) (*sessions.Session, error) {
	var resp oauth2.TokenResponse
	body := oauth2.VerifyRequest{TokenHash: tokenHash, Type: tokenType}
	if err := c.do(ctx, http.MethodPost, "/auth/v1/verify", "", body, &resp); err != nil {
		return nil, fmt.Errorf("[Client.VerifyOTP] %w", err)
	}

	s := resp.Session()
	if err := c.saveSession(s); err != nil {
		return nil, fmt.Errorf("[Client.VerifyOTP] %w", err)
	}
	// A new sign-in starts its own local session window.
	authcontext.NewStorageWindow(c.storage).Clear()
	c.emit(authcontext.AuthEvent{Event: authcontext.EventSignedIn, Session: s})
	return s, nil
}

// ConfirmLink redeems the magic link exactly as emailed.
func (c *Client) ConfirmLink(ctx context.Context, link string) (*sessions.Session, error) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return nil, fmt.Errorf("[Client.ConfirmLink] %w", err)
	}
	q := u.Query()
	if q.Get("token_hash") == "" || q.Get("type") == "" {
		return nil, auth.ErrVerifyParams
	}
	return c.VerifyOTP(ctx, q.Get("token_hash"), q.Get("type"))
}

// GetSession returns the stored session, or nil when signed out. It does not
// contact the provider.
func (c *Client) GetSession(ctx context.Context) (*sessions.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.loadSession()
}

// RefreshSession runs the OAuth2 refresh grant with the stored refresh token.
func (c *Client) RefreshSession(ctx context.Context) (*sessions.Session, error) {
	current, err := c.loadSession()
	if err != nil {
		return nil, fmt.Errorf("[Client.RefreshSession] %w", err)
	}
	if current == nil || current.RefreshToken == "" {
		return nil, ErrNoSession
	}

	ctx = context.WithValue(ctx, xoauth2.HTTPClient, c.http)
	tok, err := c.oauth.TokenSource(ctx, &xoauth2.Token{RefreshToken: current.RefreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("[Client.RefreshSession] %w", retrieveError(err))
	}

	s := sessionFromToken(tok)
	if err := c.saveSession(s); err != nil {
		return nil, fmt.Errorf("[Client.RefreshSession] %w", err)
	}
	c.emit(authcontext.AuthEvent{Event: authcontext.EventTokenRefreshed, Session: s})
	return s, nil
}

// SignOut revokes the session at the provider and forgets it locally. The
// local copy is dropped even when the provider call fails.
func (c *Client) SignOut(ctx context.Context) error {
	current, err := c.loadSession()
	if err != nil {
		log.Warn().Err(err).Msg("unreadable stored session")
	}

	var remoteErr error
	if current != nil {
		body := oauth2.LogoutRequest{RefreshToken: current.RefreshToken}
		remoteErr = c.do(ctx, http.MethodPost, "/auth/v1/logout", current.AccessToken, body, nil)
	}

	if err := c.storage.Delete(c.keyPrefix + sessionKey); err != nil {
		log.Warn().Err(err).Msg("failed to delete stored session")
	}
	c.emit(authcontext.AuthEvent{Event: authcontext.EventSignedOut})

	if remoteErr != nil {
		return fmt.Errorf("[Client.SignOut] %w", remoteErr)
	}
	return nil
}

// User returns the signed-in user as the provider sees it.
func (c *Client) User(ctx context.Context) (*users.User, error) {
	s, err := c.requireSession()
	if err != nil {
		return nil, err
	}
	var u users.User
	if err := c.do(ctx, http.MethodGet, "/auth/v1/user", s.AccessToken, nil, &u); err != nil {
		return nil, fmt.Errorf("[Client.User] %w", err)
	}
	return &u, nil
}

// Profile reads a profile from the profile store.
func (c *Client) Profile(ctx context.Context, userID string) (*users.Profile, error) {
	s, err := c.requireSession()
	if err != nil {
		return nil, err
	}
	var p users.Profile
	if err := c.do(ctx, http.MethodGet, "/api/profiles/"+url.PathEscape(userID), s.AccessToken, nil, &p); err != nil {
		return nil, fmt.Errorf("[Client.Profile] %w", err)
	}
	return &p, nil
}

// IsAdmin reads the authoritative admin flag of userID.
func (c *Client) IsAdmin(ctx context.Context, userID string) (bool, error) {
	p, err := c.Profile(ctx, userID)
	if err != nil {
		return false, err
	}
	return p.IsAdmin, nil
}

// Subscribe registers fn for auth events and immediately reports the stored
// session as INITIAL_SESSION.
func (c *Client) Subscribe(fn func(authcontext.AuthEvent)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()

	s, err := c.loadSession()
	if err != nil {
		log.Warn().Err(err).Msg("unreadable stored session")
	}
	fn(authcontext.AuthEvent{Event: authcontext.EventInitialSession, Session: s})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *Client) emit(ev authcontext.AuthEvent) {
	c.mu.Lock()
	listeners := make([]func(authcontext.AuthEvent), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(ev)
	}
}

func (c *Client) requireSession() (*sessions.Session, error) {
	s, err := c.loadSession()
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrNoSession
	}
	return s, nil
}

func (c *Client) loadSession() (*sessions.Session, error) {
	raw, ok, err := c.storage.Get(c.keyPrefix + sessionKey)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var s sessions.Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

func (c *Client) saveSession(s *sessions.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := c.storage.Set(c.keyPrefix+sessionKey, string(raw)); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// do sends a JSON request and decodes a JSON response into out. Provider
// errors come back as the auth package sentinels.
func (c *Client) do(ctx context.Context, method, path, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr oauth2.APIError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
			return fmt.Errorf("provider returned %s", resp.Status)
		}
		return auth.ErrorFromCode(apiErr.ErrorCode, apiErr.Msg)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func retrieveError(err error) error {
	var rerr *xoauth2.RetrieveError
	if !errors.As(err, &rerr) {
		return err
	}
	var body oauth2.ErrorResponse
	if jsonErr := json.Unmarshal(rerr.Body, &body); jsonErr == nil && body.ErrorCode != "" {
		return auth.ErrorFromCode(body.ErrorCode, body.ErrorDescription)
	}
	return auth.ErrorFromCode(rerr.ErrorCode, rerr.ErrorDescription)
}

func sessionFromToken(tok *xoauth2.Token) *sessions.Session {
	s := &sessions.Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    strings.ToLower(tok.TokenType),
		UserID:       extraString(tok, "user_id"),
		Email:        extraString(tok, "email"),
	}
	if !tok.Expiry.IsZero() {
		s.ExpiresAt = tok.Expiry.Unix()
	}
	if exp := extraInt(tok, "expires_at"); exp > 0 {
		s.ExpiresAt = exp
	}
	if in := extraInt(tok, "expires_in"); in > 0 && s.ExpiresAt > 0 {
		s.IssuedAt = s.ExpiresAt - in
	}
	return s
}

func extraString(tok *xoauth2.Token, key string) string {
	v, _ := tok.Extra(key).(string)
	return v
}

func extraInt(tok *xoauth2.Token, key string) int64 {
	switch v := tok.Extra(key).(type) {
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	}
	return 0
}
