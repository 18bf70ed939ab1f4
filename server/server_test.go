package server_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/assoc-portal/auth"
	"github.com/jrsteele09/assoc-portal/internal/config"
	"github.com/jrsteele09/assoc-portal/mail"
	"github.com/jrsteele09/assoc-portal/metrics"
	"github.com/jrsteele09/assoc-portal/server"
	"github.com/jrsteele09/assoc-portal/sessions"
	"github.com/jrsteele09/assoc-portal/token"
	"github.com/jrsteele09/assoc-portal/token/keys"
	onetimerepofake "github.com/jrsteele09/assoc-portal/token/onetime/repofake"
	refreshrepofake "github.com/jrsteele09/assoc-portal/token/refresh/repofake"
	fakeuserrepo "github.com/jrsteele09/assoc-portal/users/repofake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const (
	testBaseURL = "https://portal.test"
	testSecret  = "a-test-secret-of-reasonable-length"
	memberEmail = "student@udel.edu"
	otherEmail  = "visitor@gmail.com"
)

type captureMailer struct {
	mu   sync.Mutex
	sent []mail.MagicLink
}

func (m *captureMailer) SendMagicLink(_ context.Context, msg mail.MagicLink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *captureMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *captureMailer) lastLink(t *testing.T) *url.URL {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	u, err := url.Parse(m.sent[len(m.sent)-1].Link)
	require.NoError(t, err)
	return u
}

// stubProvider wraps the real service and lets a test replace single calls.
type stubProvider struct {
	auth.Provider

	mu          sync.Mutex
	sendLink    func(context.Context, auth.MagicLinkParameters) error
	verify      func(context.Context, auth.VerifyParameters) (*sessions.Session, error)
	getSession  func(context.Context, string, string) (*sessions.Session, error)
	verifyCalls int
	signOuts    [][2]string
}

func (p *stubProvider) SendMagicLink(ctx context.Context, params auth.MagicLinkParameters) error {
	if p.sendLink != nil {
		return p.sendLink(ctx, params)
	}
	return p.Provider.SendMagicLink(ctx, params)
}

func (p *stubProvider) VerifyOTP(ctx context.Context, params auth.VerifyParameters) (*sessions.Session, error) {
	p.mu.Lock()
	p.verifyCalls++
	verify := p.verify
	p.mu.Unlock()
	if verify != nil {
		return verify(ctx, params)
	}
	return p.Provider.VerifyOTP(ctx, params)
}

func (p *stubProvider) GetSession(ctx context.Context, accessToken, refreshToken string) (*sessions.Session, error) {
	if p.getSession != nil {
		return p.getSession(ctx, accessToken, refreshToken)
	}
	return p.Provider.GetSession(ctx, accessToken, refreshToken)
}

func (p *stubProvider) SignOut(ctx context.Context, accessToken, refreshToken string) error {
	p.mu.Lock()
	p.signOuts = append(p.signOuts, [2]string{accessToken, refreshToken})
	p.mu.Unlock()
	return p.Provider.SignOut(ctx, accessToken, refreshToken)
}

func (p *stubProvider) verifyCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.verifyCalls
}

func (p *stubProvider) signOutCalls() [][2]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][2]string(nil), p.signOuts...)
}

type fixture struct {
	mu       sync.Mutex
	now      time.Time
	users    *fakeuserrepo.FakeUserRepo
	refresh  *refreshrepofake.FakeRefreshTokenRepo
	mailer   *captureMailer
	service  *auth.Service
	provider *stubProvider
	registry *prometheus.Registry
	server   *server.Server
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// newFixture builds a server over the in-process provider. Settings come
// from the environment like they do in production.
func newFixture(t *testing.T, env ...string) *fixture {
	t.Helper()

	t.Setenv("ENV", "TEST")
	t.Setenv("BASE_URL", testBaseURL)
	t.Setenv("ADMIN_EMAILS", "")
	t.Setenv("PROTECTED_PREFIXES", "")
	t.Setenv("DEFAULT_LANDING_PATH", "")
	t.Setenv("ALLOWED_EMAIL_DOMAIN", "")
	for i := 0; i+1 < len(env); i += 2 {
		t.Setenv(env[i], env[i+1])
	}

	f := &fixture{
		now:      time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		users:    fakeuserrepo.NewFakeUserRepo(),
		refresh:  refreshrepofake.NewFakeRefreshTokenRepo(),
		mailer:   &captureMailer{},
		registry: prometheus.NewRegistry(),
	}

	signer, err := keys.DeriveAccessTokenSigner(testSecret)
	require.NoError(t, err)
	tokens := token.New(f.refresh, signer, testBaseURL,
		token.WithTokenExpiry(time.Hour, 7*24*time.Hour),
		token.WithNowFunc(f.clock),
	)
	f.service, err = auth.NewService(auth.Repos{
		Users:   f.users,
		OneTime: onetimerepofake.NewFakeOneTimeRepo(),
	}, tokens, testBaseURL, auth.WithNowTime(f.clock), auth.WithMailer(f.mailer))
	require.NoError(t, err)

	f.provider = &stubProvider{Provider: f.service}
	f.server, err = server.New(config.New(), f.provider, f.users,
		server.WithNowTime(f.clock),
		server.WithMetrics(metrics.New(metrics.WithRegistry(f.registry))),
	)
	require.NoError(t, err)
	return f
}

func (f *fixture) do(req *http.Request) *http.Response {
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec.Result()
}

func (f *fixture) get(target string, cookies ...*http.Cookie) *http.Response {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return f.do(req)
}

func (f *fixture) postForm(target string, form url.Values, cookies ...*http.Cookie) *http.Response {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return f.do(req)
}

// confirmURL requests a magic link for email and returns the local confirm
// URL from the mail.
func (f *fixture) confirmURL(t *testing.T, email, redirectTo string) string {
	t.Helper()
	require.NoError(t, f.service.SendMagicLink(context.Background(), auth.MagicLinkParameters{Email: email, RedirectTo: redirectTo}))
	link := f.mailer.lastLink(t)
	return link.RequestURI()
}

// signIn completes the magic link round trip and returns the session cookies.
func (f *fixture) signIn(t *testing.T, email string) []*http.Cookie {
	t.Helper()
	resp := f.get(f.confirmURL(t, email, ""))
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/login", resp.Header.Get("Location"))

	access := cookie(resp, server.AccessTokenCookie)
	refresh := cookie(resp, server.RefreshTokenCookie)
	require.NotNil(t, access)
	require.NotNil(t, refresh)
	return []*http.Cookie{
		{Name: access.Name, Value: access.Value},
		{Name: refresh.Name, Value: refresh.Value},
	}
}

func cookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func requireCleared(t *testing.T, resp *http.Response) {
	t.Helper()
	for _, name := range []string{server.AccessTokenCookie, server.RefreshTokenCookie} {
		c := cookie(resp, name)
		require.NotNil(t, c, name)
		require.Empty(t, c.Value)
		require.Less(t, c.MaxAge, 0)
	}
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestNew_RequiresProvider(t *testing.T) {
	_, err := server.New(config.New(), nil, nil)
	require.Error(t, err)
}

func TestNew_BootstrapsAdmins(t *testing.T) {
	f := newFixture(t, "ADMIN_EMAILS", "chair@udel.edu, intruder@gmail.com")

	chair, err := f.users.GetByEmail(context.Background(), "chair@udel.edu")
	require.NoError(t, err)
	require.True(t, chair.IsAdmin)
	require.NotEmpty(t, chair.ID)

	_, err = f.users.GetByEmail(context.Background(), "intruder@gmail.com")
	require.Error(t, err)
}

func TestNew_PromotesExistingUser(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, memberEmail)

	t.Setenv("ADMIN_EMAILS", memberEmail)
	_, err := server.New(config.New(), f.service, f.users, server.WithNowTime(f.clock), server.WithMetrics(metrics.New(metrics.WithRegistry(prometheus.NewRegistry()))))
	require.NoError(t, err)

	u, err := f.users.GetByEmail(context.Background(), memberEmail)
	require.NoError(t, err)
	require.True(t, u.IsAdmin)
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)

	resp := f.get("/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"status":"ok"}`, body(t, resp))

	f.get("/opportunities")
	resp = f.get("/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	text := body(t, resp)
	require.Contains(t, text, `portal_gateway_decisions_total{decision="no_session"} 1`)
	require.Contains(t, text, "portal_http_request_duration_seconds")
}

func TestStaticAssets(t *testing.T) {
	f := newFixture(t)

	resp := f.get("/static/css/portal.css")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("Cache-Control"))

	resp = f.get("/favicon.ico")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIndexIsPublic(t *testing.T) {
	f := newFixture(t)

	resp := f.get("/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, body(t, resp), "Student Association Portal")
	require.Equal(t, "SAMEORIGIN", resp.Header.Get("X-Frame-Options"))
}
