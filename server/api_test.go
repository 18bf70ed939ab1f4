package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/jrsteele09/assoc-portal/auth"
	"github.com/jrsteele09/assoc-portal/authcontext"
	"github.com/jrsteele09/assoc-portal/oauth2"
	"github.com/jrsteele09/assoc-portal/sdk"
	"github.com/jrsteele09/assoc-portal/users"
	"github.com/stretchr/testify/require"
)

func (f *fixture) postJSON(target, bearer string, v any) *http.Response {
	b, _ := json.Marshal(v)
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(string(b)))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return f.do(req)
}

func (f *fixture) getJSON(target, bearer string) *http.Response {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return f.do(req)
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestAPI_VerifyIssuesTokens(t *testing.T) {
	f := newFixture(t)

	resp := f.postJSON("/auth/v1/otp", "", oauth2.OTPRequest{Email: memberEmail})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	q := f.mailer.lastLink(t).Query()
	resp = f.postJSON("/auth/v1/verify", "", oauth2.VerifyRequest{TokenHash: q.Get("token_hash"), Type: q.Get("type")})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	tok := decode[oauth2.TokenResponse](t, resp)
	require.Equal(t, "bearer", strings.ToLower(tok.TokenType))
	require.Equal(t, memberEmail, tok.Email)
	require.EqualValues(t, 3600, tok.ExpiresIn)
	require.NotEmpty(t, tok.RefreshToken)

	resp = f.getJSON("/auth/v1/user", tok.AccessToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	u := decode[users.User](t, resp)
	require.Equal(t, tok.UserID, u.ID)

	// Redeemed once.
	resp = f.postJSON("/auth/v1/verify", "", oauth2.VerifyRequest{TokenHash: q.Get("token_hash"), Type: q.Get("type")})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	apiErr := decode[oauth2.APIError](t, resp)
	require.Equal(t, auth.CodeOTPExpired, apiErr.ErrorCode)
	require.Equal(t, auth.ErrOTPInvalid.Error(), apiErr.Msg)
}

func TestAPI_ErrorMapping(t *testing.T) {
	f := newFixture(t)

	resp := f.postJSON("/auth/v1/otp", "", oauth2.OTPRequest{Email: "not-an-email"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, auth.CodeValidationFailed, decode[oauth2.APIError](t, resp).ErrorCode)

	resp = f.postJSON("/auth/v1/verify", "", oauth2.VerifyRequest{TokenHash: "abc"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, auth.CodeBadVerifyParams, decode[oauth2.APIError](t, resp).ErrorCode)

	resp = f.getJSON("/auth/v1/user", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "no_authorization", decode[oauth2.APIError](t, resp).ErrorCode)

	resp = f.getJSON("/auth/v1/user", "forged")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, auth.CodeBadJWT, decode[oauth2.APIError](t, resp).ErrorCode)
}

func TestAPI_TokenEndpoint(t *testing.T) {
	f := newFixture(t)
	cookies := f.signIn(t, memberEmail)

	post := func(form url.Values) *http.Response {
		return f.postForm("/auth/v1/token", form)
	}

	resp := post(url.Values{"grant_type": {"password"}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, oauth2.ErrCodeUnsupportedGrantType, decode[oauth2.ErrorResponse](t, resp).Error)

	resp = post(url.Values{"grant_type": {"refresh_token"}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, oauth2.ErrCodeInvalidRequest, decode[oauth2.ErrorResponse](t, resp).Error)

	resp = post(url.Values{"grant_type": {"refresh_token"}, "refresh_token": {cookies[1].Value}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tok := decode[oauth2.TokenResponse](t, resp)
	require.NotEqual(t, cookies[1].Value, tok.RefreshToken)
	require.Equal(t, memberEmail, tok.Email)

	// The old refresh token has been rotated away.
	resp = post(url.Values{"grant_type": {"refresh_token"}, "refresh_token": {cookies[1].Value}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	errResp := decode[oauth2.ErrorResponse](t, resp)
	require.Equal(t, oauth2.ErrCodeInvalidGrant, errResp.Error)
	require.Equal(t, auth.CodeRefreshTokenInvalid, errResp.ErrorCode)
}

func TestAPI_Profiles(t *testing.T) {
	f := newFixture(t, "ADMIN_EMAILS", "chair@udel.edu")
	member := f.signIn(t, memberEmail)
	admin := f.signIn(t, "chair@udel.edu")

	memberUser, err := f.users.GetByEmail(context.Background(), memberEmail)
	require.NoError(t, err)
	adminUser, err := f.users.GetByEmail(context.Background(), "chair@udel.edu")
	require.NoError(t, err)

	resp := f.getJSON("/api/profiles/"+memberUser.ID, member[0].Value)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.False(t, decode[users.Profile](t, resp).IsAdmin)

	resp = f.getJSON("/api/profiles/"+adminUser.ID, member[0].Value)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = f.getJSON("/api/profiles", member[0].Value)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, auth.CodeForbidden, decode[oauth2.APIError](t, resp).ErrorCode)

	resp = f.getJSON("/api/profiles/"+adminUser.ID, admin[0].Value)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, decode[users.Profile](t, resp).IsAdmin)

	resp = f.getJSON("/api/profiles?limit=500", admin[0].Value)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, decode[[]users.Profile](t, resp), 2)
}

func TestAPI_Preflight(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/auth/v1/token", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	resp := f.do(req)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestAPI_LogoutRevokesBoth(t *testing.T) {
	f := newFixture(t)
	cookies := f.signIn(t, memberEmail)

	resp := f.postJSON("/auth/v1/logout", cookies[0].Value, oauth2.LogoutRequest{RefreshToken: cookies[1].Value})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = f.getJSON("/auth/v1/user", cookies[0].Value)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_, err := f.service.RefreshSession(context.Background(), cookies[1].Value)
	require.ErrorIs(t, err, auth.ErrRefreshTokenInvalid)
}

// The SDK against a real server: the path portalctl takes.
func TestSDK_RoundTrip(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.server)
	t.Cleanup(ts.Close)

	ctx := context.Background()
	storage := authcontext.NewMemoryStorage()
	client := sdk.New(ts.URL, storage, sdk.WithHTTPClient(ts.Client()))

	var events []authcontext.Event
	unsubscribe := client.Subscribe(func(ev authcontext.AuthEvent) { events = append(events, ev.Event) })
	t.Cleanup(unsubscribe)

	require.NoError(t, client.SendMagicLink(ctx, memberEmail, ""))
	session, err := client.ConfirmLink(ctx, f.mailer.lastLink(t).String())
	require.NoError(t, err)
	require.Equal(t, memberEmail, session.Email)

	u, err := client.User(ctx)
	require.NoError(t, err)
	require.Equal(t, session.UserID, u.ID)

	isAdmin, err := client.IsAdmin(ctx, session.UserID)
	require.NoError(t, err)
	require.False(t, isAdmin)

	refreshed, err := client.RefreshSession(ctx)
	require.NoError(t, err)
	require.NotEqual(t, session.RefreshToken, refreshed.RefreshToken)
	require.Equal(t, session.UserID, refreshed.UserID)
	require.Equal(t, memberEmail, refreshed.Email)

	require.NoError(t, client.SignOut(ctx))
	stored, err := client.GetSession(ctx)
	require.NoError(t, err)
	require.Nil(t, stored)

	_, err = f.service.RefreshSession(ctx, refreshed.RefreshToken)
	require.ErrorIs(t, err, auth.ErrRefreshTokenInvalid)

	require.Equal(t, []authcontext.Event{
		authcontext.EventInitialSession,
		authcontext.EventSignedIn,
		authcontext.EventTokenRefreshed,
		authcontext.EventSignedOut,
	}, events)
}
