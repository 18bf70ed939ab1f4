package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/assoc-portal/sessions"
)

const (
	// AccessTokenCookie and RefreshTokenCookie carry the provider session.
	AccessTokenCookie  = "portal-access-token"
	RefreshTokenCookie = "portal-refresh-token"
)

// Login page messages.
const (
	msgInvalidConfirmation = "Invalid confirmation link"
	msgSessionCreateFailed = "Failed to create session"
	msgSessionExpired      = "Session expired. Please sign in again."
)

// sessionCookies reads the provider tokens from the request.
func sessionCookies(r *http.Request) (accessToken, refreshToken string) {
	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		accessToken = c.Value
	}
	if c, err := r.Cookie(RefreshTokenCookie); err == nil {
		refreshToken = c.Value
	}
	return accessToken, refreshToken
}

// setSessionCookies writes both tokens. The cookies outlive the access token
// so an expired one can still be refreshed.
func (s *Server) setSessionCookies(w http.ResponseWriter, r *http.Request, session *sessions.Session) {
	maxAge := int(s.config.GetRefreshTokenExpiry().Seconds())
	s.setCookie(w, r, AccessTokenCookie, session.AccessToken, maxAge)
	s.setCookie(w, r, RefreshTokenCookie, session.RefreshToken, maxAge)
}

func (s *Server) clearSessionCookies(w http.ResponseWriter, r *http.Request) {
	s.setCookie(w, r, AccessTokenCookie, "", -1)
	s.setCookie(w, r, RefreshTokenCookie, "", -1)
}

func (s *Server) setCookie(w http.ResponseWriter, r *http.Request, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// queryEscape encodes a query value with spaces as %20.
func queryEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// loginRedirectPath is the login page that sends the user on to destination.
func loginRedirectPath(destination string) string {
	return RouteLogin + "?redirect=" + queryEscape(destination)
}

// isLocalPath accepts absolute paths on this origin only.
func isLocalPath(p string) bool {
	if !strings.HasPrefix(p, "/") {
		return false
	}
	return !strings.HasPrefix(p, "//") && !strings.HasPrefix(p, "/\\")
}

// localDestination returns p when it is a local path, else the default landing path.
func (s *Server) localDestination(p string) string {
	if isLocalPath(p) {
		return p
	}
	return s.config.GetDefaultLandingPath()
}

// redirectSuccess helper for htmx-aware success redirects
func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent) // 204 - no content, just redirect instruction
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// redirectWithError helper for htmx-aware error redirects
func redirectWithError(w http.ResponseWriter, r *http.Request, path, errorMsg string) {
	redirectSuccess(w, r, path+"?error="+queryEscape(errorMsg))
}

// isHTMXRequest checks if the request was initiated by HTMX
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
