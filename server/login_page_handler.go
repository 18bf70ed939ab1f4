package server

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/assoc-portal/auth"
	"github.com/rs/zerolog/log"
)

const contentTypeHTML = "text/html; charset=utf-8"

// LoginPageData contains data for rendering the login page
type LoginPageData struct {
	AppName  string
	Domain   string // Allowed email suffix, shown as a hint
	Error    string
	Redirect string // Destination after sign in (hidden field in form)
	SentTo   string // Address a magic link was just sent to
}

// LoginPageUIHandler displays the login page (GET /login).
//
// An error parameter is rendered as given and nothing else happens. Otherwise
// a usable session cookie sends the user straight on to the redirect target;
// this is the second hop of the magic-link flow.
func (s *Server) LoginPageUIHandler() (http.HandlerFunc, error) {
	loginTmpl, err := ParseTemplate("login.html")
	if err != nil {
		return nil, err
	}

	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		data := LoginPageData{
			AppName:  s.config.GetAppName(),
			Domain:   s.policy.Suffix(),
			Error:    q.Get("error"),
			Redirect: q.Get("redirect"),
			SentTo:   q.Get("sent"),
		}

		if data.Error == "" && data.SentTo == "" {
			if s.hasUsableSession(w, r) {
				redirectSuccess(w, r, s.localDestination(data.Redirect))
				return
			}
		}

		w.Header().Set("Content-Type", contentTypeHTML)
		if err := loginTmpl.Execute(w, data); err != nil {
			log.Err(err).Msg("Failed to render login template")
			http.Error(w, "Failed to render login page", http.StatusInternalServerError)
		}
	}, nil
}

// hasUsableSession applies the gateway's checks to the request cookies
// without redirecting.
func (s *Server) hasUsableSession(w http.ResponseWriter, r *http.Request) bool {
	accessToken, refreshToken := sessionCookies(r)
	if accessToken == "" {
		return false
	}
	session, err := s.provider.GetSession(r.Context(), accessToken, refreshToken)
	if err != nil || session == nil {
		return false
	}
	session = s.refreshIfDue(w, r, session)
	return !session.ProviderExpired(s.nowTime()) && s.policy.AllowsSession(session)
}

// LoginSubmissionHandler requests a magic link (POST /auth/login).
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			redirectWithError(w, r, RouteLogin, "Invalid form data")
			return
		}

		email := strings.TrimSpace(r.FormValue("email"))
		redirect := s.localDestination(r.FormValue("redirect"))

		if email == "" {
			redirectWithError(w, r, RouteLogin, "Email is required")
			return
		}
		if !s.policy.IsAllowed(email) {
			redirectWithError(w, r, RouteLogin, s.policy.RejectionMessage())
			return
		}

		err := s.provider.SendMagicLink(r.Context(), auth.MagicLinkParameters{
			Email:      email,
			RedirectTo: s.config.GetBaseURL() + redirect,
		})
		if err != nil {
			log.Info().Err(err).Str("email", email).Msg("magic link request failed")
			redirectWithError(w, r, RouteLogin, auth.Message(err))
			return
		}

		redirectSuccess(w, r, RouteLogin+"?sent="+queryEscape(email))
	}
}

// LogoutHandler signs out at the provider, clears the cookies and goes home.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accessToken, refreshToken := sessionCookies(r)
		if accessToken != "" || refreshToken != "" {
			if err := s.provider.SignOut(r.Context(), accessToken, refreshToken); err != nil {
				log.Err(err).Msg("Logout: provider sign out failed")
			}
		}
		s.clearSessionCookies(w, r)
		redirectSuccess(w, r, "/")
	}
}
