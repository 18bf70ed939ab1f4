package server

import (
	"net/http"
	"net/url"

	"github.com/jrsteele09/assoc-portal/auth"
	"github.com/jrsteele09/assoc-portal/metrics"
	"github.com/rs/zerolog/log"
)

// ConfirmHandler redeems the one-time token of a magic link (GET /auth/confirm).
//
// On success it sets the session cookies and hands off to the login page,
// which waits for the session to be visible before moving on to the
// destination. A token is redeemed at most once; failures are not retried.
func (s *Server) ConfirmHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		tokenHash := q.Get("token_hash")
		tokenType := q.Get("type")

		if tokenHash == "" || tokenType == "" {
			s.metrics.Exchange(metrics.ExchangeInvalidLink)
			redirectWithError(w, r, RouteLogin, msgInvalidConfirmation)
			return
		}

		destination := s.confirmDestination(q.Get("next"), q.Get("redirect_to"))

		session, err := s.provider.VerifyOTP(r.Context(), auth.VerifyParameters{TokenHash: tokenHash, Type: tokenType})
		if err != nil {
			s.metrics.Exchange(metrics.ExchangeProviderError)
			log.Info().Err(err).Msg("magic link exchange rejected")
			redirectWithError(w, r, RouteLogin, auth.Message(err))
			return
		}
		if session == nil {
			s.metrics.Exchange(metrics.ExchangeNoSession)
			log.Error().Msg("magic link exchange returned no session")
			redirectWithError(w, r, RouteLogin, msgSessionCreateFailed)
			return
		}

		if !s.policy.AllowsSession(session) {
			s.metrics.Exchange(metrics.ExchangeDomain)
			log.Warn().Str("email", session.Email).Msg("magic link redeemed for address outside allowed domain")
			s.endSession(w, r, session)
			redirectWithError(w, r, RouteLogin, s.policy.RejectionMessage())
			return
		}

		s.setSessionCookies(w, r, session)
		s.metrics.Exchange(metrics.ExchangeSuccess)
		log.Info().Str("user_id", session.UserID).Msg("magic link exchanged")

		target := RouteLogin
		if destination != s.config.GetDefaultLandingPath() {
			target = loginRedirectPath(destination)
		}
		redirectSuccess(w, r, target)
	}
}

// confirmDestination picks where the user goes after signing in: next, else
// the path of a same-origin redirect_to, else the default landing path.
func (s *Server) confirmDestination(next, redirectTo string) string {
	if next == "" && redirectTo != "" {
		next = s.sameOriginPath(redirectTo)
	}
	return s.localDestination(next)
}

// sameOriginPath returns the path and query of rawURL when it is relative or
// points at the portal's own origin.
func (s *Server) sameOriginPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	if u.Scheme != "" || u.Host != "" {
		base, err := url.Parse(s.config.GetBaseURL())
		if err != nil || u.Scheme != base.Scheme || u.Host != base.Host {
			return ""
		}
	}
	p := u.EscapedPath()
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p
}
