package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/assoc-portal/metrics"
	"github.com/jrsteele09/assoc-portal/sessions"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeySession stores the session checked by the gateway
	ContextKeySession ContextKey = "session"
	// ContextKeyAccessToken stores the bearer token of an API request
	ContextKeyAccessToken ContextKey = "access_token"
)

// Paths the gateway never inspects, whatever the protected prefixes say.
var gatewayExclusions = []string{"/static/", "/images/"}

// SessionFromContext returns the session the gateway attached to the request.
func SessionFromContext(ctx context.Context) *sessions.Session {
	s, _ := ctx.Value(ContextKeySession).(*sessions.Session)
	return s
}

// isProtected reports whether the gateway checks path.
func (s *Server) isProtected(path string) bool {
	if path == RouteFavicon {
		return false
	}
	for _, prefix := range gatewayExclusions {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	for _, prefix := range s.config.GetProtectedPrefixes() {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// AuthGateway guards the protected prefixes. A request reaches next only with
// a live, refreshed, domain-allowed session; everything else is sent to the
// login page.
func (s *Server) AuthGateway(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.isProtected(r.URL.Path) {
			next(w, r)
			return
		}
		ctx := r.Context()

		accessToken, refreshToken := sessionCookies(r)
		session, err := s.provider.GetSession(ctx, accessToken, refreshToken)
		if err != nil {
			// Fail closed.
			log.Debug().Err(err).Str("path", r.URL.Path).Msg("gateway session lookup failed")
			session = nil
		}
		if session != nil {
			session = s.refreshIfDue(w, r, session)
		}

		if session == nil {
			s.metrics.GatewayDecision(metrics.DecisionNoSession)
			redirectSuccess(w, r, loginRedirectPath(r.URL.Path))
			return
		}

		if session.ProviderExpired(s.nowTime()) {
			s.metrics.GatewayDecision(metrics.DecisionExpired)
			s.endSession(w, r, session)
			redirectWithError(w, r, RouteLogin, msgSessionExpired)
			return
		}

		if !s.policy.AllowsSession(session) {
			s.metrics.GatewayDecision(metrics.DecisionDomain)
			log.Warn().Str("email", session.Email).Msg("gateway rejected session outside allowed domain")
			s.endSession(w, r, session)
			redirectWithError(w, r, RouteLogin, s.policy.RejectionMessage())
			return
		}

		s.metrics.GatewayDecision(metrics.DecisionAllow)
		next(w, r.WithContext(context.WithValue(ctx, ContextKeySession, session)))
	}
}

// refreshIfDue refreshes a session that has expired or is about to. Failure
// is logged and the original session is returned.
func (s *Server) refreshIfDue(w http.ResponseWriter, r *http.Request, session *sessions.Session) *sessions.Session {
	if session.RefreshToken == "" || !session.HasExpiry() {
		return session
	}
	if session.Expiry().Sub(s.nowTime()) > s.config.GetRefreshThreshold() {
		return session
	}

	refreshed, err := s.provider.RefreshSession(r.Context(), session.RefreshToken)
	if err != nil || refreshed == nil {
		s.metrics.Refresh(false)
		log.Warn().Err(err).Str("user_id", session.UserID).Msg("session refresh failed")
		return session
	}
	s.metrics.Refresh(true)
	s.setSessionCookies(w, r, refreshed)
	return refreshed
}

// endSession signs the session out at the provider and drops its cookies.
func (s *Server) endSession(w http.ResponseWriter, r *http.Request, session *sessions.Session) {
	if err := s.provider.SignOut(r.Context(), session.AccessToken, session.RefreshToken); err != nil {
		log.Warn().Err(err).Str("user_id", session.UserID).Msg("provider sign out failed")
	}
	s.clearSessionCookies(w, r)
}

// bearerToken extracts the token from an "Authorization: Bearer" header.
func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequireBearer is middleware for API routes that expect an access token in
// the Authorization header. The token itself is checked by the provider.
func (s *Server) RequireBearer() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="portal"`)
				writeJSON(w, http.StatusUnauthorized, apiErrorBody(http.StatusUnauthorized, "no_authorization", "This endpoint requires a Bearer token"))
				return
			}
			next(w, r.WithContext(context.WithValue(r.Context(), ContextKeyAccessToken, token)))
		}
	}
}

func accessTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(ContextKeyAccessToken).(string)
	return token
}
