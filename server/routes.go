package server

import (
	"fmt"
	"net/http"

	"github.com/jrsteele09/assoc-portal/auth"
)

func (s *Server) initRoutes() error {
	if RouteAuthConfirm != auth.ConfirmPath {
		return fmt.Errorf("[initRoutes] confirm route %q does not match magic links (%q)", RouteAuthConfirm, auth.ConfirmPath)
	}

	indexHandler, err := s.IndexHandler()
	if err != nil {
		return err
	}
	opportunitiesHandler, err := s.OpportunitiesHandler()
	if err != nil {
		return err
	}
	loginHandler, err := s.LoginPageUIHandler()
	if err != nil {
		return err
	}

	s.RegisterRouteHandler("GET "+RouteIndex, ChainMiddleware(indexHandler, s.HTMLMiddleWare()...))

	// LOGIN
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(loginHandler, s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteAuthConfirm, ChainMiddleware(s.ConfirmHandler(), s.HTMLMiddleWare()...))

	// Protected pages. The gateway has already checked the session.
	s.RegisterRouteHandler("GET "+RouteOpportunities, ChainMiddleware(opportunitiesHandler, s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteOpportunity, ChainMiddleware(opportunitiesHandler, s.HTMLMiddleWare()...))

	// Provider API
	s.RegisterRouteHandler("POST "+RouteAPIOTP, ChainMiddleware(s.OTPHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAPIVerify, ChainMiddleware(s.VerifyHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAPIToken, ChainMiddleware(s.Token(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAPIUser, ChainMiddleware(s.UserHandler(), s.APIMiddleware(s.RequireBearer())...))
	s.RegisterRouteHandler("POST "+RouteAPILogout, ChainMiddleware(s.APILogoutHandler(), s.APIMiddleware(s.RequireBearer())...))
	s.RegisterRouteHandler("GET "+RouteAPIProfile, ChainMiddleware(s.ProfileHandler(), s.APIMiddleware(s.RequireBearer())...))
	s.RegisterRouteHandler("GET "+RouteAPIProfiles, ChainMiddleware(s.ProfilesListHandler(), s.APIMiddleware(s.RequireBearer())...))
	s.RegisterRouteHandler("OPTIONS /auth/v1/", ChainMiddleware(noContent, s.APIMiddleware()...))
	s.RegisterRouteHandler("OPTIONS /api/", ChainMiddleware(noContent, s.APIMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteMetrics, s.metrics.Handler())
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())

	s.RegisterRouteHandler("GET "+RouteStatic, ChainMiddleware(http.StripPrefix("/static", s.fileServer).ServeHTTP, s.CacheMiddleware))
	s.RegisterRouteHandler("GET "+RouteImages, ChainMiddleware(s.fileServer.ServeHTTP, s.CacheMiddleware))
	s.RegisterRouteFunc("GET "+RouteFavicon, s.FaviconHandler())
	return nil
}

func noContent(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
