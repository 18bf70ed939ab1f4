package server

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

// IndexHandler renders the public home page
func (s *Server) IndexHandler() (http.HandlerFunc, error) {
	tmpl, err := ParseTemplate("index.html")
	if err != nil {
		return nil, err
	}

	return func(w http.ResponseWriter, r *http.Request) {
		data := map[string]any{
			"AppName":     s.config.GetAppName(),
			"LandingPath": s.config.GetDefaultLandingPath(),
		}

		w.Header().Set("Content-Type", contentTypeHTML)
		if err := tmpl.Execute(w, data); err != nil {
			log.Err(err).Msg("Failed to render index template")
		}
	}, nil
}

// OpportunitiesHandler renders the members' landing page. The listing itself
// is served by the content backend; this page only frames it for the
// signed-in member.
func (s *Server) OpportunitiesHandler() (http.HandlerFunc, error) {
	tmpl, err := ParseTemplate("opportunities.html")
	if err != nil {
		return nil, err
	}

	return func(w http.ResponseWriter, r *http.Request) {
		session := SessionFromContext(r.Context())
		if session == nil {
			// Only reachable when the gateway is not guarding this path.
			redirectSuccess(w, r, loginRedirectPath(r.URL.Path))
			return
		}

		data := map[string]any{
			"AppName":       s.config.GetAppName(),
			"Email":         session.Email,
			"OpportunityID": r.PathValue("id"),
			"ExpiresAt":     session.Expiry(),
		}

		w.Header().Set("Content-Type", contentTypeHTML)
		if err := tmpl.Execute(w, data); err != nil {
			log.Err(err).Msg("Failed to render opportunities template")
		}
	}, nil
}
