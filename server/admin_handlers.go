package server

import (
	"net/http"
	"strconv"
)

const maxProfilesPage = 100

// ProfileHandler reads one profile (GET /api/profiles/{id}). Members may read
// their own; admins may read any. This is where clients fetch the admin flag.
func (s *Server) ProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profile, err := s.provider.GetProfile(r.Context(), accessTokenFromContext(r.Context()), r.PathValue("id"))
		if err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

// ProfilesListHandler pages through profiles for admins (GET /api/profiles?offset=&limit=).
func (s *Server) ProfilesListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		offset := queryInt(r, "offset", 0)
		limit := queryInt(r, "limit", maxProfilesPage)
		if limit <= 0 || limit > maxProfilesPage {
			limit = maxProfilesPage
		}
		if offset < 0 {
			offset = 0
		}

		profiles, err := s.provider.ListProfiles(r.Context(), accessTokenFromContext(r.Context()), offset, limit)
		if err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, profiles)
	}
}

func queryInt(r *http.Request, name string, defaultValue int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return defaultValue
	}
	return n
}
