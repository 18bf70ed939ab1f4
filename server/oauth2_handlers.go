package server

import (
	"net/http"

	"github.com/jrsteele09/assoc-portal/auth"
	"github.com/jrsteele09/assoc-portal/oauth2"
)

// Token is the OAuth2 token endpoint (POST /auth/v1/token). Only the
// refresh_token grant is supported; sessions start with a magic link.
func (s *Server) Token() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			writeTokenError(w, oauth2.ErrCodeInvalidRequest, "Failed to parse form data", "", http.StatusBadRequest)
			return
		}

		if oauth2.GrantType(r.PostFormValue("grant_type")) != oauth2.RefreshTokenGrant {
			writeTokenError(w, oauth2.ErrCodeUnsupportedGrantType, "Only the refresh_token grant is supported", "", http.StatusBadRequest)
			return
		}

		refreshToken := r.PostFormValue("refresh_token")
		if refreshToken == "" {
			writeTokenError(w, oauth2.ErrCodeInvalidRequest, "refresh_token parameter is required", "", http.StatusBadRequest)
			return
		}

		session, err := s.provider.RefreshSession(r.Context(), refreshToken)
		if err != nil {
			s.metrics.Refresh(false)
			status := apiErrorStatus(err)
			if status == http.StatusInternalServerError {
				writeAPIError(w, err)
				return
			}
			writeTokenError(w, oauth2.ErrCodeInvalidGrant, auth.Message(err), auth.ErrorCode(err), http.StatusBadRequest)
			return
		}

		s.metrics.Refresh(true)
		w.Header().Set("Pragma", "no-cache")
		writeJSON(w, http.StatusOK, oauth2.NewTokenResponse(session))
	}
}

// writeTokenError writes an OAuth2 error response
func writeTokenError(w http.ResponseWriter, errorCode, description, providerCode string, statusCode int) {
	writeJSON(w, statusCode, oauth2.ErrorResponse{
		Error:            errorCode,
		ErrorDescription: description,
		ErrorCode:        providerCode,
	})
}
