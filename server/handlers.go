package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jrsteele09/assoc-portal/auth"
	"github.com/jrsteele09/assoc-portal/oauth2"
	"github.com/rs/zerolog/log"
)

const contentTypeJSON = "application/json; charset=utf-8"

// OTPHandler emails a magic link (POST /auth/v1/otp).
func (s *Server) OTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req oauth2.OTPRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, apiErrorBody(http.StatusBadRequest, auth.CodeValidationFailed, "Could not parse request body as JSON"))
			return
		}

		err := s.provider.SendMagicLink(r.Context(), auth.MagicLinkParameters{Email: req.Email, RedirectTo: req.RedirectTo})
		if err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct{}{})
	}
}

// VerifyHandler redeems a magic-link token for a session (POST /auth/v1/verify).
func (s *Server) VerifyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req oauth2.VerifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, apiErrorBody(http.StatusBadRequest, auth.CodeBadVerifyParams, "Could not parse request body as JSON"))
			return
		}

		session, err := s.provider.VerifyOTP(r.Context(), auth.VerifyParameters{TokenHash: req.TokenHash, Type: req.Type})
		if err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, oauth2.NewTokenResponse(session))
	}
}

// UserHandler returns the user behind the bearer token (GET /auth/v1/user).
func (s *Server) UserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.provider.GetUser(r.Context(), accessTokenFromContext(r.Context()))
		if err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

// APILogoutHandler revokes the bearer token and, when given, the refresh
// token (POST /auth/v1/logout).
func (s *Server) APILogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req oauth2.LogoutRequest
		if r.ContentLength != 0 {
			// The body is optional.
			_ = json.NewDecoder(r.Body).Decode(&req)
		}

		if err := s.provider.SignOut(r.Context(), accessTokenFromContext(r.Context()), req.RefreshToken); err != nil {
			writeAPIError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("failed to write JSON response")
	}
}

func apiErrorBody(status int, code, msg string) oauth2.APIError {
	return oauth2.APIError{Code: status, ErrorCode: code, Msg: msg}
}

// writeAPIError maps a provider error to its status and wire code. Only the
// sentinel's message is sent; the wrapped chain stays in the log.
func writeAPIError(w http.ResponseWriter, err error) {
	status := apiErrorStatus(err)
	if status == http.StatusInternalServerError {
		log.Err(err).Msg("provider API request failed")
	}
	writeJSON(w, status, apiErrorBody(status, auth.ErrorCode(err), auth.Message(err)))
}

func apiErrorStatus(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrVerifyParams), errors.Is(err, auth.ErrRefreshTokenInvalid):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, auth.ErrOTPInvalid), errors.Is(err, auth.ErrUserBlocked), errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, auth.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrRateLimited):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}
