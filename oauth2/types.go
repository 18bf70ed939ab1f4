package oauth2

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
type GrantType string

const (
	// RefreshTokenGrant exchanges a refresh token for a new session.
	// Token request includes: refresh_token
	// Returns: new access_token and a rotated refresh_token
	RefreshTokenGrant GrantType = "refresh_token"
)

// Standard token endpoint error codes (RFC 6749 section 5.2).
const (
	ErrCodeInvalidRequest       = "invalid_request"
	ErrCodeInvalidGrant         = "invalid_grant"
	ErrCodeUnsupportedGrantType = "unsupported_grant_type"
)

// ErrorResponse is the token endpoint error body. The provider puts its own
// error code in ErrorCode when it has a more specific one than Error.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	ErrorCode        string `json:"error_code,omitempty"`
}

// APIError is the error body of every other provider endpoint.
type APIError struct {
	Code      int    `json:"code"`
	ErrorCode string `json:"error_code"`
	Msg       string `json:"msg"`
}

// OTPRequest is the body of POST /auth/v1/otp.
type OTPRequest struct {
	Email      string `json:"email"`
	RedirectTo string `json:"redirect_to,omitempty"`
}

// VerifyRequest is the body of POST /auth/v1/verify.
type VerifyRequest struct {
	TokenHash string `json:"token_hash"`
	Type      string `json:"type"`
}

// LogoutRequest is the optional body of POST /auth/v1/logout.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}
