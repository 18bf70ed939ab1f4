package auth

import "errors"

// Provider errors. The message of each is safe to show to the user.
var (
	ErrOTPInvalid          = errors.New("Email link is invalid or has expired")
	ErrRateLimited         = errors.New("Email rate limit exceeded")
	ErrInvalidEmail        = errors.New("Unable to validate email address: invalid format")
	ErrVerifyParams        = errors.New("Verify requires a token_hash and type")
	ErrUserBlocked         = errors.New("User is banned")
	ErrInvalidToken        = errors.New("Invalid JWT")
	ErrRefreshTokenInvalid = errors.New("Invalid Refresh Token: Refresh Token Not Found")
	ErrForbidden           = errors.New("Not allowed to read this profile")
	ErrUserNotFound        = errors.New("User not found")
	ErrEmailSendFailed     = errors.New("Error sending magic link email")
)

// Wire codes for the JSON API.
const (
	CodeOTPExpired          = "otp_expired"
	CodeRateLimited         = "over_email_send_rate_limit"
	CodeValidationFailed    = "validation_failed"
	CodeBadVerifyParams     = "bad_verify_params"
	CodeUserBanned          = "user_banned"
	CodeBadJWT              = "bad_jwt"
	CodeRefreshTokenInvalid = "refresh_token_not_found"
	CodeForbidden           = "not_admin"
	CodeUserNotFound        = "user_not_found"
	CodeEmailSendFailed     = "email_send_failed"
	CodeUnexpected          = "unexpected_failure"
)

var codes = []struct {
	err  error
	code string
}{
	{ErrOTPInvalid, CodeOTPExpired},
	{ErrRateLimited, CodeRateLimited},
	{ErrInvalidEmail, CodeValidationFailed},
	{ErrVerifyParams, CodeBadVerifyParams},
	{ErrUserBlocked, CodeUserBanned},
	{ErrInvalidToken, CodeBadJWT},
	{ErrRefreshTokenInvalid, CodeRefreshTokenInvalid},
	{ErrForbidden, CodeForbidden},
	{ErrUserNotFound, CodeUserNotFound},
	{ErrEmailSendFailed, CodeEmailSendFailed},
}

// ErrorCode returns the wire code of the provider error in err's chain.
func ErrorCode(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeUnexpected
}

// ErrorFromCode maps a wire code back to its sentinel. Unknown codes become
// a plain error carrying msg.
func ErrorFromCode(code, msg string) error {
	for _, c := range codes {
		if c.code == code {
			return c.err
		}
	}
	if msg == "" {
		msg = "Authentication failed"
	}
	return errors.New(msg)
}

// Message is the user facing text for err. Internal failures never leak
// their wrapped chain.
func Message(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.err.Error()
		}
	}
	return "Authentication failed"
}
