package config

import "time"

type Auth struct{}

var _ AuthConfig = Auth{}

// GetAllowedEmailDomain is the suffix every signed-in email must end with, including the '@'.
func (Auth) GetAllowedEmailDomain() string {
	return GetEnv("ALLOWED_EMAIL_DOMAIN", "@udel.edu")
}

func (Auth) GetProtectedPrefixes() []string {
	return GetEnvList("PROTECTED_PREFIXES", []string{"/opportunities"})
}

func (Auth) GetDefaultLandingPath() string {
	return GetEnv("DEFAULT_LANDING_PATH", "/opportunities")
}

func (Auth) GetAccessTokenExpiry() time.Duration {
	return 1 * time.Hour
}

func (Auth) GetRefreshTokenExpiry() time.Duration {
	return 7 * 24 * time.Hour // 7 days
}

func (Auth) GetRefreshTokenLength() int {
	return 32 // 32 bytes = 256 bits
}

func (Auth) GetOneTimeTokenExpiry() time.Duration {
	return 15 * time.Minute
}

// GetMagicLinkRateLimit is the number of magic links one address may request per window.
func (Auth) GetMagicLinkRateLimit() int {
	return GetEnvInt("MAGIC_LINK_RATE_LIMIT", 4)
}

func (Auth) GetMagicLinkRateWindow() time.Duration {
	return 1 * time.Hour
}
