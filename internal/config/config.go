package config

import "time"

type Config interface {
	EnvConfig
	CorsConfig
	AuthConfig
	ClientConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetBaseURL() string
	GetDataFolder() string
	GetDatabasePath() string
	GetRedisURL() string
	GetJWTSecret() string
	GetPostmarkToken() string
	GetMailFrom() string
	GetAdminEmails() []string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

// AuthConfig covers the provider side: token lifetimes, magic links and the
// gateway's path policy.
type AuthConfig interface {
	GetAllowedEmailDomain() string
	GetProtectedPrefixes() []string
	GetDefaultLandingPath() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetRefreshTokenLength() int
	GetOneTimeTokenExpiry() time.Duration
	GetMagicLinkRateLimit() int
	GetMagicLinkRateWindow() time.Duration
}

// ClientConfig covers the client auth context timings.
type ClientConfig interface {
	GetLocalSessionWindow() time.Duration
	GetRefreshThreshold() time.Duration
	GetInitTimeout() time.Duration
	GetAdminFetchTimeout() time.Duration
	GetLivenessInterval() time.Duration
}

type mainConfig struct {
	EnvVars
	Cors
	Auth
	Client
}

func New() Config {
	return mainConfig{}
}
