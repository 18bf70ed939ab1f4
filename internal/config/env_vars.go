package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	portEnvVar   = "PORT"
	appNameVar   = "APP_NAME"
	folderEnvVar = "FOLDER"
	baseURLVar   = "BASE_URL"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Student Association Portal")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

// GetBaseURL returns the public base URL of the portal (e.g., "https://portal.example.edu").
// Magic links sent by email point back at this address.
func (EnvVars) GetBaseURL() string {
	return strings.TrimRight(GetEnv(baseURLVar, "http://localhost:8080"), "/")
}

func (EnvVars) GetDataFolder() string {
	return GetEnv(folderEnvVar, "./data")
}

func (e EnvVars) GetDatabasePath() string {
	return GetEnv("DATABASE_PATH", filepath.Join(e.GetDataFolder(), "portal.db"))
}

// GetRedisURL is optional. When empty the magic-link limiter runs in memory.
func (EnvVars) GetRedisURL() string {
	return GetEnv("REDIS_URL", "")
}

func (EnvVars) GetJWTSecret() string {
	return GetEnv("JWT_SECRET", "")
}

func (EnvVars) GetPostmarkToken() string {
	return GetEnv("POSTMARK_TOKEN", "")
}

func (EnvVars) GetMailFrom() string {
	return GetEnv("MAIL_FROM", "no-reply@localhost")
}

func (EnvVars) GetAdminEmails() []string {
	return GetEnvList("ADMIN_EMAILS", nil)
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetEnvList splits a comma separated variable, dropping empty entries.
func GetEnvList(envVar string, defaultValue []string) []string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func GetEnvInt(envVar string, defaultValue int) int {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
