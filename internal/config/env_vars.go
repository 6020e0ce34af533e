package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	portEnvVar    = "PORT"
	appNameVar    = "APP_NAME"
	baseURLVar    = "BASE_URL"
	adminEmailVar = "ADMIN_EMAIL"
	adminPassVar  = "ADMIN_PASSWORD"
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
	return GetEnv(appNameVar, "Content Admin")
}

// GetBaseURL returns the externally visible URL of the console (e.g., "https://admin.example.com")
func (EnvVars) GetBaseURL() string {
	return GetEnv(baseURLVar, "http://localhost:8080")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

// GetAdminEmail is the account seeded on first start when no admin exists
func (EnvVars) GetAdminEmail() string {
	return GetEnv(adminEmailVar, "admin@localhost")
}

// GetAdminPassword is the seeded admin password. Empty means one is generated and logged once.
func (EnvVars) GetAdminPassword() string {
	return GetEnv(adminPassVar, "")
}

func (EnvVars) GetDiagnosticsTimeout() time.Duration {
	return GetEnvDuration("DIAGNOSTICS_TIMEOUT", 5*time.Second)
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvBool(envVar string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(envVar))
	if err != nil {
		return defaultValue
	}
	return value
}

func GetEnvInt64(envVar string, defaultValue int64) int64 {
	value, err := strconv.ParseInt(os.Getenv(envVar), 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func GetEnvDuration(envVar string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(envVar))
	if err != nil {
		return defaultValue
	}
	return value
}
