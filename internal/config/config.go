package config

import "time"

type Config interface {
	EnvConfig
	CorsConfig
	GatewayConfig
	SecurityConfig
	UploadConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetEnv() string
	GetAdminEmail() string
	GetAdminPassword() string
	GetDiagnosticsTimeout() time.Duration
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Gateway
	Security
	Uploads
}

func New() Config {
	return mainConfig{}
}
