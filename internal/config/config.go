package config

import "time"

type Config interface {
	EnvConfig
	APIConfig
	SessionConfig
	LogConfig
	OIDCConfig
}

type EnvConfig interface {
	GetAppName() string
}

type APIConfig interface {
	GetAPIBaseURL() string
	GetRequestTimeout() time.Duration
}

type LogConfig interface {
	GetLogLevel() string
	GetLogPretty() bool
}

type mainConfig struct {
	EnvVars
	API
	Session
	Logging
	OIDC
}

func New() Config {
	return mainConfig{}
}
