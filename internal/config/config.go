package config

import "time"

type Config interface {
	EnvConfig
	SessionConfig
}

type EnvConfig interface {
	GetAppName() string
	GetAPIBaseURL() string
	GetAIBaseURL() string
	GetStateFolder() string
	GetRequestTimeout() time.Duration
	GetEnv() string
}

type SessionConfig interface {
	GetIdleTimeout() time.Duration
	GetWarningCountdown() time.Duration
	GetExpiryCheckInterval() time.Duration
	GetExpiringSoonWindow() time.Duration
}

type mainConfig struct {
	EnvVars
	Session
}

func New() Config {
	return mainConfig{}
}
