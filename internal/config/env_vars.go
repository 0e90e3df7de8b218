package config

import (
	"os"
	"time"
)

const (
	appNameVar    = "APP_NAME"
	apiBaseURLVar = "BUMAVIEW_API_URL"
	aiBaseURLVar  = "BUMAVIEW_AI_URL"
	stateFolder   = "BUMAVIEW_STATE_FOLDER"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "BumaView")
}

func (EnvVars) GetAPIBaseURL() string {
	return GetEnv(apiBaseURLVar, "http://localhost:8080")
}

// GetAIBaseURL returns the base URL of the AI assist service, which runs
// separately from the main API.
func (EnvVars) GetAIBaseURL() string {
	return GetEnv(aiBaseURLVar, "http://localhost:8001")
}

func (EnvVars) GetStateFolder() string {
	return GetEnv(stateFolder, "./state")
}

func (EnvVars) GetRequestTimeout() time.Duration {
	return GetDurationEnv("BUMAVIEW_REQUEST_TIMEOUT", 30*time.Second)
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetDurationEnv reads a duration ("30s", "5m"). Unset or unparseable
// values fall back to the default.
func GetDurationEnv(envVar string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
