package config

import "time"

type Session struct{}

var _ SessionConfig = Session{}

func (Session) GetIdleTimeout() time.Duration {
	return GetDurationEnv("BUMAVIEW_IDLE_TIMEOUT", 30*time.Minute)
}

func (Session) GetWarningCountdown() time.Duration {
	return GetDurationEnv("BUMAVIEW_WARNING_COUNTDOWN", 5*time.Minute)
}

func (Session) GetExpiryCheckInterval() time.Duration {
	return GetDurationEnv("BUMAVIEW_EXPIRY_CHECK_INTERVAL", 5*time.Minute)
}

func (Session) GetExpiringSoonWindow() time.Duration {
	return GetDurationEnv("BUMAVIEW_EXPIRING_SOON_WINDOW", 10*time.Minute)
}
