package session

import "errors"

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrAlreadyActive    = errors.New("session already active")
	ErrNoRefreshToken   = errors.New("no refresh credential held")
	ErrSessionEnded     = errors.New("session ended while refresh was in flight")
	ErrNoSnapshot       = errors.New("no persisted auth snapshot")
)
