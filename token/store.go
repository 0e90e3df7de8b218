// Package token holds the current access token and its expiry. It is the
// single source of truth the request pipeline and session orchestrator
// consult before attaching credentials to outgoing calls.
package token

import (
	"strconv"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/bumaview/bumaview-go/kv"
)

// Storage keys. The raw token lives in the session-scoped store so a fresh
// process start forces re-authentication; the expiry marker lives in the
// longer-lived store as a string-encoded integer of Unix milliseconds.
const (
	accessTokenKey = "bumaview.access_token"
	tokenExpiryKey = "bumaview.token_expiry"
)

// Store owns the access token for the lifetime of a session.
//
// Expiry is derived exactly once, at assignment time: either from an
// explicit expires-in supplied by the server, or by decoding the token's
// embedded exp claim. When neither yields an expiry the store operates
// fail-open: IsExpired reports false until a 401 from the server proves
// otherwise. That policy is deliberate; do not change it to fail-closed
// without reconsidering what happens to requests carrying a token whose
// metadata was lost.
type Store struct {
	mu        sync.RWMutex
	session   kv.Store // raw token, session-scoped
	durable   kv.Store // expiry marker, survives restarts
	token     string
	expiresAt time.Time // zero when unknown
	nowFunc   func() time.Time
}

type StoreOption func(*Store)

// WithNowFunc sets the now time function (primarily for testing)
func WithNowFunc(nowFunc func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowFunc = nowFunc
	}
}

// NewStore initializes a Store backed by the given session-scoped and
// longer-lived stores. Any token already present in the session store is
// picked up, together with its persisted expiry marker.
func NewStore(session, durable kv.Store, options ...StoreOption) (*Store, error) {
	if session == nil {
		return nil, errors.New("[NewStore] session store is required")
	}
	if durable == nil {
		return nil, errors.New("[NewStore] durable store is required")
	}

	s := &Store{
		session: session,
		durable: durable,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}

	if tok, ok := session.Get(accessTokenKey); ok {
		s.token = tok
		if raw, ok := durable.Get(tokenExpiryKey); ok {
			if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
				s.expiresAt = time.UnixMilli(ms)
			}
		}
	}

	return s, nil
}

// SetToken stores a new access token. A positive expiresIn takes
// precedence; otherwise the expiry is decoded from the token's exp claim.
// A token whose claim cannot be decoded is still stored — the expiry is
// simply unknown and IsExpired degrades to fail-open.
func (s *Store) SetToken(raw string, expiresIn time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = raw
	switch {
	case expiresIn > 0:
		s.expiresAt = s.nowFunc().Add(expiresIn)
	default:
		s.expiresAt = decodeExpiry(raw)
	}

	if err := s.session.Set(accessTokenKey, raw); err != nil {
		return errors.Wrap(err, "[Store.SetToken] persist token")
	}
	if s.expiresAt.IsZero() {
		if err := s.durable.Remove(tokenExpiryKey); err != nil {
			return errors.Wrap(err, "[Store.SetToken] remove stale expiry")
		}
		return nil
	}
	if err := s.durable.Set(tokenExpiryKey, strconv.FormatInt(s.expiresAt.UnixMilli(), 10)); err != nil {
		return errors.Wrap(err, "[Store.SetToken] persist expiry")
	}
	return nil
}

// Token returns the current access token, or the empty string when none
// is held.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// ExpiresAt returns the known expiry instant; ok is false when no expiry
// metadata is held.
func (s *Store) ExpiresAt() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt, !s.expiresAt.IsZero()
}

// IsExpired reports whether the token's expiry has passed. Fail-open:
// false when no expiry is known.
func (s *Store) IsExpired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.expiresAt.IsZero() {
		return false
	}
	return s.nowFunc().After(s.expiresAt)
}

// IsExpiringSoon reports whether the token expires within the given
// window. False when no expiry is known.
func (s *Store) IsExpiringSoon(within time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.expiresAt.IsZero() {
		return false
	}
	return s.nowFunc().After(s.expiresAt.Add(-within))
}

// Clear removes the token and its expiry marker. Idempotent.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.expiresAt = time.Time{}
	if err := s.session.Remove(accessTokenKey); err != nil {
		return errors.Wrap(err, "[Store.Clear] remove token")
	}
	if err := s.durable.Remove(tokenExpiryKey); err != nil {
		return errors.Wrap(err, "[Store.Clear] remove expiry")
	}
	return nil
}

// decodeExpiry extracts the exp claim from a JWT without verifying the
// signature. Returns the zero time when the token is malformed or carries
// no exp claim.
func decodeExpiry(raw string) time.Time {
	unverified, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}
	exp, err := unverified.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
