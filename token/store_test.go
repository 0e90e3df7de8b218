package token_test

import (
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/bumaview/bumaview-go/kv"
	"github.com/bumaview/bumaview-go/token"
)

// signedToken builds a JWT carrying the given exp claim. The signing key
// is irrelevant: the store decodes claims without verification.
func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return raw
}

type fixture struct {
	session *kv.Memory
	durable *kv.Memory
	store   *token.Store
	now     time.Time
}

func setup(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		session: kv.NewMemory(),
		durable: kv.NewMemory(),
		now:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	s, err := token.NewStore(f.session, f.durable, token.WithNowFunc(func() time.Time { return f.now }))
	require.NoError(t, err)
	f.store = s
	return f
}

func TestNewStoreRequiresBackends(t *testing.T) {
	_, err := token.NewStore(nil, kv.NewMemory())
	require.Error(t, err)
	_, err = token.NewStore(kv.NewMemory(), nil)
	require.Error(t, err)
}

func TestSetTokenDerivesExpiryFromClaim(t *testing.T) {
	f := setup(t)
	exp := f.now.Add(10 * time.Minute)

	require.NoError(t, f.store.SetToken(signedToken(t, exp), 0))
	require.False(t, f.store.IsExpired())

	at, ok := f.store.ExpiresAt()
	require.True(t, ok)
	require.Equal(t, exp.Unix(), at.Unix())

	f.now = exp.Add(time.Second)
	require.True(t, f.store.IsExpired())
}

func TestSetTokenExplicitExpiresInWins(t *testing.T) {
	f := setup(t)
	claimExp := f.now.Add(time.Hour)

	require.NoError(t, f.store.SetToken(signedToken(t, claimExp), 5*time.Minute))

	at, ok := f.store.ExpiresAt()
	require.True(t, ok)
	require.Equal(t, f.now.Add(5*time.Minute), at)
}

func TestMalformedTokenFailsOpen(t *testing.T) {
	f := setup(t)

	require.NoError(t, f.store.SetToken("not-a-jwt", 0))
	require.Equal(t, "not-a-jwt", f.store.Token())
	require.False(t, f.store.IsExpired())
	require.False(t, f.store.IsExpiringSoon(time.Hour))

	_, ok := f.store.ExpiresAt()
	require.False(t, ok)
}

// Scenario: a token issued with expiresIn=600s is expiring-soon inside the
// final 10 minutes and expired one second past the deadline.
func TestExpiryWindow(t *testing.T) {
	f := setup(t)
	start := f.now

	require.NoError(t, f.store.SetToken("opaque-token", 600*time.Second))

	f.now = start.Add(550 * time.Second)
	require.True(t, f.store.IsExpiringSoon(10*time.Minute))
	require.False(t, f.store.IsExpired())

	f.now = start.Add(601 * time.Second)
	require.True(t, f.store.IsExpired())
}

func TestClearIsIdempotent(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.store.SetToken("opaque-token", time.Minute))

	require.NoError(t, f.store.Clear())
	require.NoError(t, f.store.Clear())

	require.Empty(t, f.store.Token())
	require.False(t, f.store.IsExpired())
}

func TestExpiryPersistedAsMilliseconds(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.store.SetToken("opaque-token", time.Minute))

	raw, ok := f.durable.Get("bumaview.token_expiry")
	require.True(t, ok)
	ms, err := strconv.ParseInt(raw, 10, 64)
	require.NoError(t, err)
	require.Equal(t, f.now.Add(time.Minute).UnixMilli(), ms)
}

func TestNewStorePicksUpPersistedToken(t *testing.T) {
	f := setup(t)
	require.NoError(t, f.store.SetToken("opaque-token", time.Minute))

	rehydrated, err := token.NewStore(f.session, f.durable, token.WithNowFunc(func() time.Time { return f.now }))
	require.NoError(t, err)
	require.Equal(t, "opaque-token", rehydrated.Token())
	require.False(t, rehydrated.IsExpired())

	f.now = f.now.Add(2 * time.Minute)
	require.True(t, rehydrated.IsExpired())
}
