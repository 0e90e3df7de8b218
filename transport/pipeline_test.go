package transport_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/bumaview/bumaview-go/apierr"
	"github.com/bumaview/bumaview-go/transport"
)

// fakeSource hands out canned tokens and records refresh attempts.
type fakeSource struct {
	token      string
	refreshed  string
	tokenErr   error
	refreshErr error
	tokenCalls atomic.Int32
	forceCalls atomic.Int32
}

func (f *fakeSource) Token(context.Context) (string, error) {
	f.tokenCalls.Add(1)
	if f.tokenErr != nil {
		return "", f.tokenErr
	}
	return f.token, nil
}

func (f *fakeSource) ForceRefresh(context.Context) (string, error) {
	f.forceCalls.Add(1)
	if f.refreshErr != nil {
		return "", f.refreshErr
	}
	return f.refreshed, nil
}

func newClient(source transport.TokenSource) *http.Client {
	return &http.Client{Transport: transport.NewPipeline(source)}
}

func TestAttachesBearerAndRequestID(t *testing.T) {
	var gotAuth, gotRequestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	source := &fakeSource{token: "tok-1"}
	resp, err := newClient(source).Get(srv.URL + "/api/interview")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, "Bearer tok-1", gotAuth)
	require.NotEmpty(t, gotRequestID)
	require.Equal(t, int32(1), source.tokenCalls.Load())
	require.Equal(t, int32(0), source.forceCalls.Load())
}

// A 401 triggers exactly one refresh and one retry carrying the new token.
func TestRetriesOnceAfterUnauthorized(t *testing.T) {
	var attempts atomic.Int32
	var tokens []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokens = append(tokens, r.Header.Get("Authorization"))
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	source := &fakeSource{token: "stale", refreshed: "fresh"}
	resp, err := newClient(source).Get(srv.URL + "/api/bookmark")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, int32(2), attempts.Load())
	require.Equal(t, []string{"Bearer stale", "Bearer fresh"}, tokens)
	require.Equal(t, int32(1), source.forceCalls.Load())
}

// A request body is replayed from GetBody on the retry.
func TestRetryReplaysRequestBody(t *testing.T) {
	var bodies []string
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	source := &fakeSource{token: "stale", refreshed: "fresh"}
	resp, err := newClient(source).Post(srv.URL+"/api/answer", "application/json", strings.NewReader(`{"content":"x"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, []string{`{"content":"x"}`, `{"content":"x"}`}, bodies)
}

// Refresh failure after a 401 surfaces as an auth-kind error, not a
// network-kind one.
func TestRefreshFailureIsAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	source := &fakeSource{token: "stale", refreshErr: errors.New("refresh endpoint unreachable")}
	resp, err := newClient(source).Get(srv.URL + "/api/interview")
	require.Error(t, err)
	require.Nil(t, resp)
	require.Equal(t, apierr.KindAuth, apierr.KindOf(err))
	require.Equal(t, int32(1), source.forceCalls.Load())
}

// When the token source cannot produce a token at all, the request never
// goes out.
func TestNoTokenMeansNoRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	source := &fakeSource{tokenErr: errors.New("session over")}
	_, err := newClient(source).Get(srv.URL + "/api/interview")
	require.Error(t, err)
	require.Equal(t, apierr.KindAuth, apierr.KindOf(err))
	require.Equal(t, int32(0), hits.Load())
}

// A second 401 after the retry is returned to the caller; the pipeline
// never loops.
func TestSecondUnauthorizedIsNotRetried(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	source := &fakeSource{token: "stale", refreshed: "still-bad"}
	resp, err := newClient(source).Get(srv.URL + "/api/interview")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, int32(2), attempts.Load())
	require.Equal(t, int32(1), source.forceCalls.Load())
}
