package api_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bumaview/bumaview-go/api"
	"github.com/bumaview/bumaview-go/apierr"
)

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := api.NewClient("not-a-url")
	require.Error(t, err)
	_, err = api.NewClient("://bad")
	require.Error(t, err)
}

func TestLoginSendsCredentialsAsQuery(t *testing.T) {
	var gotPath, gotID, gotPassword string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotID = r.URL.Query().Get("id")
		gotPassword = r.URL.Query().Get("password")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"accessToken":  "tok-1",
			"refreshToken": "rt-1",
			"expiresIn":    600,
			"user":         map[string]string{"id": "kim", "role": "USER"},
		})
	}))
	defer srv.Close()

	c, err := api.NewClient(srv.URL)
	require.NoError(t, err)

	resp, err := c.Auth.Login(context.Background(), "kim", "hunter2")
	require.NoError(t, err)
	require.Equal(t, "/api/user/login", gotPath)
	require.Equal(t, "kim", gotID)
	require.Equal(t, "hunter2", gotPassword)
	require.Equal(t, "tok-1", resp.BearerToken())
	require.Equal(t, int64(600), resp.ExpiresIn)
	require.Equal(t, "kim", resp.User.ID)
}

// Some deployments return the token under "token" instead of
// "accessToken"; BearerToken coalesces.
func TestBearerTokenFallsBackToLegacyField(t *testing.T) {
	resp := &api.AuthResponse{Token: "legacy"}
	require.Equal(t, "legacy", resp.BearerToken())
	resp.AccessToken = "modern"
	require.Equal(t, "modern", resp.BearerToken())
}

func TestRefreshPostsBody(t *testing.T) {
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/auth/refresh", r.URL.Path)
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotBody)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"accessToken": "tok-2"})
	}))
	defer srv.Close()

	c, err := api.NewClient(srv.URL)
	require.NoError(t, err)

	resp, err := c.Auth.Refresh(context.Background(), "rt-1")
	require.NoError(t, err)
	require.Equal(t, "rt-1", gotBody["refreshToken"])
	require.Equal(t, "tok-2", resp.BearerToken())
}

func TestInterviewListFilterQuery(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.RawQuery
		_, _ = io.WriteString(w, `[{"id":1,"question":"Tell me about a race condition you debugged"}]`)
	}))
	defer srv.Close()

	c, err := api.NewClient(srv.URL)
	require.NoError(t, err)

	list, err := c.Interviews.List(context.Background(), api.InterviewFilter{
		Company: "acme",
		Year:    2025,
		Page:    2,
		Size:    20,
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "company=acme&page=2&size=20&year=2025", got)
}

func TestRegisterConflictMapsToEmailField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"message":"email already registered"}`)
	}))
	defer srv.Close()

	c, err := api.NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.Auth.Register(context.Background(), api.RegisterRequest{ID: "kim", Email: "kim@example.com"})
	require.Error(t, err)

	var apiErr *apierr.Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, apierr.KindConflict, apiErr.Kind)
	require.Equal(t, "email", apiErr.Field)
}

func TestAdminEndpointForbidden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c, err := api.NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.Users.List(context.Background())
	require.True(t, apierr.IsKind(err, apierr.KindForbidden))
}

func TestConnectionFailureIsNetworkKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // nothing listening anymore

	c, err := api.NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.Interviews.List(context.Background(), api.InterviewFilter{})
	require.True(t, apierr.IsKind(err, apierr.KindNetwork))
}

func TestAssistUsesAIBaseURL(t *testing.T) {
	var hitAI bool
	ai := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hitAI = true
		require.Equal(t, "/api/assist/follow-up", r.URL.Path)
		_, _ = io.WriteString(w, `{"questions":["How would you test it?"]}`)
	}))
	defer ai.Close()
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("primary API must not receive assist calls")
	}))
	defer primary.Close()

	c, err := api.NewClient(primary.URL, api.WithAIBaseURL(ai.URL))
	require.NoError(t, err)

	qs, err := c.Assist.FollowUps(context.Background(), "What is a deadlock?")
	require.NoError(t, err)
	require.True(t, hitAI)
	require.Equal(t, []string{"How would you test it?"}, qs)
}

func TestBookmarkEndpoints(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.Method {
		case http.MethodPost:
			_, _ = io.WriteString(w, `{"id":7,"interviewId":42}`)
		case http.MethodGet:
			_, _ = io.WriteString(w, `[{"id":7,"interviewId":42}]`)
		}
	}))
	defer srv.Close()

	c, err := api.NewClient(srv.URL)
	require.NoError(t, err)

	bm, err := c.Bookmarks.Add(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, int64(42), bm.InterviewID)

	list, err := c.Bookmarks.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, c.Bookmarks.Remove(context.Background(), 42))
	require.Equal(t, []string{
		"POST /api/bookmark",
		"GET /api/bookmark",
		"DELETE /api/bookmark/42",
	}, calls)
}
