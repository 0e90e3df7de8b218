package apierr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bumaview/bumaview-go/apierr"
)

func TestClassifyByStatus(t *testing.T) {
	tests := []struct {
		status int
		want   apierr.Kind
	}{
		{http.StatusUnauthorized, apierr.KindAuth},
		{http.StatusForbidden, apierr.KindForbidden},
		{http.StatusBadRequest, apierr.KindValidation},
		{http.StatusConflict, apierr.KindConflict},
		{http.StatusTooManyRequests, apierr.KindRateLimited},
		{http.StatusInternalServerError, apierr.KindServer},
		{http.StatusBadGateway, apierr.KindServer},
		{http.StatusNotFound, apierr.KindValidation},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("status_%d", tc.status), func(t *testing.T) {
			e := apierr.Classify(tc.status, nil)
			require.Equal(t, tc.want, e.Kind)
			require.Equal(t, tc.status, e.StatusCode)
		})
	}
}

func TestConflictFieldFromMessage(t *testing.T) {
	e := apierr.Classify(http.StatusConflict, []byte(`{"message":"email already in use"}`))
	require.Equal(t, apierr.KindConflict, e.Kind)
	require.Equal(t, "email", e.Field)

	e = apierr.Classify(http.StatusConflict, []byte(`{"message":"duplicate user id"}`))
	require.Equal(t, "id", e.Field)

	e = apierr.Classify(http.StatusConflict, []byte(`{"message":"resource exists"}`))
	require.Empty(t, e.Field)
}

func TestMessageExtraction(t *testing.T) {
	e := apierr.Classify(http.StatusBadRequest, []byte(`{"error":"year must be numeric"}`))
	require.Equal(t, "year must be numeric", e.Message)

	e = apierr.Classify(http.StatusBadRequest, []byte(`not json`))
	require.Empty(t, e.Message)
}

func TestKindOfTraversesWrapping(t *testing.T) {
	cause := apierr.Network(errors.New("connection refused"))
	wrapped := fmt.Errorf("listing interviews: %w", cause)

	require.Equal(t, apierr.KindNetwork, apierr.KindOf(wrapped))
	require.True(t, apierr.IsKind(wrapped, apierr.KindNetwork))
	require.False(t, apierr.IsKind(wrapped, apierr.KindAuth))
}

func TestErrorsIsMatchesOnKind(t *testing.T) {
	err := apierr.Auth(errors.New("refresh failed"))
	require.True(t, errors.Is(err, &apierr.Error{Kind: apierr.KindAuth}))
	require.False(t, errors.Is(err, &apierr.Error{Kind: apierr.KindServer}))
}

func TestKindOfPlainError(t *testing.T) {
	require.Equal(t, apierr.KindUnknown, apierr.KindOf(errors.New("plain")))
}
