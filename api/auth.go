package api

import (
	"context"
	"net/url"

	"github.com/pkg/errors"
)

// AuthService covers login, registration and the refresh exchange. Only
// Me requires a bearer token; everything else goes over the plain client
// so that authentication can be established (or re-established) without
// already holding a token.
type AuthService struct {
	client *Client
}

// Login authenticates with id and password. The contract passes
// credentials as query parameters on a GET.
func (s *AuthService) Login(ctx context.Context, id, password string) (*AuthResponse, error) {
	query := url.Values{}
	query.Set("id", id)
	query.Set("password", password)

	var out AuthResponse
	if err := s.client.plainGet(ctx, "/api/user/login", query, &out); err != nil {
		return nil, errors.Wrap(err, "[AuthService.Login]")
	}
	return &out, nil
}

type RegisterRequest struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := s.client.plainPost(ctx, "/api/user/register", req, &out); err != nil {
		return nil, errors.Wrap(err, "[AuthService.Register]")
	}
	return &out, nil
}

// Me returns the account behind the current token.
func (s *AuthService) Me(ctx context.Context) (*User, error) {
	var out User
	if err := s.client.get(ctx, "/api/user", nil, &out); err != nil {
		return nil, errors.Wrap(err, "[AuthService.Me]")
	}
	return &out, nil
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh exchanges the refresh credential for fresh tokens.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	var out AuthResponse
	if err := s.client.plainPost(ctx, "/api/auth/refresh", refreshRequest{RefreshToken: refreshToken}, &out); err != nil {
		return nil, errors.Wrap(err, "[AuthService.Refresh]")
	}
	return &out, nil
}

type availabilityResponse struct {
	Available bool `json:"available"`
}

// CheckAvailability reports whether an account id is free to register.
func (s *AuthService) CheckAvailability(ctx context.Context, id string) (bool, error) {
	query := url.Values{}
	query.Set("id", id)

	var out availabilityResponse
	if err := s.client.plainGet(ctx, "/api/user/check-availability", query, &out); err != nil {
		return false, errors.Wrap(err, "[AuthService.CheckAvailability]")
	}
	return out.Available, nil
}

type resetPasswordRequest struct {
	Email string `json:"email"`
}

func (s *AuthService) ResetPassword(ctx context.Context, email string) error {
	if err := s.client.plainPost(ctx, "/api/user/reset-password", resetPasswordRequest{Email: email}, nil); err != nil {
		return errors.Wrap(err, "[AuthService.ResetPassword]")
	}
	return nil
}
