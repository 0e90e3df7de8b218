package api

import (
	"context"

	"github.com/pkg/errors"
)

// UserService is the admin CRUD surface for accounts. All operations
// require an ADMIN role token; a USER token gets a 403 back, classified
// as forbidden.
type UserService struct {
	client *Client
}

func (s *UserService) List(ctx context.Context) ([]User, error) {
	var out []User
	if err := s.client.get(ctx, "/api/user/all", nil, &out); err != nil {
		return nil, errors.Wrap(err, "[UserService.List]")
	}
	return out, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*User, error) {
	var out User
	if err := s.client.get(ctx, "/api/user/"+id, nil, &out); err != nil {
		return nil, errors.Wrap(err, "[UserService.Get]")
	}
	return &out, nil
}

type UserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role,omitempty"`
	Password string `json:"password,omitempty"`
}

func (s *UserService) Create(ctx context.Context, req UserRequest) (*User, error) {
	var out User
	if err := s.client.post(ctx, "/api/user", req, &out); err != nil {
		return nil, errors.Wrap(err, "[UserService.Create]")
	}
	return &out, nil
}

func (s *UserService) Update(ctx context.Context, id string, req UserRequest) (*User, error) {
	var out User
	if err := s.client.put(ctx, "/api/user/"+id, req, &out); err != nil {
		return nil, errors.Wrap(err, "[UserService.Update]")
	}
	return &out, nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.client.delete(ctx, "/api/user/"+id); err != nil {
		return errors.Wrap(err, "[UserService.Delete]")
	}
	return nil
}
