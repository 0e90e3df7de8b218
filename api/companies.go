package api

import (
	"context"

	"github.com/pkg/errors"
)

// CompanyService is the admin CRUD surface for companies.
type CompanyService struct {
	client *Client
}

func (s *CompanyService) List(ctx context.Context) ([]Company, error) {
	var out []Company
	if err := s.client.get(ctx, "/api/company", nil, &out); err != nil {
		return nil, errors.Wrap(err, "[CompanyService.List]")
	}
	return out, nil
}

func (s *CompanyService) Get(ctx context.Context, id int64) (*Company, error) {
	var out Company
	if err := s.client.get(ctx, "/api/company/"+itoa(id), nil, &out); err != nil {
		return nil, errors.Wrap(err, "[CompanyService.Get]")
	}
	return &out, nil
}

type CompanyRequest struct {
	Name     string `json:"name"`
	Industry string `json:"industry,omitempty"`
	Location string `json:"location,omitempty"`
}

func (s *CompanyService) Create(ctx context.Context, req CompanyRequest) (*Company, error) {
	var out Company
	if err := s.client.post(ctx, "/api/company", req, &out); err != nil {
		return nil, errors.Wrap(err, "[CompanyService.Create]")
	}
	return &out, nil
}

func (s *CompanyService) Update(ctx context.Context, id int64, req CompanyRequest) (*Company, error) {
	var out Company
	if err := s.client.put(ctx, "/api/company/"+itoa(id), req, &out); err != nil {
		return nil, errors.Wrap(err, "[CompanyService.Update]")
	}
	return &out, nil
}

func (s *CompanyService) Delete(ctx context.Context, id int64) error {
	if err := s.client.delete(ctx, "/api/company/"+itoa(id)); err != nil {
		return errors.Wrap(err, "[CompanyService.Delete]")
	}
	return nil
}
