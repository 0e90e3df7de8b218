package api

import (
	"context"
	"net/url"
	"strconv"

	"github.com/pkg/errors"
)

// InterviewService is the CRUD surface for interview questions.
type InterviewService struct {
	client *Client
}

// InterviewFilter narrows a listing. Zero values mean "no constraint".
type InterviewFilter struct {
	Company  string
	Category string
	Year     int
	Keyword  string
	Page     int
	Size     int
}

func (f InterviewFilter) query() url.Values {
	q := url.Values{}
	if f.Company != "" {
		q.Set("company", f.Company)
	}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Year > 0 {
		q.Set("year", strconv.Itoa(f.Year))
	}
	if f.Keyword != "" {
		q.Set("keyword", f.Keyword)
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Size > 0 {
		q.Set("size", strconv.Itoa(f.Size))
	}
	return q
}

// Key is a stable string form of the filter, usable as a cache key.
func (f InterviewFilter) Key() string {
	return f.query().Encode()
}

func (s *InterviewService) List(ctx context.Context, filter InterviewFilter) ([]Interview, error) {
	var out []Interview
	if err := s.client.get(ctx, "/api/interview", filter.query(), &out); err != nil {
		return nil, errors.Wrap(err, "[InterviewService.List]")
	}
	return out, nil
}

func (s *InterviewService) Get(ctx context.Context, id int64) (*Interview, error) {
	var out Interview
	if err := s.client.get(ctx, "/api/interview/"+itoa(id), nil, &out); err != nil {
		return nil, errors.Wrap(err, "[InterviewService.Get]")
	}
	return &out, nil
}

type InterviewRequest struct {
	Question  string `json:"question"`
	CompanyID int64  `json:"companyId,omitempty"`
	Category  string `json:"category,omitempty"`
	Year      int    `json:"year,omitempty"`
}

func (s *InterviewService) Create(ctx context.Context, req InterviewRequest) (*Interview, error) {
	var out Interview
	if err := s.client.post(ctx, "/api/interview", req, &out); err != nil {
		return nil, errors.Wrap(err, "[InterviewService.Create]")
	}
	return &out, nil
}

func (s *InterviewService) Update(ctx context.Context, id int64, req InterviewRequest) (*Interview, error) {
	var out Interview
	if err := s.client.put(ctx, "/api/interview/"+itoa(id), req, &out); err != nil {
		return nil, errors.Wrap(err, "[InterviewService.Update]")
	}
	return &out, nil
}

func (s *InterviewService) Delete(ctx context.Context, id int64) error {
	if err := s.client.delete(ctx, "/api/interview/"+itoa(id)); err != nil {
		return errors.Wrap(err, "[InterviewService.Delete]")
	}
	return nil
}
