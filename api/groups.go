package api

import (
	"context"

	"github.com/pkg/errors"
)

// GroupService manages question groups and their membership.
type GroupService struct {
	client *Client
}

func (s *GroupService) List(ctx context.Context) ([]Group, error) {
	var out []Group
	if err := s.client.get(ctx, "/api/group", nil, &out); err != nil {
		return nil, errors.Wrap(err, "[GroupService.List]")
	}
	return out, nil
}

func (s *GroupService) Get(ctx context.Context, id int64) (*Group, error) {
	var out Group
	if err := s.client.get(ctx, "/api/group/"+itoa(id), nil, &out); err != nil {
		return nil, errors.Wrap(err, "[GroupService.Get]")
	}
	return &out, nil
}

type GroupRequest struct {
	Name string `json:"name"`
}

func (s *GroupService) Create(ctx context.Context, req GroupRequest) (*Group, error) {
	var out Group
	if err := s.client.post(ctx, "/api/group", req, &out); err != nil {
		return nil, errors.Wrap(err, "[GroupService.Create]")
	}
	return &out, nil
}

func (s *GroupService) Update(ctx context.Context, id int64, req GroupRequest) (*Group, error) {
	var out Group
	if err := s.client.put(ctx, "/api/group/"+itoa(id), req, &out); err != nil {
		return nil, errors.Wrap(err, "[GroupService.Update]")
	}
	return &out, nil
}

func (s *GroupService) Delete(ctx context.Context, id int64) error {
	if err := s.client.delete(ctx, "/api/group/"+itoa(id)); err != nil {
		return errors.Wrap(err, "[GroupService.Delete]")
	}
	return nil
}

// AddInterview puts a question into a group.
func (s *GroupService) AddInterview(ctx context.Context, groupID, interviewID int64) error {
	path := "/api/group/" + itoa(groupID) + "/interview/" + itoa(interviewID)
	if err := s.client.post(ctx, path, nil, nil); err != nil {
		return errors.Wrap(err, "[GroupService.AddInterview]")
	}
	return nil
}

// RemoveInterview takes a question out of a group.
func (s *GroupService) RemoveInterview(ctx context.Context, groupID, interviewID int64) error {
	path := "/api/group/" + itoa(groupID) + "/interview/" + itoa(interviewID)
	if err := s.client.delete(ctx, path); err != nil {
		return errors.Wrap(err, "[GroupService.RemoveInterview]")
	}
	return nil
}
