package api

import (
	"context"

	"github.com/pkg/errors"
)

// BookmarkService manages the caller's bookmarked questions.
type BookmarkService struct {
	client *Client
}

func (s *BookmarkService) List(ctx context.Context) ([]Bookmark, error) {
	var out []Bookmark
	if err := s.client.get(ctx, "/api/bookmark", nil, &out); err != nil {
		return nil, errors.Wrap(err, "[BookmarkService.List]")
	}
	return out, nil
}

type bookmarkRequest struct {
	InterviewID int64 `json:"interviewId"`
}

func (s *BookmarkService) Add(ctx context.Context, interviewID int64) (*Bookmark, error) {
	var out Bookmark
	if err := s.client.post(ctx, "/api/bookmark", bookmarkRequest{InterviewID: interviewID}, &out); err != nil {
		return nil, errors.Wrap(err, "[BookmarkService.Add]")
	}
	return &out, nil
}

// Remove deletes the bookmark for an interview question.
func (s *BookmarkService) Remove(ctx context.Context, interviewID int64) error {
	if err := s.client.delete(ctx, "/api/bookmark/"+itoa(interviewID)); err != nil {
		return errors.Wrap(err, "[BookmarkService.Remove]")
	}
	return nil
}
