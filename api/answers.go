package api

import (
	"context"
	"net/url"

	"github.com/pkg/errors"
)

// AnswerService manages replies to interview questions.
type AnswerService struct {
	client *Client
}

// ListByInterview returns the answers on one question.
func (s *AnswerService) ListByInterview(ctx context.Context, interviewID int64) ([]Answer, error) {
	query := url.Values{}
	query.Set("interviewId", itoa(interviewID))

	var out []Answer
	if err := s.client.get(ctx, "/api/answer", query, &out); err != nil {
		return nil, errors.Wrap(err, "[AnswerService.ListByInterview]")
	}
	return out, nil
}

type AnswerRequest struct {
	InterviewID int64  `json:"interviewId"`
	Content     string `json:"content"`
}

func (s *AnswerService) Create(ctx context.Context, req AnswerRequest) (*Answer, error) {
	var out Answer
	if err := s.client.post(ctx, "/api/answer", req, &out); err != nil {
		return nil, errors.Wrap(err, "[AnswerService.Create]")
	}
	return &out, nil
}

type answerUpdateRequest struct {
	Content string `json:"content"`
}

func (s *AnswerService) Update(ctx context.Context, id int64, content string) (*Answer, error) {
	var out Answer
	if err := s.client.put(ctx, "/api/answer/"+itoa(id), answerUpdateRequest{Content: content}, &out); err != nil {
		return nil, errors.Wrap(err, "[AnswerService.Update]")
	}
	return &out, nil
}

func (s *AnswerService) Delete(ctx context.Context, id int64) error {
	if err := s.client.delete(ctx, "/api/answer/"+itoa(id)); err != nil {
		return errors.Wrap(err, "[AnswerService.Delete]")
	}
	return nil
}
