package api

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
)

// AssistService talks to the secondary AI-assist API. It shares the
// authenticated pipeline but targets the AI base URL.
type AssistService struct {
	client *Client
}

type followUpRequest struct {
	Question string `json:"question"`
}

type followUpResponse struct {
	Questions []string `json:"questions"`
}

// FollowUps asks the assist service for likely follow-up questions to an
// interview question.
func (s *AssistService) FollowUps(ctx context.Context, question string) ([]string, error) {
	var out followUpResponse
	err := s.client.do(ctx, s.client.authed, s.client.aiURL, http.MethodPost,
		"/api/assist/follow-up", nil, followUpRequest{Question: question}, &out)
	if err != nil {
		return nil, errors.Wrap(err, "[AssistService.FollowUps]")
	}
	return out.Questions, nil
}
