// Package api is the typed client for the BumaView REST contract. It
// consumes the backend; it does not reimplement any of it. All services
// except the unauthenticated auth endpoints send requests through the
// authenticated pipeline wired in by the caller.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/bumaview/bumaview-go/apierr"
)

const (
	defaultRequestTimeout = 30 * time.Second

	// maxBodyBytes caps how much of a response is read into memory.
	maxBodyBytes = 4 << 20
)

// Client bundles the per-resource services sharing one base URL and one
// HTTP stack.
type Client struct {
	baseURL *url.URL
	aiURL   *url.URL
	authed  *http.Client
	plain   *http.Client
	logger  zerolog.Logger

	Auth       *AuthService
	Interviews *InterviewService
	Companies  *CompanyService
	Groups     *GroupService
	Bookmarks  *BookmarkService
	Answers    *AnswerService
	Users      *UserService
	Assist     *AssistService
}

type ClientOption func(*Client)

// WithAuthedClient sets the HTTP client for authenticated calls. This is
// where the transport pipeline is wired in.
func WithAuthedClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.authed = hc
	}
}

// WithPlainClient sets the HTTP client for unauthenticated calls (login,
// register, availability check, password reset, refresh).
func WithPlainClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.plain = hc
	}
}

// WithAIBaseURL sets the secondary AI-assist API endpoint.
func WithAIBaseURL(raw string) ClientOption {
	return func(c *Client) {
		if u, err := url.Parse(raw); err == nil {
			c.aiURL = u
		}
	}
}

func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

func NewClient(baseURL string, options ...ClientOption) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "[NewClient] parse base URL")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("[NewClient] base URL %q missing scheme or host", baseURL)
	}

	c := &Client{
		baseURL: u,
		aiURL:   u,
		plain:   &http.Client{Timeout: defaultRequestTimeout},
		logger:  zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	if c.authed == nil {
		c.authed = c.plain
	}

	c.Auth = &AuthService{client: c}
	c.Interviews = &InterviewService{client: c}
	c.Companies = &CompanyService{client: c}
	c.Groups = &GroupService{client: c}
	c.Bookmarks = &BookmarkService{client: c}
	c.Answers = &AnswerService{client: c}
	c.Users = &UserService{client: c}
	c.Assist = &AssistService{client: c}
	return c, nil
}

// do issues one request and decodes the response into out (when non-nil).
// Error responses come back classified; transport failures come back as
// network errors unless the pipeline already classified them.
func (c *Client) do(ctx context.Context, hc *http.Client, base *url.URL, method, path string, query url.Values, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "[Client.do] encode request body")
		}
		reader = bytes.NewReader(data)
	}

	u := base.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return errors.Wrap(err, "[Client.do] build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		var classified *apierr.Error
		if stderrors.As(err, &classified) {
			return classified
		}
		return apierr.Network(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return apierr.Network(err)
	}

	if resp.StatusCode >= 400 {
		e := apierr.Classify(resp.StatusCode, data)
		c.logger.Debug().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Str("kind", e.Kind.String()).
			Msg("request failed")
		return e
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "[Client.do] decode %s %s response", method, path)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.do(ctx, c.authed, c.baseURL, http.MethodGet, path, query, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, c.authed, c.baseURL, http.MethodPost, path, nil, body, out)
}

func (c *Client) put(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, c.authed, c.baseURL, http.MethodPut, path, nil, body, out)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, c.authed, c.baseURL, http.MethodDelete, path, nil, nil, nil)
}

func (c *Client) plainGet(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.do(ctx, c.plain, c.baseURL, http.MethodGet, path, query, nil, out)
}

func (c *Client) plainPost(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, c.plain, c.baseURL, http.MethodPost, path, nil, body, out)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
