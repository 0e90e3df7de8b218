// Package transport is the authenticated request pipeline: it attaches
// the bearer token to outgoing requests, awaits a silent refresh when the
// token is expired, and retries exactly once after a 401-triggered
// refresh.
package transport

import (
	"context"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/bumaview/bumaview-go/apierr"
)

const requestIDHeader = "X-Request-ID"

// TokenSource supplies bearer tokens for outgoing requests. The session
// orchestrator is the production implementation.
type TokenSource interface {
	// Token returns a token valid for immediate use, refreshing first if
	// the current one is expired. An error means authentication is not
	// recoverable and the request must fail rather than go out
	// unauthenticated.
	Token(ctx context.Context) (string, error)

	// ForceRefresh is called after a 401 proved the attached token
	// invalid. It returns a fresh token for the single retry, or an error
	// when the session is over.
	ForceRefresh(ctx context.Context) (string, error)
}

// Pipeline is an http.RoundTripper enforcing the session policy on every
// request.
type Pipeline struct {
	base    http.RoundTripper
	source  TokenSource
	limiter *rate.Limiter
	logger  zerolog.Logger
}

type PipelineOption func(*Pipeline)

// WithBase sets the underlying RoundTripper. Defaults to
// http.DefaultTransport.
func WithBase(rt http.RoundTripper) PipelineOption {
	return func(p *Pipeline) {
		p.base = rt
	}
}

// WithRateLimit throttles outgoing requests client-side. Useful against
// endpoints known to 429 under bursty navigation.
func WithRateLimit(limit rate.Limit, burst int) PipelineOption {
	return func(p *Pipeline) {
		p.limiter = rate.NewLimiter(limit, burst)
	}
}

func WithLogger(logger zerolog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

func NewPipeline(source TokenSource, options ...PipelineOption) *Pipeline {
	p := &Pipeline{
		base:   http.DefaultTransport,
		source: source,
		logger: zerolog.Nop(),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// RoundTrip implements http.RoundTripper.
//
// Requests whose body cannot be replayed (GetBody unset) are not retried
// after a 401; the 401 response is returned as-is for the caller to
// classify.
func (p *Pipeline) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, apierr.Network(err)
		}
	}

	tok, err := p.source.Token(ctx)
	if err != nil {
		return nil, apierr.Auth(err)
	}

	requestID := uuid.New().String()
	resp, err := p.send(req, tok, requestID)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	// The server rejected the token. One silent refresh, one retry.
	if req.Body != nil && req.GetBody == nil {
		return resp, nil
	}

	p.logger.Debug().
		Str("request_id", requestID).
		Str("path", req.URL.Path).
		Msg("401 received, attempting silent refresh")

	drain(resp)

	fresh, err := p.source.ForceRefresh(ctx)
	if err != nil {
		return nil, apierr.Auth(err)
	}
	return p.send(req, fresh, requestID)
}

// send issues a single attempt with the given token attached.
func (p *Pipeline) send(req *http.Request, token, requestID string) (*http.Response, error) {
	attempt := req.Clone(req.Context())
	if req.Body != nil && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, apierr.Network(err)
		}
		attempt.Body = body
	}
	attempt.Header.Set("Authorization", "Bearer "+token)
	attempt.Header.Set(requestIDHeader, requestID)

	resp, err := p.base.RoundTrip(attempt)
	if err != nil {
		return nil, apierr.Network(err)
	}
	return resp, nil
}

// drain discards and closes a response body so the underlying connection
// can be reused.
func drain(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	_ = resp.Body.Close()
}
