// Package bumaview assembles the full client: persisted key-value state,
// the token store, idle detection, the session orchestrator, the
// authenticated transport pipeline, the typed API client and the
// read-through cache, wired together with one call.
package bumaview

import (
	"context"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/bumaview/bumaview-go/api"
	"github.com/bumaview/bumaview-go/cache"
	"github.com/bumaview/bumaview-go/idle"
	"github.com/bumaview/bumaview-go/internal/config"
	"github.com/bumaview/bumaview-go/kv"
	"github.com/bumaview/bumaview-go/session"
	"github.com/bumaview/bumaview-go/token"
	"github.com/bumaview/bumaview-go/transport"
)

const stateFileName = "bumaview.json"

// Client is the assembled BumaView client.
type Client struct {
	API     *api.Client
	Session *session.Orchestrator
	Cache   *cache.Store

	snapshots *session.SnapshotStore
	logger    zerolog.Logger
}

type Option func(*builder)

type builder struct {
	logger     zerolog.Logger
	sessionKV  kv.Store
	durableKV  kv.Store
	handlers   session.Handlers
	baseRT     http.RoundTripper
	sessionOps []session.OrchestratorOption
}

func WithLogger(logger zerolog.Logger) Option {
	return func(b *builder) {
		b.logger = logger
	}
}

// WithSessionBackend replaces the default in-memory store holding the
// access token for the lifetime of the process.
func WithSessionBackend(store kv.Store) Option {
	return func(b *builder) {
		b.sessionKV = store
	}
}

// WithDurableBackend replaces the default file-backed store holding the
// auth snapshot and token expiry across restarts.
func WithDurableBackend(store kv.Store) Option {
	return func(b *builder) {
		b.durableKV = store
	}
}

// WithHandlers registers the UI notification callbacks.
func WithHandlers(h session.Handlers) Option {
	return func(b *builder) {
		b.handlers = h
	}
}

// WithBaseTransport replaces the pipeline's underlying round tripper.
// Mostly for tests.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(b *builder) {
		b.baseRT = rt
	}
}

// WithSessionOptions appends extra orchestrator options, applied after
// the ones derived from cfg.
func WithSessionOptions(opts ...session.OrchestratorOption) Option {
	return func(b *builder) {
		b.sessionOps = append(b.sessionOps, opts...)
	}
}

// New builds the client from configuration. The orchestrator is wired as
// the pipeline's token source, and the API client's auth service is wired
// as the orchestrator's refresher.
func New(cfg config.Config, options ...Option) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("[bumaview.New] config is required")
	}

	b := &builder{logger: zerolog.Nop()}
	for _, opt := range options {
		opt(b)
	}
	if b.sessionKV == nil {
		b.sessionKV = kv.NewMemory()
	}
	if b.durableKV == nil {
		b.durableKV = kv.NewFile(filepath.Join(cfg.GetStateFolder(), stateFileName))
	}

	tokens, err := token.NewStore(b.sessionKV, b.durableKV)
	if err != nil {
		return nil, errors.Wrap(err, "[bumaview.New]")
	}
	snapshots, err := session.NewSnapshotStore(b.durableKV)
	if err != nil {
		return nil, errors.Wrap(err, "[bumaview.New]")
	}
	detector := idle.NewDetector()

	// The pipeline needs a token source before the orchestrator exists;
	// the holder is filled in below, before anything can send a request.
	source := &sourceHolder{}
	pipelineOpts := []transport.PipelineOption{transport.WithLogger(b.logger)}
	if b.baseRT != nil {
		pipelineOpts = append(pipelineOpts, transport.WithBase(b.baseRT))
	}
	pipeline := transport.NewPipeline(source, pipelineOpts...)

	httpTimeout := cfg.GetRequestTimeout()
	apiClient, err := api.NewClient(cfg.GetAPIBaseURL(),
		api.WithAIBaseURL(cfg.GetAIBaseURL()),
		api.WithAuthedClient(&http.Client{Transport: pipeline, Timeout: httpTimeout}),
		api.WithPlainClient(&http.Client{Transport: b.baseRT, Timeout: httpTimeout}),
		api.WithLogger(b.logger),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[bumaview.New]")
	}

	sessionOpts := []session.OrchestratorOption{
		session.WithIdleTimeout(cfg.GetIdleTimeout()),
		session.WithExpiryCheckInterval(cfg.GetExpiryCheckInterval()),
		session.WithExpiringSoonWindow(cfg.GetExpiringSoonWindow()),
		session.WithWarningCountdown(cfg.GetWarningCountdown()),
		session.WithHandlers(b.handlers),
		session.WithLogger(b.logger),
	}
	sessionOpts = append(sessionOpts, b.sessionOps...)

	orch, err := session.NewOrchestrator(tokens, detector, refreshAdapter{auth: apiClient.Auth}, snapshots, sessionOpts...)
	if err != nil {
		return nil, errors.Wrap(err, "[bumaview.New]")
	}
	source.set(orch)

	store, err := cache.New(apiClient.Interviews, apiClient.Bookmarks, cache.WithLogger(b.logger))
	if err != nil {
		return nil, errors.Wrap(err, "[bumaview.New]")
	}

	return &Client{
		API:       apiClient,
		Session:   orch,
		Cache:     store,
		snapshots: snapshots,
		logger:    b.logger,
	}, nil
}

// Hydrated reports whether persisted auth state has been read. Callers
// must not trust Session.IsAuthenticated on a warm start before this is
// true; Resume completes hydration.
func (c *Client) Hydrated() bool {
	return c.snapshots.Hydrated()
}

// Login authenticates and starts the session lifecycle.
func (c *Client) Login(ctx context.Context, id, password string) (*api.User, error) {
	resp, err := c.API.Auth.Login(ctx, id, password)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.Login]")
	}

	user := session.User{}
	if resp.User != nil {
		user = session.User{ID: resp.User.ID, Username: resp.User.Username, Role: resp.User.Role}
	}
	creds := session.Credentials{
		AccessToken:  resp.BearerToken(),
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    time.Duration(resp.ExpiresIn) * time.Second,
	}
	if err := c.Session.Start(user, creds); err != nil {
		return nil, errors.Wrap(err, "[Client.Login]")
	}
	c.logger.Info().Str("user", user.ID).Msg("login complete")
	return resp.User, nil
}

// Resume restores a previous session from the persisted snapshot.
func (c *Client) Resume(ctx context.Context) error {
	if err := c.Session.Resume(ctx); err != nil {
		return errors.Wrap(err, "[Client.Resume]")
	}
	return nil
}

// Logout ends the session and drops persisted credentials.
func (c *Client) Logout() {
	c.Session.Logout()
	c.Cache.InvalidateBookmarks()
}

// Close releases background resources. The session, if still active, is
// logged out first.
func (c *Client) Close() {
	c.Session.Logout()
	c.Cache.Stop()
}

// refreshAdapter bridges the API auth service to the orchestrator's
// refresher contract.
type refreshAdapter struct {
	auth *api.AuthService
}

func (a refreshAdapter) Refresh(ctx context.Context, refreshToken string) (session.Credentials, error) {
	resp, err := a.auth.Refresh(ctx, refreshToken)
	if err != nil {
		return session.Credentials{}, err
	}
	return session.Credentials{
		AccessToken:  resp.BearerToken(),
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    time.Duration(resp.ExpiresIn) * time.Second,
	}, nil
}

// sourceHolder breaks the construction cycle between the transport
// pipeline and the orchestrator: the pipeline is built against the
// holder, the orchestrator is slotted in before New returns.
type sourceHolder struct {
	mu   sync.RWMutex
	orch *session.Orchestrator
}

func (h *sourceHolder) set(orch *session.Orchestrator) {
	h.mu.Lock()
	h.orch = orch
	h.mu.Unlock()
}

func (h *sourceHolder) get() *session.Orchestrator {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.orch
}

func (h *sourceHolder) Token(ctx context.Context) (string, error) {
	orch := h.get()
	if orch == nil {
		return "", session.ErrNotAuthenticated
	}
	return orch.Token(ctx)
}

func (h *sourceHolder) ForceRefresh(ctx context.Context) (string, error) {
	orch := h.get()
	if orch == nil {
		return "", session.ErrNotAuthenticated
	}
	return orch.ForceRefresh(ctx)
}
