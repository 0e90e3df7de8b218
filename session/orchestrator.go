// Package session composes the token store and idle detector with the
// request pipeline to enforce the session policy: silent refresh,
// warn-and-countdown, or forced logout.
package session

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/bumaview/bumaview-go/idle"
	"github.com/bumaview/bumaview-go/token"
)

// State is the orchestrator's position in the session lifecycle.
type State int

const (
	// StateLoggedOut is both the initial state and the terminal state of
	// a session instance. A new login starts a fresh session.
	StateLoggedOut State = iota
	// StateActive: token valid, user active or idle timeout not reached.
	StateActive
	// StateWarning: countdown running before a forced logout.
	StateWarning
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "ACTIVE"
	case StateWarning:
		return "WARNING"
	case StateLoggedOut:
		return "LOGGED_OUT"
	default:
		return "UNKNOWN"
	}
}

// LogoutReason distinguishes why a session ended, so callers can show
// "session expired" and "logged out" differently.
type LogoutReason int

const (
	LogoutManual LogoutReason = iota
	LogoutIdle
	LogoutExpired
	LogoutRefreshFailed
)

func (r LogoutReason) String() string {
	switch r {
	case LogoutManual:
		return "manual"
	case LogoutIdle:
		return "idle"
	case LogoutExpired:
		return "expired"
	case LogoutRefreshFailed:
		return "refresh_failed"
	default:
		return "unknown"
	}
}

// Credentials is the result of a login or refresh.
type Credentials struct {
	AccessToken  string
	RefreshToken string        // empty when the server did not rotate it
	ExpiresIn    time.Duration // zero when the server sent no expiresIn
}

// Refresher exchanges the refresh credential for new credentials. The API
// client's auth service is the production implementation.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (Credentials, error)
}

// Handlers are the orchestrator's notifications to the UI layer.
// Single-subscriber contract: exactly one set of handlers, registered at
// construction; there is no fan-out and no ordering ambiguity. Handlers
// run on the orchestrator's timer goroutines and must not block.
type Handlers struct {
	// OnWarning fires on Active -> Warning with the countdown duration.
	OnWarning func(countdown time.Duration)
	// OnExtended fires on Warning -> Active via Extend.
	OnExtended func()
	// OnLoggedOut fires exactly once per session on any -> LoggedOut.
	OnLoggedOut func(reason LogoutReason)
}

const (
	defaultIdleTimeout   = 30 * time.Minute
	defaultCheckInterval = 5 * time.Minute
	defaultSoonWindow    = 10 * time.Minute
	defaultWarnCountdown = 5 * time.Minute
)

// Orchestrator owns the session state machine. One instance lives for the
// lifetime of the client application; the token store and idle detector
// are owned exclusively by it and must not be mutated elsewhere.
type Orchestrator struct {
	tokens    *token.Store
	detector  *idle.Detector
	refresher Refresher
	snapshots *SnapshotStore
	handlers  Handlers
	logger    zerolog.Logger

	idleTimeout   time.Duration
	checkInterval time.Duration
	soonWindow    time.Duration
	warnCountdown time.Duration

	mu           sync.Mutex
	state        State
	user         User
	refreshToken string
	countdown    *time.Timer
	countdownEnd time.Time
	warnReason   LogoutReason
	stopWatcher  chan struct{}
	// generation increments on logout; a refresh that resolves after its
	// generation ended is discarded.
	generation uint64

	group   singleflight.Group
	nowFunc func() time.Time
}

type OrchestratorOption func(*Orchestrator)

// WithIdleTimeout sets the inactivity window before the warning fires.
func WithIdleTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.idleTimeout = d }
}

// WithExpiryCheckInterval sets how often the token expiry is re-checked
// while authenticated.
func WithExpiryCheckInterval(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.checkInterval = d }
}

// WithExpiringSoonWindow sets how close to expiry the periodic check
// considers "soon".
func WithExpiringSoonWindow(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.soonWindow = d }
}

// WithWarningCountdown sets how long the warning countdown runs before a
// forced logout.
func WithWarningCountdown(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.warnCountdown = d }
}

func WithHandlers(h Handlers) OrchestratorOption {
	return func(o *Orchestrator) { o.handlers = h }
}

func WithLogger(logger zerolog.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithNowFunc sets the now time function (primarily for testing)
func WithNowFunc(nowFunc func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) { o.nowFunc = nowFunc }
}

// NewOrchestrator wires the session components together. snapshots may be
// nil, in which case no warm-start state is persisted.
func NewOrchestrator(tokens *token.Store, detector *idle.Detector, refresher Refresher, snapshots *SnapshotStore, options ...OrchestratorOption) (*Orchestrator, error) {
	if tokens == nil {
		return nil, errors.New("[NewOrchestrator] token store is required")
	}
	if detector == nil {
		return nil, errors.New("[NewOrchestrator] idle detector is required")
	}
	if refresher == nil {
		return nil, errors.New("[NewOrchestrator] refresher is required")
	}

	o := &Orchestrator{
		tokens:        tokens,
		detector:      detector,
		refresher:     refresher,
		snapshots:     snapshots,
		logger:        zerolog.Nop(),
		idleTimeout:   defaultIdleTimeout,
		checkInterval: defaultCheckInterval,
		soonWindow:    defaultSoonWindow,
		warnCountdown: defaultWarnCountdown,
		state:         StateLoggedOut,
		nowFunc:       time.Now,
	}
	for _, opt := range options {
		opt(o)
	}
	return o, nil
}

// Start begins a session with credentials obtained from a login. It arms
// the idle detector and the periodic expiry check.
func (o *Orchestrator) Start(user User, creds Credentials) error {
	o.mu.Lock()
	if o.state != StateLoggedOut {
		o.mu.Unlock()
		return errors.Wrap(ErrAlreadyActive, "[Orchestrator.Start]")
	}

	o.state = StateActive
	o.user = user
	if err := o.applyCredentialsLocked(creds); err != nil {
		o.state = StateLoggedOut
		o.mu.Unlock()
		return errors.Wrap(err, "[Orchestrator.Start] store credentials")
	}

	gen := o.generation
	stop := make(chan struct{})
	o.stopWatcher = stop
	o.mu.Unlock()

	if err := o.detector.Start(idle.Config{
		Timeout: o.idleTimeout,
		OnIdle:  o.handleIdle,
	}); err != nil {
		o.mu.Lock()
		o.state = StateLoggedOut
		o.stopWatcher = nil
		o.mu.Unlock()
		return errors.Wrap(err, "[Orchestrator.Start] idle detector")
	}

	// A concurrent Logout may have torn the session down between the
	// unlock and the detector start; don't leave the detector running or
	// spawn a watcher for a session that already ended.
	o.mu.Lock()
	if o.generation != gen || o.state != StateActive {
		o.mu.Unlock()
		o.detector.Stop()
		return errors.Wrap(ErrSessionEnded, "[Orchestrator.Start]")
	}
	o.mu.Unlock()

	go o.watchExpiry(stop)

	o.logger.Info().Str("user", user.ID).Msg("session started")
	return nil
}

// Resume re-establishes a session from the persisted snapshot: hydrate,
// then one silent refresh with the stored refresh credential. Returns
// ErrNoSnapshot for a cold start.
func (o *Orchestrator) Resume(ctx context.Context) error {
	if o.snapshots == nil {
		return ErrNoSnapshot
	}
	snap, err := o.snapshots.Hydrate()
	if err != nil {
		return err
	}
	if snap.RefreshToken == "" {
		return errors.Wrap(ErrNoRefreshToken, "[Orchestrator.Resume]")
	}

	creds, err := o.refresher.Refresh(ctx, snap.RefreshToken)
	if err != nil {
		// The stored credential is dead; drop it so the next start is
		// cleanly cold.
		_ = o.snapshots.Clear()
		return errors.Wrap(err, "[Orchestrator.Resume] refresh")
	}
	if creds.RefreshToken == "" {
		creds.RefreshToken = snap.RefreshToken
	}
	return o.Start(snap.User, creds)
}

// CurrentUser returns the identity of the session owner.
func (o *Orchestrator) CurrentUser() (User, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == StateLoggedOut {
		return User{}, false
	}
	return o.user, true
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// IsAuthenticated reports whether a session is established. When a
// snapshot store is configured, the answer is not trustworthy before
// hydration completes; callers doing warm starts should call Resume (or
// at least Hydrate) first.
func (o *Orchestrator) IsAuthenticated() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state == StateActive || o.state == StateWarning
}

// WarningRemaining returns time left on the warning countdown, floored at
// zero; zero when not in Warning.
func (o *Orchestrator) WarningRemaining() time.Duration {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateWarning {
		return 0
	}
	remaining := o.countdownEnd.Sub(o.nowFunc())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Token implements transport.TokenSource. It returns the current token,
// silently refreshing first when it is expired. The caller's request
// awaits the refresh; on failure the session ends and the request fails
// with an authentication error instead of going out unauthenticated.
func (o *Orchestrator) Token(ctx context.Context) (string, error) {
	o.mu.Lock()
	if o.state == StateLoggedOut {
		o.mu.Unlock()
		return "", ErrNotAuthenticated
	}
	if !o.tokens.IsExpired() {
		tok := o.tokens.Token()
		o.mu.Unlock()
		return tok, nil
	}
	o.mu.Unlock()

	return o.refreshShared(ctx)
}

// ForceRefresh implements transport.TokenSource; the pipeline calls it
// after a 401 proved the attached token invalid.
func (o *Orchestrator) ForceRefresh(ctx context.Context) (string, error) {
	o.mu.Lock()
	if o.state == StateLoggedOut {
		o.mu.Unlock()
		return "", ErrNotAuthenticated
	}
	o.mu.Unlock()

	return o.refreshShared(ctx)
}

// Extend is the user's "keep me signed in" action from the warning
// dialog. The countdown is cancelled first, then the idle timer re-arms.
// If the token itself is close to hard expiry, Extend also performs a
// pre-emptive refresh: extending must not be followed by an immediate
// expiry logout.
func (o *Orchestrator) Extend(ctx context.Context) error {
	o.mu.Lock()
	if o.state != StateWarning {
		o.mu.Unlock()
		return nil
	}
	if o.countdown != nil {
		o.countdown.Stop()
		o.countdown = nil
	}
	o.state = StateActive
	needRefresh := o.tokens.IsExpiringSoon(o.soonWindow)
	o.mu.Unlock()

	o.detector.Reset()
	o.logger.Info().Msg("session extended")
	if h := o.handlers.OnExtended; h != nil {
		h()
	}

	if needRefresh {
		if _, err := o.refreshShared(ctx); err != nil {
			return errors.Wrap(err, "[Orchestrator.Extend] refresh")
		}
	}
	return nil
}

// Logout ends the session at the user's request.
func (o *Orchestrator) Logout() {
	o.mu.Lock()
	notify := o.forceLogoutLocked(LogoutManual)
	o.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// refreshShared performs the single-flight silent refresh. Concurrent
// callers observing an expired token share one network call and one
// result. A result arriving after the session ended is discarded.
func (o *Orchestrator) refreshShared(ctx context.Context) (string, error) {
	o.mu.Lock()
	gen := o.generation
	refreshToken := o.refreshToken
	o.mu.Unlock()

	if refreshToken == "" {
		o.mu.Lock()
		notify := o.forceLogoutLocked(LogoutRefreshFailed)
		o.mu.Unlock()
		if notify != nil {
			notify()
		}
		return "", errors.Wrap(ErrNoRefreshToken, "[Orchestrator.refreshShared]")
	}

	// The flight key carries the generation: callers of a later session
	// must never join a refresh still in flight from a logged-out one.
	v, err, shared := o.group.Do(strconv.FormatUint(gen, 10), func() (interface{}, error) {
		creds, err := o.refresher.Refresh(ctx, refreshToken)
		if err != nil {
			return nil, err
		}
		return creds, nil
	})
	if shared {
		o.logger.Debug().Msg("joined in-flight refresh")
	}

	o.mu.Lock()
	if o.generation != gen || o.state == StateLoggedOut {
		// Logout happened while the refresh was in flight; its result is
		// moot either way.
		o.mu.Unlock()
		return "", ErrSessionEnded
	}
	if err != nil {
		o.logger.Warn().Err(err).Msg("silent refresh failed")
		notify := o.forceLogoutLocked(LogoutRefreshFailed)
		o.mu.Unlock()
		if notify != nil {
			notify()
		}
		return "", errors.Wrap(err, "[Orchestrator.refreshShared] refresh")
	}

	creds := v.(Credentials)
	if err := o.applyCredentialsLocked(creds); err != nil {
		o.mu.Unlock()
		return "", errors.Wrap(err, "[Orchestrator.refreshShared] store credentials")
	}
	tok := o.tokens.Token()
	o.mu.Unlock()

	o.logger.Debug().Msg("silent refresh succeeded")
	return tok, nil
}

// applyCredentialsLocked stores a new access token, rotates the refresh
// credential when the server sent one, and persists the snapshot. Caller
// holds o.mu.
func (o *Orchestrator) applyCredentialsLocked(creds Credentials) error {
	if err := o.tokens.SetToken(creds.AccessToken, creds.ExpiresIn); err != nil {
		return err
	}
	if creds.RefreshToken != "" {
		o.refreshToken = creds.RefreshToken
	}
	if o.snapshots != nil {
		if err := o.snapshots.Save(Snapshot{
			User:         o.user,
			RefreshToken: o.refreshToken,
			SavedAt:      o.nowFunc(),
		}); err != nil {
			return err
		}
	}
	return nil
}

// handleIdle is the idle detector's OnIdle callback.
func (o *Orchestrator) handleIdle() {
	o.mu.Lock()
	notify := o.enterWarningLocked(LogoutIdle)
	o.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// watchExpiry is the periodic expiry check. While Active it looks for a
// token nearing expiry; while Warning it looks for a token that
// hard-expired mid-countdown.
func (o *Orchestrator) watchExpiry(stop <-chan struct{}) {
	ticker := time.NewTicker(o.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			o.mu.Lock()
			var notify func()
			switch o.state {
			case StateActive:
				if o.tokens.IsExpiringSoon(o.soonWindow) {
					notify = o.enterWarningLocked(LogoutExpired)
				}
			case StateWarning:
				if o.tokens.IsExpired() {
					notify = o.forceLogoutLocked(LogoutExpired)
				}
			case StateLoggedOut:
			}
			o.mu.Unlock()
			if notify != nil {
				notify()
			}
		}
	}
}

// enterWarningLocked starts the countdown. Idempotent across triggers:
// the idle timer and the expiry check race into the same state, the first
// one in governs the countdown and later triggers are ignored. Caller
// holds o.mu; the returned callback must run after unlocking.
func (o *Orchestrator) enterWarningLocked(reason LogoutReason) func() {
	if o.state != StateActive {
		return nil
	}

	o.state = StateWarning
	o.warnReason = reason
	o.countdownEnd = o.nowFunc().Add(o.warnCountdown)
	o.countdown = time.AfterFunc(o.warnCountdown, o.countdownElapsed)

	o.logger.Info().
		Str("trigger", reason.String()).
		Dur("countdown", o.warnCountdown).
		Msg("session warning")

	countdown := o.warnCountdown
	return func() {
		if h := o.handlers.OnWarning; h != nil {
			h(countdown)
		}
	}
}

// countdownElapsed fires when the warning countdown reaches zero.
func (o *Orchestrator) countdownElapsed() {
	o.mu.Lock()
	if o.state != StateWarning {
		o.mu.Unlock()
		return
	}
	notify := o.forceLogoutLocked(o.warnReason)
	o.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// forceLogoutLocked is the universal cancellation point: it tears down
// the idle timer, the warning countdown and the expiry watcher, clears
// the token store and snapshot, and bumps the generation so in-flight
// refresh results are discarded. Caller holds o.mu; the returned callback
// must run after unlocking. Returns nil when already logged out.
func (o *Orchestrator) forceLogoutLocked(reason LogoutReason) func() {
	if o.state == StateLoggedOut {
		return nil
	}

	o.generation++
	o.state = StateLoggedOut
	o.refreshToken = ""
	o.user = User{}

	if o.countdown != nil {
		o.countdown.Stop()
		o.countdown = nil
	}
	if o.stopWatcher != nil {
		close(o.stopWatcher)
		o.stopWatcher = nil
	}
	o.detector.Stop()
	if err := o.tokens.Clear(); err != nil {
		o.logger.Warn().Err(err).Msg("clearing token store on logout")
	}
	if o.snapshots != nil {
		if err := o.snapshots.Clear(); err != nil {
			o.logger.Warn().Err(err).Msg("clearing auth snapshot on logout")
		}
	}

	o.logger.Info().Str("reason", reason.String()).Msg("session logged out")

	return func() {
		if h := o.handlers.OnLoggedOut; h != nil {
			h(reason)
		}
	}
}
