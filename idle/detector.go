// Package idle detects periods of no user interaction and signals
// idle/active transitions to a single subscriber.
package idle

import (
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Event names a kind of user-interaction signal. Activity sources feed
// events to the detector via Observe; only configured events re-arm the
// idle timer.
type Event string

const (
	EventPointerDown Event = "pointerdown"
	EventPointerMove Event = "pointermove"
	EventKeyPress    Event = "keypress"
	EventScroll      Event = "scroll"
	EventTouchStart  Event = "touchstart"
	EventClick       Event = "click"
)

// DefaultEvents returns the activity events observed when Config.Events
// is empty.
func DefaultEvents() []Event {
	return []Event{
		EventPointerDown,
		EventPointerMove,
		EventKeyPress,
		EventScroll,
		EventTouchStart,
		EventClick,
	}
}

// Config configures a detector run. OnIdle and OnActive are invoked from
// the detector's timer goroutine or from the Observe caller; they must
// not block. Single-subscriber: one callback per transition, no fan-out.
type Config struct {
	// Timeout is the inactivity window after which OnIdle fires.
	Timeout  time.Duration
	OnIdle   func()
	OnActive func()
	// Events restricts which activity kinds re-arm the timer. Empty means
	// DefaultEvents.
	Events []Event
	// StartManually leaves the timer unarmed until the first Reset call.
	StartManually bool
}

// Detector tracks the time since the last qualifying activity event.
// Exactly one timer is armed at any moment; every qualifying event
// replaces it, so high-frequency events (pointer moves) cost one timer
// reset each and nothing more.
type Detector struct {
	mu           sync.Mutex
	cfg          Config
	qualifying   map[Event]struct{}
	timer        *time.Timer
	lastActivity time.Time
	idle         bool
	running      bool
	armed        bool
	nowFunc      func() time.Time
}

type DetectorOption func(*Detector)

// WithNowFunc sets the now time function (primarily for testing)
func WithNowFunc(nowFunc func() time.Time) DetectorOption {
	return func(d *Detector) {
		d.nowFunc = nowFunc
	}
}

func NewDetector(options ...DetectorOption) *Detector {
	d := &Detector{nowFunc: time.Now}
	for _, opt := range options {
		opt(d)
	}
	return d
}

// Start begins observing activity with the given configuration. Unless
// StartManually is set, the idle timer is armed immediately.
func (d *Detector) Start(cfg Config) error {
	if cfg.Timeout <= 0 {
		return errors.New("[Detector.Start] timeout must be positive")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return errors.New("[Detector.Start] already running")
	}

	events := cfg.Events
	if len(events) == 0 {
		events = DefaultEvents()
	}
	d.qualifying = make(map[Event]struct{}, len(events))
	for _, ev := range events {
		d.qualifying[ev] = struct{}{}
	}

	d.cfg = cfg
	d.running = true
	d.idle = false
	d.lastActivity = d.nowFunc()

	if !cfg.StartManually {
		d.armLocked()
	}
	return nil
}

// Observe reports a user-activity event. Non-qualifying events are
// ignored; qualifying events re-arm the timer and, when the detector was
// idle, flip it back to active.
func (d *Detector) Observe(ev Event) {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	if _, ok := d.qualifying[ev]; !ok {
		d.mu.Unlock()
		return
	}
	onActive := d.resetLocked()
	d.mu.Unlock()

	if onActive != nil {
		onActive()
	}
}

// Reset re-arms the idle timer from now. If the detector was idle,
// OnActive fires and the state flips back to active. Callers use this for
// activity the event set does not capture, such as an explicit
// extend-session action.
func (d *Detector) Reset() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	onActive := d.resetLocked()
	d.mu.Unlock()

	if onActive != nil {
		onActive()
	}
}

// resetLocked re-arms the timer and returns the OnActive callback to run
// outside the lock, or nil when no transition happened.
func (d *Detector) resetLocked() func() {
	d.lastActivity = d.nowFunc()
	wasIdle := d.idle
	d.idle = false
	d.armLocked()
	if wasIdle {
		return d.cfg.OnActive
	}
	return nil
}

// Stop cancels the timer and stops observing. Idempotent: a second Stop
// is a no-op. No callbacks fire after Stop returns until Start is called
// again.
func (d *Detector) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.running = false
	d.armed = false
	d.idle = false
}

// IsIdle reports whether the configured timeout has elapsed with no
// qualifying activity.
func (d *Detector) IsIdle() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.idle
}

// IsRunning reports whether the detector is observing activity.
func (d *Detector) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// LastActivity returns the instant of the last qualifying event.
func (d *Detector) LastActivity() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastActivity
}

// Remaining returns the time left before OnIdle fires, floored at zero.
func (d *Detector) Remaining() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running || !d.armed || d.idle {
		return 0
	}
	remaining := d.cfg.Timeout - d.nowFunc().Sub(d.lastActivity)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// armLocked replaces the in-flight timer with a fresh one. Caller holds
// the lock.
func (d *Detector) armLocked() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.armed = true
	d.timer = time.AfterFunc(d.cfg.Timeout, d.fire)
}

// fire runs when the armed timer elapses. A stale timer that lost the
// Stop race re-arms for the remainder instead of flipping to idle.
func (d *Detector) fire() {
	d.mu.Lock()
	if !d.running || d.idle {
		d.mu.Unlock()
		return
	}
	elapsed := d.nowFunc().Sub(d.lastActivity)
	if elapsed < d.cfg.Timeout {
		d.timer = time.AfterFunc(d.cfg.Timeout-elapsed, d.fire)
		d.mu.Unlock()
		return
	}
	d.idle = true
	onIdle := d.cfg.OnIdle
	d.mu.Unlock()

	if onIdle != nil {
		onIdle()
	}
}
