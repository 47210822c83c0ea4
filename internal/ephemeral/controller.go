// Package ephemeral runs the per-viewer viewing sessions of snaps.
//
// A session moves unopened -> viewing -> consumed. The viewing -> consumed step can be
// triggered by the viewer closing the view, by the countdown of a timed snap, by the
// dwell cap of a view-once snap, or by the snap's absolute expiry. Whichever trigger
// wins, the consume callback runs exactly once per session.
package ephemeral

import (
	"errors"
	"sync"
	"time"

	"dm-service/internal/models"
)

var (
	ErrExpired  = errors.New("snap expired")
	ErrConsumed = errors.New("snap already consumed")
)

// Trigger names what ended a viewing session.
type Trigger string

const (
	TriggerClose  Trigger = "close"
	TriggerTimer  Trigger = "timer"
	TriggerDwell  Trigger = "dwell"
	TriggerExpiry Trigger = "expiry"
)

// Timer is the cancel handle of a scheduled callback.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// ConsumeFunc receives the single consume event of a session.
type ConsumeFunc func(s Session, trigger Trigger)

// View describes the snap being opened.
type View struct {
	ConversationID string
	Mode           models.ViewMode
	Duration       time.Duration
	ExpiresAt      time.Time
}

// Session is a snapshot of an active viewing session.
type Session struct {
	MessageID      string
	ViewerID       string
	ConversationID string
	Mode           models.ViewMode
	StartedAt      time.Time
	Deadline       time.Time
	ExpiresAt      time.Time
}

// Remaining returns how long the session may stay open after now.
func (s Session) Remaining(now time.Time) time.Duration {
	if d := s.Deadline.Sub(now); d > 0 {
		return d
	}
	return 0
}

type key struct{ messageID, viewerID string }

type session struct {
	Session
	timer Timer
	once  sync.Once
}

type Options struct {
	MaxDwell  time.Duration
	AfterFunc AfterFunc
	Now       func() time.Time
}

// Controller tracks open sessions. view_once sessions it has consumed are remembered
// until the snap expires so a racing reopen cannot start a second session.
type Controller struct {
	mu       sync.Mutex
	sessions map[key]*session
	consumed map[key]time.Time

	maxDwell  time.Duration
	afterFunc AfterFunc
	now       func() time.Time
	onConsume ConsumeFunc
}

func NewController(opts Options, onConsume ConsumeFunc) *Controller {
	if opts.AfterFunc == nil {
		opts.AfterFunc = realAfterFunc
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxDwell <= 0 {
		opts.MaxDwell = 10 * time.Second
	}
	return &Controller{
		sessions:  make(map[key]*session),
		consumed:  make(map[key]time.Time),
		maxDwell:  opts.MaxDwell,
		afterFunc: opts.AfterFunc,
		now:       opts.Now,
		onConsume: onConsume,
	}
}

// Start opens a viewing session. Opening a snap that the viewer is already viewing
// returns the running session unchanged.
func (c *Controller) Start(messageID, viewerID string, v View) (Session, error) {
	now := c.now()
	if !now.Before(v.ExpiresAt) {
		return Session{}, ErrExpired
	}

	k := key{messageID, viewerID}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked(now)

	if s, ok := c.sessions[k]; ok {
		return s.Session, nil
	}
	if _, done := c.consumed[k]; done && v.Mode == models.ViewOnce {
		return Session{}, ErrConsumed
	}

	limit, trigger := v.Duration, TriggerTimer
	if v.Mode == models.ViewOnce {
		limit, trigger = c.maxDwell, TriggerDwell
	}
	if untilExpiry := v.ExpiresAt.Sub(now); untilExpiry < limit {
		limit, trigger = untilExpiry, TriggerExpiry
	}

	s := &session{Session: Session{
		MessageID:      messageID,
		ViewerID:       viewerID,
		ConversationID: v.ConversationID,
		Mode:           v.Mode,
		StartedAt:      now,
		Deadline:       now.Add(limit),
		ExpiresAt:      v.ExpiresAt,
	}}
	c.sessions[k] = s
	// The callback needs c.mu, so it cannot observe s before s.timer is set.
	s.timer = c.afterFunc(limit, func() { c.finish(k, s, trigger) })
	return s.Session, nil
}

// Close ends the viewer's session. It reports whether this call consumed it; false
// means there was no open session or another trigger got there first.
func (c *Controller) Close(messageID, viewerID string) bool {
	k := key{messageID, viewerID}
	c.mu.Lock()
	s, ok := c.sessions[k]
	c.mu.Unlock()
	if !ok {
		return false
	}
	return c.finish(k, s, TriggerClose)
}

// Viewing returns the active session, if any.
func (c *Controller) Viewing(messageID, viewerID string) (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[key{messageID, viewerID}]
	if !ok {
		return Session{}, false
	}
	return s.Session, true
}

// Shutdown cancels every pending timer without consuming the sessions.
func (c *Controller) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, s := range c.sessions {
		if s.timer != nil {
			s.timer.Stop()
		}
		delete(c.sessions, k)
	}
}

func (c *Controller) finish(k key, s *session, trigger Trigger) bool {
	fired := false
	s.once.Do(func() {
		fired = true
		c.mu.Lock()
		if c.sessions[k] == s {
			delete(c.sessions, k)
		}
		if s.Mode == models.ViewOnce {
			c.consumed[k] = s.ExpiresAt
		}
		timer := s.timer
		c.mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
	})
	if fired && c.onConsume != nil {
		c.onConsume(s.Session, trigger)
	}
	return fired
}

func (c *Controller) pruneLocked(now time.Time) {
	for k, expiresAt := range c.consumed {
		if !now.Before(expiresAt) {
			delete(c.consumed, k)
		}
	}
}
