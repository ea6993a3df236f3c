// Package followup nudges customers who stopped answering mid-order.
//
// At most one timer is live per session. Every inbound message touches
// the nudger, which cancels the pending timer and re-arms it only while
// the cart is non-empty and the conversation hasn't reached a terminal
// state. The nudge fires once per session: after it has been sent, the
// timer is never re-armed until the session is reset.
package followup

import (
	"log/slog"
	"time"

	"github.com/brutusburger/brutabot/internal/session"
)

// DefaultDelay is how long a session may sit idle with items in the
// cart before the nudge goes out.
const DefaultDelay = 10 * time.Minute

// Handle cancels a scheduled callback. Cancel is idempotent; canceling
// a handle whose callback already ran is a no-op.
type Handle interface {
	Cancel()
}

// Scheduler schedules a single delayed callback.
type Scheduler interface {
	Schedule(d time.Duration, fn func()) Handle
}

// Nudger owns the per-session follow-up timers.
type Nudger struct {
	sessions *session.Store
	sched    Scheduler
	delay    time.Duration
	send     func(customerID string)
	logger   *slog.Logger
}

// Option configures a Nudger.
type Option func(*Nudger)

// WithDelay overrides the idle delay.
func WithDelay(d time.Duration) Option {
	return func(n *Nudger) { n.delay = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Nudger) { n.logger = logger }
}

// New creates a nudger. send delivers the nudge text to the customer;
// it runs on the scheduler's goroutine.
func New(sessions *session.Store, sched Scheduler, send func(customerID string), opts ...Option) *Nudger {
	n := &Nudger{
		sessions: sessions,
		sched:    sched,
		delay:    DefaultDelay,
		send:     send,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Touch resets the customer's timer. The pending timer, if any, is
// always canceled; a new one is armed only while a nudge still makes
// sense (items in the cart, conversation not terminal, nudge not yet
// sent).
func (n *Nudger) Touch(customerID string) {
	n.sessions.UpdateFollowup(customerID, func(s *session.Session) {
		if s.Followup != nil {
			s.Followup.Cancel()
			s.Followup = nil
		}
		if s.FollowupSent || s.State.Terminal() || len(s.Cart) == 0 {
			return
		}
		s.Followup = n.sched.Schedule(n.delay, func() { n.fire(customerID) })
	})
}

// Cancel drops the customer's pending timer without re-arming.
func (n *Nudger) Cancel(customerID string) {
	n.sessions.UpdateFollowup(customerID, func(s *session.Session) {
		if s.Followup != nil {
			s.Followup.Cancel()
			s.Followup = nil
		}
	})
}

// fire re-checks the session before sending: the customer may have
// finished or emptied the cart between arming and expiry.
func (n *Nudger) fire(customerID string) {
	ok := false
	n.sessions.UpdateFollowup(customerID, func(s *session.Session) {
		s.Followup = nil
		if s.FollowupSent || s.State.Terminal() || len(s.Cart) == 0 {
			return
		}
		s.FollowupSent = true
		ok = true
	})
	if !ok {
		return
	}

	n.logger.Info("sending follow-up nudge", "customer", customerID)
	n.send(customerID)
	n.sessions.Mutate(customerID, session.EventFollowupSent, func(*session.Session) {})
}
