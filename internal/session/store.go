package session

import (
	"log/slog"
	"sync"
	"time"
)

// EventType identifies what a mutation did.
type EventType string

const (
	EventInit           EventType = "init"
	EventAdd            EventType = "add"
	EventRemove         EventType = "remove"
	EventQuantityChange EventType = "quantity_change"
	EventStateChange    EventType = "state_change"
	EventReset          EventType = "reset"
	EventFollowupSent   EventType = "followup_sent"
	EventMessage        EventType = "message"
)

// Event is published after every mutation. Session is a snapshot taken
// at publish time.
type Event struct {
	Type       EventType
	CustomerID string
	Session    Session
}

// DefaultHistoryLimit caps the per-session message history.
const DefaultHistoryLimit = 200

// Store owns all live sessions. Mutations are serialized under one lock
// and events are dispatched synchronously in mutation order, so a
// subscriber always sees states in the order they happened.
//
// Subscribers run with the store lock held and must not call back into
// the store; schedule follow-on work on another goroutine instead.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	subs     []func(Event)

	logger       *slog.Logger
	now          func() time.Time
	historyLimit int
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger used for state transitions.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(st *Store) { st.logger = logger }
}

// WithNow injects the time source used for message timestamps.
func WithNow(now func() time.Time) StoreOption {
	return func(st *Store) { st.now = now }
}

// WithHistoryLimit overrides the message history cap.
func WithHistoryLimit(n int) StoreOption {
	return func(st *Store) { st.historyLimit = n }
}

// NewStore creates an empty session store.
func NewStore(opts ...StoreOption) *Store {
	st := &Store{
		sessions:     make(map[string]*Session),
		logger:       slog.Default(),
		now:          time.Now,
		historyLimit: DefaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(st)
	}
	return st
}

// Subscribe registers a handler for every published event. Not safe to
// call concurrently with mutations; wire subscribers up front.
func (st *Store) Subscribe(fn func(Event)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.subs = append(st.subs, fn)
}

// Get returns a snapshot of the customer's session.
func (st *Store) Get(customerID string) (Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[customerID]
	if !ok {
		return Session{}, false
	}
	return s.snapshot(), true
}

// Mutate runs fn against the customer's session, creating it first if
// needed. After fn returns, the total is recomputed, the history is
// trimmed, and an event of the given type is published. The returned
// Session is a post-mutation snapshot.
func (st *Store) Mutate(customerID string, typ EventType, fn func(*Session)) Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	s := st.getOrCreateLocked(customerID)
	before := s.State

	fn(s)

	s.Total = st.totalFor(s)
	s.UpdatedAt = st.now()
	if len(s.History) > st.historyLimit {
		s.History = s.History[len(s.History)-st.historyLimit:]
	}

	if s.State != before {
		st.logger.Info("session state change",
			"customer", customerID, "from", before, "to", s.State)
	}
	st.publishLocked(Event{Type: typ, CustomerID: customerID, Session: s.snapshot()})
	return s.snapshot()
}

// UpdateFollowup runs fn against the session without publishing an
// event. It exists for follow-up timer bookkeeping (arming and clearing
// handles), which is not a domain mutation; everything else goes
// through Mutate.
func (st *Store) UpdateFollowup(customerID string, fn func(*Session)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	fn(st.getOrCreateLocked(customerID))
}

// Reset replaces the session with a fresh one, preserving only the
// customer's name. Any pending follow-up is canceled.
func (st *Store) Reset(customerID string) Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	var name string
	if old, ok := st.sessions[customerID]; ok {
		name = old.CustomerName
		if old.Followup != nil {
			old.Followup.Cancel()
		}
	}
	s := st.newSession(customerID)
	s.CustomerName = name
	st.sessions[customerID] = s

	st.logger.Info("session reset", "customer", customerID)
	st.publishLocked(Event{Type: EventReset, CustomerID: customerID, Session: s.snapshot()})
	return s.snapshot()
}

// CustomerIDs lists the customers with a live session.
func (st *Store) CustomerIDs() []string {
	st.mu.Lock()
	defer st.mu.Unlock()
	ids := make([]string, 0, len(st.sessions))
	for id := range st.sessions {
		ids = append(ids, id)
	}
	return ids
}

func (st *Store) getOrCreateLocked(customerID string) *Session {
	if s, ok := st.sessions[customerID]; ok {
		return s
	}
	s := st.newSession(customerID)
	st.sessions[customerID] = s
	st.publishLocked(Event{Type: EventInit, CustomerID: customerID, Session: s.snapshot()})
	return s
}

func (st *Store) newSession(customerID string) *Session {
	return &Session{
		CustomerID: customerID,
		State:      StateInitial,
		StartedAt:  st.now(),
		UpdatedAt:  st.now(),
	}
}

func (st *Store) totalFor(s *Session) float64 {
	total := s.ItemsTotal()
	if s.Delivery && s.DeliveryFee > 0 {
		total += s.DeliveryFee
	}
	return round2(total)
}

func (st *Store) publishLocked(ev Event) {
	for _, fn := range st.subs {
		fn(ev)
	}
}
