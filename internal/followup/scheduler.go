package followup

import (
	"sync"
	"time"
)

// TimerScheduler runs callbacks on real timers.
type TimerScheduler struct{}

type timerHandle struct {
	t *time.Timer
}

func (h *timerHandle) Cancel() { h.t.Stop() }

// Schedule arms a one-shot timer.
func (TimerScheduler) Schedule(d time.Duration, fn func()) Handle {
	return &timerHandle{t: time.AfterFunc(d, fn)}
}

// ManualScheduler holds scheduled callbacks until the test fires them.
type ManualScheduler struct {
	mu      sync.Mutex
	pending []*manualHandle
}

type manualHandle struct {
	fn       func()
	canceled bool
}

func (h *manualHandle) Cancel() { h.canceled = true }

// NewManualScheduler creates an empty manual scheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// Schedule queues the callback; the delay is recorded nowhere because
// firing is explicit.
func (m *ManualScheduler) Schedule(d time.Duration, fn func()) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := &manualHandle{fn: fn}
	m.pending = append(m.pending, h)
	return h
}

// Fire runs every pending callback that hasn't been canceled and clears
// the queue. Returns how many callbacks ran.
func (m *ManualScheduler) Fire() int {
	m.mu.Lock()
	pending := m.pending
	m.pending = nil
	m.mu.Unlock()

	ran := 0
	for _, h := range pending {
		if h.canceled {
			continue
		}
		h.fn()
		ran++
	}
	return ran
}

// PendingCount reports how many live (uncanceled) callbacks are queued.
func (m *ManualScheduler) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, h := range m.pending {
		if !h.canceled {
			n++
		}
	}
	return n
}
