// Package notify holds the transient customer notification.
package notify

import (
	"sync"
	"time"
)

const DefaultDismissAfter = 5 * time.Second

type Notification struct {
	Title   string    `json:"title"`
	Message string    `json:"message"`
	OrderID int64     `json:"order_id,omitempty"`
	ShownAt time.Time `json:"shown_at"`
}

// Toast holds at most one notification. A new one supersedes the current one
// and restarts the dismiss countdown; there is no queue.
type Toast struct {
	mu      sync.Mutex
	after   time.Duration
	current *Notification
	timer   *time.Timer
	seq     uint64
	now     func() time.Time
}

func NewToast(dismissAfter time.Duration) *Toast {
	if dismissAfter <= 0 {
		dismissAfter = DefaultDismissAfter
	}
	return &Toast{after: dismissAfter, now: time.Now}
}

func (t *Toast) Show(n Notification) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}
	t.seq++
	seq := t.seq
	n.ShownAt = t.now()
	t.current = &n
	t.timer = time.AfterFunc(t.after, func() {
		t.expire(seq)
	})
}

// expire clears the notification only if it is still the one the timer was
// started for.
func (t *Toast) expire(seq uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.seq != seq {
		return
	}
	t.current = nil
	t.timer = nil
}

// Current returns the active notification, if any.
func (t *Toast) Current() (Notification, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return Notification{}, false
	}
	return *t.current, true
}

func (t *Toast) Dismiss() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.current = nil
}

// Stop cancels the pending timer on teardown.
func (t *Toast) Stop() {
	t.Dismiss()
}
