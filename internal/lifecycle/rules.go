// Package lifecycle holds the order status rules shared by every surface:
// the default forward path, the terminal states, the mark-paid shortcut and
// the admin override.
package lifecycle

import (
	"errors"
	"fmt"

	"campus-canteen/internal/xpkg/models"
)

var (
	ErrTerminalState     = errors.New("order is in a terminal state")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrCannotMarkPaid    = errors.New("order cannot be marked as paid")
)

var next = map[models.Status]models.Status{
	models.StatusPending:   models.StatusPreparing,
	models.StatusPreparing: models.StatusReady,
	models.StatusReady:     models.StatusCompleted,
}

var rank = map[models.Status]int{
	models.StatusPending:   0,
	models.StatusPreparing: 1,
	models.StatusReady:     2,
	models.StatusCompleted: 3,
}

// Next returns the status following s on the default path. Terminal and
// unknown statuses have none.
func Next(s models.Status) (models.Status, bool) {
	n, ok := next[s]
	return n, ok
}

func IsTerminal(s models.Status) bool {
	return s == models.StatusCompleted || s == models.StatusCancelled
}

// IsActive reports whether an order in s still needs kitchen attention.
func IsActive(s models.Status) bool {
	return s.Valid() && !IsTerminal(s)
}

// CanMarkPaid reports whether the mark-paid shortcut is offered for s.
func CanMarkPaid(s models.Status) bool {
	return IsActive(s)
}

func CanCancel(s models.Status) bool {
	return IsActive(s)
}

// IsValidTransition validates a move made by the default views: the forward
// step, a cancel, or the jump to completed used by mark-paid. Nothing leaves a
// terminal state.
func IsValidTransition(from, to models.Status) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if IsTerminal(from) || from == to {
		return false
	}
	switch to {
	case models.StatusCancelled, models.StatusCompleted:
		return true
	}
	return rank[to] == rank[from]+1
}

// Validate is IsValidTransition with a reason.
func Validate(from, to models.Status) error {
	if IsTerminal(from) {
		return fmt.Errorf("%w: %s -> %s", ErrTerminalState, from, to)
	}
	if !IsValidTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// Override describes a manual admin status change. Overrides bypass lifecycle
// validation entirely: any status may be set on any order, terminal or not.
type Override struct {
	From models.Status
	To   models.Status
}

// Deviates reports whether the override leaves the default path, so callers
// can record it.
func (o Override) Deviates() bool {
	return !IsValidTransition(o.From, o.To)
}
