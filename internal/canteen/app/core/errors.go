package core

import (
	"errors"
	"fmt"

	xerrors "campus-canteen/internal/xpkg/errors"
)

var (
	ErrHelp = xerrors.ErrHelp

	ErrEmptyCart          = errors.New("cart is empty")
	ErrInvalidTable       = errors.New("invalid table number")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrUnknownMenuItem    = errors.New("unknown menu item")
	ErrUnavailableItem    = errors.New("menu item is not available")
	ErrUnknownPayment     = errors.New("unknown payment method")
	ErrNoteTooLong        = errors.New("note is too long")
	ErrInvalidName        = errors.New("invalid name")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidPrice       = errors.New("invalid price")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrTransitionRejected = errors.New("status change is not allowed")
	ErrSurfaceNotReady    = errors.New("orders are still loading")
)

// ValidationError rejects user input before any store call.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func Invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// ActionError is a failed user action. Message is safe to show to the user;
// Err keeps the underlying cause for logs.
type ActionError struct {
	Action  string
	Message string
	Err     error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Action, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

const (
	ActionPlaceOrder   = "place_order"
	ActionUpdateStatus = "update_status"
	ActionMarkPaid     = "mark_paid"
	ActionDeleteOrder  = "delete_order"
	ActionSaveMenuItem = "save_menu_item"
	ActionDeleteMenu   = "delete_menu_item"
	ActionLoad         = "load"
)

var actionMessages = map[string]string{
	ActionUpdateStatus: "Failed to update status. Please try again.",
	ActionMarkPaid:     "Failed to mark as paid. Please try again.",
	ActionDeleteOrder:  "Failed to delete order. Please try again.",
	ActionSaveMenuItem: "Failed to save menu item. Please try again.",
	ActionDeleteMenu:   "Failed to delete menu item. Please try again.",
	ActionLoad:         "Failed to load data. Please try again.",
}

// Failed wraps a store failure of action with its user-facing message.
func Failed(action string, err error) error {
	msg, ok := actionMessages[action]
	if !ok {
		msg = "Something went wrong. Please try again."
	}
	if action == ActionPlaceOrder {
		msg = "Failed to place order: " + err.Error()
	}
	return &ActionError{Action: action, Message: msg, Err: err}
}
