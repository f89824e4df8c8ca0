package core

import (
	"context"
	"errors"
	"fmt"

	"campus-canteen/internal/xpkg/models"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrMenuItemNotFound = errors.New("menu item not found")
	// ErrConflict is returned by compare-and-set writes when the row no longer
	// carries the expected value.
	ErrConflict = errors.New("order was changed concurrently")
	ErrClosed   = errors.New("store is closed")
)

// StoreError wraps every failure coming out of a store backend.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Wrap returns nil for a nil err, and never double wraps.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// Unsubscribe stops a change feed subscription. Safe to call more than once.
type Unsubscribe func()

type OrderCallback func(models.Change[models.Order])

type MenuCallback func(models.Change[models.MenuItem])

type IOrderStore interface {
	// ListOrders returns every order, newest first.
	ListOrders(ctx context.Context) ([]models.Order, error)
	GetOrder(ctx context.Context, id int64) (models.Order, error)
	CreateOrder(ctx context.Context, draft models.OrderDraft) (models.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status models.Status, changedBy string) (models.Order, error)
	// AdvanceOrderStatus moves the order to `to` only if it is still in `from`.
	AdvanceOrderStatus(ctx context.Context, id int64, from, to models.Status, changedBy string) (models.Order, error)
	// MarkOrderPaid sets payment to paid and status to completed in one write.
	MarkOrderPaid(ctx context.Context, id int64, changedBy string) (models.Order, error)
	DeleteOrder(ctx context.Context, id int64) error
	OrderHistory(ctx context.Context, id int64) ([]models.StatusLog, error)
	SubscribeOrderChanges(ctx context.Context, cb OrderCallback) (Unsubscribe, error)
}

type IMenuStore interface {
	ListMenuItems(ctx context.Context) ([]models.MenuItem, error)
	GetMenuItem(ctx context.Context, id int64) (models.MenuItem, error)
	CreateMenuItem(ctx context.Context, draft models.MenuItemDraft) (models.MenuItem, error)
	UpdateMenuItem(ctx context.Context, id int64, draft models.MenuItemDraft) (models.MenuItem, error)
	SetMenuItemAvailability(ctx context.Context, id int64, available bool) (models.MenuItem, error)
	DeleteMenuItem(ctx context.Context, id int64) error
	SubscribeMenuChanges(ctx context.Context, cb MenuCallback) (Unsubscribe, error)
}

type IStore interface {
	IOrderStore
	IMenuStore
	Close() error
}
