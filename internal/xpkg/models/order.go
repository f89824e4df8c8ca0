package models

import (
	"fmt"
	"strings"
	"time"

	xerrors "campus-canteen/internal/xpkg/errors"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusPending, StatusPreparing, StatusReady, StatusCompleted, StatusCancelled}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPreparing, StatusReady, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", xerrors.ErrMalformedData, s)
	}
	return st, nil
}

type PaymentMethod string

const (
	PaymentUPI  PaymentMethod = "UPI"
	PaymentCash PaymentMethod = "Cash"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "upi":
		return PaymentUPI, nil
	case "cash":
		return PaymentCash, nil
	}
	return "", fmt.Errorf("%w: unknown payment method %q", xerrors.ErrMalformedData, s)
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
)

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch PaymentStatus(strings.ToLower(strings.TrimSpace(s))) {
	case PaymentPending:
		return PaymentPending, nil
	case PaymentPaid:
		return PaymentPaid, nil
	}
	return "", fmt.Errorf("%w: unknown payment status %q", xerrors.ErrMalformedData, s)
}

// InitialPaymentStatus is the payment status an order starts with:
// UPI is collected at checkout, cash at the counter.
func InitialPaymentStatus(m PaymentMethod) PaymentStatus {
	if m == PaymentUPI {
		return PaymentPaid
	}
	return PaymentPending
}

type LineItem struct {
	MenuItemID int64           `json:"menu_item_id,omitempty"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	Category   string          `json:"category,omitempty"`
}

func (li LineItem) Subtotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

type Order struct {
	ID            int64           `json:"id"`
	TableNumber   int             `json:"table_number"`
	Items         []LineItem      `json:"items"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	Status        Status          `json:"status"`
	Note          string          `json:"note,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (o Order) Key() int64 { return o.ID }

// Date is the calendar day the order was placed on in loc, as YYYY-MM-DD.
func (o Order) Date(loc *time.Location) string {
	return o.CreatedAt.In(loc).Format(time.DateOnly)
}

// Time is the wall clock placement time in loc.
func (o Order) Time(loc *time.Location) string {
	return o.CreatedAt.In(loc).Format("15:04")
}

// Subtotal is the untaxed sum of the line items.
func (o Order) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, li := range o.Items {
		sum = sum.Add(li.Subtotal())
	}
	return sum
}

// OrderDraft is an order before the store assigned its identity.
type OrderDraft struct {
	TableNumber   int
	Items         []LineItem
	Total         decimal.Decimal
	PaymentMethod PaymentMethod
	PaymentStatus PaymentStatus
	Note          string
}

// StatusLog is one entry of an order's status history.
type StatusLog struct {
	OrderID   int64     `json:"order_id"`
	Status    Status    `json:"status"`
	ChangedBy string    `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
	Note      string    `json:"note,omitempty"`
}
